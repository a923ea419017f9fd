package handlers

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/internal/spec"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// rawFrame carries one gRPC message as opaque wire bytes.
type rawFrame struct {
	data []byte
}

// rawCodec is a transparent grpc/encoding.Codec: it never decodes into a
// protobuf message, so GRPCHandler can terminate any service without that
// service's .proto descriptors (grounded on the grpc-proxy transparent
// codec pattern; names itself "proto" since that's the content-subtype
// every generated client negotiates by default).
type rawCodec struct{}

func (rawCodec) Name() string { return "proto" }

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	f, ok := v.(*rawFrame)
	if !ok {
		return nil, fmt.Errorf("rawCodec: unsupported type %T", v)
	}
	return f.data, nil
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	f, ok := v.(*rawFrame)
	if !ok {
		return fmt.Errorf("rawCodec: unsupported type %T", v)
	}
	f.data = append([]byte(nil), data...)
	return nil
}

func init() {
	encoding.RegisterCodec(rawCodec{})
}

// GRPCHandler implements contracts.ProtocolHandler by terminating gRPC
// calls generically through grpc.UnknownServiceHandler (§4.1, §1 Non-goals
// "protobuf wire format" stays unparsed — fixtures and spec operations key
// off the method name alone).
type GRPCHandler struct {
	Base
	Specs  *spec.ProtoRegistry
	Server *grpc.Server
}

// NewGRPCHandler builds a GRPCHandler with its embedded *grpc.Server.
// Reflection is registered so grpcurl/grpcui can enumerate the server even
// though it carries no registered service descriptors.
func NewGRPCHandler(fixtures *fixture.Registry, specs *spec.ProtoRegistry, seed int64) *GRPCHandler {
	h := &GRPCHandler{Base: Base{Fixtures: fixtures, Seed: seed}, Specs: specs}
	h.Server = grpc.NewServer(grpc.UnknownServiceHandler(h.streamHandler))
	reflection.Register(h.Server)
	return h
}

func (h *GRPCHandler) Protocol() model.Protocol { return model.ProtocolGRPC }

// streamHandler services every incoming call regardless of method name: one
// request frame in, the uniform fixture/spec serve path, one response frame
// out. Only unary request_response semantics are handled here; true
// client/server streaming is out of scope for the mock surface (§1).
func (h *GRPCHandler) streamHandler(srv interface{}, stream grpc.ServerStream) error {
	method, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "no method name on stream")
	}

	var in rawFrame
	if err := stream.RecvMsg(&in); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	req := model.NewProtocolRequest(model.ProtocolGRPC, model.PatternRequestResponse)
	req.Operation = method
	req.Body = in.data
	if md, ok := metadata.FromIncomingContext(stream.Context()); ok {
		for k, vs := range md {
			if len(vs) > 0 {
				req.Metadata.Set(k, vs[0])
			}
		}
	}

	resp, err := h.Serve(stream.Context(), req)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	if code, ok := resp.Status.AsCode(); ok && code != 0 {
		return status.Error(codes.Code(code), string(resp.Body))
	}
	return stream.SendMsg(&rawFrame{data: resp.Body})
}

// Decode is used only by callers driving a GRPCHandler outside of
// h.Server (e.g. tests); the live server path decodes through
// streamHandler instead.
func (h *GRPCHandler) Decode(ctx context.Context, raw []byte, transportCtx map[string]string) (*model.ProtocolRequest, error) {
	req := model.NewProtocolRequest(model.ProtocolGRPC, model.PatternRequestResponse)
	req.Operation = transportCtx["method"]
	req.Body = raw
	return req, nil
}

func (h *GRPCHandler) Encode(ctx context.Context, resp *model.ProtocolResponse) ([]byte, error) {
	return resp.Body, nil
}

// Serve matches a fixture by fully-qualified method name, falling back to
// proto-schema generation (§4.9) when nothing matches.
func (h *GRPCHandler) Serve(ctx context.Context, req *model.ProtocolRequest) (*model.ProtocolResponse, error) {
	if resp, matched, err := h.matchFixture(req); matched {
		return resp, err
	}
	if h.Specs != nil {
		if _, ok := h.Specs.LookupByMethod(req.Operation); ok {
			return h.Specs.GenerateForMethod(req.Operation, h.Seed)
		}
	}
	return nil, notFound(model.ProtocolGRPC, req.Operation)
}
