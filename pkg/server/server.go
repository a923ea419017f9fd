// Package server provides the public entry point for initializing MockForge
// core: it wires every subsystem (fixtures, scenarios, promotions,
// pipelines, protocol handlers, the management REST surface, and a
// catch-all mock-serving HTTP edge) into one running Server.
//
// Grounded on the teacher's pkg/server/server.go: a single buildServer
// composing services in dependency order, optional integrations gated by
// environment variables, and a Server struct exposing its parts so a
// wrapping program can extend or override them.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	amqp "github.com/streadway/amqp"

	"github.com/rs/zerolog/log"

	"github.com/mockforge/mockforge-go/internal/api"
	"github.com/mockforge/mockforge-go/internal/api/handlers"
	"github.com/mockforge/mockforge-go/internal/config"
	"github.com/mockforge/mockforge-go/internal/events"
	"github.com/mockforge/mockforge-go/internal/fixture"
	"github.com/mockforge/mockforge-go/internal/middleware"
	"github.com/mockforge/mockforge-go/internal/pipeline"
	"github.com/mockforge/mockforge-go/internal/promotion"
	"github.com/mockforge/mockforge-go/internal/protocolreg"
	phandlers "github.com/mockforge/mockforge-go/internal/protocolreg/handlers"
	"github.com/mockforge/mockforge-go/internal/scenario"
	"github.com/mockforge/mockforge-go/internal/spec"
	"github.com/mockforge/mockforge-go/internal/telemetry"
	"github.com/mockforge/mockforge-go/pkg/contracts"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// Server holds the initialized MockForge core.
type Server struct {
	// Handler is the top-level HTTP handler: /health, /version, /api/v2/...
	// for management, and a catch-all mock-serving edge for everything else.
	Handler http.Handler

	Port   int
	Config *config.Config

	Events    *events.Bus
	Fixtures  *fixture.Registry
	Scenario  *scenario.Engine
	Promotion *promotion.Service
	Pipelines *pipeline.Registry
	Protocols *protocolreg.Registry
	Metrics   *middleware.Metrics

	cancel            context.CancelFunc
	shutdownTelemetry func(context.Context) error
	amqpConn          *amqp.Connection
}

// New initializes MockForge core from environment configuration.
func New(ctx context.Context) (*Server, error) {
	cfg := config.Load()

	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	workspace, err := config.LoadWorkspace(cfg.WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("load workspace config: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	bus := events.New()
	log.Info().Msg("event bus initialized")

	fixtures := fixture.New(bus)
	loader := fixture.NewLoader(cfg.Fixtures.Dir, fixtures)
	if err := loader.LoadAll(); err != nil {
		log.Warn().Err(err).Str("dir", cfg.Fixtures.Dir).Msg("fixture directory load failed")
	}
	if cfg.Fixtures.Watch {
		go func() {
			if err := loader.Watch(runCtx); err != nil {
				log.Warn().Err(err).Msg("fixture watcher stopped")
			}
		}()
	}
	log.Info().Str("dir", cfg.Fixtures.Dir).Msg("fixture registry initialized")

	scenarioEngine := scenario.New(bus)
	if scenariosFile := os.Getenv("MOCKFORGE_SCENARIOS_FILE"); scenariosFile != "" {
		if raw, err := os.ReadFile(scenariosFile); err != nil {
			log.Warn().Err(err).Str("file", scenariosFile).Msg("scenario manifest load failed")
		} else if manifest, err := scenario.ParseManifest(raw); err != nil {
			log.Warn().Err(err).Str("file", scenariosFile).Msg("scenario manifest invalid")
		} else if err := scenarioEngine.LoadFromManifest(manifest); err != nil {
			log.Warn().Err(err).Str("file", scenariosFile).Msg("scenario manifest rejected")
		} else {
			log.Info().Str("file", scenariosFile).Msg("scenario manifest loaded")
		}
	}

	promotionSvc := promotion.New(workspace.ApprovalRulesModel(), resolveGitOpsProvider(workspace), serializePromotedEntity)
	janitor := promotion.NewJanitor(promotionSvc, time.Hour, promotion.DefaultPromotionRetention)
	go janitor.Start(runCtx)
	log.Info().Msg("promotion service and retention janitor started")

	executors := pipeline.NewExecutorRegistry()
	executors.Register(&pipeline.AutoPromoteExecutor{Promote: autoPromoteHook(promotionSvc)})
	executors.Register(&pipeline.NotifyExecutor{Drivers: map[string]contracts.ChannelDriver{
		"log": logChannelDriver{},
	}})
	pipelines := pipeline.New()
	runner := pipeline.NewRunner(executors)
	go runPipelineSubscriber(runCtx, bus, pipelines, runner)
	log.Info().Msg("pipeline engine started, subscribed to event bus")

	openapiSpecs := spec.NewOpenAPIRegistry()
	protoSpecs := spec.NewProtoRegistry()
	graphqlSpecs := spec.NewGraphQLRegistry()

	metrics := middleware.NewMetrics()
	chain := middleware.NewChain(
		middleware.NewAuth(cfg.Auth.ValidKeys, cfg.Auth.Required),
		middleware.NewLatency(time.Duration(cfg.Latency.BaseMS)*time.Millisecond, time.Duration(cfg.Latency.JitterMS)*time.Millisecond),
		middleware.NewLogging(),
		metrics,
	)
	protocols := protocolreg.New(chain)

	httpHandler := phandlers.NewHTTPHandler(fixtures, openapiSpecs, cfg.Datagen.Seed)
	protocols.Register(httpHandler)
	protocols.Register(phandlers.NewGRPCHandler(fixtures, protoSpecs, cfg.Datagen.Seed))
	protocols.Register(phandlers.NewWebSocketHandler(fixtures, cfg.Datagen.Seed))
	protocols.Register(phandlers.NewGraphQLHandler(fixtures, graphqlSpecs, cfg.Datagen.Seed))
	protocols.Register(phandlers.NewMQTTHandler(fixtures, cfg.Datagen.Seed))
	protocols.Register(phandlers.NewKafkaHandler(fixtures, cfg.Datagen.Seed))
	protocols.Register(phandlers.NewSMTPHandler(fixtures, cfg.Datagen.Seed))
	protocols.Register(phandlers.NewFTPHandler(fixtures, cfg.Datagen.Seed))
	log.Info().Msg("core protocol handlers registered: http, grpc, websocket, graphql, mqtt, kafka, smtp, ftp")

	var amqpConn *amqp.Connection
	if amqpURL := os.Getenv("MOCKFORGE_AMQP_URL"); amqpURL != "" {
		amqpConn, err = amqp.Dial(amqpURL)
		if err != nil {
			log.Warn().Err(err).Msg("amqp dial failed; amqp/rabbitmq protocols disabled")
		} else if ch, err := amqpConn.Channel(); err != nil {
			log.Warn().Err(err).Msg("amqp channel open failed; amqp/rabbitmq protocols disabled")
		} else {
			protocols.Register(phandlers.NewAMQPHandler(fixtures, ch, cfg.Datagen.Seed))
			protocols.Register(phandlers.NewRabbitMQHandler(fixtures, ch, cfg.Datagen.Seed))
			log.Info().Str("url", amqpURL).Msg("amqp/rabbitmq protocol handlers registered")
		}
	}

	h := handlers.New(scenarioEngine, promotionSvc, fixtures, pipelines, bus)
	mgmtRouter := api.NewRouter(h, cfg.CORSOrigins, cfg.Version)

	root := http.NewServeMux()
	root.Handle("/health", mgmtRouter)
	root.Handle("/version", mgmtRouter)
	root.Handle("/api/v2/", mgmtRouter)
	root.Handle("/", newMockHandler(protocols, httpHandler))

	return &Server{
		Handler:           root,
		Port:              cfg.Port,
		Config:            cfg,
		Events:            bus,
		Fixtures:          fixtures,
		Scenario:          scenarioEngine,
		Promotion:         promotionSvc,
		Pipelines:         pipelines,
		Protocols:         protocols,
		Metrics:           metrics,
		cancel:            cancel,
		shutdownTelemetry: shutdownTelemetry,
		amqpConn:          amqpConn,
	}, nil
}

// Shutdown stops background goroutines (fixture watcher, promotion janitor,
// pipeline subscriber), closes the optional AMQP connection, and flushes
// telemetry.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.amqpConn != nil {
		_ = s.amqpConn.Close()
	}
	if s.shutdownTelemetry != nil {
		return s.shutdownTelemetry(ctx)
	}
	return nil
}

// runPipelineSubscriber drives §4.8's event -> matching pipelines -> execute
// -> record loop for as long as ctx is live.
func runPipelineSubscriber(ctx context.Context, bus *events.Bus, pipelines *pipeline.Registry, runner *pipeline.Runner) {
	ch := bus.Subscribe(ctx)
	for event := range ch {
		for _, p := range pipelines.MatchingPipelines(event) {
			exec := runner.Execute(ctx, p, event)
			pipelines.RecordExecution(exec)
		}
	}
}

// autoPromoteHook adapts the pipeline "auto_promote" step's config onto a
// PromotionRequest and hands it to the promotion service.
func autoPromoteHook(svc *promotion.Service) func(ctx context.Context, sc contracts.StepContext) (string, error) {
	return func(_ context.Context, sc contracts.StepContext) (string, error) {
		req := &model.PromotionRequest{
			WorkspaceID:     sc.WorkspaceID,
			EntityType:      model.PromotionEntityType(stringFromConfig(sc.Config, "entity_type")),
			EntityID:        stringFromConfig(sc.Config, "entity_id"),
			EntityVersion:   stringFromConfig(sc.Config, "entity_version"),
			FromEnvironment: model.MockEnvironmentName(stringFromConfig(sc.Config, "from_environment")),
			ToEnvironment:   model.MockEnvironmentName(stringFromConfig(sc.Config, "to_environment")),
			RequestedBy:     "pipeline:" + sc.PipelineID,
		}
		created := svc.Create(req)
		return created.ID, nil
	}
}

func stringFromConfig(stepConfig map[string]interface{}, key string) string {
	s, _ := stepConfig[key].(string)
	return s
}

// resolveGitOpsProvider is the §4.6 "optional GitOps hook": no built-in
// provider ships with core, so a configured but unimplemented provider name
// just logs and falls back to nil (promotions complete without opening a PR).
func resolveGitOpsProvider(workspace *config.WorkspaceConfig) contracts.GitOpsProvider {
	if workspace == nil || workspace.GitOps == nil {
		return nil
	}
	log.Warn().Str("provider", workspace.GitOps.Provider).
		Msg("gitops provider configured but no driver is registered; promotions will complete without opening a PR")
	return nil
}

// serializePromotedEntity is the minimal serialize hook Service.createGitOpsPR
// needs: the promotion request itself, since core keeps no separate entity
// store to look the promoted scenario/persona/config up from.
func serializePromotedEntity(_ context.Context, req *model.PromotionRequest) ([]byte, error) {
	return json.Marshal(req)
}

// logChannelDriver is the always-available "notify" channel, logging instead
// of calling out to a real messaging provider (§4.4 "notify" built-in).
type logChannelDriver struct{}

func (logChannelDriver) Kind() string { return "log" }

func (logChannelDriver) Send(_ context.Context, target string, payload map[string]interface{}) error {
	log.Info().Str("target", target).Interface("payload", payload).Msg("pipeline notify")
	return nil
}

// newMockHandler adapts net/http requests into the HTTP protocol handler's
// Decode/Dispatch/Encode round-trip, the transport edge the handler's own
// doc comment defers to.
func newMockHandler(reg *protocolreg.Registry, h *phandlers.HTTPHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		transportCtx := map[string]string{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
		}
		for name, values := range r.Header {
			if len(values) > 0 {
				transportCtx["header."+strings.ToLower(name)] = values[0]
			}
		}

		req, err := h.Decode(r.Context(), body, transportCtx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := reg.Dispatch(r.Context(), req)
		for _, key := range resp.Metadata.Keys() {
			if v, ok := resp.Metadata.Get(key); ok {
				w.Header().Set(key, v)
			}
		}
		if resp.ContentType != "" {
			w.Header().Set("Content-Type", resp.ContentType)
		}
		code, _ := resp.Status.AsCode()
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(int(code))

		encoded, err := h.Encode(r.Context(), resp)
		if err != nil {
			log.Warn().Err(err).Msg("mock response encode failed")
			return
		}
		_, _ = w.Write(encoded)
	}
}
