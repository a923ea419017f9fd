package middleware

import (
	"context"
	"strings"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// Auth extracts bearer/API-key claims from request metadata and stamps
// them back in as a "claims" metadata entry. Failures map to a
// protocol-appropriate 401/403 by the registry's error-response synthesis.
//
// Grounded on the teacher's AuthMiddleware chain-of-providers shape,
// collapsed to the single built-in provider this spec names (bearer/API key).
type Auth struct {
	// ValidKeys, when non-empty, restricts acceptance to these API keys.
	// Empty means any non-empty bearer/API-key header authenticates.
	ValidKeys map[string]bool
	Required  bool
}

// NewAuth builds an Auth middleware. validKeys may be nil to accept any key.
func NewAuth(validKeys []string, required bool) *Auth {
	m := &Auth{ValidKeys: make(map[string]bool, len(validKeys)), Required: required}
	for _, k := range validKeys {
		m.ValidKeys[k] = true
	}
	return m
}

func (a *Auth) Name() string { return "auth" }

func (a *Auth) SupportsProtocol(model.Protocol) bool { return true }

func (a *Auth) PreRequest(_ context.Context, req *model.ProtocolRequest) error {
	key := extractKey(req)
	if key == "" {
		if a.Required {
			return model.NewError(model.ErrValidation, "missing authentication credentials").WithCode("unauthenticated")
		}
		return nil
	}
	if len(a.ValidKeys) > 0 && !a.ValidKeys[key] {
		return model.NewError(model.ErrValidation, "invalid authentication credentials").WithCode("permission_denied")
	}
	req.Metadata.Set("claims", key)
	return nil
}

func (a *Auth) PostResponse(context.Context, *model.ProtocolRequest, *model.ProtocolResponse) error {
	return nil
}

func extractKey(req *model.ProtocolRequest) string {
	if v, ok := req.Metadata.Get("Authorization"); ok {
		if strings.HasPrefix(v, "Bearer ") {
			return strings.TrimPrefix(v, "Bearer ")
		}
		return v
	}
	if v, ok := req.Metadata.Get("X-API-Key"); ok {
		return v
	}
	return ""
}
