// Package config loads MockForge's process configuration from environment
// variables, following the teacher's envStr/envInt/envBool Load() idiom,
// plus an optional YAML workspace-config file for the structured settings
// (environments, approval rules, GitOps provider) a flat env-map can't
// express cleanly.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for a MockForge core process.
type Config struct {
	Port      int
	Version   string
	Telemetry TelemetryConfig
	Fixtures  FixturesConfig
	Matcher   MatcherConfig
	Auth      AuthConfig
	Latency   LatencyConfig
	Datagen   DatagenConfig
	CORSOrigins []string

	// WorkspacePath, when set, is loaded by LoadWorkspace into a
	// *WorkspaceConfig (approval rules, environments, GitOps provider).
	WorkspacePath string
}

// TelemetryConfig configures the OpenTelemetry tracing pipeline.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// FixturesConfig configures the file-backed fixture loader (§4.5).
type FixturesConfig struct {
	Dir   string
	Watch bool
}

// MatcherConfig configures fingerprint construction (§4.5).
type MatcherConfig struct {
	HeaderKeys []string
	BucketIP   bool
}

// AuthConfig configures the built-in Auth middleware (§4.2).
type AuthConfig struct {
	ValidKeys []string
	Required  bool
}

// LatencyConfig configures the built-in Latency middleware (§4.2).
type LatencyConfig struct {
	BaseMS   int64
	JitterMS int64
}

// DatagenConfig configures the default seeded generator (§4.7).
type DatagenConfig struct {
	Seed         int64
	MaxDepth     int
	MaxArraySize int
	EmitOptional bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("MOCKFORGE_PORT", 8080),
		Version: envStr("MOCKFORGE_VERSION", "0.1.0"),
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "mockforge-core"),
		},
		Fixtures: FixturesConfig{
			Dir:   envStr("MOCKFORGE_FIXTURES_DIR", "./fixtures"),
			Watch: envBool("MOCKFORGE_FIXTURES_WATCH", true),
		},
		Matcher: MatcherConfig{
			HeaderKeys: envList("MOCKFORGE_MATCHER_HEADERS", []string{"content-type", "accept"}),
			BucketIP:   envBool("MOCKFORGE_MATCHER_BUCKET_IP", false),
		},
		Auth: AuthConfig{
			ValidKeys: envList("MOCKFORGE_AUTH_KEYS", nil),
			Required:  envBool("MOCKFORGE_AUTH_REQUIRED", false),
		},
		Latency: LatencyConfig{
			BaseMS:   envInt64("MOCKFORGE_LATENCY_BASE_MS", 0),
			JitterMS: envInt64("MOCKFORGE_LATENCY_JITTER_MS", 0),
		},
		Datagen: DatagenConfig{
			Seed:         envInt64("MOCKFORGE_SEED", 1),
			MaxDepth:     envInt("MOCKFORGE_MAX_DEPTH", 5),
			MaxArraySize: envInt("MOCKFORGE_MAX_ARRAY_SIZE", 10),
			EmitOptional: envBool("MOCKFORGE_EMIT_OPTIONAL", true),
		},
		CORSOrigins:   envList("MOCKFORGE_CORS_ORIGINS", []string{"*"}),
		WorkspacePath: envStr("MOCKFORGE_WORKSPACE_CONFIG", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
