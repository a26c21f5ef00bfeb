// Package config provides configuration loading for collectiond.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingAuthToken indicates the required service token is absent.
// Startup must fail without it; the service never runs unauthenticated.
var ErrMissingAuthToken = errors.New("auth token required (set COLLECTIOND_AUTH_TOKEN)")

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Auth       AuthConfig       `koanf:"auth"`
	Admin      AdminConfig      `koanf:"admin"`
	Store      StoreConfig      `koanf:"store"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	Tracker    TrackerConfig    `koanf:"tracker"`
	Generative GenerativeConfig `koanf:"generative"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// AuthConfig holds the bearer token callers must present.
type AuthConfig struct {
	Token Secret `koanf:"token"`
}

// AdminConfig is the static allow-list of privileged workspaces. It is
// injected at service construction and immutable afterwards.
type AdminConfig struct {
	Workspaces []string `koanf:"workspaces"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	// Provider is "qdrant" or "memory".
	Provider string `koanf:"provider"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host           string   `koanf:"host"`
	Port           int      `koanf:"port"`
	APIKey         Secret   `koanf:"api_key"`
	UseTLS         bool     `koanf:"use_tls"`
	Timeout        Duration `koanf:"timeout"`
	StartupTimeout Duration `koanf:"startup_timeout"`
	TextField      string   `koanf:"text_field"`
}

// TrackerConfig holds artifact-tracker connection settings.
type TrackerConfig struct {
	// Mode is "nats" or "memory".
	Mode           string   `koanf:"mode"`
	URL            string   `koanf:"url"`
	SubjectPrefix  string   `koanf:"subject_prefix"`
	RequestTimeout Duration `koanf:"request_timeout"`
}

// GenerativeConfig holds the model backend settings. Generative search
// is disabled when the API key is unset.
type GenerativeConfig struct {
	APIKey         Secret `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	EmbeddingModel string `koanf:"embedding_model"`
	ChatModel      string `koanf:"chat_model"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// TelemetryConfig controls metric and trace export.
type TelemetryConfig struct {
	// Disabled turns provider installation off entirely.
	Disabled bool `koanf:"disabled"`

	// TraceEndpoint is an OTLP gRPC collector address; trace export is
	// off when empty.
	TraceEndpoint string `koanf:"trace_endpoint"`

	// TraceInsecure disables TLS on the OTLP connection.
	TraceInsecure bool `koanf:"trace_insecure"`

	// SampleRate is the trace sampling ratio in [0,1].
	SampleRate float64 `koanf:"sample_rate"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 9520
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Store.Provider == "" {
		c.Store.Provider = "qdrant"
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Tracker.Mode == "" {
		c.Tracker.Mode = "nats"
	}
	if c.Tracker.URL == "" {
		c.Tracker.URL = "nats://localhost:4222"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
}

// Validate checks the configuration for fatal errors.
func (c *Config) Validate() error {
	if !c.Auth.Token.IsSet() {
		return ErrMissingAuthToken
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Store.Provider {
	case "qdrant", "memory":
	default:
		return fmt.Errorf("unknown store provider: %q", c.Store.Provider)
	}
	switch c.Tracker.Mode {
	case "nats", "memory":
	default:
		return fmt.Errorf("unknown tracker mode: %q", c.Tracker.Mode)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging format: %q", c.Logging.Format)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("invalid telemetry sample rate: %v", c.Telemetry.SampleRate)
	}
	return nil
}
