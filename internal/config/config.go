// Package config provides configuration loading for collabd.
//
// Configuration is loaded from a YAML file, then overridden by COLLABD_*
// environment variables. Defaults are applied before validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the complete collabd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Backend   BackendConfig   `koanf:"backend"`
	Store     StoreConfig     `koanf:"store"`
	Auth      AuthConfig      `koanf:"auth"`
	Events    EventsConfig    `koanf:"events"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RateLimit       float64  `koanf:"rate_limit"`
	RateBurst       int      `koanf:"rate_burst"`
}

// BackendConfig holds search backend connection configuration.
type BackendConfig struct {
	Addresses   []string `koanf:"addresses"`
	Username    string   `koanf:"username"`
	Password    Secret   `koanf:"password"`
	InsecureTLS bool     `koanf:"insecure_tls"`
	DialTimeout Duration `koanf:"dial_timeout"`
}

// StoreConfig holds collaboration object store configuration.
type StoreConfig struct {
	IndexName       string   `koanf:"index_name"`
	OpTimeout       Duration `koanf:"op_timeout"`
	DefaultPageSize int      `koanf:"default_page_size"`
	MaxPageSize     int      `koanf:"max_page_size"`
}

// AuthConfig holds identity resolution configuration.
type AuthConfig struct {
	// JWTSecret verifies bearer tokens. When unset, requests carry no
	// identity and the access gate rejects protected operations.
	JWTSecret Secret `koanf:"jwt_secret"`
}

// EventsConfig holds lifecycle event publishing configuration.
type EventsConfig struct {
	// URL is the NATS server address. Empty disables publishing.
	URL           string   `koanf:"url"`
	SubjectPrefix string   `koanf:"subject_prefix"`
	PublishWait   Duration `koanf:"publish_wait"`
}

// TelemetryConfig holds OTLP exporter configuration.
type TelemetryConfig struct {
	Enabled        bool    `koanf:"enabled"`
	Endpoint       string  `koanf:"endpoint"`
	Protocol       string  `koanf:"protocol"`
	Insecure       bool    `koanf:"insecure"`
	ServiceName    string  `koanf:"service_name"`
	ServiceVersion string  `koanf:"service_version"`
	SampleRatio    float64 `koanf:"sample_ratio"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Sampling bool   `koanf:"sampling"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server rate limit must be >= 0, got %v", c.Server.RateLimit)
	}

	if len(c.Backend.Addresses) == 0 {
		return fmt.Errorf("backend addresses must not be empty")
	}
	for _, addr := range c.Backend.Addresses {
		u, err := url.Parse(addr)
		if err != nil {
			return fmt.Errorf("invalid backend address %q: %w", addr, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("backend address %q must use http or https", addr)
		}
	}

	if c.Store.IndexName == "" {
		return fmt.Errorf("store index name must not be empty")
	}
	if strings.ToLower(c.Store.IndexName) != c.Store.IndexName {
		return fmt.Errorf("store index name must be lowercase, got %q", c.Store.IndexName)
	}
	if c.Store.OpTimeout.Duration() <= 0 {
		return fmt.Errorf("store operation timeout must be positive")
	}
	if c.Store.MaxPageSize < 1 {
		return fmt.Errorf("store max page size must be >= 1, got %d", c.Store.MaxPageSize)
	}
	if c.Store.DefaultPageSize < 1 || c.Store.DefaultPageSize > c.Store.MaxPageSize {
		return fmt.Errorf("store default page size must be in [1, %d], got %d",
			c.Store.MaxPageSize, c.Store.DefaultPageSize)
	}

	if c.Events.URL != "" && c.Events.SubjectPrefix == "" {
		return fmt.Errorf("events subject prefix required when events URL is set")
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry endpoint required when telemetry is enabled")
		}
		switch c.Telemetry.Protocol {
		case "grpc", "http/protobuf":
		default:
			return fmt.Errorf("telemetry protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
			return fmt.Errorf("telemetry sample ratio must be in [0, 1], got %v", c.Telemetry.SampleRatio)
		}
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging level must be one of debug|info|warn|error, got %q", c.Logging.Level)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 10200
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 50
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 100
	}

	if len(cfg.Backend.Addresses) == 0 {
		cfg.Backend.Addresses = []string{"http://localhost:9200"}
	}
	if cfg.Backend.DialTimeout == 0 {
		cfg.Backend.DialTimeout = Duration(5 * time.Second)
	}

	if cfg.Store.IndexName == "" {
		cfg.Store.IndexName = ".collaboration-objects"
	}
	if cfg.Store.OpTimeout == 0 {
		cfg.Store.OpTimeout = Duration(10 * time.Second)
	}
	if cfg.Store.MaxPageSize == 0 {
		cfg.Store.MaxPageSize = 10000
	}
	if cfg.Store.DefaultPageSize == 0 {
		cfg.Store.DefaultPageSize = 20
	}

	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "collab"
	}
	if cfg.Events.PublishWait == 0 {
		cfg.Events.PublishWait = Duration(2 * time.Second)
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "collabd"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.SampleRatio == 0 {
		cfg.Telemetry.SampleRatio = 1.0
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
