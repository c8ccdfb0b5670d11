package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/collabd/internal/access"
	"github.com/fyrsmithlabs/collabd/internal/config"
	"github.com/fyrsmithlabs/collabd/internal/events"
	httpserver "github.com/fyrsmithlabs/collabd/internal/http"
	"github.com/fyrsmithlabs/collabd/internal/logging"
	"github.com/fyrsmithlabs/collabd/internal/objectstore"
	"github.com/fyrsmithlabs/collabd/internal/search"
	"github.com/fyrsmithlabs/collabd/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the collabd daemon",
	Long: `Serve starts the collabd HTTP API after provisioning the backing index.

The process shuts down gracefully on SIGINT or SIGTERM, draining inflight
requests within the configured shutdown timeout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

// runServe wires configuration, telemetry, the search backend, the
// store, the access gate and the HTTP server, then blocks until the
// context is cancelled and unwinds everything in reverse order.
func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := buildLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "starting collabd",
		zap.String("version", version),
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
		zap.String("index", cfg.Store.IndexName),
		zap.Bool("auth_enabled", cfg.Auth.JWTSecret.IsSet()),
		zap.Bool("events_enabled", cfg.Events.URL != ""))

	tel, err := telemetry.New(ctx, buildTelemetryConfig(&cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	backend, err := search.NewOpenSearchBackend(&search.Config{
		Addresses:   cfg.Backend.Addresses,
		Username:    cfg.Backend.Username,
		Password:    cfg.Backend.Password.Value(),
		InsecureTLS: cfg.Backend.InsecureTLS,
		DialTimeout: cfg.Backend.DialTimeout.Duration(),
	}, logger)
	if err != nil {
		return fmt.Errorf("init search backend: %w", err)
	}

	store, err := objectstore.NewStore(&objectstore.Config{
		IndexName:       cfg.Store.IndexName,
		OpTimeout:       cfg.Store.OpTimeout.Duration(),
		DefaultPageSize: cfg.Store.DefaultPageSize,
		MaxPageSize:     cfg.Store.MaxPageSize,
	}, backend, logger)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}
	if err := store.EnsureReady(ctx); err != nil {
		return fmt.Errorf("provision index: %w", err)
	}

	publisher, err := events.NewPublisher(&events.Config{
		URL:           cfg.Events.URL,
		SubjectPrefix: cfg.Events.SubjectPrefix,
		PublishWait:   cfg.Events.PublishWait.Duration(),
	}, logger)
	if err != nil {
		return fmt.Errorf("init event publisher: %w", err)
	}

	gate, err := access.NewGate(store, logger, publisher)
	if err != nil {
		return fmt.Errorf("init access gate: %w", err)
	}

	srv, err := httpserver.NewServer(gate, logger, &httpserver.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		JWTSecret: []byte(cfg.Auth.JWTSecret.Value()),
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	// Shutdown runs against a fresh context; the signal context is
	// already cancelled.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	logger.Info(shutdownCtx, "shutting down")

	var firstErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("http shutdown: %w", err)
	}
	publisher.Close()
	if err := tel.Shutdown(shutdownCtx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("telemetry shutdown: %w", err)
	}
	return firstErr
}

// buildLogger constructs the service logger from config.
func buildLogger(cfg *config.LoggingConfig) (*logging.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	return logging.NewLogger(&logging.Config{
		Level:    level,
		Format:   cfg.Format,
		Sampling: cfg.Sampling,
		Fields:   map[string]string{"service": "collabd"},
	})
}

// buildTelemetryConfig bridges the flat service config onto the
// telemetry package's config, falling back to its defaults for unset
// fields. The binary version doubles as the service version unless
// config overrides it.
func buildTelemetryConfig(cfg *config.TelemetryConfig) *telemetry.Config {
	tel := telemetry.NewDefaultConfig()
	tel.Enabled = cfg.Enabled
	tel.Insecure = cfg.Insecure
	if cfg.Endpoint != "" {
		tel.Endpoint = cfg.Endpoint
	}
	if cfg.Protocol != "" {
		tel.Protocol = cfg.Protocol
	}
	if cfg.ServiceName != "" {
		tel.ServiceName = cfg.ServiceName
	}
	tel.ServiceVersion = version
	if cfg.ServiceVersion != "" {
		tel.ServiceVersion = cfg.ServiceVersion
	}
	if cfg.SampleRatio > 0 {
		tel.Sampling.Rate = cfg.SampleRatio
	}
	return tel
}
