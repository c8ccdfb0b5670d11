package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/collabd/internal/config"
)

func TestBuildLogger(t *testing.T) {
	t.Run("builds logger from config", func(t *testing.T) {
		logger, err := buildLogger(&config.LoggingConfig{Level: "debug", Format: "console"})
		require.NoError(t, err)
		assert.True(t, logger.Enabled(zapcore.DebugLevel))
	})

	t.Run("respects level threshold", func(t *testing.T) {
		logger, err := buildLogger(&config.LoggingConfig{Level: "warn", Format: "json"})
		require.NoError(t, err)
		assert.False(t, logger.Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Enabled(zapcore.ErrorLevel))
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := buildLogger(&config.LoggingConfig{Level: "loud", Format: "json"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loud")
	})
}

func TestBuildTelemetryConfig(t *testing.T) {
	t.Run("keeps defaults for unset fields", func(t *testing.T) {
		tel := buildTelemetryConfig(&config.TelemetryConfig{})
		assert.False(t, tel.Enabled)
		assert.Equal(t, "localhost:4317", tel.Endpoint)
		assert.Equal(t, "grpc", tel.Protocol)
		assert.Equal(t, "collabd", tel.ServiceName)
		assert.Equal(t, version, tel.ServiceVersion)
		assert.Equal(t, 1.0, tel.Sampling.Rate)
	})

	t.Run("applies overrides", func(t *testing.T) {
		tel := buildTelemetryConfig(&config.TelemetryConfig{
			Enabled:        true,
			Endpoint:       "collector:4318",
			Protocol:       "http/protobuf",
			Insecure:       true,
			ServiceName:    "collabd-staging",
			ServiceVersion: "1.2.3",
			SampleRatio:    0.25,
		})
		assert.True(t, tel.Enabled)
		assert.Equal(t, "collector:4318", tel.Endpoint)
		assert.Equal(t, "http/protobuf", tel.Protocol)
		assert.True(t, tel.Insecure)
		assert.Equal(t, "collabd-staging", tel.ServiceName)
		assert.Equal(t, "1.2.3", tel.ServiceVersion)
		assert.Equal(t, 0.25, tel.Sampling.Rate)
	})
}
