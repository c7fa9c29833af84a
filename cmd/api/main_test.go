package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kidpech/users_api/internal/config"
)

func TestRunReturnsStartupFailureInsteadOfExiting(t *testing.T) {
	cfg := &config.Config{
		App:       config.AppConfig{Name: "users-api", Env: config.EnvTest, ShutdownTimeout: time.Second},
		Database:  config.DatabaseConfig{Driver: "oracle", DSN: "oracle://nowhere"},
		Telemetry: config.TelemetryConfig{ServiceName: "users-api"},
	}

	err := run(context.Background(), cfg, zap.NewNop())

	require.Error(t, err)
	require.Contains(t, err.Error(), "db connect")
}
