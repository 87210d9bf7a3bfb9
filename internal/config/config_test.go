package config_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-triplit/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv(config.SecretKeyEnvVar, "")
	t.Setenv(config.AnonTokenEnvVar, "")
	t.Setenv("AUTH_ADAPTER_DEBUG", "")
	t.Setenv("AUTH_ADAPTER_USE_PLURAL", "")
	t.Setenv("AUTH_ADAPTER_MAX_CONCURRENCY", "")

	c := config.New()
	require.Empty(t, c.GetSecretKey())
	require.Empty(t, c.GetAnonToken())
	require.False(t, c.GetDebugLogs())
	require.True(t, c.GetUsePlural())
	require.Equal(t, config.DefaultMaxConcurrency, c.GetMaxConcurrency())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(config.SecretKeyEnvVar, "s3cret")
	t.Setenv(config.AnonTokenEnvVar, "anon")
	t.Setenv("AUTH_ADAPTER_DEBUG", "true")
	t.Setenv("AUTH_ADAPTER_USE_PLURAL", "false")
	t.Setenv("AUTH_ADAPTER_MAX_CONCURRENCY", "3")

	c := config.New()
	require.Equal(t, "s3cret", c.GetSecretKey())
	require.Equal(t, "anon", c.GetAnonToken())
	require.True(t, c.GetDebugLogs())
	require.False(t, c.GetUsePlural())
	require.Equal(t, 3, c.GetMaxConcurrency())
}

func TestInvalidConcurrencyFallsBack(t *testing.T) {
	t.Setenv("AUTH_ADAPTER_MAX_CONCURRENCY", "-2")
	require.Equal(t, config.DefaultMaxConcurrency, config.New().GetMaxConcurrency())
}
