package adapter_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-triplit/adapter"
	"github.com/stretchr/testify/require"
)

func TestResolverPlural(t *testing.T) {
	r := adapter.NewResolver(true)

	require.Equal(t, "users", r.ModelName("user"))
	require.Equal(t, "users", r.ModelName("users"))
	require.Equal(t, "sessions", r.ModelName("session"))
	require.Equal(t, "session", r.DefaultModelName("sessions"))
	require.Equal(t, "status", r.DefaultModelName("status"))
	require.Equal(t, "email", r.FieldName("user", "email"))
}

func TestResolverSingular(t *testing.T) {
	r := adapter.NewResolver(false)

	require.Equal(t, "user", r.ModelName("user"))
	require.Equal(t, "users", r.DefaultModelName("users"))
}

func TestResolverOverrides(t *testing.T) {
	r := adapter.NewResolver(true,
		adapter.WithModelName("user", "profiles"),
		adapter.WithFieldName("session", "token", "sessionToken"),
		adapter.WithModels("passkey"),
	)

	require.Equal(t, "profiles", r.ModelName("user"))
	require.Equal(t, "user", r.DefaultModelName("profiles"))
	require.Equal(t, "sessionToken", r.FieldName("sessions", "token"))
	require.Equal(t, "userId", r.FieldName("session", "userId"))
	require.Equal(t, "passkey", r.DefaultModelName("passkeys"))
	require.Equal(t, "passkeys", r.ModelName("passkey"))
}
