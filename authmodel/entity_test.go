package authmodel_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/stretchr/testify/require"
)

func TestExpiresAtMillis(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 500_000_000, time.UTC)

	tests := []struct {
		name  string
		value any
		want  int64
	}{
		{"time", at, at.UnixMilli()},
		{"time pointer", &at, at.UnixMilli()},
		{"rfc3339", at.Format(time.RFC3339Nano), at.UnixMilli()},
		{"int64", int64(1700000000123), 1700000000123},
		{"int", 42, 42},
		{"float", float64(1700000000999), 1700000000999},
		{"json number", json.Number("1700000000000"), 1700000000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authmodel.ExpiresAtMillis(tt.value)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := authmodel.ExpiresAtMillis("tomorrow")
	require.Error(t, err)
	_, err = authmodel.ExpiresAtMillis(nil)
	require.Error(t, err)
}

func TestUserEntityRoundTrip(t *testing.T) {
	u := authmodel.User{
		ID:            "u1",
		Email:         "a@b.com",
		EmailVerified: true,
		Name:          "A",
		Username:      "a",
		Role:          "member",
	}

	e := authmodel.UserEntity(u)
	require.Equal(t, "member", e["role"])
	require.NotContains(t, e, "image")

	var decoded authmodel.User
	require.NoError(t, authmodel.Decode(e, &decoded))
	require.Equal(t, u.ID, decoded.ID)
	require.Equal(t, u.Role, decoded.Role)
	require.True(t, decoded.EmailVerified)

	require.Error(t, authmodel.Decode(nil, &decoded))
}

func TestSessionEntityOmitsEmptyToken(t *testing.T) {
	e := authmodel.SessionEntity(authmodel.Session{UserID: "u1", ExpiresAt: time.Unix(10, 0)})
	require.NotContains(t, e, "token")
	require.NotContains(t, e, "id")
	require.Equal(t, "u1", e["userId"])
}
