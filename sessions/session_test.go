package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-triplit/adapter"
	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/jrsteele09/go-auth-triplit/query/clientfake"
	"github.com/jrsteele09/go-auth-triplit/sessions"
	"github.com/jrsteele09/go-auth-triplit/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testSecret = "secret"

// testFixture holds all test dependencies
type testFixture struct {
	client *clientfake.FakeClient
	users  *users.Repo
	repo   *sessions.Repo
	now    time.Time
	user   *authmodel.User
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		client: clientfake.NewFakeClient(),
		now:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	a, err := adapter.New(f.client,
		adapter.WithSecretKey(testSecret),
		adapter.WithNowTime(clock),
		adapter.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	f.users = users.NewRepo(a, users.WithNowTime(clock))
	f.repo = sessions.NewRepo(a, f.users, sessions.WithNowTime(clock))

	f.user = &authmodel.User{Email: "a@b.c", Name: "A", Role: "member"}
	require.NoError(t, f.users.Create(context.Background(), f.user))
	return f
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestCreateMintsToken(t *testing.T) {
	f := setupTestFixture(t)

	s, err := f.repo.Create(context.Background(), sessions.NewSession{UserID: f.user.ID, ExpiresIn: time.Hour, IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	require.Equal(t, "10.0.0.1", s.IPAddress)
	require.True(t, s.ExpiresAt.Equal(f.now.Add(time.Hour)))

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(s.Token, claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwt.WithTimeFunc(func() time.Time { return f.now }))
	require.NoError(t, err)
	require.Equal(t, f.user.ID, claims["sub"])
	require.Equal(t, "member", claims["role"])
	require.Equal(t, float64(f.now.Add(time.Hour).Unix()), claims["exp"])
}

func TestCreateDefaultExpiry(t *testing.T) {
	f := setupTestFixture(t)

	s, err := f.repo.Create(context.Background(), sessions.NewSession{UserID: f.user.ID})
	require.NoError(t, err)
	require.True(t, s.ExpiresAt.Equal(f.now.Add(sessions.DefaultExpiresIn)))
}

func TestCreateForUnknownUser(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.repo.Create(context.Background(), sessions.NewSession{UserID: "ghost"})
	require.ErrorIs(t, err, adapter.ErrUserNotFound)
	require.Equal(t, 0, f.client.Len("sessions"))
}

func TestDataResolvesUser(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s, err := f.repo.Create(ctx, sessions.NewSession{UserID: f.user.ID, ExpiresIn: time.Minute})
	require.NoError(t, err)

	data, err := f.repo.Data(ctx, s.Token)
	require.NoError(t, err)
	require.Equal(t, s.ID, data.Session.ID)
	require.Equal(t, f.user.ID, data.User.ID)
	require.Equal(t, "member", data.User.Role)

	f.advance(time.Minute)
	_, err = f.repo.Data(ctx, s.Token)
	require.ErrorIs(t, err, sessions.ErrSessionExpired)

	_, err = f.repo.Data(ctx, "unknown")
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
	require.ErrorIs(t, err, adapter.ErrNotFound)
}

func TestListAndDeleteForUser(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	first, err := f.repo.Create(ctx, sessions.NewSession{UserID: f.user.ID})
	require.NoError(t, err)
	f.advance(time.Second)
	second, err := f.repo.Create(ctx, sessions.NewSession{UserID: f.user.ID})
	require.NoError(t, err)

	list, err := f.repo.ListForUser(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)

	require.NoError(t, f.repo.Delete(ctx, first.Token))
	_, err = f.repo.GetByToken(ctx, first.Token)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)

	n, err := f.repo.DeleteForUser(ctx, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 0, f.client.Len("sessions"))
}

func TestDeleteExpired(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	short, err := f.repo.Create(ctx, sessions.NewSession{UserID: f.user.ID, ExpiresIn: time.Minute})
	require.NoError(t, err)
	long, err := f.repo.Create(ctx, sessions.NewSession{UserID: f.user.ID, ExpiresIn: time.Hour})
	require.NoError(t, err)

	f.advance(2 * time.Minute)
	n, err := f.repo.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = f.repo.GetByToken(ctx, short.Token)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
	_, err = f.repo.GetByToken(ctx, long.Token)
	require.NoError(t, err)
}
