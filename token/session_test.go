package token_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/jrsteele09/go-auth-triplit/token"
	"github.com/stretchr/testify/require"
)

func parseClaims(t *testing.T, signer token.Signer, tok string) jwt.MapClaims {
	t.Helper()

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, signer.GetVerificationKey,
		jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}), jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	require.Equal(t, "HS256", parsed.Header["alg"])
	require.Equal(t, "JWT", parsed.Header["typ"])
	return claims
}

type failingSigner struct {
	*token.HMACSigner
}

func (failingSigner) Sign(jwt.MapClaims) (string, error) {
	return "", errors.New("boom")
}

func TestCreateOmitsAbsentClaims(t *testing.T) {
	now := time.Unix(1_000, 0)
	signer := token.NewHMACSigner("secret")
	creator := token.NewSessionCreator(signer, func() time.Time { return now })

	tok, err := creator.Create(map[string]any{"id": "u9", "email": "x@y.z", "role": nil}, token.SameField, 5_999)
	require.NoError(t, err)

	claims := parseClaims(t, signer, tok)
	require.Equal(t, "u9", claims["sub"])
	require.Equal(t, "x@y.z", claims["email"])
	require.Equal(t, float64(5), claims["exp"])
	require.Equal(t, float64(1_000), claims["iat"])
	require.NotContains(t, claims, "role")
	require.NotContains(t, claims, "username")
}

func TestCreateResolvesFieldNames(t *testing.T) {
	signer := token.NewHMACSigner("secret")
	creator := token.NewSessionCreator(signer, nil)
	rename := func(f string) string {
		if f == "email" {
			return "mail"
		}
		return f
	}

	tok, err := creator.Create(map[string]any{"id": "u1", "mail": "m@x.y", "email": "ignored"}, rename, 0)
	require.NoError(t, err)
	require.Equal(t, "m@x.y", parseClaims(t, signer, tok)["email"])
}

func TestCreateFloorsNegativeExpiry(t *testing.T) {
	signer := token.NewHMACSigner("secret")

	tok, err := token.NewSessionCreator(signer, nil).Create(map[string]any{"id": "u1"}, nil, -1)
	require.NoError(t, err)
	require.Equal(t, float64(-1), parseClaims(t, signer, tok)["exp"])
}

func TestCreateForUser(t *testing.T) {
	signer := token.NewHMACSigner("k")

	tok, err := token.NewSessionCreator(signer, nil).
		CreateForUser(authmodel.User{ID: "u1", Email: "a@b.com", Role: "admin"}, time.UnixMilli(1_700_000_000_500))
	require.NoError(t, err)

	claims := parseClaims(t, signer, tok)
	require.Equal(t, "admin", claims["role"])
	require.Equal(t, float64(1_700_000_000), claims["exp"])
	require.Equal(t, false, claims["emailVerified"])
}

func TestCreateSignerFailure(t *testing.T) {
	creator := token.NewSessionCreator(failingSigner{token.NewHMACSigner("k")}, nil)

	_, err := creator.Create(map[string]any{"id": "u1"}, nil, 0)
	require.ErrorContains(t, err, "boom")
}

func TestHMACSignerRejectsOtherMethods(t *testing.T) {
	signer := token.NewHMACSigner("k")

	_, err := signer.GetVerificationKey(&jwt.Token{Method: jwt.SigningMethodNone, Header: map[string]any{"alg": "none"}})
	require.Error(t, err)
}
