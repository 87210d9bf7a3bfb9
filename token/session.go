package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/pkg/errors"
)

// userClaims maps session token claims to the user fields they are copied from.
var userClaims = []struct{ claim, field string }{
	{"email", "email"},
	{"emailVerified", "emailVerified"},
	{"name", "name"},
	{"role", "role"},
	{"username", "username"},
}

// FieldNamer resolves a user field to its storage attribute.
type FieldNamer func(field string) string

// SameField is the identity FieldNamer.
func SameField(field string) string { return field }

// SessionCreator mints the token stored on a session record when it is created.
type SessionCreator struct {
	signer  Signer
	nowTime func() time.Time
}

// NewSessionCreator creates a SessionCreator. A nil nowTime uses time.Now.
func NewSessionCreator(signer Signer, nowTime func() time.Time) *SessionCreator {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &SessionCreator{
		signer:  signer,
		nowTime: nowTime,
	}
}

// Create signs a token for a stored user record. sub is the user's id and exp is
// expiresAtMillis floored to whole seconds. Claims whose field is absent on the user are omitted.
func (c *SessionCreator) Create(user map[string]any, fieldName FieldNamer, expiresAtMillis int64) (string, error) {
	if fieldName == nil {
		fieldName = SameField
	}
	claims := jwt.MapClaims{
		"sub": user[fieldName("id")],
		"exp": floorDiv(expiresAtMillis, 1000),
		"iat": c.nowTime().Unix(),
	}
	for _, uc := range userClaims {
		if v, ok := user[fieldName(uc.field)]; ok && v != nil {
			claims[uc.claim] = v
		}
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[SessionCreator.Create] failed to sign session token")
	}
	return signed, nil
}

// CreateForUser signs a token for a typed user.
func (c *SessionCreator) CreateForUser(user authmodel.User, expiresAt time.Time) (string, error) {
	return c.Create(authmodel.UserEntity(user), SameField, expiresAt.UnixMilli())
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
