package adapter

import (
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-auth-triplit/internal/errors"
)

// Error categories. Use errors.Is to test an adapter error against them.
var (
	ErrConfiguration   = apperrors.ErrConfiguration
	ErrNotFound        = apperrors.ErrNotFound
	ErrRemoteOperation = apperrors.ErrRemoteOperation
)

var (
	ErrNoSecretKey         = apperrors.Wrapf(ErrConfiguration, "no secret key provided")
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrEntityNotFound      = fmt.Errorf("entity %w", ErrNotFound)
	ErrUnsupportedOperator = apperrors.Wrapf(apperrors.ErrUnsupported, "filter operator")
	ErrInvalidExpiry       = errors.New("invalid session expiry")
)

// RemoteError is the concrete type wrapping query client failures.
type RemoteError = apperrors.RemoteError
