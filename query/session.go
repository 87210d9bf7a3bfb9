package query

import (
	"context"
	"fmt"
)

// DecodedToken holds the claims of the live session token the synchronizer compares against.
type DecodedToken struct {
	Sub  string
	Role any
}

// SessionError is reported by the client when the server rejects the live session,
// for example because the token expired or its signature is invalid.
type SessionError struct {
	Code    string
	Message string
}

func (e SessionError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// SessionErrorHandler receives session level errors.
type SessionErrorHandler func(err SessionError)

// SessionClient is the live connection surface of the query client.
type SessionClient interface {
	// Token returns the active session token, empty when there is none
	Token() string

	// DecodedToken returns the claims of the active token, nil when there is none
	DecodedToken() *DecodedToken

	// Clear removes all locally cached data
	Clear(ctx context.Context) error

	// Disconnect closes the live connection
	Disconnect(ctx context.Context) error

	// StartSession connects with a new token
	StartSession(ctx context.Context, token string) error

	// UpdateSessionToken swaps the token of the active session without reconnecting
	UpdateSessionToken(ctx context.Context, token string) error

	// OnSessionError registers handler and returns a function that unregisters it
	OnSessionError(handler SessionErrorHandler) (unsubscribe func() error)
}
