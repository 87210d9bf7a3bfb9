package errors_test

import (
	stderrors "errors"
	"testing"

	apperrors "github.com/jrsteele09/go-auth-triplit/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestRemoteMatchesTaxonomyAndCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := apperrors.Remote(cause, "fetch users")

	require.True(t, stderrors.Is(err, apperrors.ErrRemoteOperation))
	require.True(t, stderrors.Is(err, cause))
	require.False(t, stderrors.Is(err, apperrors.ErrNotFound))
	require.Contains(t, err.Error(), "fetch users")

	var remote *apperrors.RemoteError
	require.True(t, stderrors.As(err, &remote))
	require.Equal(t, "fetch users", remote.Op)
}

func TestRemoteNil(t *testing.T) {
	require.NoError(t, apperrors.Remote(nil, "insert"))
	require.NoError(t, apperrors.Wrapf(nil, "ignored"))
}

func TestWrapf(t *testing.T) {
	err := apperrors.Wrapf(apperrors.ErrNotFound, "loading %s", "user")
	require.EqualError(t, err, "loading user: not found")
	require.True(t, stderrors.Is(err, apperrors.ErrNotFound))
}
