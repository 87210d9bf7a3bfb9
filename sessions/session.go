// Package sessions stores auth sessions through the storage adapter and resolves them
// into the session data observed by the session synchronizer.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-triplit/adapter"
	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/jrsteele09/go-auth-triplit/users"
	"github.com/pkg/errors"
)

// ErrSessionNotFound is returned when no session has the requested token.
var ErrSessionNotFound = fmt.Errorf("session %w", adapter.ErrNotFound)

// ErrSessionExpired is returned by Data for a session past its expiry.
var ErrSessionExpired = errors.New("session expired")

// NewSession describes a session to create.
type NewSession struct {
	UserID    string
	ExpiresIn time.Duration
	IPAddress string
	UserAgent string
}

type SessionRepo interface {
	Create(ctx context.Context, s NewSession) (*authmodel.Session, error)
	GetByToken(ctx context.Context, token string) (*authmodel.Session, error)
	ListForUser(ctx context.Context, userID string) ([]*authmodel.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteForUser(ctx context.Context, userID string) (int, error)
	DeleteExpired(ctx context.Context) (int, error)
	Data(ctx context.Context, token string) (*authmodel.SessionData, error)
}

var _ SessionRepo = (*Repo)(nil)

// DefaultExpiresIn is used when NewSession.ExpiresIn is zero.
const DefaultExpiresIn = 7 * 24 * time.Hour

// Repo is a SessionRepo backed by an adapter.Store. The signed session token is
// written by the store when the session is created.
type Repo struct {
	store   adapter.Store
	users   users.UserRepo
	nowTime func() time.Time
}

// Option defines a function type to modify the Repo instance.
type Option func(*Repo)

// WithNowTime sets the now time function used for expiry (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Repo) {
		r.nowTime = nowFunc
	}
}

func NewRepo(store adapter.Store, userRepo users.UserRepo, options ...Option) *Repo {
	r := &Repo{
		store:   store,
		users:   userRepo,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Create stores a session for an existing user and returns it with its token.
func (r *Repo) Create(ctx context.Context, s NewSession) (*authmodel.Session, error) {
	expiresIn := s.ExpiresIn
	if expiresIn == 0 {
		expiresIn = DefaultExpiresIn
	}

	now := r.nowTime()
	session := authmodel.Session{
		UserID:    s.UserID,
		ExpiresAt: now.Add(expiresIn),
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}

	entity, err := r.store.Create(ctx, adapter.CreateParams{
		Model: authmodel.ModelSession,
		Data:  authmodel.SessionEntity(session),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.Create]")
	}

	created := &authmodel.Session{}
	if err := authmodel.Decode(entity, created); err != nil {
		return nil, errors.Wrap(err, "[Repo.Create]")
	}
	return created, nil
}

func (r *Repo) GetByToken(ctx context.Context, token string) (*authmodel.Session, error) {
	entity, err := r.store.FindOne(ctx, adapter.FindOneParams{
		Model: authmodel.ModelSession,
		Where: byToken(token),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.GetByToken]")
	}
	if entity == nil {
		return nil, errors.Wrap(ErrSessionNotFound, "[Repo.GetByToken]")
	}

	session := &authmodel.Session{}
	if err := authmodel.Decode(entity, session); err != nil {
		return nil, errors.Wrap(err, "[Repo.GetByToken]")
	}
	return session, nil
}

// ListForUser returns the user's sessions, newest first.
func (r *Repo) ListForUser(ctx context.Context, userID string) ([]*authmodel.Session, error) {
	entities, err := r.store.FindMany(ctx, adapter.FindManyParams{
		Model:  authmodel.ModelSession,
		Where:  byUser(userID),
		SortBy: &authmodel.SortBy{Field: "createdAt", Direction: authmodel.SortDesc},
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.ListForUser]")
	}

	list := make([]*authmodel.Session, 0, len(entities))
	for _, e := range entities {
		s := &authmodel.Session{}
		if err := authmodel.Decode(e, s); err != nil {
			return nil, errors.Wrap(err, "[Repo.ListForUser]")
		}
		list = append(list, s)
	}
	return list, nil
}

// Delete removes the session with token. Unknown tokens are ignored.
func (r *Repo) Delete(ctx context.Context, token string) error {
	return errors.Wrap(r.store.Delete(ctx, adapter.DeleteParams{
		Model: authmodel.ModelSession,
		Where: byToken(token),
	}), "[Repo.Delete]")
}

// DeleteForUser removes every session of the user and returns how many there were.
func (r *Repo) DeleteForUser(ctx context.Context, userID string) (int, error) {
	n, err := r.store.DeleteMany(ctx, adapter.DeleteParams{
		Model: authmodel.ModelSession,
		Where: byUser(userID),
	})
	return n, errors.Wrap(err, "[Repo.DeleteForUser]")
}

// DeleteExpired removes sessions whose expiry is before now.
func (r *Repo) DeleteExpired(ctx context.Context) (int, error) {
	n, err := r.store.DeleteMany(ctx, adapter.DeleteParams{
		Model: authmodel.ModelSession,
		Where: []authmodel.Where{{Field: "expiresAt", Operator: authmodel.OpLt, Value: r.nowTime()}},
	})
	return n, errors.Wrap(err, "[Repo.DeleteExpired]")
}

// Data resolves a token into the session and its user. Expired sessions return
// ErrSessionExpired.
func (r *Repo) Data(ctx context.Context, token string) (*authmodel.SessionData, error) {
	session, err := r.GetByToken(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.Data]")
	}
	if !session.ExpiresAt.After(r.nowTime()) {
		return nil, errors.Wrap(ErrSessionExpired, "[Repo.Data]")
	}

	user, err := r.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.Data]")
	}
	return &authmodel.SessionData{Session: *session, User: *user}, nil
}

func byToken(token string) []authmodel.Where {
	return []authmodel.Where{{Field: "token", Operator: authmodel.OpEq, Value: token}}
}

func byUser(userID string) []authmodel.Where {
	return []authmodel.Where{{Field: "userId", Operator: authmodel.OpEq, Value: userID}}
}
