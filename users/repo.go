package users

import (
	"context"
	"time"

	"github.com/jrsteele09/go-auth-triplit/adapter"
	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/jrsteele09/go-auth-triplit/internal/utils"
	"github.com/jrsteele09/go-auth-triplit/query"
	"github.com/pkg/errors"
)

type UserRepo interface {
	Create(ctx context.Context, user *authmodel.User) error
	Delete(ctx context.Context, id string) error
	GetByEmail(ctx context.Context, email string) (*authmodel.User, error)
	GetByID(ctx context.Context, id string) (*authmodel.User, error)
	List(ctx context.Context, offset, limit int) ([]*authmodel.User, error)
	SetVerified(ctx context.Context, id string, verified bool) error
	SetRole(ctx context.Context, id string, role any) error
}

var _ UserRepo = (*Repo)(nil)

// Repo is a UserRepo backed by an adapter.Store. Records are decoded using the
// default field names.
type Repo struct {
	store   adapter.Store
	nowTime func() time.Time
}

// Option defines a function type to modify the Repo instance.
type Option func(*Repo)

// WithNowTime sets the now time function used for timestamps (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Repo) {
		r.nowTime = nowFunc
	}
}

func NewRepo(store adapter.Store, options ...Option) *Repo {
	r := &Repo{
		store:   store,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Create stores a new user. The user's ID is filled in when empty and its timestamps are set.
func (r *Repo) Create(ctx context.Context, user *authmodel.User) error {
	now := r.nowTime()
	user.Email = NormalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	entity, err := r.store.Create(ctx, adapter.CreateParams{
		Model: authmodel.ModelUser,
		Data:  authmodel.UserEntity(*user),
	})
	if err != nil {
		return errors.Wrap(err, "[Repo.Create]")
	}
	user.ID = entity.ID()
	return nil
}

// Delete removes the user. Deleting an unknown user is not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	return errors.Wrap(r.store.Delete(ctx, adapter.DeleteParams{
		Model: authmodel.ModelUser,
		Where: byID(id),
	}), "[Repo.Delete]")
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*authmodel.User, error) {
	return r.findOne(ctx, "[Repo.GetByEmail]", []authmodel.Where{{
		Field:    "email",
		Operator: authmodel.OpEq,
		Value:    NormalizeEmail(email),
	}})
}

func (r *Repo) GetByID(ctx context.Context, id string) (*authmodel.User, error) {
	return r.findOne(ctx, "[Repo.GetByID]", byID(id))
}

// List returns users ordered by creation time.
func (r *Repo) List(ctx context.Context, offset, limit int) ([]*authmodel.User, error) {
	entities, err := r.store.FindMany(ctx, adapter.FindManyParams{
		Model:  authmodel.ModelUser,
		Offset: utils.Ptr(offset),
		Limit:  utils.Ptr(limit),
		SortBy: &authmodel.SortBy{Field: "createdAt", Direction: authmodel.SortAsc},
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.List]")
	}

	list := make([]*authmodel.User, 0, len(entities))
	for _, e := range entities {
		u := &authmodel.User{}
		if err := authmodel.Decode(e, u); err != nil {
			return nil, errors.Wrap(err, "[Repo.List]")
		}
		list = append(list, u)
	}
	return list, nil
}

func (r *Repo) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.update(ctx, "[Repo.SetVerified]", id, query.Entity{"emailVerified": verified})
}

func (r *Repo) SetRole(ctx context.Context, id string, role any) error {
	return r.update(ctx, "[Repo.SetRole]", id, query.Entity{"role": role})
}

func (r *Repo) update(ctx context.Context, op, id string, fields query.Entity) error {
	fields["updatedAt"] = r.nowTime()
	_, err := r.store.Update(ctx, adapter.UpdateParams{
		Model:  authmodel.ModelUser,
		Where:  byID(id),
		Update: fields,
	})
	return errors.Wrap(err, op)
}

func (r *Repo) findOne(ctx context.Context, op string, where []authmodel.Where) (*authmodel.User, error) {
	entity, err := r.store.FindOne(ctx, adapter.FindOneParams{
		Model: authmodel.ModelUser,
		Where: where,
	})
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	if entity == nil {
		return nil, errors.Wrap(adapter.ErrUserNotFound, op)
	}

	u := &authmodel.User{}
	if err := authmodel.Decode(entity, u); err != nil {
		return nil, errors.Wrap(err, op)
	}
	return u, nil
}

func byID(id string) []authmodel.Where {
	return []authmodel.Where{{Field: query.IDField, Operator: authmodel.OpEq, Value: id}}
}
