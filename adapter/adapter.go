// Package adapter persists auth framework entities through the reactive query client.
// It translates the framework's generic filters into native query filters and mints a
// signed session token whenever a session is created.
package adapter

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/jrsteele09/go-auth-triplit/internal/config"
	apperrors "github.com/jrsteele09/go-auth-triplit/internal/errors"
	"github.com/jrsteele09/go-auth-triplit/query"
	"github.com/jrsteele09/go-auth-triplit/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	ID   = "triplit-adapter"
	Name = "Triplit Adapter"
)

// Capabilities describes what the storage supports, as reported to the auth framework.
type Capabilities struct {
	SupportsJSON        bool
	SupportsDates       bool
	SupportsBooleans    bool
	SupportsNumericIDs  bool
	DisableIDGeneration bool
}

// Store is the auth framework's storage contract.
type Store interface {
	Create(ctx context.Context, p CreateParams) (query.Entity, error)
	Count(ctx context.Context, p CountParams) (int, error)
	Delete(ctx context.Context, p DeleteParams) error
	DeleteMany(ctx context.Context, p DeleteParams) (int, error)
	FindMany(ctx context.Context, p FindManyParams) ([]query.Entity, error)
	FindOne(ctx context.Context, p FindOneParams) (query.Entity, error)
	Update(ctx context.Context, p UpdateParams) (query.Entity, error)
	UpdateMany(ctx context.Context, p UpdateParams) (int, error)
}

var _ Store = (*Adapter)(nil)

// Adapter implements the auth framework's storage contract on top of a query.Client.
type Adapter struct {
	client         query.Client
	resolver       Resolver
	usePlural      bool
	debugLogs      bool
	secretKey      string
	maxConcurrency int
	refetchUpdates bool
	logger         zerolog.Logger
	getenv         func(string) string
	nowTime        func() time.Time
}

// Option defines a function type to modify the Adapter instance.
type Option func(*Adapter)

// WithUsePlural controls whether collection names are pluralized (default true).
func WithUsePlural(usePlural bool) Option {
	return func(a *Adapter) {
		a.usePlural = usePlural
	}
}

// WithDebugLogs enables diagnostic logging of every operation.
func WithDebugLogs(enabled bool) Option {
	return func(a *Adapter) {
		a.debugLogs = enabled
	}
}

// WithSecretKey sets the session token signing secret. When unset the
// BETTER_AUTH_SECRET environment variable is read on every session creation.
func WithSecretKey(secret string) Option {
	return func(a *Adapter) {
		a.secretKey = secret
	}
}

// WithResolver replaces the default name resolver.
func WithResolver(r Resolver) Option {
	return func(a *Adapter) {
		a.resolver = r
	}
}

// WithMaxConcurrency bounds the per-entity calls issued by batch operations.
func WithMaxConcurrency(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxConcurrency = n
		}
	}
}

// WithRefetchUpdates makes Update return the stored entity instead of a client-side merge.
func WithRefetchUpdates(enabled bool) Option {
	return func(a *Adapter) {
		a.refetchUpdates = enabled
	}
}

// WithLogger sets the logger used for warnings and debug entries.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithGetenv sets the environment lookup (primarily for testing)
func WithGetenv(getenv func(string) string) Option {
	return func(a *Adapter) {
		a.getenv = getenv
	}
}

// WithNowTime sets the now time function used for the iat claim (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(a *Adapter) {
		a.nowTime = nowFunc
	}
}

// New creates an Adapter. Optional configuration can be provided via options.
func New(client query.Client, options ...Option) (*Adapter, error) {
	if client == nil {
		return nil, errors.New("[adapter.New] query client is required")
	}

	a := &Adapter{
		client:         client,
		usePlural:      true,
		maxConcurrency: config.DefaultMaxConcurrency,
		logger:         log.Logger.With().Str("component", ID).Logger(),
		getenv:         os.Getenv,
		nowTime:        time.Now,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.resolver == nil {
		a.resolver = NewResolver(a.usePlural)
	}

	return a, nil
}

func (a *Adapter) ID() string   { return ID }
func (a *Adapter) Name() string { return Name }

func (a *Adapter) UsePlural() bool { return a.usePlural }
func (a *Adapter) DebugLogs() bool { return a.debugLogs }

func (a *Adapter) Capabilities() Capabilities {
	return Capabilities{
		SupportsJSON:        true,
		SupportsDates:       true,
		SupportsBooleans:    true,
		SupportsNumericIDs:  true,
		DisableIDGeneration: false,
	}
}

type CreateParams struct {
	Model string
	Data  query.Entity
}

type FindOneParams struct {
	Model string
	Where []authmodel.Where
}

type FindManyParams struct {
	Model  string
	Where  []authmodel.Where
	Limit  *int
	Offset *int
	SortBy *authmodel.SortBy
}

type CountParams struct {
	Model string
	Where []authmodel.Where
}

type UpdateParams struct {
	Model  string
	Where  []authmodel.Where
	Update query.Entity
}

type DeleteParams struct {
	Model string
	Where []authmodel.Where
}

// Create inserts a record and returns it as given. Records without an id get a UUID.
// Session records additionally receive a signed token in their token field; this
// requires a secret and an existing owning user, and fails before inserting otherwise.
func (a *Adapter) Create(ctx context.Context, p CreateParams) (query.Entity, error) {
	model := a.resolver.DefaultModelName(p.Model)
	collection := a.resolver.ModelName(p.Model)
	data := a.resolveRecord(model, p.Data)

	if data.ID() == "" {
		data[query.IDField] = uuid.New().String()
	}

	if model == authmodel.ModelSession {
		tok, err := a.mintSessionToken(ctx, data)
		if err != nil {
			return nil, errors.Wrap(err, "[Adapter.Create]")
		}
		data[a.resolver.FieldName(model, "token")] = tok
	}

	a.debug().Str("model", collection).Interface("data", data).Msg("Insert")

	if err := a.client.Insert(ctx, collection, data); err != nil {
		return nil, errors.Wrap(apperrors.Remote(err, "insert "+collection), "[Adapter.Create]")
	}

	return data, nil
}

func (a *Adapter) mintSessionToken(ctx context.Context, data query.Entity) (string, error) {
	userIDField := a.resolver.FieldName(authmodel.ModelSession, "userId")
	a.debug().Interface("userId", data[userIDField]).Msg("Create JWT token")

	secret := a.secretKey
	if secret == "" {
		secret = a.getenv(config.SecretKeyEnvVar)
	}
	if secret == "" {
		return "", ErrNoSecretKey
	}

	userCollection := a.resolver.ModelName(authmodel.ModelUser)
	user, err := a.client.FetchOne(ctx, query.Query{
		Collection: userCollection,
		Where: []query.Filter{{
			Field: a.resolver.FieldName(authmodel.ModelUser, query.IDField),
			Op:    query.Equal,
			Value: data[userIDField],
		}},
	})
	if err != nil {
		return "", apperrors.Remote(err, "fetch "+userCollection)
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	expiresAt, err := authmodel.ExpiresAtMillis(data[a.resolver.FieldName(authmodel.ModelSession, "expiresAt")])
	if err != nil {
		return "", errors.Wrap(ErrInvalidExpiry, err.Error())
	}

	fieldName := func(field string) string {
		return a.resolver.FieldName(authmodel.ModelUser, field)
	}
	return token.NewSessionCreator(token.NewHMACSigner(secret), a.nowTime).Create(user, fieldName, expiresAt)
}

// Count returns the number of matching entities. It fetches every match.
func (a *Adapter) Count(ctx context.Context, p CountParams) (int, error) {
	entities, err := a.fetch(ctx, "Count", p.Model, p.Where)
	if err != nil {
		return 0, errors.Wrap(err, "[Adapter.Count]")
	}
	return len(entities), nil
}

// Delete removes every entity matching where. Deletes run concurrently and completed
// deletes are not rolled back when another one fails.
func (a *Adapter) Delete(ctx context.Context, p DeleteParams) error {
	if _, err := a.deleteMatching(ctx, "Delete", p); err != nil {
		return errors.Wrap(err, "[Adapter.Delete]")
	}
	return nil
}

// DeleteMany behaves like Delete and returns the number of targeted entities.
func (a *Adapter) DeleteMany(ctx context.Context, p DeleteParams) (int, error) {
	n, err := a.deleteMatching(ctx, "Delete Many", p)
	if err != nil {
		return 0, errors.Wrap(err, "[Adapter.DeleteMany]")
	}
	return n, nil
}

func (a *Adapter) deleteMatching(ctx context.Context, op string, p DeleteParams) (int, error) {
	collection := a.resolver.ModelName(p.Model)
	entities, err := a.fetch(ctx, op, p.Model, p.Where)
	if err != nil {
		return 0, err
	}

	err = a.forEach(entities, func(id string) error {
		return apperrors.Remote(a.client.Delete(ctx, collection, id), "delete "+collection+"/"+id)
	})
	return len(entities), err
}

// FindMany returns matching entities with optional limit, offset and single field ordering.
func (a *Adapter) FindMany(ctx context.Context, p FindManyParams) ([]query.Entity, error) {
	model := a.resolver.DefaultModelName(p.Model)
	collection := a.resolver.ModelName(p.Model)

	q := query.Query{
		Collection: collection,
		Where:      a.where(model, p.Where),
		Limit:      p.Limit,
		Offset:     p.Offset,
	}
	if p.SortBy != nil {
		q.Order = []query.Order{{
			Field:     a.resolver.FieldName(model, p.SortBy.Field),
			Direction: direction(p.SortBy.Direction),
		}}
	}

	a.debug().Str("model", collection).Interface("limit", p.Limit).Interface("offset", p.Offset).
		Interface("order", q.Order).Interface("where", q.Where).Msg("Find Many Fetch")

	entities, err := a.client.Fetch(ctx, q)
	if err != nil {
		return nil, errors.Wrap(apperrors.Remote(err, "fetch "+collection), "[Adapter.FindMany]")
	}

	a.debug().Str("model", collection).Interface("result", entities).Msg("Find Many Entities")
	return entities, nil
}

// FindOne returns the first matching entity, or nil when there is none.
func (a *Adapter) FindOne(ctx context.Context, p FindOneParams) (query.Entity, error) {
	entity, err := a.fetchOne(ctx, "Find One", p.Model, p.Where)
	if err != nil {
		return nil, errors.Wrap(err, "[Adapter.FindOne]")
	}
	return entity, nil
}

// Update merges the payload into the first matching entity and returns the fetched entity
// overlaid with the payload. Fails with ErrEntityNotFound when nothing matches.
func (a *Adapter) Update(ctx context.Context, p UpdateParams) (query.Entity, error) {
	model := a.resolver.DefaultModelName(p.Model)
	collection := a.resolver.ModelName(p.Model)

	entity, err := a.fetchOne(ctx, "Update", p.Model, p.Where)
	if err != nil {
		return nil, errors.Wrap(err, "[Adapter.Update]")
	}

	update := a.resolveRecord(model, p.Update)
	a.debug().Str("model", collection).Interface("entity", entity).Interface("update", update).Msg("Update Entity")

	if entity == nil {
		return nil, errors.Wrap(ErrEntityNotFound, "[Adapter.Update]")
	}

	if err := a.client.Update(ctx, collection, entity.ID(), assign(update)); err != nil {
		return nil, errors.Wrap(apperrors.Remote(err, "update "+collection+"/"+entity.ID()), "[Adapter.Update]")
	}

	if a.refetchUpdates {
		stored, err := a.client.FetchOne(ctx, query.Query{
			Collection: collection,
			Where:      []query.Filter{{Field: query.IDField, Op: query.Equal, Value: entity.ID()}},
		})
		if err != nil {
			return nil, errors.Wrap(apperrors.Remote(err, "fetch "+collection), "[Adapter.Update]")
		}
		if stored != nil {
			return stored, nil
		}
	}

	merged := entity.Clone()
	assign(update)(merged)
	return merged, nil
}

// UpdateMany merges the payload into every matching entity and returns the match count.
func (a *Adapter) UpdateMany(ctx context.Context, p UpdateParams) (int, error) {
	model := a.resolver.DefaultModelName(p.Model)
	collection := a.resolver.ModelName(p.Model)

	entities, err := a.fetch(ctx, "Update Many", p.Model, p.Where)
	if err != nil {
		return 0, errors.Wrap(err, "[Adapter.UpdateMany]")
	}

	update := a.resolveRecord(model, p.Update)
	err = a.forEach(entities, func(id string) error {
		return apperrors.Remote(a.client.Update(ctx, collection, id, assign(update)), "update "+collection+"/"+id)
	})
	if err != nil {
		return 0, errors.Wrap(err, "[Adapter.UpdateMany]")
	}

	return len(entities), nil
}

func (a *Adapter) fetch(ctx context.Context, op, model string, where []authmodel.Where) ([]query.Entity, error) {
	collection := a.resolver.ModelName(model)
	parsed := a.where(a.resolver.DefaultModelName(model), where)

	a.debug().Str("model", collection).Interface("where", parsed).Msg(op + " Fetch")

	entities, err := a.client.Fetch(ctx, query.Query{Collection: collection, Where: parsed})
	if err != nil {
		return nil, apperrors.Remote(err, "fetch "+collection)
	}

	a.debug().Str("model", collection).Int("count", len(entities)).Interface("result", entities).Msg(op + " Entities")
	return entities, nil
}

func (a *Adapter) fetchOne(ctx context.Context, op, model string, where []authmodel.Where) (query.Entity, error) {
	collection := a.resolver.ModelName(model)
	parsed := a.where(a.resolver.DefaultModelName(model), where)

	a.debug().Str("model", collection).Interface("where", parsed).Msg(op + " Fetch")

	entity, err := a.client.FetchOne(ctx, query.Query{Collection: collection, Where: parsed})
	if err != nil {
		return nil, apperrors.Remote(err, "fetch "+collection)
	}

	a.debug().Str("model", collection).Interface("result", entity).Msg(op + " Entity")
	return entity, nil
}

// where resolves field names and translates the filters. Dropped filters are logged.
func (a *Adapter) where(model string, where []authmodel.Where) []query.Filter {
	resolved := make([]authmodel.Where, len(where))
	for i, w := range where {
		if !knownOperator(w.Operator) {
			a.logger.Warn().Str("model", model).Int("index", i).Str("field", w.Field).
				Str("operator", string(w.Operator)).Msg("Dropping untranslatable filter")
		}
		w.Field = a.resolver.FieldName(model, w.Field)
		resolved[i] = w
	}
	return ParseWhere(resolved)
}

func (a *Adapter) resolveRecord(model string, record query.Entity) query.Entity {
	resolved := make(query.Entity, len(record))
	for k, v := range record {
		resolved[a.resolver.FieldName(model, k)] = v
	}
	return resolved
}

// forEach runs fn for every entity id with at most maxConcurrency calls in flight.
// A failure does not cancel calls already started; the first error is returned.
func (a *Adapter) forEach(entities []query.Entity, fn func(id string) error) error {
	var g errgroup.Group
	g.SetLimit(a.maxConcurrency)

	for _, e := range entities {
		id := e.ID()
		g.Go(func() error {
			return fn(id)
		})
	}
	return g.Wait()
}

// debug returns a nil event when debug logs are disabled; zerolog ignores nil events.
func (a *Adapter) debug() *zerolog.Event {
	if !a.debugLogs {
		return nil
	}
	return a.logger.Debug()
}

func assign(update query.Entity) query.Mutator {
	return func(entity query.Entity) {
		for k, v := range update {
			entity[k] = v
		}
	}
}

func direction(d authmodel.SortDirection) query.Direction {
	if strings.EqualFold(string(d), string(authmodel.SortDesc)) {
		return query.Desc
	}
	return query.Asc
}
