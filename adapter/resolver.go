package adapter

import (
	"strings"

	"github.com/jrsteele09/go-auth-triplit/authmodel"
)

// Resolver maps the auth framework's model and field names to storage names.
type Resolver interface {
	// ModelName returns the collection used to store model
	ModelName(model string) string

	// DefaultModelName returns the framework's name for a model or collection name
	DefaultModelName(model string) string

	// FieldName returns the storage attribute for a field of model
	FieldName(model, field string) string
}

// NameResolver is the default Resolver. Plural collection names append "s" to the model.
type NameResolver struct {
	usePlural bool
	models    map[string]string
	fields    map[string]map[string]string
	known     map[string]struct{}
}

type ResolverOption func(*NameResolver)

// WithModelName stores model in collection instead of the derived name.
func WithModelName(model, collection string) ResolverOption {
	return func(r *NameResolver) {
		r.models[model] = collection
		r.known[model] = struct{}{}
	}
}

// WithFieldName stores field of model under attribute.
func WithFieldName(model, field, attribute string) ResolverOption {
	return func(r *NameResolver) {
		if r.fields[model] == nil {
			r.fields[model] = make(map[string]string)
		}
		r.fields[model][field] = attribute
	}
}

// WithModels registers additional framework models, e.g. plugin tables.
func WithModels(models ...string) ResolverOption {
	return func(r *NameResolver) {
		for _, m := range models {
			r.known[m] = struct{}{}
		}
	}
}

func NewResolver(usePlural bool, options ...ResolverOption) *NameResolver {
	r := &NameResolver{
		usePlural: usePlural,
		models:    make(map[string]string),
		fields:    make(map[string]map[string]string),
		known: map[string]struct{}{
			authmodel.ModelUser:         {},
			authmodel.ModelSession:      {},
			authmodel.ModelAccount:      {},
			authmodel.ModelVerification: {},
		},
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *NameResolver) ModelName(model string) string {
	model = r.DefaultModelName(model)
	if collection, ok := r.models[model]; ok {
		return collection
	}
	if r.usePlural {
		return model + "s"
	}
	return model
}

func (r *NameResolver) DefaultModelName(model string) string {
	if _, ok := r.known[model]; ok {
		return model
	}
	for m, collection := range r.models {
		if collection == model {
			return m
		}
	}
	if r.usePlural {
		if singular := strings.TrimSuffix(model, "s"); singular != model {
			if _, ok := r.known[singular]; ok {
				return singular
			}
		}
	}
	return model
}

func (r *NameResolver) FieldName(model, field string) string {
	if attr, ok := r.fields[r.DefaultModelName(model)][field]; ok {
		return attr
	}
	return field
}
