// Package query describes the surface of the reactive database client consumed by the
// adapter and the session synchronizer. Filters are expressed in the client's native
// comparison vocabulary.
package query

import "context"

// Comparison is a native comparison operator understood by the query client.
type Comparison string

const (
	Equal          Comparison = "="
	In             Comparison = "in"
	Like           Comparison = "like"
	NotEqual       Comparison = "!="
	Greater        Comparison = ">"
	GreaterOrEqual Comparison = ">="
	Less           Comparison = "<"
	LessOrEqual    Comparison = "<="
)

// Direction orders fetched entities.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// IDField is the identity attribute of every entity.
const IDField = "id"

// Entity is a stored record keyed by attribute name.
type Entity map[string]any

// ID returns the entity identity, empty when unset.
func (e Entity) ID() string {
	switch v := e[IDField].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return toString(v)
	}
}

// Clone returns a shallow copy of the entity.
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	c := make(Entity, len(e))
	for k, v := range e {
		c[k] = v
	}
	return c
}

// Filter is a native (field, operator, value) triple. Filters in a query are ANDed.
type Filter struct {
	Field string     `json:"field"`
	Op    Comparison `json:"op"`
	Value any        `json:"value"`
}

// Order is a single ordering statement.
type Order struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Query selects entities from a collection. Limit and Offset are ignored when nil.
type Query struct {
	Collection string   `json:"collectionName"`
	Where      []Filter `json:"where,omitempty"`
	Limit      *int     `json:"limit,omitempty"`
	Offset     *int     `json:"offset,omitempty"`
	Order      []Order  `json:"order,omitempty"`
}

// Mutator modifies a fetched entity in place before it is written back.
type Mutator func(entity Entity)

// Client is the query/mutation surface used for entity persistence.
type Client interface {
	// Fetch returns every entity matching the query
	Fetch(ctx context.Context, q Query) ([]Entity, error)

	// FetchOne returns the first matching entity, or nil when nothing matches
	FetchOne(ctx context.Context, q Query) (Entity, error)

	// Insert stores a new entity
	Insert(ctx context.Context, collection string, entity Entity) error

	// Update applies mutate to the stored entity with the given id
	Update(ctx context.Context, collection, id string, mutate Mutator) error

	// Delete removes the entity with the given id
	Delete(ctx context.Context, collection, id string) error
}
