package clientfake

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-triplit/query"
)

var (
	_ query.Client        = (*FakeClient)(nil)
	_ query.SessionClient = (*FakeClient)(nil)
)

// Call records a single client invocation.
type Call struct {
	Method     string
	Collection string
	ID         string
	Token      string
}

// FakeClient is an in-memory query client. Entities live per collection in insertion order.
type FakeClient struct {
	collections map[string]map[string]query.Entity
	order       map[string][]string
	calls       []Call
	failures    map[string]error
	idFailures  map[string]error

	token     string
	decoded   *query.DecodedToken
	connected bool
	handlers  map[int]query.SessionErrorHandler
	nextID    int

	// BeforeCall, when set, runs before every recorded call outside the lock.
	BeforeCall func(method string)

	lock sync.RWMutex
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		collections: make(map[string]map[string]query.Entity),
		order:       make(map[string][]string),
		failures:    make(map[string]error),
		idFailures:  make(map[string]error),
		handlers:    make(map[int]query.SessionErrorHandler),
	}
}

// Seed stores entities directly without recording calls.
func (fc *FakeClient) Seed(collection string, entities ...query.Entity) {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	for _, e := range entities {
		fc.put(collection, e.Clone())
	}
}

// SetSession sets the live session state directly without recording calls.
func (fc *FakeClient) SetSession(token string) {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	fc.token = token
	fc.decoded = decode(token)
	fc.connected = token != ""
}

// FailOn makes every subsequent call to method return err.
func (fc *FakeClient) FailOn(method string, err error) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.failures[method] = err
}

// FailOnID makes calls to method targeting id return err.
func (fc *FakeClient) FailOnID(method, id string, err error) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.idFailures[method+"/"+id] = err
}

// Calls returns a copy of the recorded calls.
func (fc *FakeClient) Calls() []Call {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return append([]Call(nil), fc.calls...)
}

// Methods returns the recorded method names in call order.
func (fc *FakeClient) Methods() []string {
	calls := fc.Calls()
	methods := make([]string, 0, len(calls))
	for _, c := range calls {
		methods = append(methods, c.Method)
	}
	return methods
}

// CallCount returns how often method was called.
func (fc *FakeClient) CallCount(method string) int {
	n := 0
	for _, c := range fc.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded calls.
func (fc *FakeClient) ResetCalls() {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.calls = nil
}

// Get returns a stored entity without recording a call.
func (fc *FakeClient) Get(collection, id string) (query.Entity, bool) {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	e, ok := fc.collections[collection][id]
	return e.Clone(), ok
}

// Len returns the number of entities stored in collection.
func (fc *FakeClient) Len(collection string) int {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return len(fc.collections[collection])
}

// Connected reports whether a session is currently started.
func (fc *FakeClient) Connected() bool {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return fc.connected
}

// Subscribers returns the number of registered session error handlers.
func (fc *FakeClient) Subscribers() int {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return len(fc.handlers)
}

// EmitSessionError delivers err to every registered handler.
func (fc *FakeClient) EmitSessionError(err query.SessionError) {
	fc.lock.RLock()
	handlers := make([]query.SessionErrorHandler, 0, len(fc.handlers))
	for _, h := range fc.handlers {
		handlers = append(handlers, h)
	}
	fc.lock.RUnlock()

	for _, h := range handlers {
		h(err)
	}
}

func (fc *FakeClient) record(c Call) error {
	if fc.BeforeCall != nil {
		fc.BeforeCall(c.Method)
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()

	fc.calls = append(fc.calls, c)
	if err, ok := fc.idFailures[c.Method+"/"+c.ID]; ok && c.ID != "" {
		return err
	}
	return fc.failures[c.Method]
}

func (fc *FakeClient) Fetch(ctx context.Context, q query.Query) ([]query.Entity, error) {
	if err := fc.record(Call{Method: "Fetch", Collection: q.Collection}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return fc.match(q), nil
}

func (fc *FakeClient) FetchOne(ctx context.Context, q query.Query) (query.Entity, error) {
	if err := fc.record(Call{Method: "FetchOne", Collection: q.Collection}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fc.lock.RLock()
	defer fc.lock.RUnlock()

	limit := 1
	q.Limit = &limit
	matches := fc.match(q)
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

func (fc *FakeClient) Insert(ctx context.Context, collection string, entity query.Entity) error {
	if err := fc.record(Call{Method: "Insert", Collection: collection, ID: entity.ID()}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()

	if id := entity.ID(); id != "" {
		if _, exists := fc.collections[collection][id]; exists {
			return errors.New("entity already exists")
		}
	}
	fc.put(collection, entity.Clone())
	return nil
}

func (fc *FakeClient) Update(ctx context.Context, collection, id string, mutate query.Mutator) error {
	if err := fc.record(Call{Method: "Update", Collection: collection, ID: id}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()

	stored, ok := fc.collections[collection][id]
	if !ok {
		return errors.New("not found")
	}
	updated := stored.Clone()
	mutate(updated)
	updated[query.IDField] = id
	fc.collections[collection][id] = updated
	return nil
}

func (fc *FakeClient) Delete(ctx context.Context, collection, id string) error {
	if err := fc.record(Call{Method: "Delete", Collection: collection, ID: id}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()

	if _, ok := fc.collections[collection][id]; !ok {
		return nil
	}
	delete(fc.collections[collection], id)
	ids := fc.order[collection]
	for i, v := range ids {
		if v == id {
			fc.order[collection] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (fc *FakeClient) Token() string {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	return fc.token
}

func (fc *FakeClient) DecodedToken() *query.DecodedToken {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	if fc.decoded == nil {
		return nil
	}
	d := *fc.decoded
	return &d
}

func (fc *FakeClient) Clear(ctx context.Context) error {
	if err := fc.record(Call{Method: "Clear"}); err != nil {
		return err
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.collections = make(map[string]map[string]query.Entity)
	fc.order = make(map[string][]string)
	return nil
}

func (fc *FakeClient) Disconnect(ctx context.Context) error {
	if err := fc.record(Call{Method: "Disconnect"}); err != nil {
		return err
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.connected = false
	return nil
}

func (fc *FakeClient) StartSession(ctx context.Context, token string) error {
	if err := fc.record(Call{Method: "StartSession", Token: token}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.token = token
	fc.decoded = decode(token)
	fc.connected = true
	return nil
}

func (fc *FakeClient) UpdateSessionToken(ctx context.Context, token string) error {
	if err := fc.record(Call{Method: "UpdateSessionToken", Token: token}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()
	if !fc.connected {
		return errors.New("no active session")
	}
	fc.token = token
	fc.decoded = decode(token)
	return nil
}

func (fc *FakeClient) OnSessionError(handler query.SessionErrorHandler) func() error {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	id := fc.nextID
	fc.nextID++
	fc.handlers[id] = handler

	return func() error {
		fc.lock.Lock()
		defer fc.lock.Unlock()
		fc.calls = append(fc.calls, Call{Method: "Unsubscribe"})
		if err := fc.failures["Unsubscribe"]; err != nil {
			return err
		}
		delete(fc.handlers, id)
		return nil
	}
}

func (fc *FakeClient) put(collection string, e query.Entity) {
	if e.ID() == "" {
		e[query.IDField] = uuid.New().String()
	}
	if fc.collections[collection] == nil {
		fc.collections[collection] = make(map[string]query.Entity)
	}
	id := e.ID()
	if _, exists := fc.collections[collection][id]; !exists {
		fc.order[collection] = append(fc.order[collection], id)
	}
	fc.collections[collection][id] = e
}

// match must be called with the lock held.
func (fc *FakeClient) match(q query.Query) []query.Entity {
	results := make([]query.Entity, 0)
	for _, id := range fc.order[q.Collection] {
		e := fc.collections[q.Collection][id]
		if matchesAll(e, q.Where) {
			results = append(results, e.Clone())
		}
	}

	if len(q.Order) > 0 {
		sort.SliceStable(results, func(i, j int) bool {
			for _, o := range q.Order {
				c := query.Compare(results[i][o.Field], results[j][o.Field])
				if c == 0 {
					continue
				}
				if o.Direction == query.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Offset != nil {
		if *q.Offset >= len(results) {
			return []query.Entity{}
		}
		if *q.Offset > 0 {
			results = results[*q.Offset:]
		}
	}
	if q.Limit != nil && *q.Limit >= 0 && *q.Limit < len(results) {
		results = results[:*q.Limit]
	}
	return results
}

func matchesAll(e query.Entity, filters []query.Filter) bool {
	for _, f := range filters {
		if !matches(e[f.Field], f) {
			return false
		}
	}
	return true
}

func matches(actual any, f query.Filter) bool {
	switch f.Op {
	case query.Equal:
		return query.Compare(actual, f.Value) == 0
	case query.NotEqual:
		return query.Compare(actual, f.Value) != 0
	case query.Greater:
		return actual != nil && query.Compare(actual, f.Value) > 0
	case query.GreaterOrEqual:
		return actual != nil && query.Compare(actual, f.Value) >= 0
	case query.Less:
		return actual != nil && query.Compare(actual, f.Value) < 0
	case query.LessOrEqual:
		return actual != nil && query.Compare(actual, f.Value) <= 0
	case query.In:
		set := reflect.ValueOf(f.Value)
		if set.Kind() != reflect.Slice && set.Kind() != reflect.Array {
			return false
		}
		for i := 0; i < set.Len(); i++ {
			if query.Compare(actual, set.Index(i).Interface()) == 0 {
				return true
			}
		}
		return false
	case query.Like:
		s, ok := actual.(string)
		pattern, pok := f.Value.(string)
		return ok && pok && likePattern(pattern).MatchString(s)
	default:
		return false
	}
}

func likePattern(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "%")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// decode reads sub and role from a JWT without verifying it. Opaque tokens decode to nil.
func decode(token string) *query.DecodedToken {
	if token == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	sub, _ := claims.GetSubject()
	return &query.DecodedToken{Sub: sub, Role: claims["role"]}
}
