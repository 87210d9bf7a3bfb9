// Package sessionsync keeps the query client's live session token in agreement with the
// application's authentication state.
//
// Reconcile is called whenever the signed-in session changes. A token refresh for the same
// user and role swaps the token in place; any other identity change reconnects, and a sign
// out also clears the local cache first. Client failures during reconciliation are logged
// and reported as events rather than returned, so a failed background resync never reaches
// the host application as an error.
package sessionsync

import (
	"context"
	"os"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/jrsteele09/go-auth-triplit/internal/config"
	apperrors "github.com/jrsteele09/go-auth-triplit/internal/errors"
	"github.com/jrsteele09/go-auth-triplit/query"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrRemoteOperation matches every step failure reported in Outcome.Errors and events.
var ErrRemoteOperation = apperrors.ErrRemoteOperation

// Action is the transition a reconciliation run took.
type Action string

const (
	ActionPending      Action = "pending"       // auth state unresolved, synchronizer inert
	ActionIdle         Action = "idle"          // no token to apply
	ActionUnchanged    Action = "unchanged"     // live token already matches
	ActionRefresh      Action = "refresh"       // same user and role, token swapped in place
	ActionReconnect    Action = "reconnect"     // identity changed, new session started
	ActionSignOut      Action = "sign_out"      // signed out without a fallback token
	ActionSuperseded   Action = "superseded"    // a newer run started, result discarded
	ActionSessionError Action = "session_error" // the client reported a session error
	ActionClosed       Action = "closed"        // observer unregistered
)

// Step names a client call made while reconciling.
type Step string

const (
	StepUpdateToken  Step = "update_session_token"
	StepClear        Step = "clear"
	StepDisconnect   Step = "disconnect"
	StepStartSession Step = "start_session"
	StepUnsubscribe  Step = "unsubscribe"
)

// Event reports a reconciliation result or a step failure.
type Event struct {
	Seq          uint64
	Action       Action
	Step         Step
	Err          error
	SessionError *query.SessionError
}

// Observer receives events. It is called synchronously and must not block.
type Observer func(Event)

// Outcome is the result of one Reconcile call. Errors holds step failures that were
// logged instead of returned.
type Outcome struct {
	Seq    uint64
	Action Action
	Errors []error
}

// Options configures a Synchronizer.
type Options struct {
	// AnonToken is used when no session exists. Falls back to NEXT_PUBLIC_TRIPLIT_ANON_TOKEN.
	AnonToken string

	// SessionData is reconciled once by Init.
	SessionData *authmodel.SessionData

	// Pending marks the auth state as not yet resolved. The synchronizer then does nothing.
	Pending bool

	// OnSessionError is called for every session error reported by the client.
	OnSessionError func(err query.SessionError)

	Observer Observer
	Logger   *zerolog.Logger

	// Getenv looks up environment fallbacks (primarily for testing)
	Getenv func(string) string
}

// Synchronizer reconciles a query.SessionClient against external session state.
type Synchronizer struct {
	client      query.SessionClient
	anonToken   string
	pending     bool
	onError     func(query.SessionError)
	observer    Observer
	logger      zerolog.Logger
	getenv      func(string) string
	seq         atomic.Uint64
	unsubscribe func() error
	closeOnce   sync.Once

	// signedOut is the live token this synchronizer last signed out of.
	signedOut atomic.Pointer[string]
}

// New creates a Synchronizer and registers its session error observer on client.
// A pending synchronizer registers nothing.
func New(client query.SessionClient, opts Options) *Synchronizer {
	s := &Synchronizer{
		client:    client,
		anonToken: opts.AnonToken,
		pending:   opts.Pending,
		onError:   opts.OnSessionError,
		observer:  opts.Observer,
		logger:    log.Logger.With().Str("component", "sessionsync").Logger(),
		getenv:    os.Getenv,
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	if opts.Getenv != nil {
		s.getenv = opts.Getenv
	}

	if s.pending {
		return s
	}

	s.unsubscribe = client.OnSessionError(func(err query.SessionError) {
		s.logger.Error().Str("code", err.Code).Msg(err.Message)
		s.emit(Event{Seq: s.seq.Load(), Action: ActionSessionError, SessionError: &err})
		if s.onError != nil {
			s.onError(err)
		}
	})
	return s
}

// Init mirrors the usual mount hook: it creates a Synchronizer, reconciles
// opts.SessionData in the background and returns a teardown that may be called
// any number of times.
func Init(ctx context.Context, client query.SessionClient, opts Options) (teardown func()) {
	s := New(client, opts)
	if !s.pending {
		go s.Reconcile(ctx, opts.SessionData)
	}
	return s.Close
}

// Close unregisters the session error observer. Only the first call has an effect.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe == nil {
			return
		}
		if err := s.unsubscribe(); err != nil {
			err = apperrors.Remote(err, string(StepUnsubscribe))
			s.logger.Err(err).Msg("Failed to unregister session error observer")
			s.emit(Event{Seq: s.seq.Load(), Action: ActionClosed, Step: StepUnsubscribe, Err: err})
			return
		}
		s.emit(Event{Seq: s.seq.Load(), Action: ActionClosed})
	})
}

// Reconcile brings the client's live token in line with data; nil means signed out.
// Overlapping calls are allowed: each run takes a sequence number and stops once a
// newer run has started, reporting ActionSuperseded. Signing out without a fallback token
// happens once; later calls are idle until a session is started again.
func (s *Synchronizer) Reconcile(ctx context.Context, data *authmodel.SessionData) Outcome {
	if s.pending {
		return Outcome{Action: ActionPending}
	}

	r := &run{s: s, seq: s.seq.Add(1)}
	token := s.candidateToken(data)
	live := s.client.Token()

	signedOut := s.wasSignedOut(live)
	if token == "" && (data != nil || live == "" || signedOut) {
		return r.finish(ActionIdle)
	}
	if token != "" && token == live && !signedOut {
		return r.finish(ActionUnchanged)
	}

	if data != nil && !signedOut && s.sameIdentity(data) {
		r.step(StepUpdateToken, s.client.UpdateSessionToken(ctx, token))
		if r.stale() {
			return r.finish(ActionSuperseded)
		}
		return r.finish(ActionRefresh)
	}

	if data == nil {
		r.step(StepClear, s.client.Clear(ctx))
		if r.stale() {
			return r.finish(ActionSuperseded)
		}
	}

	if !r.step(StepDisconnect, s.client.Disconnect(ctx)) {
		return r.finish(ActionReconnect)
	}
	if token == "" {
		s.signedOut.Store(&live)
		return r.finish(ActionSignOut)
	}
	if r.stale() {
		return r.finish(ActionSuperseded)
	}

	if r.step(StepStartSession, s.client.StartSession(ctx, token)) {
		s.signedOut.Store(nil)
	}
	if r.stale() {
		return r.finish(ActionSuperseded)
	}
	return r.finish(ActionReconnect)
}

// Latest returns the sequence number of the most recent Reconcile call.
func (s *Synchronizer) Latest() uint64 {
	return s.seq.Load()
}

func (s *Synchronizer) candidateToken(data *authmodel.SessionData) string {
	if data != nil && data.Session.Token != "" {
		return data.Session.Token
	}
	if s.anonToken != "" {
		return s.anonToken
	}
	return s.getenv(config.AnonTokenEnvVar)
}

// wasSignedOut reports whether live is the token a previous run already signed out of.
// Clients keep their token after a disconnect.
func (s *Synchronizer) wasSignedOut(live string) bool {
	prev := s.signedOut.Load()
	return prev != nil && *prev == live
}

func (s *Synchronizer) sameIdentity(data *authmodel.SessionData) bool {
	decoded := s.client.DecodedToken()
	return decoded != nil &&
		decoded.Sub == data.User.ID &&
		reflect.DeepEqual(decoded.Role, data.User.Role)
}

func (s *Synchronizer) emit(e Event) {
	if s.observer != nil {
		s.observer(e)
	}
}

// run tracks a single Reconcile call.
type run struct {
	s      *Synchronizer
	seq    uint64
	errors []error
}

// step records a failed client call and reports whether it succeeded.
func (r *run) step(step Step, err error) bool {
	if err == nil {
		return true
	}
	err = apperrors.Remote(err, string(step))
	r.errors = append(r.errors, err)
	r.s.logger.Err(err).Uint64("seq", r.seq).Str("step", string(step)).Msg("Session sync step failed")
	r.s.emit(Event{Seq: r.seq, Step: step, Err: err})
	return false
}

func (r *run) stale() bool {
	return r.s.seq.Load() != r.seq
}

func (r *run) finish(action Action) Outcome {
	r.s.logger.Debug().Uint64("seq", r.seq).Str("action", string(action)).Int("errors", len(r.errors)).Msg("Session sync finished")
	r.s.emit(Event{Seq: r.seq, Action: action})
	return Outcome{Seq: r.seq, Action: action, Errors: r.errors}
}
