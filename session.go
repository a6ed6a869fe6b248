package auth

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Session is the joined, in-memory view of Identity and Profile for the
// current user.
type Session struct {
	Identity Identity
	Profile  Profile
}

// Snapshot is the observable session state. Loading is true only between
// construction (or a sign-in/up/out call) and the first resolution of
// identity plus profile; Session is nil whenever no identity is
// authenticated or its profile document is missing.
type Snapshot struct {
	Session *Session
	Loading bool
}

// SessionStore holds the process-wide session state. It registers a
// single provider subscription at construction, joins each identity
// notification with its profile document, and republishes the derived
// snapshot to its own watchers. One instance per running application.
type SessionStore struct {
	provider IdentityProvider
	profiles ProfileStore
	logger   Logger
	sink     ActivitySink

	mu       sync.Mutex
	session  *Session
	loading  bool
	seq      uint64
	closed   bool
	watchers map[int]func(Snapshot)
	nextID   int
	cancel   Unsubscribe
}

// SessionStoreOption customizes session store construction.
type SessionStoreOption func(*SessionStore)

// WithSessionLogger overrides the logger used by the store.
func WithSessionLogger(logger Logger) SessionStoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionActivitySink sets the ActivitySink used to publish session
// lifecycle events.
func WithSessionActivitySink(sink ActivitySink) SessionStoreOption {
	return func(s *SessionStore) {
		s.sink = NormalizeActivitySink(sink)
	}
}

// NewSessionStore subscribes to the provider and returns the store. The
// snapshot starts loading until the provider's immediate notification
// resolves.
func NewSessionStore(provider IdentityProvider, profiles ProfileStore, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		provider: provider,
		profiles: profiles,
		logger:   defLogger{},
		sink:     noopActivitySink{},
		loading:  true,
		watchers: map[int]func(Snapshot){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.cancel = provider.Subscribe(s.onAuthChange)

	return s
}

// Snapshot returns the current derived state.
func (s *SessionStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers a watcher, fires it once immediately with the
// current snapshot, then on every snapshot change.
func (s *SessionStore) Subscribe(fn func(Snapshot)) Unsubscribe {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	snap := s.snapshotLocked()
	s.mu.Unlock()

	fn(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// Close cancels the provider subscription and drops all watchers. The
// store publishes nothing after Close; in-flight profile fetches are
// discarded instead of updating disposed state.
func (s *SessionStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.watchers = map[int]func(Snapshot){}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// SignIn authenticates the credentials through the provider. Loading is
// raised for the duration of the transition; the provider notification
// that follows a successful sign-in restores it once the new session
// resolves. On failure loading is restored before the error is re-raised.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) error {
	s.setLoading(true)

	identity, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.setLoading(false)
		s.record(ctx, ActivityEventSignInFailure, "", email, map[string]any{
			"error": err.Error(),
		})
		return err
	}

	s.record(ctx, ActivityEventSignInSuccess, identity.UID, identity.Email, nil)
	return nil
}

// SignUp creates the account described by the draft. Error handling and
// loading behavior mirror SignIn; validation is the registration flow's
// job and must have already happened.
func (s *SessionStore) SignUp(ctx context.Context, draft RegistrationDraft) error {
	s.setLoading(true)

	identity, err := s.provider.SignUp(ctx, draft)
	if err != nil {
		s.setLoading(false)
		s.record(ctx, ActivityEventSignUpFailure, "", draft.Email, map[string]any{
			"error": err.Error(),
		})
		return err
	}

	s.record(ctx, ActivityEventSignUpSuccess, identity.UID, identity.Email, nil)
	return nil
}

// SignOut invalidates the current identity. The provider's nil
// notification resets the session and restores loading.
func (s *SessionStore) SignOut(ctx context.Context) error {
	s.setLoading(true)

	if err := s.provider.SignOut(ctx); err != nil {
		s.setLoading(false)
		return err
	}

	s.record(ctx, ActivityEventSignOut, "", "", nil)
	return nil
}

// SendVerificationEmail re-dispatches the verification message for the
// current identity. No provider notification follows, so loading is
// restored here on both paths.
func (s *SessionStore) SendVerificationEmail(ctx context.Context) error {
	s.setLoading(true)
	err := s.provider.SendVerificationEmail(ctx)
	s.setLoading(false)

	if err != nil {
		return err
	}

	s.record(ctx, ActivityEventVerificationSent, "", "", nil)
	return nil
}

// onAuthChange processes one provider notification. Each notification
// claims the next sequence number before its profile fetch starts; a
// fetch that completes after a newer notification claimed the sequence is
// discarded so a stale identity can never overwrite a newer session.
func (s *SessionStore) onAuthChange(identity *Identity) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq

	if identity == nil {
		s.session = nil
		s.loading = false
		snap, watchers := s.publishLocked()
		s.mu.Unlock()
		dispatch(watchers, snap)
		return
	}

	id := *identity
	s.mu.Unlock()

	profile, err := s.profiles.GetProfile(context.Background(), id.UID)

	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}

	switch {
	case err != nil && goerrors.IsNotFound(err):
		// identity without a profile document is treated as signed out
		s.logger.Warn("no profile document for identity %s", id.UID)
		s.session = nil
	case err != nil:
		s.logger.Error("profile fetch failed for identity %s: %v", id.UID, err)
		s.session = nil
	case profile == nil:
		s.session = nil
	default:
		s.session = &Session{Identity: id, Profile: *profile}
	}
	s.loading = false
	resolved := s.session != nil
	snap, watchers := s.publishLocked()
	s.mu.Unlock()

	dispatch(watchers, snap)

	if resolved {
		s.record(context.Background(), ActivityEventSessionResolved, id.UID, id.Email, nil)
	}
}

func (s *SessionStore) setLoading(v bool) {
	s.mu.Lock()
	if s.closed || s.loading == v {
		s.mu.Unlock()
		return
	}
	s.loading = v
	snap, watchers := s.publishLocked()
	s.mu.Unlock()
	dispatch(watchers, snap)
}

func (s *SessionStore) snapshotLocked() Snapshot {
	snap := Snapshot{Loading: s.loading}
	if s.session != nil {
		session := *s.session
		snap.Session = &session
	}
	return snap
}

func (s *SessionStore) publishLocked() (Snapshot, []func(Snapshot)) {
	snap := s.snapshotLocked()
	watchers := make([]func(Snapshot), 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	return snap, watchers
}

func (s *SessionStore) record(ctx context.Context, eventType ActivityEventType, uid, email string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UID:        uid,
		Email:      email,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := NormalizeActivitySink(s.sink).Record(ctx, event); err != nil {
		s.logger.Warn("session activity sink error: %v", err)
	}
}

func dispatch(watchers []func(Snapshot), snap Snapshot) {
	for _, w := range watchers {
		if w != nil {
			w(snap)
		}
	}
}
