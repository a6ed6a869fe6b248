package auth_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	auth "github.com/campusconnect/go-campus-auth"
)

// MockIdentityProvider implements auth.IdentityProvider. Subscribe fires
// with Current and is not expectation-driven; the credential operations
// are.
type MockIdentityProvider struct {
	mock.Mock
	Current *auth.Identity
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (auth.Identity, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.Identity), args.Error(1)
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, draft auth.RegistrationDraft) (auth.Identity, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(auth.Identity), args.Error(1)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIdentityProvider) SendVerificationEmail(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIdentityProvider) Subscribe(onChange func(*auth.Identity)) auth.Unsubscribe {
	onChange(m.Current)
	return func() {}
}

// fakeProvider is a scripted provider whose notifications are driven by
// the test through emit.
type fakeProvider struct {
	mu      sync.Mutex
	handler func(*auth.Identity)
	current *auth.Identity

	signInFn  func(ctx context.Context, email, password string) (auth.Identity, error)
	signUpFn  func(ctx context.Context, draft auth.RegistrationDraft) (auth.Identity, error)
	signOutFn func(ctx context.Context) error
	sendFn    func(ctx context.Context) error

	unsubscribed bool
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (auth.Identity, error) {
	if p.signInFn != nil {
		return p.signInFn(ctx, email, password)
	}
	return auth.Identity{}, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, draft auth.RegistrationDraft) (auth.Identity, error) {
	if p.signUpFn != nil {
		return p.signUpFn(ctx, draft)
	}
	return auth.Identity{}, nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	if p.signOutFn != nil {
		return p.signOutFn(ctx)
	}
	p.emit(nil)
	return nil
}

func (p *fakeProvider) SendVerificationEmail(ctx context.Context) error {
	if p.sendFn != nil {
		return p.sendFn(ctx)
	}
	return nil
}

func (p *fakeProvider) Subscribe(onChange func(*auth.Identity)) auth.Unsubscribe {
	p.mu.Lock()
	p.handler = onChange
	current := p.current
	p.mu.Unlock()

	onChange(current)

	return func() {
		p.mu.Lock()
		p.unsubscribed = true
		p.handler = nil
		p.mu.Unlock()
	}
}

func (p *fakeProvider) emit(identity *auth.Identity) {
	p.mu.Lock()
	p.current = identity
	handler := p.handler
	p.mu.Unlock()

	if handler != nil {
		handler(identity)
	}
}

// fakeProfileStore serves profiles from a map. Fetches for gated uids
// block: the test is signaled on started and the fetch waits for release.
type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*auth.Profile
	errs     map[string]error
	gates    map[string]*fetchGate
}

type fetchGate struct {
	started chan struct{}
	release chan struct{}
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		profiles: map[string]*auth.Profile{},
		errs:     map[string]error{},
		gates:    map[string]*fetchGate{},
	}
}

func (s *fakeProfileStore) put(uid string, profile *auth.Profile) {
	s.mu.Lock()
	s.profiles[uid] = profile
	s.mu.Unlock()
}

func (s *fakeProfileStore) failWith(uid string, err error) {
	s.mu.Lock()
	s.errs[uid] = err
	s.mu.Unlock()
}

func (s *fakeProfileStore) gate(uid string) *fetchGate {
	g := &fetchGate{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s.mu.Lock()
	s.gates[uid] = g
	s.mu.Unlock()
	return g
}

func (s *fakeProfileStore) GetProfile(ctx context.Context, uid string) (*auth.Profile, error) {
	s.mu.Lock()
	g := s.gates[uid]
	s.mu.Unlock()

	if g != nil {
		close(g.started)
		<-g.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.errs[uid]; err != nil {
		return nil, err
	}
	if profile, ok := s.profiles[uid]; ok {
		return profile, nil
	}
	return nil, auth.ErrProfileNotFound.WithMetadata(map[string]any{"uid": uid})
}

// capturingSink records every activity event it receives.
type capturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *capturingSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *capturingSink) eventTypes() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]auth.ActivityEventType, len(s.events))
	for i, event := range s.events {
		types[i] = event.EventType
	}
	return types
}

// snapshotRecorder collects every snapshot a watcher sees.
type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []auth.Snapshot
}

func (r *snapshotRecorder) watch(snap auth.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, snap)
	r.mu.Unlock()
}

func (r *snapshotRecorder) all() []auth.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

func (r *snapshotRecorder) last() auth.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return auth.Snapshot{}
	}
	return r.snaps[len(r.snaps)-1]
}
