package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/campusconnect/go-campus-auth"
)

func studentProfile(uid uuid.UUID) *auth.Profile {
	return &auth.Profile{
		UID:       uid,
		FirstName: "Asha",
		LastName:  "Verma",
		Role:      auth.RoleStudent,
		Branch:    "Computer Science",
		BatchYear: 2025,
	}
}

func TestSessionStoreResolvesSignedOutImmediately(t *testing.T) {
	provider := &fakeProvider{}
	profiles := newFakeProfileStore()

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	snap := store.Snapshot()
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Session)
}

func TestSessionStoreJoinsIdentityWithProfile(t *testing.T) {
	uid := uuid.New()
	provider := &fakeProvider{}
	profiles := newFakeProfileStore()
	profiles.put(uid.String(), studentProfile(uid))

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	provider.emit(&auth.Identity{UID: uid.String(), Email: "asha@university.edu", EmailVerified: true})

	snap := store.Snapshot()
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.Session)
	assert.Equal(t, uid.String(), snap.Session.Identity.UID)
	assert.Equal(t, auth.RoleStudent, snap.Session.Profile.Role)
	assert.Equal(t, "Asha Verma", snap.Session.Profile.FullName())
}

func TestSessionStoreMissingProfileResolvesSignedOut(t *testing.T) {
	provider := &fakeProvider{}
	profiles := newFakeProfileStore()

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	provider.emit(&auth.Identity{UID: uuid.New().String(), Email: "ghost@university.edu"})

	snap := store.Snapshot()
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Session)
}

func TestSessionStoreProfileFetchErrorResolvesSignedOut(t *testing.T) {
	uid := uuid.New()
	provider := &fakeProvider{}
	profiles := newFakeProfileStore()
	profiles.failWith(uid.String(), assert.AnError)

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	provider.emit(&auth.Identity{UID: uid.String()})

	snap := store.Snapshot()
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Session)
}

func TestSessionStoreStaleProfileFetchIsDiscarded(t *testing.T) {
	uidA := uuid.New()
	uidB := uuid.New()

	provider := &fakeProvider{}
	profiles := newFakeProfileStore()
	profiles.put(uidA.String(), studentProfile(uidA))

	profileB := studentProfile(uidB)
	profileB.FirstName = "Binod"
	profiles.put(uidB.String(), profileB)

	gate := profiles.gate(uidA.String())

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		provider.emit(&auth.Identity{UID: uidA.String(), EmailVerified: true})
	}()

	<-gate.started

	// a newer notification lands while the first profile fetch hangs
	provider.emit(&auth.Identity{UID: uidB.String(), EmailVerified: true})

	snap := store.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Equal(t, uidB.String(), snap.Session.Identity.UID)

	close(gate.release)
	<-done

	snap = store.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Equal(t, uidB.String(), snap.Session.Identity.UID)
	assert.Equal(t, "Binod", snap.Session.Profile.FirstName)
}

func TestSessionStoreSignInRaisesLoadingUntilResolved(t *testing.T) {
	uid := uuid.New()
	provider := &fakeProvider{}
	profiles := newFakeProfileStore()
	profiles.put(uid.String(), studentProfile(uid))

	identity := auth.Identity{UID: uid.String(), Email: "asha@university.edu", EmailVerified: true}
	provider.signInFn = func(ctx context.Context, email, password string) (auth.Identity, error) {
		provider.emit(&identity)
		return identity, nil
	}

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	recorder := &snapshotRecorder{}
	cancel := store.Subscribe(recorder.watch)
	defer cancel()

	require.NoError(t, store.SignIn(context.Background(), "asha@university.edu", "secret1"))

	snaps := recorder.all()
	sawLoading := false
	for _, snap := range snaps {
		if snap.Loading {
			sawLoading = true
		}
	}
	assert.True(t, sawLoading, "expected a loading snapshot during sign-in")

	final := recorder.last()
	assert.False(t, final.Loading)
	require.NotNil(t, final.Session)
	assert.Equal(t, uid.String(), final.Session.Identity.UID)
}

func TestSessionStoreSignInFailureRestoresLoadingAndReRaises(t *testing.T) {
	provider := &fakeProvider{}
	provider.signInFn = func(ctx context.Context, email, password string) (auth.Identity, error) {
		return auth.Identity{}, auth.ErrInvalidCredentials
	}
	profiles := newFakeProfileStore()

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	err := store.SignIn(context.Background(), "asha@university.edu", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	snap := store.Snapshot()
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Session)
}

func TestSessionStoreSignOutClearsSession(t *testing.T) {
	uid := uuid.New()
	provider := &fakeProvider{}
	profiles := newFakeProfileStore()
	profiles.put(uid.String(), studentProfile(uid))

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	provider.emit(&auth.Identity{UID: uid.String(), EmailVerified: true})
	require.NotNil(t, store.Snapshot().Session)

	recorder := &snapshotRecorder{}
	cancel := store.Subscribe(recorder.watch)
	defer cancel()

	require.NoError(t, store.SignOut(context.Background()))

	final := recorder.last()
	assert.False(t, final.Loading)
	assert.Nil(t, final.Session)
}

func TestSessionStoreSendVerificationEmailRestoresLoading(t *testing.T) {
	provider := &fakeProvider{}
	sent := false
	provider.sendFn = func(ctx context.Context) error {
		sent = true
		return nil
	}
	profiles := newFakeProfileStore()

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	require.NoError(t, store.SendVerificationEmail(context.Background()))
	assert.True(t, sent)
	assert.False(t, store.Snapshot().Loading)
}

func TestSessionStoreSendVerificationEmailPassesThroughError(t *testing.T) {
	provider := &fakeProvider{}
	provider.sendFn = func(ctx context.Context) error {
		return auth.ErrNoIdentity
	}
	profiles := newFakeProfileStore()

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	err := store.SendVerificationEmail(context.Background())
	assert.ErrorIs(t, err, auth.ErrNoIdentity)
	assert.False(t, store.Snapshot().Loading)
}

func TestSessionStoreSubscribeFiresImmediately(t *testing.T) {
	provider := &fakeProvider{}
	profiles := newFakeProfileStore()

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	recorder := &snapshotRecorder{}
	cancel := store.Subscribe(recorder.watch)
	defer cancel()

	require.Len(t, recorder.all(), 1)
	assert.False(t, recorder.last().Loading)
}

func TestSessionStoreUnsubscribeStopsNotifications(t *testing.T) {
	uid := uuid.New()
	provider := &fakeProvider{}
	profiles := newFakeProfileStore()
	profiles.put(uid.String(), studentProfile(uid))

	store := auth.NewSessionStore(provider, profiles)
	defer store.Close()

	recorder := &snapshotRecorder{}
	cancel := store.Subscribe(recorder.watch)

	cancel()
	cancel() // second call is a no-op

	before := len(recorder.all())
	provider.emit(&auth.Identity{UID: uid.String(), EmailVerified: true})
	assert.Len(t, recorder.all(), before)
}

func TestSessionStoreCloseCancelsProviderSubscription(t *testing.T) {
	provider := &fakeProvider{}
	profiles := newFakeProfileStore()

	store := auth.NewSessionStore(provider, profiles)
	store.Close()

	assert.True(t, provider.unsubscribed)

	recorder := &snapshotRecorder{}
	store.Subscribe(recorder.watch)
	provider.emit(&auth.Identity{UID: uuid.New().String()})

	// only the immediate subscribe fire; nothing published after Close
	assert.Len(t, recorder.all(), 1)
}

func TestSessionStoreRecordsActivityEvents(t *testing.T) {
	uid := uuid.New()
	provider := &fakeProvider{}
	profiles := newFakeProfileStore()
	profiles.put(uid.String(), studentProfile(uid))

	identity := auth.Identity{UID: uid.String(), Email: "asha@university.edu", EmailVerified: true}
	provider.signInFn = func(ctx context.Context, email, password string) (auth.Identity, error) {
		provider.emit(&identity)
		return identity, nil
	}

	sink := &capturingSink{}
	store := auth.NewSessionStore(provider, profiles, auth.WithSessionActivitySink(sink))
	defer store.Close()

	require.NoError(t, store.SignIn(context.Background(), "asha@university.edu", "secret1"))
	require.NoError(t, store.SignOut(context.Background()))

	types := sink.eventTypes()
	assert.Contains(t, types, auth.ActivityEventSessionResolved)
	assert.Contains(t, types, auth.ActivityEventSignInSuccess)
	assert.Contains(t, types, auth.ActivityEventSignOut)

	for _, event := range sink.events {
		assert.False(t, event.OccurredAt.IsZero())
		assert.WithinDuration(t, time.Now(), event.OccurredAt, time.Minute)
	}
}
