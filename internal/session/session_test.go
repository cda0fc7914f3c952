package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-bounty/internal/identity"
	"code-bounty/internal/models"
)

// fakeAuth lets tests push notifications by hand.
type fakeAuth struct {
	mu           sync.Mutex
	listener     identity.Listener
	current      *identity.Principal
	unsubscribed bool
}

func (f *fakeAuth) OnAuthStateChanged(fn identity.Listener) func() {
	f.mu.Lock()
	f.listener = fn
	current := f.current
	f.mu.Unlock()
	fn(current)
	return func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.listener = nil
		f.mu.Unlock()
	}
}

func (f *fakeAuth) emit(p *identity.Principal) {
	f.mu.Lock()
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	err      error
	calls    int
}

func (f *fakeProfiles) GetProfile(_ context.Context, uid string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[uid]
	if !ok {
		return nil, errors.New("profile not found")
	}
	return p, nil
}

func waitFor(t *testing.T, s *Store, cond func(State) bool) State {
	t.Helper()
	var last State
	require.Eventually(t, func() bool {
		last = s.State()
		return cond(last)
	}, time.Second, 5*time.Millisecond)
	return last
}

func TestStore_SignedOutAtStart(t *testing.T) {
	auth := &fakeAuth{}
	s := NewStore(context.Background(), auth, &fakeProfiles{})
	defer s.Close()

	state, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Loading)
	assert.Nil(t, state.User)
}

func TestStore_LoadsProfileForPrincipal(t *testing.T) {
	dev := &models.Developer{Account: models.Account{UID: "d1"}, Name: "Ada"}
	profiles := &fakeProfiles{profiles: map[string]models.Profile{"d1": dev}}
	auth := &fakeAuth{current: &identity.Principal{UID: "d1", Email: "ada@example.com"}}

	s := NewStore(context.Background(), auth, profiles)
	defer s.Close()

	state, err := s.Wait(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state.User)
	assert.Equal(t, "d1", state.User.Principal.UID)
	assert.Equal(t, models.RoleDeveloper, state.User.Profile.Role())

	auth.emit(nil)
	waitFor(t, s, func(st State) bool { return st.User == nil })
}

func TestStore_ProfileFailureMeansNoUser(t *testing.T) {
	profiles := &fakeProfiles{err: errors.New("backend down")}
	auth := &fakeAuth{current: &identity.Principal{UID: "d1"}}

	s := NewStore(context.Background(), auth, profiles)
	defer s.Close()

	state, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Loading, "loading ends even when the fetch fails")
	assert.Nil(t, state.User)

	profiles.mu.Lock()
	calls := profiles.calls
	profiles.mu.Unlock()
	assert.Equal(t, 1, calls, "no retry")
}

func TestStore_SubscribeAndClose(t *testing.T) {
	dev := &models.Developer{Account: models.Account{UID: "d1"}, Name: "Ada"}
	profiles := &fakeProfiles{profiles: map[string]models.Profile{"d1": dev}}
	auth := &fakeAuth{}

	s := NewStore(context.Background(), auth, profiles)
	<-s.Ready()

	var mu sync.Mutex
	var seen []State
	unsubscribe := s.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	auth.emit(&identity.Principal{UID: "d1"})
	waitFor(t, s, func(st State) bool { return st.User != nil })

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 5*time.Millisecond)

	unsubscribe()
	s.Close()
	s.Close()

	auth.mu.Lock()
	assert.True(t, auth.unsubscribed)
	auth.mu.Unlock()
}

func TestStore_ProcessesNotificationsInOrder(t *testing.T) {
	dev := &models.Developer{Account: models.Account{UID: "d1"}, Name: "Ada"}
	profiles := &fakeProfiles{profiles: map[string]models.Profile{"d1": dev}}
	auth := &fakeAuth{}

	s := NewStore(context.Background(), auth, profiles)
	defer s.Close()
	<-s.Ready()

	for i := 0; i < 10; i++ {
		auth.emit(&identity.Principal{UID: "d1"})
		auth.emit(nil)
	}
	auth.emit(&identity.Principal{UID: "d1"})

	require.Eventually(t, func() bool {
		profiles.mu.Lock()
		defer profiles.mu.Unlock()
		return profiles.calls == 11
	}, time.Second, 5*time.Millisecond)
	state := waitFor(t, s, func(st State) bool { return st.User != nil })
	assert.Equal(t, "d1", state.User.Principal.UID)
}

func TestStore_SubscriberCallsDoNotOverlap(t *testing.T) {
	dev := &models.Developer{Account: models.Account{UID: "d1"}, Name: "Ada"}
	profiles := &fakeProfiles{profiles: map[string]models.Profile{"d1": dev}}
	auth := &fakeAuth{}

	s := NewStore(context.Background(), auth, profiles)
	defer s.Close()
	<-s.Ready()

	var (
		inFlight atomic.Int32
		overlap  atomic.Bool
		mu       sync.Mutex
		last     State
	)
	record := func(st State) {
		if inFlight.Add(1) > 1 {
			overlap.Store(true)
		}
		time.Sleep(100 * time.Microsecond)
		mu.Lock()
		last = st
		mu.Unlock()
		inFlight.Add(-1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			auth.emit(nil)
			auth.emit(&identity.Principal{UID: "d1"})
		}
	}()

	var unsubscribes []func()
	for i := 0; i < 5; i++ {
		unsubscribes = append(unsubscribes, s.Subscribe(record))
	}
	<-done

	require.Eventually(t, func() bool {
		profiles.mu.Lock()
		defer profiles.mu.Unlock()
		return profiles.calls == 20
	}, time.Second, 5*time.Millisecond)
	waitFor(t, s, func(st State) bool { return st.User != nil })
	// Wait out the final delivery.
	s.deliverMu.Lock()
	s.deliverMu.Unlock() //nolint:staticcheck

	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
	assert.False(t, overlap.Load(), "subscriber callbacks overlapped")
	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, last.User)
	assert.Equal(t, "d1", last.User.Principal.UID)
}

func TestStore_WaitHonoursContext(t *testing.T) {
	s := &Store{ready: make(chan struct{}), state: State{Loading: true}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, state.Loading)
}
