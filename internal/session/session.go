// Package session keeps the signed-in user's profile in step with the auth
// state of one client.
package session

import (
	"context"
	"sync"

	"code-bounty/internal/identity"
	"code-bounty/internal/log"
	"code-bounty/internal/models"
)

// AuthSource reports auth state changes.
type AuthSource interface {
	OnAuthStateChanged(fn identity.Listener) (unsubscribe func())
}

// ProfileReader loads a profile by uid.
type ProfileReader interface {
	GetProfile(ctx context.Context, uid string) (models.Profile, error)
}

// User is the signed-in principal together with its profile.
type User struct {
	Principal identity.Principal
	Profile   models.Profile
}

// State is what observers see. User is nil when nobody is signed in or the
// profile could not be loaded. Loading is true until the first auth
// notification has been handled.
type State struct {
	User    *User
	Loading bool
}

// Store follows one AuthSource for its whole lifetime and resolves the
// profile for every principal it reports. Notifications are handled one at
// a time in arrival order.
type Store struct {
	profiles ProfileReader

	queueMu sync.Mutex
	queue   []*identity.Principal
	wake    chan struct{}

	// deliverMu serializes subscriber callbacks, including the initial call
	// made by Subscribe.
	deliverMu sync.Mutex

	mu          sync.RWMutex
	state       State
	subscribers map[uint64]func(State)
	nextID      uint64

	ready     chan struct{}
	readyOnce sync.Once

	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
	closeOnce   sync.Once
}

// NewStore subscribes to auth and starts processing notifications. ctx bounds
// profile reads and carries logging fields; Close stops the store.
func NewStore(ctx context.Context, auth AuthSource, profiles ProfileReader) *Store {
	ctx, cancel := context.WithCancel(ctx)
	s := &Store{
		profiles:    profiles,
		wake:        make(chan struct{}, 1),
		state:       State{Loading: true},
		subscribers: make(map[uint64]func(State)),
		ready:       make(chan struct{}),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	s.unsubscribe = auth.OnAuthStateChanged(s.enqueue)
	go s.run(ctx)
	return s
}

// enqueue never blocks the notifier.
func (s *Store) enqueue(p *identity.Principal) {
	s.queueMu.Lock()
	s.queue = append(s.queue, p)
	s.queueMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		for {
			s.queueMu.Lock()
			if len(s.queue) == 0 {
				s.queueMu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.queueMu.Unlock()

			s.handle(ctx, next)
		}
	}
}

func (s *Store) handle(ctx context.Context, principal *identity.Principal) {
	var user *User
	if principal != nil {
		profile, err := s.profiles.GetProfile(ctx, principal.UID)
		if err != nil {
			log.Error(ctx, "Failed to load user profile",
				"error", err,
				"uid", principal.UID,
				"operation", "session_load_profile",
			)
		} else {
			user = &User{Principal: *principal, Profile: profile}
		}
	}
	s.publish(State{User: user})
}

func (s *Store) publish(state State) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	s.state = state
	subscribers := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })

	for _, fn := range subscribers {
		fn(state)
	}
}

// State returns the latest published state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready is closed once the first auth notification has been handled.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until the store is ready and returns its state.
func (s *Store) Wait(ctx context.Context) (State, error) {
	select {
	case <-s.ready:
		return s.State(), nil
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
}

// Subscribe calls fn with the current state and after every change until
// the returned function is called. Calls to fn never overlap and arrive in
// publish order. fn must not call Subscribe.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.deliverMu.Lock()
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	current := s.state
	s.mu.Unlock()

	fn(current)
	s.deliverMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// Close unsubscribes from the auth source and stops processing.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		s.cancel()
		<-s.done
	})
}
