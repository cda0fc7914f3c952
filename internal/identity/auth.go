package identity

import (
	"context"
	"sync"
)

// Listener receives the signed-in principal, or nil after sign-out.
type Listener func(user *Principal)

// Auth is one client's view of the identity backend. It remembers the current
// session and tells listeners whenever it changes.
type Auth struct {
	backend Backend

	mu        sync.Mutex
	session   *Session
	listeners map[uint64]Listener
	nextID    uint64

	// notifyMu orders deliveries. Listeners must not change auth state
	// synchronously from inside a callback.
	notifyMu sync.Mutex
}

func NewAuth(backend Backend) *Auth {
	return &Auth{
		backend:   backend,
		listeners: make(map[uint64]Listener),
	}
}

// CurrentUser returns a copy of the signed-in principal, or nil.
func (a *Auth) CurrentUser() *Principal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentLocked()
}

func (a *Auth) currentLocked() *Principal {
	if a.session == nil {
		return nil
	}
	p := a.session.Principal
	return &p
}

// Token returns the current session token, or "" when signed out.
func (a *Auth) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.Token
}

func (a *Auth) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*Principal, error) {
	session, err := a.backend.CreateUser(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.setSession(session), nil
}

func (a *Auth) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*Principal, error) {
	session, err := a.backend.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.setSession(session), nil
}

// Restore resumes a session from a previously issued token.
func (a *Auth) Restore(ctx context.Context, token string) (*Principal, error) {
	session, err := a.backend.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return a.setSession(session), nil
}

// SignOut revokes the current token and clears the session. Signing out while
// signed out is a no-op.
func (a *Auth) SignOut(ctx context.Context) error {
	token := a.Token()
	if token == "" {
		return nil
	}
	if err := a.backend.Revoke(ctx, token); err != nil {
		return err
	}
	a.setSession(nil)
	return nil
}

// UpdateProfile changes the display name of the signed-in principal. Listeners
// are not notified; the principal itself did not change.
func (a *Auth) UpdateProfile(ctx context.Context, displayName string) error {
	user := a.CurrentUser()
	if user == nil {
		return ErrNotSignedIn
	}
	if err := a.backend.UpdateDisplayName(ctx, user.UID, displayName); err != nil {
		return err
	}

	a.mu.Lock()
	if a.session != nil && a.session.UID == user.UID {
		a.session.DisplayName = displayName
	}
	a.mu.Unlock()
	return nil
}

// OnAuthStateChanged registers fn and immediately reports the current state
// to it. The returned function unregisters fn and may be called more than once.
func (a *Auth) OnAuthStateChanged(fn Listener) (unsubscribe func()) {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	current := a.currentLocked()
	a.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

func (a *Auth) setSession(session *Session) *Principal {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	a.session = session
	current := a.currentLocked()
	listeners := make([]Listener, 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.mu.Unlock()

	for _, l := range listeners {
		var snapshot *Principal
		if current != nil {
			p := *current
			snapshot = &p
		}
		l(snapshot)
	}
	return current
}
