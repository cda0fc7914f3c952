// Package client bundles the access layers used by one signed-in client.
//
// Each Client owns its own identity.Auth, so concurrent clients never share
// session state. The backends behind it are shared.
package client

import (
	"context"
	"sync"

	"code-bounty/internal/identity"
	"code-bounty/internal/services"
	"code-bounty/internal/session"
	"code-bounty/internal/store"
)

// Deps are the process-wide backends a Client binds to.
type Deps struct {
	Store    store.Store
	Identity identity.Backend
	// Queue receives jobs from the access layers. It may be nil.
	Queue services.JobQueue
}

type Client struct {
	Auth          *identity.Auth
	Users         *services.AuthService
	Bounties      *services.BountyService
	Submissions   *services.SubmissionService
	Notifications *services.NotificationService
	Ledger        *services.LedgerService

	store store.Store

	mu      sync.Mutex
	session *session.Store
}

func New(deps Deps) *Client {
	auth := identity.NewAuth(deps.Identity)
	return &Client{
		Auth:          auth,
		Users:         services.NewAuthService(auth, deps.Store),
		Bounties:      services.NewBountyService(auth, deps.Store, deps.Queue),
		Submissions:   services.NewSubmissionService(auth, deps.Store, deps.Queue),
		Notifications: services.NewNotificationService(auth, deps.Store),
		Ledger:        services.NewLedgerService(),
		store:         deps.Store,
	}
}

// Session returns the client's session store, starting it on first use.
func (c *Client) Session(ctx context.Context) *session.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		c.session = session.NewStore(ctx, c.Auth, c.store)
	}
	return c.session
}

// Close stops the session store if one was started.
func (c *Client) Close() {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s != nil {
		s.Close()
	}
}
