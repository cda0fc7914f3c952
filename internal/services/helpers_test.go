package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"code-bounty/internal/apperror"
	"code-bounty/internal/identity"
	"code-bounty/internal/models"
	"code-bounty/internal/store"
)

var errBackendDown = errors.New("backend unavailable")

const testPassword = "hunter22"

// testEnv is one backend shared by any number of per-client services.
type testEnv struct {
	store    *store.MemoryStore
	provider *identity.Provider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := identity.NewTokenIssuer("services-test-secret-0123", "code-bounty-test", time.Hour)
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	return &testEnv{
		store: mem,
		provider: identity.NewProvider(
			mem,
			identity.NewPasswordHasher(bcrypt.MinCost),
			tokens,
			identity.NewMemoryLimiter(3, time.Hour),
			identity.NewMemoryRevoker(),
			identity.ProviderConfig{MinPasswordLength: 6},
		),
	}
}

// client returns a fresh signed-out auth and the auth service bound to it.
func (e *testEnv) client() (*identity.Auth, *AuthService) {
	auth := identity.NewAuth(e.provider)
	return auth, NewAuthService(auth, e.store)
}

// signUp creates an account with the given role and returns its signed-in auth.
func (e *testEnv) signUp(t *testing.T, email string, role models.Role, name string) *identity.Auth {
	t.Helper()
	auth, users := e.client()
	in := SignUpInput{Email: email, Password: testPassword, Role: role, Name: name}
	if role == models.RoleCompany {
		in.Name, in.CompanyName = "", name
	}
	_, err := users.SignUp(context.Background(), in)
	require.NoError(t, err)
	return auth
}

func requireKind(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	if message != "" {
		require.Equal(t, message, appErr.Message)
	}
}

// failingStore fails the operations named in fail and delegates the rest.
type failingStore struct {
	*store.MemoryStore
	fail map[string]error
}

func (f *failingStore) err(op string) error {
	return f.fail[op]
}

func (f *failingStore) CreateProfile(ctx context.Context, p models.Profile) error {
	if err := f.err("CreateProfile"); err != nil {
		return err
	}
	return f.MemoryStore.CreateProfile(ctx, p)
}

func (f *failingStore) GetProfiles(ctx context.Context, uids []string) (map[string]models.Profile, error) {
	if err := f.err("GetProfiles"); err != nil {
		return nil, err
	}
	return f.MemoryStore.GetProfiles(ctx, uids)
}

func (f *failingStore) ListBounties(ctx context.Context) ([]*models.Bounty, error) {
	if err := f.err("ListBounties"); err != nil {
		return nil, err
	}
	return f.MemoryStore.ListBounties(ctx)
}

func (f *failingStore) ListBountiesByCompany(ctx context.Context, uid string) ([]*models.Bounty, error) {
	if err := f.err("ListBountiesByCompany"); err != nil {
		return nil, err
	}
	return f.MemoryStore.ListBountiesByCompany(ctx, uid)
}

func (f *failingStore) ListSubmissionsByBounties(ctx context.Context, ids []string) ([]*models.Submission, error) {
	if err := f.err("ListSubmissionsByBounties"); err != nil {
		return nil, err
	}
	return f.MemoryStore.ListSubmissionsByBounties(ctx, ids)
}

func (f *failingStore) ListNotifications(ctx context.Context, uid string) ([]*models.Notification, error) {
	if err := f.err("ListNotifications"); err != nil {
		return nil, err
	}
	return f.MemoryStore.ListNotifications(ctx, uid)
}

// recordingQueue keeps enqueued jobs instead of running them.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []*models.Job
	err  error
}

func (q *recordingQueue) EnqueueJob(_ context.Context, job *models.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) snapshot() []*models.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*models.Job(nil), q.jobs...)
}

// fixedPrincipal is a Principals that never changes.
type fixedPrincipal struct {
	principal *identity.Principal
}

func (f fixedPrincipal) CurrentUser() *identity.Principal { return f.principal }
