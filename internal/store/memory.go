package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"code-bounty/internal/log"
	"code-bounty/internal/models"
)

// MemoryStore is an in-process Store. It backs local development and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	now           func() time.Time
	credentials   map[string]models.Credential
	profiles      map[string]models.UserDoc
	bounties      map[string]models.Bounty
	submissions   map[string]models.Submission
	notifications map[string]models.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:           func() time.Time { return time.Now().UTC() },
		credentials:   make(map[string]models.Credential),
		profiles:      make(map[string]models.UserDoc),
		bounties:      make(map[string]models.Bounty),
		submissions:   make(map[string]models.Submission),
		notifications: make(map[string]models.Notification),
	}
}

// SetClock replaces the source of server timestamps.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) CreateCredential(_ context.Context, cred *models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.credentials[cred.UID]; ok {
		return fmt.Errorf("credential %s: %w", cred.UID, ErrAlreadyExists)
	}
	for _, existing := range m.credentials {
		if strings.EqualFold(existing.Email, cred.Email) {
			return fmt.Errorf("credential for %s: %w", cred.Email, ErrAlreadyExists)
		}
	}
	now := m.now()
	cred.CreatedAt, cred.UpdatedAt = now, now
	m.credentials[cred.UID] = *cred
	return nil
}

func (m *MemoryStore) GetCredential(_ context.Context, uid string) (*models.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.credentials[uid]
	if !ok {
		return nil, fmt.Errorf("credential %s: %w", uid, ErrNotFound)
	}
	return &cred, nil
}

func (m *MemoryStore) GetCredentialByEmail(_ context.Context, email string) (*models.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, cred := range m.credentials {
		if strings.EqualFold(cred.Email, email) {
			c := cred
			return &c, nil
		}
	}
	return nil, fmt.Errorf("credential for %s: %w", email, ErrNotFound)
}

func (m *MemoryStore) UpdateCredentialDisplayName(_ context.Context, uid, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := m.credentials[uid]
	if !ok {
		return fmt.Errorf("credential %s: %w", uid, ErrNotFound)
	}
	cred.DisplayName = displayName
	cred.UpdatedAt = m.now()
	m.credentials[uid] = cred
	return nil
}

func (m *MemoryStore) GetProfile(_ context.Context, uid string) (models.Profile, error) {
	m.mu.RLock()
	doc, ok := m.profiles[uid]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("profile %s: %w", uid, ErrNotFound)
	}
	return doc.Profile()
}

func (m *MemoryStore) GetProfiles(ctx context.Context, uids []string) (map[string]models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]models.Profile, len(uids))
	for _, uid := range Dedupe(uids) {
		doc, ok := m.profiles[uid]
		if !ok {
			continue
		}
		p, err := doc.Profile()
		if err != nil {
			log.Warn(ctx, "Skipping undecodable profile", "error", err, "uid", uid)
			continue
		}
		out[uid] = p
	}
	return out, nil
}

func (m *MemoryStore) CreateProfile(_ context.Context, profile models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := profile.Base()
	if _, ok := m.profiles[base.UID]; ok {
		return fmt.Errorf("profile %s: %w", base.UID, ErrAlreadyExists)
	}
	base.CreatedAt = m.now()
	m.profiles[base.UID] = *models.NewUserDoc(profile)
	return nil
}

func (m *MemoryStore) UpdateProfileName(_ context.Context, uid string, role models.Role, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.profiles[uid]
	if !ok {
		return fmt.Errorf("profile %s: %w", uid, ErrNotFound)
	}
	if role == models.RoleCompany {
		doc.CompanyName = name
	} else {
		doc.Name = name
	}
	doc.UpdatedAt = m.now()
	m.profiles[uid] = doc
	return nil
}

func (m *MemoryStore) CreateBounty(_ context.Context, bounty *models.Bounty) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	bounty.ID = xid.New().String()
	bounty.CreatedAt, bounty.UpdatedAt = now, now
	m.bounties[bounty.ID] = *bounty
	return bounty.ID, nil
}

func (m *MemoryStore) GetBounty(_ context.Context, id string) (*models.Bounty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bounties[id]
	if !ok {
		return nil, fmt.Errorf("bounty %s: %w", id, ErrNotFound)
	}
	return &b, nil
}

func (m *MemoryStore) ListBounties(_ context.Context) ([]*models.Bounty, error) {
	return m.filterBounties(func(*models.Bounty) bool { return true }), nil
}

func (m *MemoryStore) ListBountiesByCompany(_ context.Context, companyUID string) ([]*models.Bounty, error) {
	return m.filterBounties(func(b *models.Bounty) bool { return b.CompanyUID == companyUID }), nil
}

func (m *MemoryStore) filterBounties(keep func(*models.Bounty) bool) []*models.Bounty {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Bounty, 0, len(m.bounties))
	for _, b := range m.bounties {
		b := b
		if keep(&b) {
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) CreateSubmission(_ context.Context, submission *models.Submission) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.submissions {
		if s.BountyID == submission.BountyID && s.DeveloperUID == submission.DeveloperUID {
			return "", fmt.Errorf("submission by %s to bounty %s: %w",
				submission.DeveloperUID, submission.BountyID, ErrAlreadyExists)
		}
	}
	submission.ID = xid.New().String()
	submission.CreatedAt = m.now()
	m.submissions[submission.ID] = *submission
	return submission.ID, nil
}

func (m *MemoryStore) ListSubmissionsByDeveloper(_ context.Context, developerUID string) ([]*models.Submission, error) {
	return m.filterSubmissions(func(s *models.Submission) bool { return s.DeveloperUID == developerUID }), nil
}

func (m *MemoryStore) ListSubmissionsByBounties(_ context.Context, bountyIDs []string) ([]*models.Submission, error) {
	wanted := make(map[string]struct{}, len(bountyIDs))
	for _, id := range bountyIDs {
		wanted[id] = struct{}{}
	}
	return m.filterSubmissions(func(s *models.Submission) bool {
		_, ok := wanted[s.BountyID]
		return ok
	}), nil
}

func (m *MemoryStore) filterSubmissions(keep func(*models.Submission) bool) []*models.Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Submission, 0)
	for _, s := range m.submissions {
		s := s
		if keep(&s) {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) CreateNotification(_ context.Context, notification *models.Notification) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	notification.ID = xid.New().String()
	notification.CreatedAt = m.now()
	m.notifications[notification.ID] = *notification
	return notification.ID, nil
}

func (m *MemoryStore) ListNotifications(_ context.Context, userID string) ([]*models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Notification, 0)
	for _, n := range m.notifications {
		n := n
		if n.UserID == userID {
			out = append(out, &n)
		}
	}
	// Newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
