// Package store defines the document backend used by the access layers.
//
// Implementations report absence with ErrNotFound, create-if-absent collisions
// with ErrAlreadyExists and rule rejections with ErrPermissionDenied, wrapped
// with context via fmt.Errorf.
package store

import (
	"context"
	"errors"

	"code-bounty/internal/models"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrAlreadyExists    = errors.New("document already exists")
	ErrPermissionDenied = errors.New("permission denied")
)

// MaxInValues is the largest value list a single membership query may carry.
const MaxInValues = 30

// Credentials is the identity backend's account table. Emails are unique.
type Credentials interface {
	CreateCredential(ctx context.Context, cred *models.Credential) error
	GetCredential(ctx context.Context, uid string) (*models.Credential, error)
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
	UpdateCredentialDisplayName(ctx context.Context, uid, displayName string) error
}

// Profiles holds user profiles keyed by identity uid.
type Profiles interface {
	GetProfile(ctx context.Context, uid string) (models.Profile, error)
	// GetProfiles batch-reads profiles. Missing or undecodable documents are
	// absent from the result.
	GetProfiles(ctx context.Context, uids []string) (map[string]models.Profile, error)
	// CreateProfile writes the profile only if none exists for its uid.
	CreateProfile(ctx context.Context, profile models.Profile) error
	UpdateProfileName(ctx context.Context, uid string, role models.Role, name string) error
}

type Bounties interface {
	CreateBounty(ctx context.Context, bounty *models.Bounty) (string, error)
	GetBounty(ctx context.Context, id string) (*models.Bounty, error)
	// ListBounties returns every bounty ordered by document id.
	ListBounties(ctx context.Context) ([]*models.Bounty, error)
	ListBountiesByCompany(ctx context.Context, companyUID string) ([]*models.Bounty, error)
}

type Submissions interface {
	// CreateSubmission fails with ErrAlreadyExists when the developer already
	// submitted to the same bounty.
	CreateSubmission(ctx context.Context, submission *models.Submission) (string, error)
	ListSubmissionsByDeveloper(ctx context.Context, developerUID string) ([]*models.Submission, error)
	ListSubmissionsByBounties(ctx context.Context, bountyIDs []string) ([]*models.Submission, error)
}

type Notifications interface {
	CreateNotification(ctx context.Context, notification *models.Notification) (string, error)
	ListNotifications(ctx context.Context, userID string) ([]*models.Notification, error)
}

// Store is the full document backend.
type Store interface {
	Credentials
	Profiles
	Bounties
	Submissions
	Notifications
}

// Chunk splits values into slices of at most size elements.
func Chunk(values []string, size int) [][]string {
	if size <= 0 {
		size = MaxInValues
	}
	chunks := make([][]string, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

// Dedupe returns the distinct non-empty values in first-seen order.
func Dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
