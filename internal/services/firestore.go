package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"code-bounty/internal/log"
	"code-bounty/internal/models"
	"code-bounty/internal/store"
)

// FirestoreService is the Firestore implementation of store.Store.
type FirestoreService struct {
	client *firestore.Client
}

// NewFirestoreService creates a new FirestoreService with the provided client.
func NewFirestoreService(client *firestore.Client) *FirestoreService {
	return &FirestoreService{client: client}
}

// storeError maps gRPC status codes onto the store sentinels.
func storeError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %w", store.ErrAlreadyExists, err)
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %w", store.ErrPermissionDenied, err)
	default:
		return err
	}
}

func (fs *FirestoreService) CreateCredential(ctx context.Context, cred *models.Credential) error {
	now := time.Now().UTC()
	cred.CreatedAt, cred.UpdatedAt = now, now

	identities := fs.client.Collection(models.CollectionIdentities)
	err := fs.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(identities.Where("email", "==", cred.Email).Limit(1)).GetAll()
		if err != nil {
			return fmt.Errorf("failed to query credential by email: %w", err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("credential for %s: %w", cred.Email, store.ErrAlreadyExists)
		}
		return tx.Create(identities.Doc(cred.UID), cred)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return err
		}
		log.Error(ctx, "Failed to create credential",
			"error", err,
			"uid", cred.UID,
			"operation", "create_credential",
		)
		return fmt.Errorf("failed to create credential %s: %w", cred.UID, storeError(err))
	}
	return nil
}

func (fs *FirestoreService) GetCredential(ctx context.Context, uid string) (*models.Credential, error) {
	doc, err := fs.client.Collection(models.CollectionIdentities).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) != codes.NotFound {
			log.Error(ctx, "Failed to get credential",
				"error", err,
				"uid", uid,
				"operation", "get_credential",
			)
		}
		return nil, fmt.Errorf("failed to get credential %s: %w", uid, storeError(err))
	}

	var cred models.Credential
	if err := doc.DataTo(&cred); err != nil {
		log.Error(ctx, "Failed to unmarshal credential",
			"error", err,
			"uid", uid,
			"operation", "unmarshal_credential",
		)
		return nil, fmt.Errorf("failed to unmarshal credential %s: %w", uid, err)
	}
	return &cred, nil
}

func (fs *FirestoreService) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	iter := fs.client.Collection(models.CollectionIdentities).Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err != nil {
		if errors.Is(err, iterator.Done) {
			return nil, fmt.Errorf("credential for %s: %w", email, store.ErrNotFound)
		}
		log.Error(ctx, "Failed to query credential by email",
			"error", err,
			"operation", "query_credential_by_email",
		)
		return nil, fmt.Errorf("failed to query credential by email: %w", storeError(err))
	}

	var cred models.Credential
	if err := doc.DataTo(&cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential %s: %w", doc.Ref.ID, err)
	}
	return &cred, nil
}

func (fs *FirestoreService) UpdateCredentialDisplayName(ctx context.Context, uid, displayName string) error {
	_, err := fs.client.Collection(models.CollectionIdentities).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "displayName", Value: displayName},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		log.Error(ctx, "Failed to update credential display name",
			"error", err,
			"uid", uid,
			"operation", "update_credential_display_name",
		)
		return fmt.Errorf("failed to update credential %s: %w", uid, storeError(err))
	}
	return nil
}

func (fs *FirestoreService) GetProfile(ctx context.Context, uid string) (models.Profile, error) {
	doc, err := fs.client.Collection(models.CollectionUsers).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) != codes.NotFound {
			log.Error(ctx, "Failed to get profile",
				"error", err,
				"uid", uid,
				"operation", "get_profile",
			)
		}
		return nil, fmt.Errorf("failed to get profile %s: %w", uid, storeError(err))
	}
	return decodeProfile(doc)
}

func decodeProfile(doc *firestore.DocumentSnapshot) (models.Profile, error) {
	var userDoc models.UserDoc
	if err := doc.DataTo(&userDoc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile %s: %w", doc.Ref.ID, err)
	}
	if userDoc.UID == "" {
		userDoc.UID = doc.Ref.ID
	}
	return userDoc.Profile()
}

func (fs *FirestoreService) GetProfiles(ctx context.Context, uids []string) (map[string]models.Profile, error) {
	uids = store.Dedupe(uids)
	out := make(map[string]models.Profile, len(uids))
	if len(uids) == 0 {
		return out, nil
	}

	users := fs.client.Collection(models.CollectionUsers)
	refs := make([]*firestore.DocumentRef, 0, len(uids))
	for _, uid := range uids {
		refs = append(refs, users.Doc(uid))
	}

	docs, err := fs.client.GetAll(ctx, refs)
	if err != nil {
		log.Error(ctx, "Failed to batch read profiles",
			"error", err,
			"count", len(refs),
			"operation", "get_profiles",
		)
		return nil, fmt.Errorf("failed to batch read %d profiles: %w", len(refs), storeError(err))
	}
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		profile, err := decodeProfile(doc)
		if err != nil {
			log.Warn(ctx, "Skipping undecodable profile", "error", err, "uid", doc.Ref.ID)
			continue
		}
		out[doc.Ref.ID] = profile
	}
	return out, nil
}

func (fs *FirestoreService) CreateProfile(ctx context.Context, profile models.Profile) error {
	base := profile.Base()
	result, err := fs.client.Collection(models.CollectionUsers).Doc(base.UID).Create(ctx, models.NewUserDoc(profile))
	if err != nil {
		if status.Code(err) != codes.AlreadyExists {
			log.Error(ctx, "Failed to create profile",
				"error", err,
				"uid", base.UID,
				"role", profile.Role(),
				"operation", "create_profile",
			)
		}
		return fmt.Errorf("failed to create profile %s: %w", base.UID, storeError(err))
	}
	base.CreatedAt = result.UpdateTime
	return nil
}

func (fs *FirestoreService) UpdateProfileName(ctx context.Context, uid string, role models.Role, name string) error {
	_, err := fs.client.Collection(models.CollectionUsers).Doc(uid).Update(ctx, []firestore.Update{
		{Path: models.NameField(role), Value: name},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		log.Error(ctx, "Failed to update profile name",
			"error", err,
			"uid", uid,
			"operation", "update_profile_name",
		)
		return fmt.Errorf("failed to update profile %s: %w", uid, storeError(err))
	}
	return nil
}

func (fs *FirestoreService) CreateBounty(ctx context.Context, bounty *models.Bounty) (string, error) {
	ref := fs.client.Collection(models.CollectionBounties).NewDoc()
	result, err := ref.Create(ctx, bounty)
	if err != nil {
		log.Error(ctx, "Failed to create bounty",
			"error", err,
			"company_uid", bounty.CompanyUID,
			"operation", "create_bounty",
		)
		return "", fmt.Errorf("failed to create bounty: %w", storeError(err))
	}
	bounty.ID = ref.ID
	bounty.CreatedAt, bounty.UpdatedAt = result.UpdateTime, result.UpdateTime
	return ref.ID, nil
}

func (fs *FirestoreService) GetBounty(ctx context.Context, id string) (*models.Bounty, error) {
	doc, err := fs.client.Collection(models.CollectionBounties).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) != codes.NotFound {
			log.Error(ctx, "Failed to get bounty",
				"error", err,
				"bounty_id", id,
				"operation", "get_bounty",
			)
		}
		return nil, fmt.Errorf("failed to get bounty %s: %w", id, storeError(err))
	}

	var bounty models.Bounty
	if err := doc.DataTo(&bounty); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bounty %s: %w", id, err)
	}
	bounty.ID = doc.Ref.ID
	return &bounty, nil
}

func (fs *FirestoreService) ListBounties(ctx context.Context) ([]*models.Bounty, error) {
	q := fs.client.Collection(models.CollectionBounties).OrderBy(firestore.DocumentID, firestore.Asc)
	return fs.queryBounties(ctx, q, "list_bounties")
}

func (fs *FirestoreService) ListBountiesByCompany(ctx context.Context, companyUID string) ([]*models.Bounty, error) {
	q := fs.client.Collection(models.CollectionBounties).
		Where("companyUid", "==", companyUID).
		OrderBy(firestore.DocumentID, firestore.Asc)
	return fs.queryBounties(ctx, q, "list_company_bounties")
}

func (fs *FirestoreService) queryBounties(ctx context.Context, q firestore.Query, operation string) ([]*models.Bounty, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		log.Error(ctx, "Failed to query bounties",
			"error", err,
			"operation", operation,
		)
		return nil, fmt.Errorf("failed to query bounties: %w", storeError(err))
	}

	bounties := make([]*models.Bounty, 0, len(docs))
	for _, doc := range docs {
		var bounty models.Bounty
		if err := doc.DataTo(&bounty); err != nil {
			log.Warn(ctx, "Skipping undecodable bounty", "error", err, "bounty_id", doc.Ref.ID)
			continue
		}
		bounty.ID = doc.Ref.ID
		bounties = append(bounties, &bounty)
	}
	return bounties, nil
}

func (fs *FirestoreService) CreateSubmission(ctx context.Context, submission *models.Submission) (string, error) {
	submissions := fs.client.Collection(models.CollectionSubmissions)
	ref := submissions.NewDoc()

	err := fs.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(submissions.
			Where("bountyId", "==", submission.BountyID).
			Where("developerUid", "==", submission.DeveloperUID).
			Limit(1)).GetAll()
		if err != nil {
			return fmt.Errorf("failed to query existing submissions: %w", err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("submission by %s to bounty %s: %w",
				submission.DeveloperUID, submission.BountyID, store.ErrAlreadyExists)
		}
		return tx.Create(ref, submission)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", err
		}
		log.Error(ctx, "Failed to create submission",
			"error", err,
			"bounty_id", submission.BountyID,
			"operation", "create_submission",
		)
		return "", fmt.Errorf("failed to create submission: %w", storeError(err))
	}

	submission.ID = ref.ID
	// Transactions do not report write times; the stored value is the server's.
	submission.CreatedAt = time.Now().UTC()
	return ref.ID, nil
}

func (fs *FirestoreService) ListSubmissionsByDeveloper(ctx context.Context, developerUID string) ([]*models.Submission, error) {
	q := fs.client.Collection(models.CollectionSubmissions).Where("developerUid", "==", developerUID)
	submissions, err := fs.querySubmissions(ctx, q)
	if err != nil {
		log.Error(ctx, "Failed to query developer submissions",
			"error", err,
			"developer_uid", developerUID,
			"operation", "list_developer_submissions",
		)
		return nil, err
	}
	sortSubmissions(submissions)
	return submissions, nil
}

// ListSubmissionsByBounties runs one membership query per chunk of
// store.MaxInValues ids, concurrently.
func (fs *FirestoreService) ListSubmissionsByBounties(ctx context.Context, bountyIDs []string) ([]*models.Submission, error) {
	chunks := store.Chunk(store.Dedupe(bountyIDs), store.MaxInValues)
	if len(chunks) == 0 {
		return []*models.Submission{}, nil
	}

	var mu sync.Mutex
	all := make([]*models.Submission, 0)
	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunks {
		q := fs.client.Collection(models.CollectionSubmissions).Where("bountyId", "in", chunk)
		g.Go(func() error {
			found, err := fs.querySubmissions(gctx, q)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error(ctx, "Failed to query submissions by bounty",
			"error", err,
			"bounty_count", len(bountyIDs),
			"chunks", len(chunks),
			"operation", "list_bounty_submissions",
		)
		return nil, err
	}

	sortSubmissions(all)
	return all, nil
}

func (fs *FirestoreService) querySubmissions(ctx context.Context, q firestore.Query) ([]*models.Submission, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", storeError(err))
	}
	out := make([]*models.Submission, 0, len(docs))
	for _, doc := range docs {
		var submission models.Submission
		if err := doc.DataTo(&submission); err != nil {
			log.Warn(ctx, "Skipping undecodable submission", "error", err, "submission_id", doc.Ref.ID)
			continue
		}
		submission.ID = doc.Ref.ID
		out = append(out, &submission)
	}
	return out, nil
}

func sortSubmissions(submissions []*models.Submission) {
	sort.Slice(submissions, func(i, j int) bool { return submissions[i].ID < submissions[j].ID })
}

func (fs *FirestoreService) CreateNotification(ctx context.Context, notification *models.Notification) (string, error) {
	ref := fs.client.Collection(models.CollectionNotifications).NewDoc()
	result, err := ref.Create(ctx, notification)
	if err != nil {
		log.Error(ctx, "Failed to create notification",
			"error", err,
			"user_id", notification.UserID,
			"type", notification.Type,
			"operation", "create_notification",
		)
		return "", fmt.Errorf("failed to create notification: %w", storeError(err))
	}
	notification.ID = ref.ID
	notification.CreatedAt = result.UpdateTime
	return ref.ID, nil
}

func (fs *FirestoreService) ListNotifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	docs, err := fs.client.Collection(models.CollectionNotifications).
		Where("userId", "==", userID).
		Documents(ctx).GetAll()
	if err != nil {
		log.Error(ctx, "Failed to query notifications",
			"error", err,
			"user_id", userID,
			"operation", "list_notifications",
		)
		return nil, fmt.Errorf("failed to query notifications: %w", storeError(err))
	}

	out := make([]*models.Notification, 0, len(docs))
	for _, doc := range docs {
		var n models.Notification
		if err := doc.DataTo(&n); err != nil {
			log.Warn(ctx, "Skipping undecodable notification", "error", err, "notification_id", doc.Ref.ID)
			continue
		}
		n.ID = doc.Ref.ID
		out = append(out, &n)
	}
	// Newest first.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

var _ store.Store = (*FirestoreService)(nil)
