package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"code-bounty/internal/log"
	"code-bounty/internal/models"
	"code-bounty/internal/store"
)

// BountyAnnouncer publishes new bounties to a chat channel.
type BountyAnnouncer interface {
	PostBountyAnnouncement(ctx context.Context, bounty *models.Bounty) (string, error)
}

// RepoInspector looks up metadata for a submitted repository.
type RepoInspector interface {
	GetRepoMetadata(ctx context.Context, repoURL string) (*RepoMetadata, error)
}

type jobStore interface {
	store.Profiles
	store.Bounties
	store.Notifications
}

// JobService carries out the side effects of bounty and submission events.
type JobService struct {
	store     jobStore
	announcer BountyAnnouncer
	repos     RepoInspector
}

// NewJobService builds the service. announcer and repos may be nil, which
// disables the Slack announcement and the repository lookup respectively.
func NewJobService(st jobStore, announcer BountyAnnouncer, repos RepoInspector) *JobService {
	return &JobService{store: st, announcer: announcer, repos: repos}
}

// HandleBountyCreated announces the bounty on Slack.
func (s *JobService) HandleBountyCreated(ctx context.Context, job *models.BountyCreatedJob) error {
	if s.announcer == nil {
		log.Debug(ctx, "Slack not configured, skipping bounty announcement", "bounty_id", job.BountyID)
		return nil
	}

	bounty, err := s.store.GetBounty(ctx, job.BountyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn(ctx, "Bounty vanished before announcement", "bounty_id", job.BountyID)
			return nil
		}
		return fmt.Errorf("failed to load bounty %s: %w", job.BountyID, err)
	}

	if _, err := s.announcer.PostBountyAnnouncement(ctx, bounty); err != nil {
		return err
	}
	return nil
}

// HandleSubmissionReceived notifies the company owning the bounty.
func (s *JobService) HandleSubmissionReceived(ctx context.Context, job *models.SubmissionReceivedJob) error {
	bounty, err := s.store.GetBounty(ctx, job.BountyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Submissions are accepted for unknown bounties; there is nobody to notify.
			log.Warn(ctx, "Submission targets unknown bounty", "bounty_id", job.BountyID)
			return nil
		}
		return fmt.Errorf("failed to load bounty %s: %w", job.BountyID, err)
	}

	developerName := "A developer"
	if profile, err := s.store.GetProfile(ctx, job.DeveloperUID); err == nil && profile.DisplayName() != "" {
		developerName = profile.DisplayName()
	}

	message := fmt.Sprintf("%s submitted a solution to %q.", developerName, bounty.Title)
	if meta := s.repoMetadata(ctx, job.RepoURL); meta != nil {
		message += " " + describeRepo(meta)
	}

	notification := &models.Notification{
		UserID:              bounty.CompanyUID,
		Type:                models.NotificationSubmissionReceived,
		Title:               "New submission received",
		Message:             message,
		RelatedBountyID:     bounty.ID,
		RelatedSubmissionID: job.SubmissionID,
	}
	if _, err := s.store.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification for submission %s: %w", job.SubmissionID, err)
	}

	log.Info(ctx, "Company notified of submission",
		"company_uid", bounty.CompanyUID,
		"submission_id", job.SubmissionID,
		"notification_id", notification.ID,
	)
	return nil
}

// repoMetadata degrades to nil on any lookup failure.
func (s *JobService) repoMetadata(ctx context.Context, repoURL string) *RepoMetadata {
	if s.repos == nil || repoURL == "" {
		return nil
	}
	meta, err := s.repos.GetRepoMetadata(ctx, repoURL)
	if err != nil {
		log.Warn(ctx, "Repository lookup failed", "error", err, "repo_url", repoURL)
		return nil
	}
	return meta
}

func describeRepo(meta *RepoMetadata) string {
	parts := []string{"Repository " + meta.FullName}
	if meta.Language != "" {
		parts = append(parts, meta.Language)
	}
	parts = append(parts, fmt.Sprintf("%d stars", meta.Stars))
	return strings.Join(parts, ", ") + "."
}
