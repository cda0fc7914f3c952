package services

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"code-bounty/internal/apperror"
	"code-bounty/internal/log"
	"code-bounty/internal/models"
	"code-bounty/internal/store"
)

type SubmitSolutionInput struct {
	RepoURL       string `json:"githubUrl"`
	PayoutAddress string `json:"bitcoinAddress"`
	BountyID      string `json:"bountyId"`
}

type submissionStore interface {
	store.Profiles
	store.Bounties
	store.Submissions
}

// SubmissionService reads and writes submissions on behalf of one client.
type SubmissionService struct {
	principals Principals
	store      submissionStore
	queue      JobQueue
	validate   *validator.Validate
}

// NewSubmissionService builds the service. queue may be nil.
func NewSubmissionService(principals Principals, st submissionStore, queue JobQueue) *SubmissionService {
	return &SubmissionService{
		principals: principals,
		store:      st,
		queue:      queue,
		validate:   validator.New(),
	}
}

// SubmitSolution records the signed-in developer's solution to a bounty. The
// bounty itself is not checked; a developer may submit once per bounty.
func (s *SubmissionService) SubmitSolution(ctx context.Context, in SubmitSolutionInput) (*models.Submission, error) {
	profile, err := requireRole(ctx, s.principals, s.store, models.RoleDeveloper, "Only developers can submit solutions")
	if err != nil {
		return nil, err
	}
	developer := profile.(*models.Developer)
	ctx = log.WithPrincipal(ctx, developer.UID, string(models.RoleDeveloper))

	submission, err := s.newSubmission(in, developer)
	if err != nil {
		return nil, err
	}

	id, err := s.store.CreateSubmission(ctx, submission)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, apperror.Conflict("You have already submitted a solution to this bounty")
		}
		log.Error(ctx, "Failed to create submission",
			"error", err,
			"bounty_id", submission.BountyID,
			"operation", "create_submission",
		)
		return nil, apperror.Backend(err, "")
	}
	submission.ID = id

	log.Info(ctx, "Solution submitted",
		"submission_id", id,
		"bounty_id", submission.BountyID,
	)
	enqueue(ctx, s.queue, models.JobTypeSubmissionReceived, &models.SubmissionReceivedJob{
		SubmissionID: id,
		BountyID:     submission.BountyID,
		DeveloperUID: developer.UID,
		RepoURL:      submission.RepoURL,
	})
	return submission, nil
}

func (s *SubmissionService) newSubmission(in SubmitSolutionInput, developer *models.Developer) (*models.Submission, error) {
	bountyID := strings.TrimSpace(in.BountyID)
	if bountyID == "" {
		return nil, apperror.ValidationFailed("bountyId", "Bounty is required")
	}
	repoURL := strings.TrimSpace(in.RepoURL)
	if !validRepoURL(repoURL) {
		return nil, apperror.ValidationFailed("githubUrl", "Please enter a valid repository URL.")
	}
	address := strings.TrimSpace(in.PayoutAddress)
	if err := s.validate.Var(address, "required,btc_addr|btc_addr_bech32"); err != nil {
		return nil, apperror.ValidationFailed("bitcoinAddress", "Please enter a valid Bitcoin address.")
	}

	return &models.Submission{
		BountyID:      bountyID,
		DeveloperUID:  developer.UID,
		RepoURL:       repoURL,
		PayoutAddress: address,
	}, nil
}

func validRepoURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *SubmissionService) GetSubmissionsByDeveloperID(ctx context.Context, developerUID string) ([]*models.Submission, error) {
	submissions, err := s.store.ListSubmissionsByDeveloper(ctx, developerUID)
	if err != nil {
		log.Error(ctx, "Failed to list developer submissions",
			"error", err,
			"developer_uid", developerUID,
			"operation", "list_developer_submissions",
		)
		return nil, apperror.Backend(err, "Failed to fetch submissions")
	}
	return submissions, nil
}

// GetDeveloperByID returns the developer profile with the given uid.
func (s *SubmissionService) GetDeveloperByID(ctx context.Context, uid string) (*models.Developer, error) {
	profile, err := s.store.GetProfile(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NotFound("Developer not found")
		}
		return nil, apperror.Backend(err, "")
	}
	developer, ok := profile.(*models.Developer)
	if !ok {
		return nil, apperror.NotFound("User is not a developer")
	}
	return developer, nil
}

// GetSubmissionsForCompany returns every submission to the company's bounties
// joined with its bounty and developer. It issues one bounty query, one
// (chunked) submission query and one batch read of developer profiles.
func (s *SubmissionService) GetSubmissionsForCompany(ctx context.Context, companyUID string) ([]*models.SubmissionWithDetails, error) {
	bounties, err := s.store.ListBountiesByCompany(ctx, companyUID)
	if err != nil {
		return nil, s.aggregateError(ctx, err, companyUID, "list_company_bounties")
	}
	if len(bounties) == 0 {
		return []*models.SubmissionWithDetails{}, nil
	}

	byID := make(map[string]*models.Bounty, len(bounties))
	ids := make([]string, 0, len(bounties))
	for _, b := range bounties {
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	submissions, err := s.store.ListSubmissionsByBounties(ctx, ids)
	if err != nil {
		return nil, s.aggregateError(ctx, err, companyUID, "list_bounty_submissions")
	}

	developerUIDs := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		developerUIDs = append(developerUIDs, sub.DeveloperUID)
	}
	profiles, err := s.store.GetProfiles(ctx, store.Dedupe(developerUIDs))
	if err != nil {
		return nil, s.aggregateError(ctx, err, companyUID, "get_developer_profiles")
	}

	out := make([]*models.SubmissionWithDetails, 0, len(submissions))
	for _, sub := range submissions {
		detail := &models.SubmissionWithDetails{
			Submission:    *sub,
			BountyDetails: byID[sub.BountyID],
		}
		if dev, ok := profiles[sub.DeveloperUID].(*models.Developer); ok {
			detail.DeveloperDetails = dev
		}
		out = append(out, detail)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	log.Debug(ctx, "Aggregated company submissions",
		"company_uid", companyUID,
		"bounties", len(bounties),
		"submissions", len(out),
	)
	return out, nil
}

func (s *SubmissionService) aggregateError(ctx context.Context, err error, companyUID, operation string) error {
	log.Error(ctx, "Failed to aggregate company submissions",
		"error", err,
		"company_uid", companyUID,
		"operation", operation,
	)
	return apperror.Backend(err, "Failed to fetch submissions")
}
