package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"code-bounty/internal/apperror"
	"code-bounty/internal/log"
	"code-bounty/internal/models"
	"code-bounty/internal/store"
)

// rewardPlaces is the precision of a bitcoin amount (one satoshi).
const rewardPlaces = 8

type CreateBountyInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Difficulty  string          `json:"difficulty"`
	Reward      decimal.Decimal `json:"bountyBTC"`
	Deadline    string          `json:"deadline"`
}

// BountyService reads and writes bounties on behalf of one client.
type BountyService struct {
	principals Principals
	store      bountyStore
	queue      JobQueue
	validate   *validator.Validate
}

type bountyStore interface {
	store.Profiles
	store.Bounties
}

// NewBountyService builds the service. queue may be nil.
func NewBountyService(principals Principals, st bountyStore, queue JobQueue) *BountyService {
	return &BountyService{
		principals: principals,
		store:      st,
		queue:      queue,
		validate:   validator.New(),
	}
}

// requireRole re-reads the signed-in user's profile and checks its role.
func requireRole(ctx context.Context, principals Principals, profiles store.Profiles, role models.Role, denied string) (models.Profile, error) {
	principal := principals.CurrentUser()
	if principal == nil {
		return nil, apperror.Unauthenticated("User not authenticated")
	}
	profile, err := profiles.GetProfile(ctx, principal.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NotFound("User profile not found")
		}
		log.Error(ctx, "Failed to load profile for role check",
			"error", err,
			"uid", principal.UID,
			"operation", "require_role",
		)
		return nil, apperror.Backend(err, "")
	}
	if profile.Role() != role {
		return nil, apperror.Forbidden(denied)
	}
	return profile, nil
}

// CreateBounty posts a bounty as the signed-in company.
func (s *BountyService) CreateBounty(ctx context.Context, in CreateBountyInput) (*models.Bounty, error) {
	profile, err := requireRole(ctx, s.principals, s.store, models.RoleCompany, "Only companies can create bounties")
	if err != nil {
		return nil, err
	}
	company := profile.(*models.Company)
	ctx = log.WithPrincipal(ctx, company.UID, string(models.RoleCompany))

	bounty, err := s.newBounty(in, company)
	if err != nil {
		return nil, err
	}

	id, err := s.store.CreateBounty(ctx, bounty)
	if err != nil {
		log.Error(ctx, "Failed to create bounty",
			"error", err,
			"title", bounty.Title,
			"operation", "create_bounty",
		)
		return nil, apperror.Backend(err, "")
	}
	bounty.ID = id

	log.Info(ctx, "Bounty created",
		"bounty_id", id,
		"reward_btc", in.Reward.String(),
	)
	enqueue(ctx, s.queue, models.JobTypeBountyCreated, &models.BountyCreatedJob{BountyID: id})
	return bounty, nil
}

func (s *BountyService) newBounty(in CreateBountyInput, company *models.Company) (*models.Bounty, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "Title is required")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, apperror.ValidationFailed("description", "Description is required")
	}
	category, ok := models.NormalizeCategory(in.Category)
	if !ok {
		return nil, apperror.ValidationFailed("category", "Please choose a valid category.")
	}
	difficulty, ok := models.NormalizeDifficulty(in.Difficulty)
	if !ok {
		return nil, apperror.ValidationFailed("difficulty", "Please choose a valid difficulty.")
	}
	if !in.Reward.IsPositive() {
		return nil, apperror.ValidationFailed("bountyBTC", "Bounty amount must be greater than zero.")
	}
	if !in.Reward.Equal(in.Reward.Truncate(rewardPlaces)) {
		return nil, apperror.ValidationFailed("bountyBTC", "Bounty amount cannot be smaller than one satoshi.")
	}
	if err := s.validate.Var(in.Deadline, "required,datetime=2006-01-02"); err != nil {
		return nil, apperror.ValidationFailed("deadline", "Please enter the deadline as YYYY-MM-DD.")
	}

	return &models.Bounty{
		Title:           title,
		Description:     description,
		Category:        category,
		Difficulty:      difficulty,
		BountyBTC:       in.Reward.InexactFloat64(),
		Deadline:        in.Deadline,
		CompanyUID:      company.UID,
		CompanyName:     company.CompanyName,
		Slug:            slug.Make(title),
		Status:          models.BountyStatusOpen,
		SubmissionCount: 0,
	}, nil
}

func (s *BountyService) GetBountyByID(ctx context.Context, id string) (*models.Bounty, error) {
	bounty, err := s.store.GetBounty(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NotFound("Bounty not found")
		}
		log.Error(ctx, "Failed to get bounty",
			"error", err,
			"bounty_id", id,
			"operation", "get_bounty",
		)
		return nil, apperror.Backend(err, "")
	}
	return bounty, nil
}

// GetAllBounties lists every bounty ordered by id.
func (s *BountyService) GetAllBounties(ctx context.Context) ([]*models.Bounty, error) {
	bounties, err := s.store.ListBounties(ctx)
	if err != nil {
		log.Error(ctx, "Failed to list bounties",
			"error", err,
			"operation", "list_bounties",
		)
		return nil, apperror.Backend(err, "Failed to fetch bounties")
	}
	return bounties, nil
}

func (s *BountyService) GetBountiesByCompanyID(ctx context.Context, companyUID string) ([]*models.Bounty, error) {
	bounties, err := s.store.ListBountiesByCompany(ctx, companyUID)
	if err != nil {
		log.Error(ctx, "Failed to list company bounties",
			"error", err,
			"company_uid", companyUID,
			"operation", "list_company_bounties",
		)
		return nil, apperror.Backend(err, "Failed to fetch company bounties")
	}
	return bounties, nil
}

// GetCompanyByID returns the company profile with the given uid.
func (s *BountyService) GetCompanyByID(ctx context.Context, uid string) (*models.Company, error) {
	profile, err := s.store.GetProfile(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NotFound("Company not found")
		}
		return nil, apperror.Backend(err, "")
	}
	company, ok := profile.(*models.Company)
	if !ok {
		return nil, apperror.NotFound("User is not a company")
	}
	return company, nil
}
