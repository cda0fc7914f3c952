package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-bounty/internal/apperror"
	"code-bounty/internal/identity"
	"code-bounty/internal/models"
	"code-bounty/internal/store"
)

const (
	bech32Address = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"
	legacyAddress = "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"
)

func postBounty(t *testing.T, env *testEnv, company *identity.Auth) *models.Bounty {
	t.Helper()
	bounty, err := NewBountyService(company, env.store, nil).CreateBounty(context.Background(), validBountyInput())
	require.NoError(t, err)
	return bounty
}

func TestSubmissionService_SubmitSolution(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	company := env.signUp(t, "ops@acme.test", models.RoleCompany, "Acme")
	developer := env.signUp(t, "dev@example.com", models.RoleDeveloper, "Dev")
	bounty := postBounty(t, env, company)

	queue := &recordingQueue{}
	submissions := NewSubmissionService(developer, env.store, queue)

	submission, err := submissions.SubmitSolution(ctx, SubmitSolutionInput{
		BountyID:      bounty.ID,
		RepoURL:       " https://github.com/dev/fix ",
		PayoutAddress: bech32Address,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, submission.ID)
	assert.Equal(t, developer.CurrentUser().UID, submission.DeveloperUID)
	assert.Equal(t, "https://github.com/dev/fix", submission.RepoURL)
	assert.False(t, submission.CreatedAt.IsZero())

	jobs := queue.snapshot()
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobTypeSubmissionReceived, jobs[0].Type)
	var payload models.SubmissionReceivedJob
	require.NoError(t, json.Unmarshal(jobs[0].Payload, &payload))
	assert.Equal(t, submission.ID, payload.SubmissionID)
	assert.Equal(t, bounty.ID, payload.BountyID)
	assert.Equal(t, "https://github.com/dev/fix", payload.RepoURL)

	_, err = submissions.SubmitSolution(ctx, SubmitSolutionInput{
		BountyID:      bounty.ID,
		RepoURL:       "https://github.com/dev/other",
		PayoutAddress: legacyAddress,
	})
	requireKind(t, err, apperror.ErrConflict, "You have already submitted a solution to this bounty")

	// The bounty's stored fields are untouched by submissions.
	stored, err := env.store.GetBounty(ctx, bounty.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BountyStatusOpen, stored.Status)
	assert.Zero(t, stored.SubmissionCount)
}

func TestSubmissionService_SubmitToUnknownBounty(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	developer := env.signUp(t, "dev@example.com", models.RoleDeveloper, "Dev")

	submission, err := NewSubmissionService(developer, env.store, nil).SubmitSolution(ctx, SubmitSolutionInput{
		BountyID:      "does-not-exist",
		RepoURL:       "https://gitlab.com/dev/fix",
		PayoutAddress: legacyAddress,
	})
	require.NoError(t, err)
	assert.Equal(t, "does-not-exist", submission.BountyID)
}

func TestSubmissionService_SubmitSolutionErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	company := env.signUp(t, "ops@acme.test", models.RoleCompany, "Acme")
	developer := env.signUp(t, "dev@example.com", models.RoleDeveloper, "Dev")
	valid := SubmitSolutionInput{BountyID: "b1", RepoURL: "https://github.com/dev/fix", PayoutAddress: bech32Address}

	queue := &recordingQueue{}
	requireNoSubmissions := func(t *testing.T) {
		t.Helper()
		stored, err := env.store.ListSubmissionsByBounties(ctx, []string{"b1"})
		require.NoError(t, err)
		assert.Empty(t, stored)
		assert.Empty(t, queue.snapshot())
	}

	signedOut, _ := env.client()
	_, err := NewSubmissionService(signedOut, env.store, queue).SubmitSolution(ctx, valid)
	requireKind(t, err, apperror.ErrUnauthenticated, "User not authenticated")
	requireNoSubmissions(t)

	_, err = NewSubmissionService(company, env.store, queue).SubmitSolution(ctx, valid)
	requireKind(t, err, apperror.ErrForbidden, "Only developers can submit solutions")
	requireNoSubmissions(t)

	tests := []struct {
		name    string
		in      SubmitSolutionInput
		message string
	}{
		{"missing bounty", SubmitSolutionInput{RepoURL: valid.RepoURL, PayoutAddress: valid.PayoutAddress}, "Bounty is required"},
		{"relative url", SubmitSolutionInput{BountyID: "b1", RepoURL: "github.com/dev/fix", PayoutAddress: valid.PayoutAddress}, "Please enter a valid repository URL."},
		{"ssh url", SubmitSolutionInput{BountyID: "b1", RepoURL: "git@github.com:dev/fix.git", PayoutAddress: valid.PayoutAddress}, "Please enter a valid repository URL."},
		{"missing address", SubmitSolutionInput{BountyID: "b1", RepoURL: valid.RepoURL}, "Please enter a valid Bitcoin address."},
		{"bad address", SubmitSolutionInput{BountyID: "b1", RepoURL: valid.RepoURL, PayoutAddress: "not-an-address"}, "Please enter a valid Bitcoin address."},
	}
	submissions := NewSubmissionService(developer, env.store, queue)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := submissions.SubmitSolution(ctx, tt.in)
			requireKind(t, err, apperror.ErrValidation, tt.message)
		})
	}
	requireNoSubmissions(t)
}

func TestSubmissionService_DeveloperQueries(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	company := env.signUp(t, "ops@acme.test", models.RoleCompany, "Acme")
	developer := env.signUp(t, "dev@example.com", models.RoleDeveloper, "Dev")
	submissions := NewSubmissionService(developer, env.store, nil)

	for i := 0; i < 2; i++ {
		bounty := postBounty(t, env, company)
		_, err := submissions.SubmitSolution(ctx, SubmitSolutionInput{
			BountyID:      bounty.ID,
			RepoURL:       fmt.Sprintf("https://github.com/dev/fix-%d", i),
			PayoutAddress: bech32Address,
		})
		require.NoError(t, err)
	}

	mine, err := submissions.GetSubmissionsByDeveloperID(ctx, developer.CurrentUser().UID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	dev, err := submissions.GetDeveloperByID(ctx, developer.CurrentUser().UID)
	require.NoError(t, err)
	assert.Equal(t, "Dev", dev.Name)

	_, err = submissions.GetDeveloperByID(ctx, company.CurrentUser().UID)
	requireKind(t, err, apperror.ErrNotFound, "User is not a developer")

	_, err = submissions.GetDeveloperByID(ctx, "missing")
	requireKind(t, err, apperror.ErrNotFound, "Developer not found")
}

func TestSubmissionService_GetSubmissionsForCompany(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acme := env.signUp(t, "ops@acme.test", models.RoleCompany, "Acme")
	globex := env.signUp(t, "ops@globex.test", models.RoleCompany, "Globex")
	ada := env.signUp(t, "ada@example.com", models.RoleDeveloper, "Ada")
	linus := env.signUp(t, "linus@example.com", models.RoleDeveloper, "Linus")

	acmeBounties := make(map[string]*models.Bounty)
	for i := 0; i < store.MaxInValues+2; i++ {
		b := postBounty(t, env, acme)
		acmeBounties[b.ID] = b
	}
	otherBounty := postBounty(t, env, globex)

	submit := func(dev *identity.Auth, bountyID string) {
		_, err := NewSubmissionService(dev, env.store, nil).SubmitSolution(ctx, SubmitSolutionInput{
			BountyID:      bountyID,
			RepoURL:       "https://github.com/dev/fix",
			PayoutAddress: bech32Address,
		})
		require.NoError(t, err)
	}
	for id := range acmeBounties {
		submit(ada, id)
	}
	var oneBounty string
	for id := range acmeBounties {
		oneBounty = id
		break
	}
	submit(linus, oneBounty)
	submit(linus, otherBounty.ID)

	// A submission from an identity whose profile is not a developer.
	_, err := env.store.CreateSubmission(ctx, &models.Submission{
		BountyID:      oneBounty,
		DeveloperUID:  globex.CurrentUser().UID,
		RepoURL:       "https://github.com/globex/fix",
		PayoutAddress: bech32Address,
	})
	require.NoError(t, err)

	anon, _ := env.client()
	got, err := NewSubmissionService(anon, env.store, nil).GetSubmissionsForCompany(ctx, acme.CurrentUser().UID)
	require.NoError(t, err)
	require.Len(t, got, len(acmeBounties)+2)

	for i, detail := range got {
		if i > 0 {
			assert.Less(t, got[i-1].ID, detail.ID)
		}
		require.NotNil(t, detail.BountyDetails)
		assert.Equal(t, acmeBounties[detail.BountyID].Title, detail.BountyDetails.Title)
		assert.Equal(t, acme.CurrentUser().UID, detail.BountyDetails.CompanyUID)

		switch detail.DeveloperUID {
		case ada.CurrentUser().UID:
			require.NotNil(t, detail.DeveloperDetails)
			assert.Equal(t, "Ada", detail.DeveloperDetails.Name)
		case linus.CurrentUser().UID:
			require.NotNil(t, detail.DeveloperDetails)
			assert.Equal(t, "Linus", detail.DeveloperDetails.Name)
		default:
			assert.Nil(t, detail.DeveloperDetails)
		}
	}

	empty, err := NewSubmissionService(anon, env.store, nil).GetSubmissionsForCompany(ctx, "no-bounties")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSubmissionService_GetSubmissionsForCompanyFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acme := env.signUp(t, "ops@acme.test", models.RoleCompany, "Acme")
	dev := env.signUp(t, "dev@example.com", models.RoleDeveloper, "Dev")
	bounty := postBounty(t, env, acme)
	_, err := NewSubmissionService(dev, env.store, nil).SubmitSolution(ctx, SubmitSolutionInput{
		BountyID:      bounty.ID,
		RepoURL:       "https://github.com/dev/fix",
		PayoutAddress: bech32Address,
	})
	require.NoError(t, err)

	for _, op := range []string{"ListBountiesByCompany", "ListSubmissionsByBounties", "GetProfiles"} {
		t.Run(op, func(t *testing.T) {
			failing := &failingStore{MemoryStore: env.store, fail: map[string]error{op: errBackendDown}}
			anon, _ := env.client()
			_, err := NewSubmissionService(anon, failing, nil).GetSubmissionsForCompany(ctx, acme.CurrentUser().UID)
			requireKind(t, err, apperror.ErrBackend, "Failed to fetch submissions")
		})
	}
}
