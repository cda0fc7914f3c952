package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-bounty/internal/models"
	"code-bounty/internal/store"
	firestoreTesting "code-bounty/internal/testing"
)

func TestFirestoreService_Credentials(t *testing.T) {
	emulator, ctx := firestoreTesting.SetupFirestoreEmulator(t)
	fs := NewFirestoreService(emulator.Client)

	cred := &models.Credential{UID: "u1", Email: "ada@example.com", PasswordHash: "hash"}
	require.NoError(t, fs.CreateCredential(ctx, cred))

	err := fs.CreateCredential(ctx, &models.Credential{UID: "u2", Email: "ada@example.com", PasswordHash: "hash"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := fs.GetCredentialByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UID)

	_, err = fs.GetCredentialByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, fs.UpdateCredentialDisplayName(ctx, "u1", "Ada"))
	got, err = fs.GetCredential(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.DisplayName)

	_, err = fs.GetCredential(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestFirestoreService_Profiles(t *testing.T) {
	emulator, ctx := firestoreTesting.SetupFirestoreEmulator(t)
	fs := NewFirestoreService(emulator.Client)

	dev := &models.Developer{Account: models.Account{UID: "dev1", Email: "dev@example.com"}, Name: "Dev"}
	company := &models.Company{Account: models.Account{UID: "co1", Email: "co@example.com"}, CompanyName: "Acme"}
	require.NoError(t, fs.CreateProfile(ctx, dev))
	require.NoError(t, fs.CreateProfile(ctx, company))
	assert.False(t, dev.CreatedAt.IsZero())

	err := fs.CreateProfile(ctx, &models.Developer{Account: models.Account{UID: "dev1"}, Name: "Other"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := fs.GetProfile(ctx, "co1")
	require.NoError(t, err)
	require.IsType(t, &models.Company{}, got)
	assert.Equal(t, "Acme", got.DisplayName())

	require.NoError(t, fs.UpdateProfileName(ctx, "co1", models.RoleCompany, "Acme Labs"))
	got, err = fs.GetProfile(ctx, "co1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Labs", got.DisplayName())

	profiles, err := fs.GetProfiles(ctx, []string{"dev1", "co1", "missing", "dev1"})
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
	assert.Equal(t, models.RoleDeveloper, profiles["dev1"].Role())

	_, err = fs.GetProfile(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestFirestoreService_BountiesAndSubmissions(t *testing.T) {
	emulator, ctx := firestoreTesting.SetupFirestoreEmulator(t)
	fs := NewFirestoreService(emulator.Client)

	var ids []string
	for i := 0; i < store.MaxInValues+5; i++ {
		companyUID := "co1"
		if i%2 == 1 {
			companyUID = "co2"
		}
		id, err := fs.CreateBounty(ctx, &models.Bounty{
			Title:      fmt.Sprintf("Bounty %d", i),
			CompanyUID: companyUID,
			Status:     models.BountyStatusOpen,
			BountyBTC:  0.01,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := fs.ListBounties(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(ids))
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}

	co1, err := fs.ListBountiesByCompany(ctx, "co1")
	require.NoError(t, err)
	assert.Len(t, co1, (len(ids)+1)/2)

	got, err := fs.GetBounty(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Bounty 0", got.Title)

	for _, id := range ids {
		_, err := fs.CreateSubmission(ctx, &models.Submission{
			BountyID:      id,
			DeveloperUID:  "dev1",
			RepoURL:       "https://github.com/acme/fix",
			PayoutAddress: "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq",
		})
		require.NoError(t, err)
	}

	_, err = fs.CreateSubmission(ctx, &models.Submission{BountyID: ids[0], DeveloperUID: "dev1"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	// More ids than one membership query can carry.
	submissions, err := fs.ListSubmissionsByBounties(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, submissions, len(ids))

	mine, err := fs.ListSubmissionsByDeveloper(ctx, "dev1")
	require.NoError(t, err)
	assert.Len(t, mine, len(ids))
}

func TestFirestoreService_Notifications(t *testing.T) {
	emulator, ctx := firestoreTesting.SetupFirestoreEmulator(t)
	fs := NewFirestoreService(emulator.Client)

	for _, title := range []string{"first", "second"} {
		_, err := fs.CreateNotification(ctx, &models.Notification{
			UserID: "co1",
			Type:   models.NotificationSubmissionReceived,
			Title:  title,
		})
		require.NoError(t, err)
	}
	_, err := fs.CreateNotification(ctx, &models.Notification{UserID: "co2", Title: "other"})
	require.NoError(t, err)

	list, err := fs.ListNotifications(ctx, "co1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "first", list[1].Title)
}
