package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-bounty/internal/apperror"
	"code-bounty/internal/models"
)

func TestNotificationService_ListMine(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	company := env.signUp(t, "ops@acme.test", models.RoleCompany, "Acme")
	uid := company.CurrentUser().UID

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	env.store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	for _, title := range []string{"older", "newer"} {
		_, err := env.store.CreateNotification(ctx, &models.Notification{UserID: uid, Title: title})
		require.NoError(t, err)
	}
	_, err := env.store.CreateNotification(ctx, &models.Notification{UserID: "someone-else", Title: "other"})
	require.NoError(t, err)

	list, err := NewNotificationService(company, env.store).ListMine(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Title)
	assert.Equal(t, "older", list[1].Title)

	signedOut, _ := env.client()
	_, err = NewNotificationService(signedOut, env.store).ListMine(ctx)
	requireKind(t, err, apperror.ErrUnauthenticated, "User not authenticated")

	failing := &failingStore{MemoryStore: env.store, fail: map[string]error{"ListNotifications": errBackendDown}}
	_, err = NewNotificationService(company, failing).ListMine(ctx)
	requireKind(t, err, apperror.ErrBackend, "Failed to fetch notifications")
}
