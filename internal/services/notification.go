package services

import (
	"context"

	"code-bounty/internal/apperror"
	"code-bounty/internal/log"
	"code-bounty/internal/models"
	"code-bounty/internal/store"
)

type NotificationService struct {
	principals    Principals
	notifications store.Notifications
}

func NewNotificationService(principals Principals, notifications store.Notifications) *NotificationService {
	return &NotificationService{principals: principals, notifications: notifications}
}

// ListMine returns the signed-in user's notifications, newest first.
func (s *NotificationService) ListMine(ctx context.Context) ([]*models.Notification, error) {
	principal := s.principals.CurrentUser()
	if principal == nil {
		return nil, apperror.Unauthenticated("User not authenticated")
	}
	list, err := s.notifications.ListNotifications(ctx, principal.UID)
	if err != nil {
		log.Error(ctx, "Failed to list notifications",
			"error", err,
			"uid", principal.UID,
			"operation", "list_notifications",
		)
		return nil, apperror.Backend(err, "Failed to fetch notifications")
	}
	return list, nil
}
