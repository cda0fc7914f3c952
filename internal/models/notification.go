package models

import "time"

type NotificationType string

const (
	NotificationNewBounty          NotificationType = "new_bounty"
	NotificationSubmissionReceived NotificationType = "submission_received"
)

// Notification is a message addressed to one user.
type Notification struct {
	ID                  string           `firestore:"-" json:"id"`
	UserID              string           `firestore:"userId" json:"userId"`
	Type                NotificationType `firestore:"type" json:"type"`
	Title               string           `firestore:"title" json:"title"`
	Message             string           `firestore:"message" json:"message"`
	IsRead              bool             `firestore:"isRead" json:"isRead"`
	RelatedBountyID     string           `firestore:"relatedBountyId,omitempty" json:"relatedBountyId,omitempty"`
	RelatedSubmissionID string           `firestore:"relatedSubmissionId,omitempty" json:"relatedSubmissionId,omitempty"`
	CreatedAt           time.Time        `firestore:"createdAt,serverTimestamp" json:"createdAt"`
}

// Credential is the identity backend's record for one account.
type Credential struct {
	UID          string    `firestore:"uid"`
	Email        string    `firestore:"email"`
	PasswordHash string    `firestore:"passwordHash"`
	DisplayName  string    `firestore:"displayName"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}
