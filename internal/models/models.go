// Package models holds the documents stored by code-bounty and the jobs exchanged by its workers.
package models

import (
	"encoding/json"
	"errors"
)

var (
	ErrJobIDRequired        = errors.New("job ID is required")
	ErrJobTypeRequired      = errors.New("job type is required")
	ErrPayloadRequired      = errors.New("payload is required")
	ErrUnsupportedJobType   = errors.New("unsupported job type")
	ErrBountyIDRequired     = errors.New("bounty ID is required")
	ErrSubmissionIDRequired = errors.New("submission ID is required")
	ErrUnknownRole          = errors.New("unknown user role")
)

// Collection names.
const (
	CollectionUsers         = "users"
	CollectionBounties      = "bounties"
	CollectionSubmissions   = "submissions"
	CollectionTransactions  = "transactions"
	CollectionCompanies     = "companies"
	CollectionIdentities    = "identities"
	CollectionNotifications = "notifications"
)

// AllCollections lists every collection the application may write to.
var AllCollections = []string{
	CollectionUsers,
	CollectionBounties,
	CollectionSubmissions,
	CollectionTransactions,
	CollectionCompanies,
	CollectionIdentities,
	CollectionNotifications,
}

// Job types for the job processing system.
const (
	JobTypeBountyCreated      = "bounty_created"
	JobTypeSubmissionReceived = "submission_received"
)

// Job represents a job structure for all async processing.
type Job struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	TraceID string          `json:"trace_id"`
	Payload json.RawMessage `json:"payload"`
}

func (j *Job) Validate() error {
	if j.ID == "" {
		return ErrJobIDRequired
	}
	if j.Type == "" {
		return ErrJobTypeRequired
	}
	if len(j.Payload) == 0 {
		return ErrPayloadRequired
	}
	return nil
}

// BountyCreatedJob announces a newly posted bounty.
type BountyCreatedJob struct {
	BountyID string `json:"bounty_id"`
}

func (j *BountyCreatedJob) Validate() error {
	if j.BountyID == "" {
		return ErrBountyIDRequired
	}
	return nil
}

// SubmissionReceivedJob notifies the owning company about a new submission.
type SubmissionReceivedJob struct {
	SubmissionID string `json:"submission_id"`
	BountyID     string `json:"bounty_id"`
	DeveloperUID string `json:"developer_uid"`
	RepoURL      string `json:"repo_url"`
}

func (j *SubmissionReceivedJob) Validate() error {
	if j.SubmissionID == "" {
		return ErrSubmissionIDRequired
	}
	if j.BountyID == "" {
		return ErrBountyIDRequired
	}
	return nil
}
