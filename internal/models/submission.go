package models

import "time"

// Submission is a developer's proposed solution to a bounty. PayoutAddress is
// the Bitcoin address the reward should be paid to.
type Submission struct {
	ID            string    `firestore:"-" json:"id"`
	BountyID      string    `firestore:"bountyId" json:"bountyId"`
	DeveloperUID  string    `firestore:"developerUid" json:"developerUid"`
	RepoURL       string    `firestore:"githubUrl" json:"githubUrl"`
	PayoutAddress string    `firestore:"bitcoinAddress" json:"bitcoinAddress"`
	CreatedAt     time.Time `firestore:"createdAt,serverTimestamp" json:"createdAt"`
}

// SubmissionWithDetails is a submission joined with the bounty it targets and
// the developer who sent it. Either detail is nil when it could not be resolved.
type SubmissionWithDetails struct {
	Submission
	BountyDetails    *Bounty    `json:"bountyDetails"`
	DeveloperDetails *Developer `json:"developerDetails"`
}
