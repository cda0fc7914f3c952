package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BountyStatusOpen is the only status a bounty is ever written with.
const BountyStatusOpen = "open"

// Categories.
const (
	CategoryCoding       = "coding"
	CategoryDataAnalysis = "data-analysis"
	CategoryBlockchain   = "blockchain"
	CategoryOther        = "other"
)

// Difficulties.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

var (
	categories   = []string{CategoryCoding, CategoryDataAnalysis, CategoryBlockchain, CategoryOther}
	difficulties = []string{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}
)

// NormalizeCategory maps free-form input such as "Data Analysis" onto a category.
func NormalizeCategory(s string) (string, bool) {
	return normalizeChoice(s, categories)
}

// NormalizeDifficulty maps free-form input such as "Beginner" onto a difficulty.
func NormalizeDifficulty(s string) (string, bool) {
	return normalizeChoice(s, difficulties)
}

func normalizeChoice(s string, choices []string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), "-")
	for _, c := range choices {
		if c == key {
			return c, true
		}
	}
	return "", false
}

// Bounty is a reward-bearing challenge posted by a company.
type Bounty struct {
	ID              string    `firestore:"-" json:"id"`
	Title           string    `firestore:"title" json:"title"`
	Description     string    `firestore:"description" json:"description"`
	Category        string    `firestore:"category" json:"category"`
	Difficulty      string    `firestore:"difficulty" json:"difficulty"`
	BountyBTC       float64   `firestore:"bountyBTC" json:"bountyBTC"`
	Deadline        string    `firestore:"deadline" json:"deadline"`
	CompanyUID      string    `firestore:"companyUid" json:"companyUid"`
	CompanyName     string    `firestore:"companyName" json:"companyName"`
	Slug            string    `firestore:"slug,omitempty" json:"slug,omitempty"`
	Status          string    `firestore:"status" json:"status"`
	SubmissionCount int       `firestore:"submissionCount" json:"submissionCount"`
	CreatedAt       time.Time `firestore:"createdAt,serverTimestamp" json:"createdAt"`
	UpdatedAt       time.Time `firestore:"updatedAt,serverTimestamp" json:"updatedAt"`
}

// Reward returns the reward as an exact decimal amount of BTC.
func (b *Bounty) Reward() decimal.Decimal {
	return decimal.NewFromFloat(b.BountyBTC)
}
