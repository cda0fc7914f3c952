package utils

import "github.com/shopspring/decimal"

// GetRewardEmoji returns an emoji that scales with the bounty reward in BTC.
//
//nolint:mnd
func GetRewardEmoji(rewardBTC decimal.Decimal) string {
	switch {
	case rewardBTC.LessThan(decimal.RequireFromString("0.01")):
		return "🪙" // coin
	case rewardBTC.LessThan(decimal.RequireFromString("0.05")):
		return "💵" // banknote
	case rewardBTC.LessThan(decimal.RequireFromString("0.1")):
		return "💰" // money bag
	case rewardBTC.LessThan(decimal.NewFromInt(1)):
		return "💎" // gem
	default:
		return "🏆" // trophy
	}
}

// GetDifficultyEmoji returns the emoji shown next to a bounty difficulty.
func GetDifficultyEmoji(difficulty string) string {
	switch difficulty {
	case "beginner":
		return "🟢"
	case "intermediate":
		return "🟡"
	case "advanced":
		return "🔴"
	default:
		return ""
	}
}
