// Package ui contains Slack Block Kit UI components and builders.
package ui

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"code-bounty/internal/models"
	"code-bounty/internal/utils"
)

// BountyMessageBuilder builds channel messages about bounties.
type BountyMessageBuilder struct {
	// BaseURL is prepended to bounty links, e.g. "https://bounties.example.com".
	BaseURL string
}

// NewBountyMessageBuilder creates a new bounty message builder.
func NewBountyMessageBuilder(baseURL string) *BountyMessageBuilder {
	return &BountyMessageBuilder{BaseURL: strings.TrimSuffix(baseURL, "/")}
}

// FallbackText is the plain-text summary shown in notifications.
func (b *BountyMessageBuilder) FallbackText(bounty *models.Bounty) string {
	return fmt.Sprintf("New bounty from %s: %s (%s BTC)",
		bounty.CompanyName, bounty.Title, bounty.Reward().String())
}

// BuildAnnouncement constructs the blocks announcing a newly posted bounty.
func (b *BountyMessageBuilder) BuildAnnouncement(bounty *models.Bounty) []slack.Block {
	reward := bounty.Reward()
	header := fmt.Sprintf("%s New bounty: %s", utils.GetRewardEmoji(reward), bounty.Title)

	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, truncate(header, 150), true, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, truncate(bounty.Description, 3000), false, false),
			nil, nil,
		),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Reward*\n%s BTC", reward.String()), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Deadline*\n%s", bounty.Deadline), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Category*\n%s", bounty.Category), false, false),
			slack.NewTextBlockObject(slack.MarkdownType,
				strings.TrimSpace(fmt.Sprintf("*Difficulty*\n%s %s", utils.GetDifficultyEmoji(bounty.Difficulty), bounty.Difficulty)),
				false, false),
		}, nil),
		slack.NewContextBlock(
			"",
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("Posted by *%s*", bounty.CompanyName), false, false),
		),
	}

	if b.BaseURL != "" {
		button := slack.NewButtonBlockElement(
			"view_bounty",
			bounty.ID,
			slack.NewTextBlockObject(slack.PlainTextType, "View bounty", false, false),
		)
		button.URL = fmt.Sprintf("%s/bounties/%s", b.BaseURL, bounty.ID)
		blocks = append(blocks, slack.NewActionBlock("bounty_actions", button))
	}

	return blocks
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
