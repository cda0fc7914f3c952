// Package services provides the access layers and integrations of code-bounty.
package services

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"code-bounty/internal/log"
	"code-bounty/internal/models"
	"code-bounty/internal/ui"
)

// SlackService announces bounties in a Slack channel.
type SlackService struct {
	client  *slack.Client
	channel string
	builder *ui.BountyMessageBuilder
}

func NewSlackService(client *slack.Client, channel string, builder *ui.BountyMessageBuilder) *SlackService {
	return &SlackService{
		client:  client,
		channel: channel,
		builder: builder,
	}
}

// PostBountyAnnouncement posts the bounty and returns the message timestamp.
func (s *SlackService) PostBountyAnnouncement(ctx context.Context, bounty *models.Bounty) (string, error) {
	_, timestamp, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(s.builder.FallbackText(bounty), false),
		slack.MsgOptionBlocks(s.builder.BuildAnnouncement(bounty)...),
	)
	if err != nil {
		log.Error(ctx, "Failed to post bounty announcement to Slack",
			"error", err,
			"channel", s.channel,
			"bounty_id", bounty.ID,
			"operation", "post_bounty_announcement",
		)
		return "", fmt.Errorf("failed to post bounty %s to channel %s: %w", bounty.ID, s.channel, err)
	}

	log.Info(ctx, "Bounty announced on Slack",
		"channel", s.channel,
		"bounty_id", bounty.ID,
		"message_ts", timestamp,
	)
	return timestamp, nil
}
