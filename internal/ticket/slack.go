package ticket

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackNotifier posts a message to a Slack channel for every issued ticket.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier posting to the given channel ID.
func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	return &SlackNotifier{
		api:     slack.New(botToken),
		channel: channel,
	}
}

// Name returns the notifier name.
func (n *SlackNotifier) Name() string { return "slack" }

// Notify posts the ticket announcement.
func (n *SlackNotifier) Notify(ctx context.Context, rec Record) error {
	text := fmt.Sprintf(
		":ticket: Quality Inspection Ticket *%s* created (session `%s`, %s)",
		rec.Number, rec.SessionID, rec.IssuedAt.Format("2006-01-02 15:04 MST"),
	)
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("posting to Slack: %w", err)
	}
	return nil
}
