package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Slack posts events to an incoming webhook.
type Slack struct {
	webhookURL string
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

// NewSlack returns a sink for webhookURL.
func NewSlack(webhookURL string) *Slack {
	return &Slack{webhookURL: webhookURL, post: slack.PostWebhookContext}
}

// Notify posts ev as a single colored attachment.
func (s *Slack) Notify(ctx context.Context, ev Event) error {
	if err := s.post(ctx, s.webhookURL, slackMessage(ev)); err != nil {
		return fmt.Errorf("notify: slack webhook: %w", err)
	}
	return nil
}

func slackMessage(ev Event) *slack.WebhookMessage {
	title, body, color := Format(ev)
	att := slack.Attachment{
		Color:    color,
		Title:    title,
		Text:     body,
		Fallback: title + ": " + body,
		Fields: []slack.AttachmentField{
			{Title: "Subproject", Value: ev.SubprojectID, Short: true},
			{Title: "Outcome", Value: string(ev.Outcome), Short: true},
		},
	}
	return &slack.WebhookMessage{Text: title, Attachments: []slack.Attachment{att}}
}
