// Package notify delivers email notifications. Sends triggered by ticket
// activity run on the Dispatcher, detached from the request that caused
// them: a provider outage must never fail a ticket operation.
package notify

import (
	"context"
	"errors"

	"github.com/resend/resend-go/v2"
)

type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

var ErrNoAPIKey = errors.New("resend api key not configured")

// Resend sends through the Resend HTTP API.
type Resend struct {
	client  *resend.Client
	from    string
	replyTo string
}

func NewResend(apiKey, from, replyTo string) *Resend {
	var c *resend.Client
	if apiKey != "" {
		c = resend.NewClient(apiKey)
	}
	return &Resend{client: c, from: from, replyTo: replyTo}
}

func (r *Resend) Send(ctx context.Context, to, subject, html string) error {
	if r.client == nil {
		return ErrNoAPIKey
	}
	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		ReplyTo: r.replyTo,
	})
	return err
}
