package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type resendProvider struct {
	client *resend.Client
}

func newResendProvider(apiKey string) *resendProvider {
	return &resendProvider{client: resend.NewClient(apiKey)}
}

func (p *resendProvider) Name() string { return "resend" }

func (p *resendProvider) Send(ctx context.Context, email Email) error {
	_, err := p.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
	})
	return err
}

type sendgridProvider struct {
	client *sendgrid.Client
}

func newSendgridProvider(apiKey string) *sendgridProvider {
	return &sendgridProvider{client: sendgrid.NewSendClient(apiKey)}
}

func (p *sendgridProvider) Name() string { return "sendgrid" }

func (p *sendgridProvider) Send(ctx context.Context, email Email) error {
	message := mail.NewSingleEmail(
		mail.NewEmail("", email.From),
		email.Subject,
		mail.NewEmail("", email.To),
		"",
		email.HTML,
	)

	resp, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected message: status %d", resp.StatusCode)
	}
	return nil
}
