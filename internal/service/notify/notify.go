// Package notify delivers transactional email through whichever provider is
// configured, trying each in priority order and stopping at the first success.
package notify

import (
	"context"
	"fmt"

	"github.com/northpeak-analytics/site-backend/internal/config"
	"github.com/northpeak-analytics/site-backend/internal/logger"
)

// Email is the provider-neutral message shape.
type Email struct {
	To      string
	From    string
	Subject string
	HTML    string
}

// Provider is a single delivery backend.
type Provider interface {
	Name() string
	Send(ctx context.Context, email Email) error
}

// Sender fans a message out to the first provider that accepts it. It never
// returns an error: delivery failure is reported as false and logged, since
// callers must not fail their own request path over a lost email.
type Sender struct {
	providers     []Provider
	notifyAddress string
	fromAddress   string
}

// NewSender builds the provider chain from configuration. Providers without
// credentials are skipped; an empty chain sends nothing and reports false.
func NewSender(cfg config.EmailConfig) *Sender {
	var providers []Provider
	if cfg.ResendAPIKey != "" {
		providers = append(providers, newResendProvider(cfg.ResendAPIKey))
	}
	if cfg.SendgridAPIKey != "" {
		providers = append(providers, newSendgridProvider(cfg.SendgridAPIKey))
	}

	return &Sender{
		providers:     providers,
		notifyAddress: cfg.NotifyAddress,
		fromAddress:   cfg.FromAddress,
	}
}

// NewSenderWithProviders is the test seam for injecting fake providers.
func NewSenderWithProviders(notifyAddress, fromAddress string, providers ...Provider) *Sender {
	return &Sender{providers: providers, notifyAddress: notifyAddress, fromAddress: fromAddress}
}

// SendPurchaseNotification emails the internal team about a completed sale.
func (s *Sender) SendPurchaseNotification(ctx context.Context, customerEmail, productName string, amountCents int64, sessionID string) bool {
	return s.send(ctx, Email{
		To:      s.notifyAddress,
		From:    s.fromAddress,
		Subject: fmt.Sprintf("New purchase: %s", productName),
		HTML: fmt.Sprintf(
			"<h2>New purchase received</h2><p><strong>Product:</strong> %s</p><p><strong>Customer:</strong> %s</p><p><strong>Amount:</strong> %s</p><p><strong>Checkout session:</strong> %s</p>",
			productName, customerEmail, formatAmount(amountCents), sessionID,
		),
	})
}

// SendCustomerConfirmation emails the customer a purchase receipt.
func (s *Sender) SendCustomerConfirmation(ctx context.Context, customerEmail, productName string, amountCents int64) bool {
	return s.send(ctx, Email{
		To:      customerEmail,
		From:    s.fromAddress,
		Subject: fmt.Sprintf("Your %s order is confirmed", productName),
		HTML: fmt.Sprintf(
			"<h2>Thank you for your purchase!</h2><p>Your order for <strong>%s</strong> (%s) is confirmed.</p><p>We'll be in touch shortly to get started. Reply to this email with any questions.</p>",
			productName, formatAmount(amountCents),
		),
	})
}

func (s *Sender) send(ctx context.Context, email Email) bool {
	if len(s.providers) == 0 {
		logger.L.Warn("no email provider configured, dropping message", "to", email.To, "subject", email.Subject)
		return false
	}

	for _, provider := range s.providers {
		if err := provider.Send(ctx, email); err != nil {
			logger.L.Warn("email delivery failed", "provider", provider.Name(), "to", email.To, "error", err)
			continue
		}
		logger.L.Info("email delivered", "provider", provider.Name(), "to", email.To, "subject", email.Subject)
		return true
	}
	return false
}

func formatAmount(amountCents int64) string {
	return fmt.Sprintf("$%d.%02d", amountCents/100, amountCents%100)
}
