package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/northpeak-analytics/site-backend/internal/logger"
)

// HandleWebhook verifies the signature over the raw body and dispatches by
// event type. Verification failure is a security boundary and rejects the
// request; everything past verification is acknowledged even when side
// effects fail, so the processor does not retry a payment that already
// succeeded.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error {
	if signatureHeader == "" {
		return ErrMissingSignature
	}
	if s.webhookSecret == "" {
		return ErrWebhookNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(rawBody, signatureHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		s.handleCheckoutCompleted(ctx, event)
	case stripe.EventTypePaymentIntentPaymentFailed:
		s.handlePaymentFailed(event)
	default:
		logger.L.Debug("webhook event acknowledged without action", "type", event.Type, "id", event.ID)
	}
	return nil
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) {
	if !s.seen.firstDelivery(event.ID) {
		logger.L.Info("duplicate webhook delivery, skipping notifications", "id", event.ID)
		return
	}

	var checkout stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &checkout); err != nil {
		logger.L.Error("failed to decode checkout session payload", "id", event.ID, "error", err)
		return
	}

	productName := checkout.Metadata["productName"]
	if productName == "" {
		productName = defaultProductName
	}

	customerEmail := checkout.CustomerEmail
	if customerEmail == "" && checkout.CustomerDetails != nil {
		customerEmail = checkout.CustomerDetails.Email
	}

	logger.L.Info("checkout completed",
		"session", checkout.ID,
		"product", productName,
		"amount", checkout.AmountTotal,
		"hasEmail", customerEmail != "",
	)

	if customerEmail == "" {
		return
	}

	// Delivery failures are logged inside the sender and swallowed here: the
	// payment has already settled, so this handler must still acknowledge.
	if !s.sender.SendPurchaseNotification(ctx, customerEmail, productName, checkout.AmountTotal, checkout.ID) {
		logger.L.Warn("purchase notification not delivered", "session", checkout.ID)
	}
	if !s.sender.SendCustomerConfirmation(ctx, customerEmail, productName, checkout.AmountTotal) {
		logger.L.Warn("customer confirmation not delivered", "session", checkout.ID)
	}
}

func (s *Service) handlePaymentFailed(event stripe.Event) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		logger.L.Error("failed to decode payment intent payload", "id", event.ID, "error", err)
		return
	}

	reason := ""
	if intent.LastPaymentError != nil {
		reason = intent.LastPaymentError.Msg
	}
	logger.L.Warn("payment failed",
		"intent", intent.ID,
		"amount", intent.Amount,
		"currency", intent.Currency,
		"reason", reason,
	)
}
