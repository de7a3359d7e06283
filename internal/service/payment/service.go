// Package payment creates hosted checkout sessions and processes the signed
// webhook events that confirm them.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"

	"github.com/northpeak-analytics/site-backend/internal/config"
)

var (
	ErrPriceRequired        = errors.New("priceId is required")
	ErrMissingSignature     = errors.New("missing webhook signature")
	ErrWebhookNotConfigured = errors.New("webhook secret not configured")
	ErrBadSignature         = errors.New("webhook signature verification failed")
)

// defaultProductName labels purchases whose request omitted a product name.
const defaultProductName = "Service Purchase"

// checkoutCreator is the minimal subset of the Stripe client used here; it is
// easy to mock in tests.
type checkoutCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// notifySender is the notification contract consumed by webhook dispatch.
type notifySender interface {
	SendPurchaseNotification(ctx context.Context, customerEmail, productName string, amountCents int64, sessionID string) bool
	SendCustomerConfirmation(ctx context.Context, customerEmail, productName string, amountCents int64) bool
}

// Service drives the payment session lifecycle. It is stateless across events
// apart from the bounded redelivery log.
type Service struct {
	creator       checkoutCreator
	webhookSecret string
	sender        notifySender
	seen          *eventLog
}

// NewService builds the payment service from configuration.
func NewService(cfg config.PaymentConfig, sender notifySender) *Service {
	creator := &session.Client{
		B:   stripe.GetBackend(stripe.APIBackend),
		Key: cfg.SecretKey,
	}
	return newService(creator, cfg.WebhookSecret, sender)
}

func newService(creator checkoutCreator, webhookSecret string, sender notifySender) *Service {
	return &Service{
		creator:       creator,
		webhookSecret: webhookSecret,
		sender:        sender,
		seen:          newEventLog(512),
	}
}

// CheckoutRequest describes a purchase intent from the pricing page.
type CheckoutRequest struct {
	PriceID       string
	CustomerEmail string
	ProductName   string
	Origin        string
}

// CreateCheckout provisions a hosted single-quantity card checkout session and
// returns its identifier.
func (s *Service) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if req.PriceID == "" {
		return "", ErrPriceRequired
	}

	productName := req.ProductName
	if productName == "" {
		productName = defaultProductName
	}

	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(req.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:               stripe.String(req.Origin + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:                stripe.String(req.Origin + "/#pricing"),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		AllowPromotionCodes:      stripe.Bool(true),
		Metadata:                 map[string]string{"productName": productName},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	created, err := s.creator.New(params)
	if err != nil {
		return "", fmt.Errorf("checkout session creation failed: %w", err)
	}
	return created.ID, nil
}
