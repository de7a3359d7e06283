package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// signPayload produces a signature header the way the processor does:
// HMAC-SHA256 over "timestamp.payload" with the shared secret.
func signPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(t *testing.T, id, eventType string, object map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":   id,
		"type": eventType,
		"data": map[string]any{"object": object},
	})
	require.NoError(t, err)
	return payload
}

func completedCheckout(email string) map[string]any {
	object := map[string]any{
		"id":           "cs_test_123",
		"amount_total": 149900,
		"currency":     "usd",
		"metadata":     map[string]string{"productName": "Strategy Sprint"},
	}
	if email != "" {
		object["customer_details"] = map[string]any{"email": email}
	}
	return object
}

const testSecret = "whsec_test_secret"

func TestHandleWebhookMissingSignature(t *testing.T) {
	svc := newService(&stubCreator{}, testSecret, &stubSender{})
	err := svc.HandleWebhook(context.Background(), []byte(`{}`), "")
	require.ErrorIs(t, err, ErrMissingSignature)
}

func TestHandleWebhookSecretNotConfigured(t *testing.T) {
	svc := newService(&stubCreator{}, "", &stubSender{})
	err := svc.HandleWebhook(context.Background(), []byte(`{}`), "t=1,v1=abc")
	require.ErrorIs(t, err, ErrWebhookNotConfigured)
}

func TestHandleWebhookBadSignature(t *testing.T) {
	sender := &stubSender{}
	svc := newService(&stubCreator{}, testSecret, sender)

	payload := eventPayload(t, "evt_1", "checkout.session.completed", completedCheckout("buyer@example.com"))
	err := svc.HandleWebhook(context.Background(), payload, signPayload(t, payload, "whsec_wrong_secret"))

	require.ErrorIs(t, err, ErrBadSignature)
	require.Empty(t, sender.notifications, "no email may be attempted before verification")
	require.Empty(t, sender.confirmations)
}

func TestHandleWebhookCheckoutCompletedSendsBothEmails(t *testing.T) {
	sender := &stubSender{}
	svc := newService(&stubCreator{}, testSecret, sender)

	payload := eventPayload(t, "evt_2", "checkout.session.completed", completedCheckout("buyer@example.com"))
	err := svc.HandleWebhook(context.Background(), payload, signPayload(t, payload, testSecret))

	require.NoError(t, err)
	require.Equal(t, []string{"cs_test_123"}, sender.notifications)
	require.Equal(t, []string{"buyer@example.com"}, sender.confirmations)
}

func TestHandleWebhookCheckoutCompletedWithoutEmail(t *testing.T) {
	sender := &stubSender{}
	svc := newService(&stubCreator{}, testSecret, sender)

	payload := eventPayload(t, "evt_3", "checkout.session.completed", completedCheckout(""))
	err := svc.HandleWebhook(context.Background(), payload, signPayload(t, payload, testSecret))

	require.NoError(t, err, "missing email still acknowledges the event")
	require.Empty(t, sender.notifications)
	require.Empty(t, sender.confirmations)
}

func TestHandleWebhookEmailFailureStillAcknowledges(t *testing.T) {
	sender := &stubSender{fail: true}
	svc := newService(&stubCreator{}, testSecret, sender)

	payload := eventPayload(t, "evt_4", "checkout.session.completed", completedCheckout("buyer@example.com"))
	err := svc.HandleWebhook(context.Background(), payload, signPayload(t, payload, testSecret))

	require.NoError(t, err, "delivery failure must not make the processor retry")
	require.Len(t, sender.notifications, 1)
	require.Len(t, sender.confirmations, 1)
}

func TestHandleWebhookDuplicateDeliverySendsOnce(t *testing.T) {
	sender := &stubSender{}
	svc := newService(&stubCreator{}, testSecret, sender)

	payload := eventPayload(t, "evt_5", "checkout.session.completed", completedCheckout("buyer@example.com"))
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(t, payload, testSecret)))
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(t, payload, testSecret)))

	require.Len(t, sender.notifications, 1)
	require.Len(t, sender.confirmations, 1)
}

func TestHandleWebhookPaymentFailedLogsOnly(t *testing.T) {
	sender := &stubSender{}
	svc := newService(&stubCreator{}, testSecret, sender)

	payload := eventPayload(t, "evt_6", "payment_intent.payment_failed", map[string]any{
		"id":       "pi_test_123",
		"amount":   149900,
		"currency": "usd",
	})
	err := svc.HandleWebhook(context.Background(), payload, signPayload(t, payload, testSecret))

	require.NoError(t, err)
	require.Empty(t, sender.notifications)
	require.Empty(t, sender.confirmations)
}

func TestHandleWebhookUnknownTypeAcknowledged(t *testing.T) {
	sender := &stubSender{}
	svc := newService(&stubCreator{}, testSecret, sender)

	payload := eventPayload(t, "evt_7", "customer.created", map[string]any{"id": "cus_123"})
	err := svc.HandleWebhook(context.Background(), payload, signPayload(t, payload, testSecret))

	require.NoError(t, err)
	require.Empty(t, sender.notifications)
	require.Empty(t, sender.confirmations)
}
