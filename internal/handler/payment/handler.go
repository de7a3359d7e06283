// Package payment exposes checkout creation and the processor webhook.
package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/northpeak-analytics/site-backend/internal/logger"
	paymentservice "github.com/northpeak-analytics/site-backend/internal/service/payment"
	"github.com/northpeak-analytics/site-backend/pkg/utils"
)

// maxWebhookBody bounds the raw payload read for signature verification. Event
// payloads carry full API objects and can run well past 64KiB; a truncated
// body would fail verification and push the processor into a retry loop.
const maxWebhookBody = int64(1 << 20)

// Handler serves the payment endpoints.
type Handler struct {
	svc *paymentservice.Service
}

// New creates the payment handler.
func New(svc *paymentservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers payment routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.handleCreateCheckout)
	r.Post("/webhooks/stripe", h.handleWebhook)
}

func (h *Handler) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PriceID       string `json:"priceId"`
		CustomerEmail string `json:"customerEmail"`
		ProductName   string `json:"productName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID, err := h.svc.CreateCheckout(r.Context(), paymentservice.CheckoutRequest{
		PriceID:       payload.PriceID,
		CustomerEmail: payload.CustomerEmail,
		ProductName:   payload.ProductName,
		Origin:        requestOrigin(r),
	})
	if err != nil {
		if errors.Is(err, paymentservice.ErrPriceRequired) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.L.Error("checkout creation failed", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID})
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := h.svc.HandleWebhook(r.Context(), rawBody, r.Header.Get("Stripe-Signature")); err != nil {
		logger.L.Warn("webhook rejected", "error", err)
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// requestOrigin derives the redirect base from the caller's own origin.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}

	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host
}
