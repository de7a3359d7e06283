package intake

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/northpeak-analytics/site-backend/internal/logger"
	"github.com/northpeak-analytics/site-backend/pkg/utils"
)

// handleStatusStream pushes the session's awaiting/rate-limit state over SSE
// so the widget can drive its typing indicator and countdown without polling.
func (h *Handler) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if _, err := h.svc.GetSession(r.Context(), sessionID); err != nil {
		writeServiceError(w, err)
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEEvent(w, flusher, "status", map[string]any{"message": "stream established"})

	ticker := time.NewTicker(h.statusInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			logger.L.Debug("closing status stream", "session", sessionID)
			return
		case <-ticker.C:
			session, err := h.svc.GetSession(ctx, sessionID)
			if err != nil {
				utils.SendSSEEvent(w, flusher, "closed", map[string]string{"reason": "session discarded"})
				return
			}

			payload := map[string]any{
				"awaiting": session.Awaiting,
				"step":     session.CurrentStep,
				"messages": len(session.Messages),
			}
			if until := session.RateLimitedUntil; !until.IsZero() && time.Now().Before(until) {
				payload["retryAfter"] = int(time.Until(until).Round(time.Second) / time.Second)
			}
			utils.SendSSEEvent(w, flusher, "state", payload)
		}
	}
}
