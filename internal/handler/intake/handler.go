// Package intake exposes the chat widget's HTTP surface.
package intake

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	intakeservice "github.com/northpeak-analytics/site-backend/internal/service/intake"
	"github.com/northpeak-analytics/site-backend/pkg/utils"
)

// Handler serves the REST surface of the intake conversation.
type Handler struct {
	svc            *intakeservice.Service
	statusInterval time.Duration
}

// New creates the intake handler.
func New(svc *intakeservice.Service) *Handler {
	return &Handler{svc: svc, statusInterval: 2 * time.Second}
}

// RegisterRoutes registers intake routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/intake/session", h.handleCreateSession)
	r.Get("/intake/{sessionID}", h.handleTranscript)
	r.Delete("/intake/{sessionID}", h.handleDeleteSession)
	r.Post("/intake/{sessionID}/option", h.handleSubmitOption)
	r.Post("/intake/{sessionID}/message", h.handleSubmitText)
	r.Post("/intake/{sessionID}/email", h.handleSubmitEmail)
	r.Get("/intake/{sessionID}/stream", h.handleStatusStream)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messages, err := h.svc.Transcript(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	h.svc.DeleteSession(r.Context(), chi.URLParam(r, "sessionID"))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleSubmitOption(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Option string `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.SubmitOption(r.Context(), chi.URLParam(r, "sessionID"), payload.Option)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSubmitText(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.SubmitText(r.Context(), chi.URLParam(r, "sessionID"), payload.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSubmitEmail(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.SubmitEmail(r.Context(), chi.URLParam(r, "sessionID"), payload.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

// writeServiceError maps intake service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, intakeservice.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, intakeservice.ErrLimitReached):
		utils.RespondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, intakeservice.ErrRateLimited):
		utils.RespondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, intakeservice.ErrBusy):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, intakeservice.ErrInvalidEmail):
		utils.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, intakeservice.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
