package intake

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/northpeak-analytics/site-backend/internal/logger"
	intakeservice "github.com/northpeak-analytics/site-backend/internal/service/intake"
)

// WebSocketHandler drives the live chat widget over a websocket connection.
type WebSocketHandler struct {
	svc      *intakeservice.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the websocket handler.
func NewWebSocketHandler(svc *intakeservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the websocket route on the router.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/intake/ws/{sessionID}", h.handleWebSocket)
}

type inboundFrame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type submitPayload struct {
	Value string `json:"value"`
}

type outboundFrame struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func frame(frameType, sessionID string, data interface{}) outboundFrame {
	return outboundFrame{
		Type:      frameType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.svc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L.Warn("websocket upgrade failed", "session", sessionID, "error", err)
		return
	}
	defer conn.Close()

	// Replay the transcript so a reconnecting widget catches up.
	if messages, err := h.svc.Transcript(r.Context(), sessionID); err == nil {
		for _, msg := range messages {
			if err := conn.WriteJSON(frame("message", sessionID, msg)); err != nil {
				return
			}
		}
	}

	for {
		var inbound inboundFrame
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.L.Warn("websocket read failed", "session", sessionID, "error", err)
			}
			return
		}

		var payload submitPayload
		if len(inbound.Data) > 0 {
			if err := json.Unmarshal(inbound.Data, &payload); err != nil {
				h.writeError(conn, sessionID, "invalid frame payload")
				continue
			}
		}

		if inbound.Type != "option" && inbound.Type != "message" && inbound.Type != "email" {
			h.writeError(conn, sessionID, "unknown frame type: "+inbound.Type)
			continue
		}

		// Bracket resolution with typing frames so the widget can show its
		// indicator for exactly the awaiting window.
		if err := conn.WriteJSON(frame("typing", sessionID, map[string]bool{"active": true})); err != nil {
			return
		}

		var result intakeservice.SubmitResult
		switch inbound.Type {
		case "option":
			result, err = h.svc.SubmitOption(r.Context(), sessionID, payload.Value)
		case "message":
			result, err = h.svc.SubmitText(r.Context(), sessionID, payload.Value)
		case "email":
			result, err = h.svc.SubmitEmail(r.Context(), sessionID, payload.Value)
		}

		if err != nil {
			h.writeError(conn, sessionID, err.Error())
		} else {
			if result.Reply != nil {
				if writeErr := conn.WriteJSON(frame("message", sessionID, *result.Reply)); writeErr != nil {
					return
				}
			}
			if result.RetryAfterSeconds > 0 {
				if writeErr := conn.WriteJSON(frame("rateLimited", sessionID, map[string]int{"retryAfter": result.RetryAfterSeconds})); writeErr != nil {
					return
				}
			}
		}

		if writeErr := conn.WriteJSON(frame("typing", sessionID, map[string]bool{"active": false})); writeErr != nil {
			return
		}
	}
}

func (h *WebSocketHandler) writeError(conn *websocket.Conn, sessionID, message string) {
	if err := conn.WriteJSON(frame("error", sessionID, map[string]string{"message": message})); err != nil {
		logger.L.Warn("websocket write failed", "session", sessionID, "error", err)
	}
}
