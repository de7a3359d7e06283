package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/northpeak-analytics/site-backend/internal/model/intake"
	intakeservice "github.com/northpeak-analytics/site-backend/internal/service/intake"
)

func setupRouter() (*chi.Mux, *intakeservice.Service) {
	svc := intakeservice.NewService(nil)
	handler := New(svc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, svc
}

func postJSON(r http.Handler, path string, body map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateSessionEndpoint(t *testing.T) {
	r, _ := setupRouter()

	resp := postJSON(r, "/intake/session", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var session intake.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected a session ID")
	}
	if len(session.Messages) != 1 {
		t.Fatalf("expected the greeting message, got %d messages", len(session.Messages))
	}
}

func TestSubmitOptionUnknownSession(t *testing.T) {
	r, _ := setupRouter()

	resp := postJSON(r, "/intake/missing/option", map[string]string{"option": "Strategic Consulting"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSubmitOptionScriptedReply(t *testing.T) {
	r, svc := setupRouter()
	session, err := svc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	resp := postJSON(r, "/intake/"+session.ID+"/option", map[string]string{"option": "Strategic Consulting"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result intakeservice.SubmitResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.Step != intake.StepConsulting {
		t.Fatalf("expected step consulting, got %s", result.Step)
	}
	if result.Reply == nil || result.Reply.Content == "" {
		t.Fatal("expected a scripted reply")
	}
}

func TestSubmitTextEmpty(t *testing.T) {
	r, svc := setupRouter()
	session, err := svc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	resp := postJSON(r, "/intake/"+session.ID+"/message", map[string]string{"text": "   "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSubmitEmailInvalid(t *testing.T) {
	r, svc := setupRouter()
	session, err := svc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	resp := postJSON(r, "/intake/"+session.ID+"/email", map[string]string{"email": "not-an-email"})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}

func TestTranscriptEndpoint(t *testing.T) {
	r, svc := setupRouter()
	session, err := svc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/intake/"+session.ID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		Messages []intake.Message `json:"messages"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode transcript: %v", err)
	}
	if len(payload.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(payload.Messages))
	}
}

func TestDeleteSessionEndpoint(t *testing.T) {
	r, svc := setupRouter()
	session, err := svc.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/intake/"+session.ID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	if _, err := svc.GetSession(context.Background(), session.ID); err == nil {
		t.Fatal("expected session to be gone after delete")
	}
}
