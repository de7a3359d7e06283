package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func corsHandler(origins []string) http.Handler {
	return CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORSAllowsDelete(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/intake/some-session", nil)
	req.Header.Set("Origin", "https://site.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	resp := httptest.NewRecorder()

	corsHandler([]string{"*"}).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", resp.Code)
	}
	methods := resp.Header().Get("Access-Control-Allow-Methods")
	if !strings.Contains(methods, http.MethodDelete) {
		t.Fatalf("expected DELETE in allowed methods, got %q", methods)
	}
}

func TestCORSCredentialsOnlyForExplicitOrigins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	req.Header.Set("Origin", "https://site.example.com")
	resp := httptest.NewRecorder()

	corsHandler([]string{"https://site.example.com"}).ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials for explicit origin, got %q", got)
	}

	resp = httptest.NewRecorder()
	corsHandler([]string{"*"}).ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("wildcard match must not allow credentials, got %q", got)
	}
}

func TestCORSUnlistedOriginGetsNoHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp := httptest.NewRecorder()

	corsHandler([]string{"https://site.example.com"}).ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin must not be echoed, got %q", got)
	}
}
