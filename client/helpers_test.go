package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// writeEnvelope writes data in the backend response envelope.
func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := map[string]any{"status": "OK", "message": "", "data": data}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "KO", "message": message, "data": nil})
}

// newTestAPI returns an API against a test server with fast retries.
func newTestAPI(t *testing.T, h http.Handler) (*API, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	a := New(srv.URL, srv.Client(), srv.Client())
	a.Backoff = time.Millisecond
	return a, srv
}
