package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeBackend accepts only the latest access token it issued and counts
// refresh calls.
type fakeBackend struct {
	mu            sync.Mutex
	token         string
	refreshes     atomic.Int32
	rejectRefresh atomic.Bool
	signed        []string
}

func (b *fakeBackend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token != "" && r.Header.Get("Authorization") == "Bearer "+b.token
}

func (b *fakeBackend) expire() {
	b.mu.Lock()
	b.token = "at-rotated"
	b.mu.Unlock()
}

func reply(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "data": data})
}

func (b *fakeBackend) private(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h(w, r)
	}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /public/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "KO", "message": "Identifiants invalides"})
			return
		}
		b.mu.Lock()
		b.token = "at-1"
		b.mu.Unlock()
		reply(w, http.StatusOK, map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
			"user":          map[string]any{"id": 7, "prenom": "Awa", "nom": "Diop", "email": body["email"]},
		})
	})
	mux.HandleFunc("POST /public/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if b.rejectRefresh.Load() || body["refreshToken"] != "rt-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		time.Sleep(150 * time.Millisecond)
		b.refreshes.Add(1)
		b.mu.Lock()
		b.token = "at-2"
		b.mu.Unlock()
		reply(w, http.StatusOK, map[string]any{"access_token": "at-2", "expires_in": 3600})
	})
	mux.HandleFunc("GET /private/demandes/recues", b.private(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []map[string]any{
			{"id": 1, "titre": "Contrat cadre", "status": "EN_ATTENTE_SIGNATURE", "priority": "HAUTE", "isCurrentUserSigner": true},
			{"id": 2, "titre": "Avenant", "status": "SIGNEE", "priority": "FAIBLE"},
		})
	}))
	mux.HandleFunc("GET /private/demandes/envoyees", b.private(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []map[string]any{
			{"id": 3, "titre": "Note de service", "status": "EN_ATTENTE_APPROBATION", "priority": "MOYENNE"},
		})
	}))
	mux.HandleFunc("POST /api/demandes/{id}/signer", b.private(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.signed = append(b.signed, r.PathValue("id"))
		b.mu.Unlock()
		reply(w, http.StatusOK, nil)
	}))
	mux.HandleFunc("GET /private/demandes/{id}", b.private(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "KO", "message": "Demande introuvable"})
	}))
	mux.HandleFunc("GET /private/archives/stats", b.private(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]int{"signedDocuments": 12, "archivedDocuments": 9})
	}))
	mux.HandleFunc("GET /private/documents/demande/{id}/signed", b.private(func(w http.ResponseWriter, r *http.Request) {
		docs := []map[string]any{{"id": 5, "nom": "Contrat Signé.pdf", "contentType": "application/pdf"}}
		if r.PathValue("id") == "2" {
			docs = append(docs, map[string]any{"id": 6, "nom": "contrat signe.pdf", "contentType": "application/pdf"})
		}
		reply(w, http.StatusOK, docs)
	}))
	mux.HandleFunc("GET /private/documents/{id}/download", b.private(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		content := documentContent
		if id := r.PathValue("id"); id != "5" {
			content += " " + id
		}
		_, _ = w.Write([]byte(content))
	}))
	return mux
}

const documentContent = "%PDF-1.4 signed"

// testEnv points the CLI at a fake backend and a throwaway home directory.
type testEnv struct {
	t       *testing.T
	backend *fakeBackend
	home    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	b := &fakeBackend{}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ESIGN_API_PREFIX", srv.URL)
	t.Setenv("ESIGN_DATABASE_PATH", filepath.Join(home, "esign.db"))
	t.Setenv("ESIGN_ACCESS_TOKEN_PERSIST_STRATEGY", "localStorage")
	return &testEnv{t: t, backend: b, home: home}
}

// exec runs the CLI with args and stdin and returns the exit code, stdout and stderr.
func (e *testEnv) exec(stdin string, args ...string) (int, string, string) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func (e *testEnv) login() {
	e.t.Helper()
	code, _, errOut := e.exec("secret\n", "login", "--email", "awa@esign.sn")
	if code != 0 {
		e.t.Fatalf("login failed with code %d: %s", code, errOut)
	}
}
