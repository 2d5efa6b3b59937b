package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"github.com/five82/ticketbook/internal/cell"
)

func newTestApp(t *testing.T, h http.HandlerFunc) *App {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg := "api_url = \"" + server.URL + "\"\ntoken_store = \"memory\"\nlog_level = \"disabled\"\n"
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	a, err := New(context.Background(), Options{
		ConfigPath: path,
		PrefsPath:  filepath.Join(dir, "prefs.toml"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func journalServer(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		writeJSON(w, map[string]any{
			"success": true,
			"data":    map[string]any{"token": "opaque-token", "type": "Bearer", "expiresIn": 3600, "role": "USER"},
		})
	case "/users/me":
		writeJSON(w, map[string]any{
			"success": true,
			"data":    map[string]any{"id": "user_1", "nickname": "하늘", "email": "sky@example.com"},
		})
	case "/tickets/me":
		writeJSON(w, map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": 1, "title": "Wicked", "venue": "Blue Square", "viewDate": "2026-02-01", "isPublic": true},
				{"id": 2, "title": "Hamlet", "venue": "Arts Center", "viewDate": "2026-03-01", "isPublic": false},
			},
		})
	default:
		http.NotFound(w, r)
	}
}

func TestGuestRefreshMakesNoRequests(t *testing.T) {
	var hits atomic.Int32
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	})

	if !a.Refresh(context.Background(), true) {
		t.Fatalf("guest refresh reported failure")
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("server hits = %d, want 0", n)
	}
	if err := a.ListTickets(context.Background(), &bytes.Buffer{}, "", false); !errors.Is(err, ErrSignedOut) {
		t.Fatalf("ListTickets = %v, want ErrSignedOut", err)
	}
}

func TestLoginThenListTickets(t *testing.T) {
	a := newTestApp(t, journalServer)
	ctx := context.Background()

	if err := a.Login(ctx, "kim01", "password123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := cell.Get(a.State.Store, a.State.Session.CurrentUserID); got != "user_1" {
		t.Fatalf("user = %q", got)
	}

	var who bytes.Buffer
	if err := a.Whoami(&who); err != nil || !strings.Contains(who.String(), "하늘 (user_1)") {
		t.Fatalf("whoami = %q, %v", who.String(), err)
	}

	var out bytes.Buffer
	if err := a.ListTickets(ctx, &out, "PRIVATE", false); err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Hamlet") || strings.Contains(text, "Wicked") {
		t.Fatalf("private listing:\n%s", text)
	}
	if !strings.Contains(text, "2 total, 1 public, 1 private") {
		t.Fatalf("summary missing:\n%s", text)
	}
}

func TestLoginRejectsShortPassword(t *testing.T) {
	var hits atomic.Int32
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		journalServer(w, r)
	})

	if err := a.Login(context.Background(), "kim01", "short"); err == nil {
		t.Fatalf("Login accepted a short password")
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("server hits = %d, want 0", n)
	}
}

func TestWriteMetricsListsRemoteCalls(t *testing.T) {
	a := newTestApp(t, journalServer)
	if err := a.Login(context.Background(), "kim01", "password123"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	var out bytes.Buffer
	if err := a.WriteMetrics(&out); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	for _, want := range []string{
		"# TYPE ticketbook_remote_calls_total counter",
		"ticketbook_remote_call_duration_seconds_bucket{",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("metrics missing %q:\n%s", want, out.String())
		}
	}
}
