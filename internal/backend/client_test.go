package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/five82/ticketbook/internal/model"
	"github.com/five82/ticketbook/internal/result"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts Options) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	opts.BaseURL = server.URL
	opts.Logger = zerolog.Nop()
	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultBaseURL {
		t.Fatalf("default = %q, want %q", u.String(), defaultBaseURL)
	}

	u, err = parseBaseURL("api.example.com:9000/v1?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "api.example.com:9000" || u.Path != "" || u.RawQuery != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestMyTicketsDecodesEnvelopeAndSendsBearer(t *testing.T) {
	var gotAuth, gotAgent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tickets/me" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]any{{
				"id": 17, "title": "Wicked", "genre": "musical", "viewDate": "2026-02-01",
				"imageUrl": "https://img/1.png", "reviewText": "wow", "isPublic": false,
				"createdAt": "2026-02-02T10:00:00Z",
			}},
		})
	}, Options{Token: func() string { return "tok" }})

	res := c.MyTickets(context.Background())
	tickets, ok := res.Value()
	if !ok {
		t.Fatalf("MyTickets failed: %v", res.Err())
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotAgent != defaultUserAgent {
		t.Fatalf("User-Agent = %q", gotAgent)
	}
	if len(tickets) != 1 {
		t.Fatalf("tickets = %d, want 1", len(tickets))
	}
	tk := tickets[0]
	if tk.ID != "17" || tk.Status != model.StatusPrivate || tk.Review == nil || tk.Review.Text != "wow" {
		t.Fatalf("ticket = %+v", tk)
	}
	if len(tk.Images) != 1 || tk.PerformedAt.Format("2006-01-02") != "2026-02-01" {
		t.Fatalf("ticket images/date = %v / %v", tk.Images, tk.PerformedAt)
	}
}

func TestPlainJSONWithoutEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "t1", "title": "A", "isPublic": true}})
	}, Options{})

	tickets, ok := c.MyTickets(context.Background()).Value()
	if !ok || len(tickets) != 1 || tickets[0].Status != model.StatusPublic {
		t.Fatalf("tickets = %+v, ok = %v", tickets, ok)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   result.ErrorKind
	}{
		{http.StatusBadRequest, result.KindValidation},
		{http.StatusUnauthorized, result.KindUnauthorized},
		{http.StatusForbidden, result.KindForbidden},
		{http.StatusNotFound, result.KindNotFound},
		{http.StatusConflict, result.KindDuplicate},
		{http.StatusInternalServerError, result.KindServer},
		{http.StatusBadGateway, result.KindServer},
		{http.StatusTeapot, result.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var cleared atomic.Bool
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]any{
					"success": false,
					"error":   map[string]any{"code": "E", "message": "nope", "field": "title"},
				})
			}, Options{OnUnauthorized: func() { cleared.Store(true) }})

			res := c.DeleteTicket(context.Background(), "t1")
			if res.OK() {
				t.Fatalf("DeleteTicket succeeded")
			}
			err := res.Err()
			if err.Kind != tt.want {
				t.Fatalf("kind = %s, want %s", err.Kind, tt.want)
			}
			if err.Message != "nope" || err.Code != "E" {
				t.Fatalf("message/code = %q/%q", err.Message, err.Code)
			}
			if tt.status == http.StatusBadRequest && err.Field != "title" {
				t.Fatalf("field = %q, want title", err.Field)
			}
			if cleared.Load() != (tt.status == http.StatusUnauthorized) {
				t.Fatalf("OnUnauthorized called = %v", cleared.Load())
			}
		})
	}
}

func TestTimeoutAndNetworkErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, Options{Timeout: 20 * time.Millisecond})

	if err := c.MyTickets(context.Background()).Err(); err == nil || err.Kind != result.KindTimeout {
		t.Fatalf("slow server = %v, want TIMEOUT", err)
	}

	dead, err := NewClient(Options{BaseURL: "http://127.0.0.1:1", Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := dead.MyTickets(context.Background()).Err(); err == nil || err.Kind != result.KindNetwork {
		t.Fatalf("dead server = %v, want NETWORK", err)
	}
}

func TestBreakerOpensOnServerFailures(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "message": "down"})
	}, Options{})

	for i := 0; i < 5; i++ {
		if err := c.MyTickets(context.Background()).Err(); err.Kind != result.KindServer {
			t.Fatalf("call %d kind = %s, want SERVER", i, err.Kind)
		}
	}
	err := c.MyTickets(context.Background()).Err()
	if err.Kind != result.KindNetwork || err.Code != "CIRCUIT_OPEN" {
		t.Fatalf("after trip = %v, want open-circuit NETWORK", err)
	}
	if n := hits.Load(); n != 5 {
		t.Fatalf("server hits = %d, want 5", n)
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "missing"})
	}, Options{})
	for i := 0; i < 8; i++ {
		if err := c.DeleteTicket(context.Background(), "x").Err(); err.Kind != result.KindNotFound {
			t.Fatalf("call %d kind = %s, want NOT_FOUND", i, err.Kind)
		}
	}
}

func TestFriendshipEndpointsSendUserHeader(t *testing.T) {
	var gotUser, gotPath, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-User-Id")
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"id": 9, "fromUserId": "u1", "toUserId": "u2", "status": "pending"},
		})
	}, Options{})

	req, ok := c.SendFriendRequest(context.Background(), "u1", "u2").Value()
	if !ok {
		t.Fatalf("SendFriendRequest failed")
	}
	if gotUser != "u1" || gotPath != "/friendships/send" || !strings.Contains(gotBody, `"targetId":"u2"`) {
		t.Fatalf("header/path/body = %q %q %q", gotUser, gotPath, gotBody)
	}
	if req.ID != "9" || req.Status != model.RequestPending {
		t.Fatalf("request = %+v", req)
	}
}

func TestFriendsUnwrapsList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/friendships/u1/friends" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{"friends": []map[string]any{
				{"id": "u7", "user_id": "@kim", "nickname": "김", "friendshipId": 31},
			}},
		})
	}, Options{})

	friends, ok := c.Friends(context.Background(), "u1").Value()
	if !ok || len(friends) != 1 {
		t.Fatalf("friends = %v, ok = %v", friends, ok)
	}
	if friends[0].FriendshipID != "31" || friends[0].UserID != "@kim" {
		t.Fatalf("friend = %+v", friends[0])
	}
}

func TestLoginIsPublicAndDecodesSession(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"token": "jwt", "type": "Bearer", "expiresIn": 3600, "role": "USER"},
		})
	}, Options{Token: func() string { return "stale" }})

	sess, ok := c.Login(context.Background(), "kim01", "pw").Value()
	if !ok || sess.Token != "jwt" || sess.ExpiresIn != 3600 {
		t.Fatalf("session = %+v, ok = %v", sess, ok)
	}
	if gotAuth != "" {
		t.Fatalf("login sent Authorization %q", gotAuth)
	}
}

func TestUpdateTicketSendsOnlyPresentFields(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/tickets/42" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": 42, "title": "New"}})
	}, Options{})

	res := c.UpdateTicket(context.Background(), "42", model.TicketPatch{
		Title:  model.Ptr("New"),
		Status: model.Ptr(model.StatusPublic),
	})
	if !res.OK() {
		t.Fatalf("UpdateTicket failed: %v", res.Err())
	}
	if len(body) != 2 || body["title"] != "New" || body["isPublic"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, Options{})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping = %v, want nil for any HTTP answer", err)
	}
}
