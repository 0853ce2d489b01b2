package handlers_test

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/guitarbuddy/backend/internal/live"
)

// nextData reads SSE lines until the next data payload.
func nextData(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestLiveStream(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("amy@example.com", "Amy")

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/live/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	if got := nextData(t, reader); got != "[]" {
		t.Errorf("initial lobby = %s, want []", got)
	}

	host, err := env.coord.Connect(live.Identity{UserID: "h", Email: "host@example.com"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	env.coord.HandleFrame(host, []byte(`{"type":"create_session","code":"ABC123"}`))

	if got := nextData(t, reader); !strings.Contains(got, `"code":"ABC123"`) {
		t.Errorf("lobby after create = %s", got)
	}
}

func TestLiveStreamRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/live/stream", "", nil)
	expectError(t, rec, http.StatusUnauthorized, "missing_token")
}
