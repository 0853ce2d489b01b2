package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

// Test helpers

func newTestCoordinator(t *testing.T, opts Options) *Coordinator {
	t.Helper()
	c := NewCoordinator(opts)
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return c
}

func connect(t *testing.T, c *Coordinator, name string) *Conn {
	t.Helper()
	conn, err := c.Connect(Identity{UserID: "user-" + name, Email: name + "@example.com", DisplayName: name})
	if err != nil {
		t.Fatalf("Connect(%s) failed: %v", name, err)
	}
	return conn
}

func send(t *testing.T, c *Coordinator, conn *Conn, msg map[string]any) {
	t.Helper()
	frame, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	c.HandleFrame(conn, frame)
}

// drain returns every message queued for conn without blocking.
func drain(t *testing.T, conn *Conn) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case frame, ok := <-conn.Outbound():
			if !ok {
				return out
			}
			var m map[string]any
			if err := json.Unmarshal(frame, &m); err != nil {
				t.Fatalf("unmarshal outbound frame %s: %v", frame, err)
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func expectOne(t *testing.T, conn *Conn, wantType string) map[string]any {
	t.Helper()
	msgs := drain(t, conn)
	if len(msgs) != 1 {
		t.Fatalf("conn %d got %d messages %v, want exactly one %q", conn.ID(), len(msgs), msgs, wantType)
	}
	if msgs[0]["type"] != wantType {
		t.Fatalf("conn %d got %q, want %q: %v", conn.ID(), msgs[0]["type"], wantType, msgs[0])
	}
	return msgs[0]
}

func expectNone(t *testing.T, conn *Conn) {
	t.Helper()
	if msgs := drain(t, conn); len(msgs) != 0 {
		t.Fatalf("conn %d got unexpected messages: %v", conn.ID(), msgs)
	}
}

func participantEmails(t *testing.T, msg map[string]any) []string {
	t.Helper()
	raw, ok := msg["participants"].([]any)
	if !ok {
		t.Fatalf("participants missing or not a list: %v", msg)
	}
	emails := make([]string, 0, len(raw))
	for _, p := range raw {
		emails = append(emails, p.(map[string]any)["email"].(string))
	}
	return emails
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func createSession(t *testing.T, c *Coordinator, host *Conn, code string) string {
	t.Helper()
	send(t, c, host, map[string]any{"type": "create_session", "code": code, "setlist": []string{"s1", "s2"}, "songIndex": 0})
	msg := expectOne(t, host, TypeSessionCreated)
	return msg["code"].(string)
}

func joinSession(t *testing.T, c *Coordinator, conn *Conn, code string) map[string]any {
	t.Helper()
	send(t, c, conn, map[string]any{"type": "join_session", "code": code})
	return expectOne(t, conn, TypeSessionJoined)
}

// Tests

func TestFullSessionLifecycle(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p1 := connect(t, c, "p1")
	p2 := connect(t, c, "p2")

	send(t, c, host, map[string]any{"type": "create_session", "code": "ABC123", "setlist": []string{"s1", "s2"}, "songIndex": 0})
	created := expectOne(t, host, TypeSessionCreated)
	if created["code"] != "ABC123" {
		t.Errorf("code = %v, want ABC123", created["code"])
	}
	if got := participantEmails(t, created); len(got) != 0 {
		t.Errorf("participants = %v, want empty", got)
	}

	joined := joinSession(t, c, p1, "ABC123")
	if got := participantEmails(t, joined); !equalStrings(got, []string{"p1@example.com"}) {
		t.Errorf("participants = %v", got)
	}
	setlist, _ := joined["setlist"].([]any)
	if len(setlist) != 2 || setlist[0] != "s1" {
		t.Errorf("setlist = %v, want [s1 s2]", joined["setlist"])
	}
	if joined["songIndex"] != float64(0) || joined["scrollPosition"] != float64(0) {
		t.Errorf("songIndex/scrollPosition = %v/%v, want 0/0", joined["songIndex"], joined["scrollPosition"])
	}
	notice := expectOne(t, host, TypeParticipantJoined)
	if notice["email"] != "p1@example.com" {
		t.Errorf("participant_joined email = %v", notice["email"])
	}

	joinSession(t, c, p2, "ABC123")
	for _, conn := range []*Conn{host, p1} {
		msg := expectOne(t, conn, TypeParticipantJoined)
		if got := participantEmails(t, msg); !equalStrings(got, []string{"p1@example.com", "p2@example.com"}) {
			t.Errorf("participants = %v", got)
		}
	}

	send(t, c, host, map[string]any{"type": "sync_state", "code": "ABC123", "senderId": "user-host", "songIndex": 1, "scrollPosition": 120})
	for _, conn := range []*Conn{p1, p2} {
		msg := expectOne(t, conn, TypeSyncState)
		if msg["songIndex"] != float64(1) || msg["scrollPosition"] != float64(120) {
			t.Errorf("sync_state = %v", msg)
		}
		if msg["senderId"] != "user-host" {
			t.Errorf("senderId = %v", msg["senderId"])
		}
	}
	expectNone(t, host)

	c.Disconnect(p1)
	for _, conn := range []*Conn{host, p2} {
		msg := expectOne(t, conn, TypeParticipantLeft)
		if msg["email"] != "p1@example.com" {
			t.Errorf("participant_left email = %v", msg["email"])
		}
		if got := participantEmails(t, msg); !equalStrings(got, []string{"p2@example.com"}) {
			t.Errorf("participants = %v", got)
		}
	}

	c.Disconnect(host)
	expectOne(t, p2, TypeSessionEnded)
	if _, sessions := c.Stats(); sessions != 0 {
		t.Errorf("sessions = %d, want 0", sessions)
	}

	// p2 is no longer in any session.
	send(t, c, p2, map[string]any{"type": "join_session", "code": "ABC123"})
	msg := expectOne(t, p2, TypeError)
	if msg["message"] != MsgSessionNotFound {
		t.Errorf("message = %v", msg["message"])
	}
}

func TestCreateSessionGeneratesCode(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")

	send(t, c, host, map[string]any{"type": "create_session", "setlist": []string{}})
	msg := expectOne(t, host, TypeSessionCreated)
	code, _ := msg["code"].(string)
	if len(code) != CodeLength {
		t.Fatalf("generated code %q has wrong length", code)
	}

	p := connect(t, c, "p")
	joinSession(t, c, p, code)
}

func TestCreateSessionCollision(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	h1 := connect(t, c, "h1")
	h2 := connect(t, c, "h2")
	p := connect(t, c, "p")

	createSession(t, c, h1, "ROCK42")
	joinSession(t, c, p, "ROCK42")
	drain(t, h1)

	send(t, c, h2, map[string]any{"type": "create_session", "code": "rock42", "setlist": []string{}})
	msg := expectOne(t, h2, TypeError)
	if msg["message"] != MsgCodeInUse {
		t.Errorf("message = %v", msg["message"])
	}

	// The original session is untouched.
	send(t, c, h1, map[string]any{"type": "sync_state", "code": "ROCK42", "senderId": "user-h1", "songIndex": 3})
	if got := expectOne(t, p, TypeSyncState); got["songIndex"] != float64(3) {
		t.Errorf("songIndex = %v, want 3", got["songIndex"])
	}
	expectNone(t, h2)
}

func TestJoinUnknownSession(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	p := connect(t, c, "p")

	send(t, c, p, map[string]any{"type": "join_session", "code": "NOPE99"})
	msg := expectOne(t, p, TypeError)
	if msg["message"] != MsgSessionNotFound {
		t.Errorf("message = %v, want %q", msg["message"], MsgSessionNotFound)
	}
}

func TestJoinIsCaseInsensitive(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p := connect(t, c, "p")

	code := createSession(t, c, host, "abc123")
	if code != "ABC123" {
		t.Fatalf("code = %q, want ABC123", code)
	}
	joined := joinSession(t, c, p, " abc123 ")
	if joined["code"] != "ABC123" {
		t.Errorf("joined code = %v", joined["code"])
	}
}

func TestRejoinResendsState(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p := connect(t, c, "p")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p, "ABC123")
	drain(t, host)

	send(t, c, host, map[string]any{"type": "sync_state", "code": "ABC123", "senderId": "user-host", "songIndex": 1})
	drain(t, p)

	joined := joinSession(t, c, p, "ABC123")
	if joined["songIndex"] != float64(1) {
		t.Errorf("songIndex = %v, want 1", joined["songIndex"])
	}
	if got := participantEmails(t, joined); len(got) != 1 {
		t.Errorf("participant listed %d times", len(got))
	}
	expectNone(t, host)
}

func TestHostCannotJoinOwnSession(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")

	createSession(t, c, host, "ABC123")
	send(t, c, host, map[string]any{"type": "join_session", "code": "ABC123"})
	msg := expectOne(t, host, TypeError)
	if msg["message"] != MsgAlreadyHosting {
		t.Errorf("message = %v", msg["message"])
	}
	if _, sessions := c.Stats(); sessions != 1 {
		t.Errorf("sessions = %d, want 1", sessions)
	}
}

func TestJoiningAnotherSessionLeavesFirst(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	h1 := connect(t, c, "h1")
	h2 := connect(t, c, "h2")
	p := connect(t, c, "p")

	createSession(t, c, h1, "AAAAAA")
	createSession(t, c, h2, "BBBBBB")
	joinSession(t, c, p, "AAAAAA")
	drain(t, h1)

	joinSession(t, c, p, "BBBBBB")
	left := expectOne(t, h1, TypeParticipantLeft)
	if got := participantEmails(t, left); len(got) != 0 {
		t.Errorf("participants = %v, want empty", got)
	}
	expectOne(t, h2, TypeParticipantJoined)

	// Syncs from the first host no longer reach p.
	send(t, c, h1, map[string]any{"type": "sync_state", "code": "AAAAAA", "senderId": "user-h1", "songIndex": 2})
	expectNone(t, p)
}

func TestHostCreatingNewSessionEndsOld(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p := connect(t, c, "p")

	createSession(t, c, host, "OLD111")
	joinSession(t, c, p, "OLD111")
	drain(t, host)

	createSession(t, c, host, "NEW222")
	expectOne(t, p, TypeSessionEnded)

	sessions := c.Sessions()
	if len(sessions) != 1 || sessions[0].Code != "NEW222" {
		t.Errorf("sessions = %+v, want only NEW222", sessions)
	}
}

func TestSyncStatePartialUpdate(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p := connect(t, c, "p")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p, "ABC123")
	drain(t, host)

	send(t, c, host, map[string]any{"type": "sync_state", "code": "ABC123", "senderId": "user-host", "songIndex": 1, "scrollPosition": 40})
	drain(t, p)

	send(t, c, host, map[string]any{"type": "sync_state", "code": "ABC123", "senderId": "user-host", "scrollPosition": 88.5})
	msg := expectOne(t, p, TypeSyncState)
	if msg["songIndex"] != float64(1) {
		t.Errorf("songIndex = %v, want 1 kept", msg["songIndex"])
	}
	if msg["scrollPosition"] != float64(88.5) {
		t.Errorf("scrollPosition = %v, want 88.5", msg["scrollPosition"])
	}
	if setlist, _ := msg["setlist"].([]any); len(setlist) != 2 {
		t.Errorf("setlist = %v, want original kept", msg["setlist"])
	}

	send(t, c, host, map[string]any{"type": "sync_state", "code": "ABC123", "senderId": "user-host", "setlist": []string{"s9"}})
	msg = expectOne(t, p, TypeSyncState)
	if setlist, _ := msg["setlist"].([]any); len(setlist) != 1 || setlist[0] != "s9" {
		t.Errorf("setlist = %v, want [s9]", msg["setlist"])
	}
	if msg["scrollPosition"] != float64(88.5) {
		t.Errorf("scrollPosition = %v, want 88.5 kept", msg["scrollPosition"])
	}
}

func TestSyncStateFromNonHostIgnored(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p1 := connect(t, c, "p1")
	p2 := connect(t, c, "p2")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p1, "ABC123")
	joinSession(t, c, p2, "ABC123")
	drain(t, host)
	drain(t, p1)

	send(t, c, p1, map[string]any{"type": "sync_state", "code": "ABC123", "senderId": "user-p1", "songIndex": 5})
	expectNone(t, host)
	expectNone(t, p1)
	expectNone(t, p2)

	joined := joinSession(t, c, p2, "ABC123")
	if joined["songIndex"] != float64(0) {
		t.Errorf("songIndex = %v, want unchanged 0", joined["songIndex"])
	}
}

func TestLeaveSession(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p := connect(t, c, "p")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p, "ABC123")
	drain(t, host)

	send(t, c, p, map[string]any{"type": "leave_session", "code": "abc123"})
	msg := expectOne(t, host, TypeParticipantLeft)
	if msg["email"] != "p@example.com" {
		t.Errorf("email = %v", msg["email"])
	}
	expectNone(t, p)

	send(t, c, host, map[string]any{"type": "sync_state", "code": "ABC123", "senderId": "user-host", "songIndex": 1})
	expectNone(t, p)

	// Leaving again is a no-op.
	send(t, c, p, map[string]any{"type": "leave_session", "code": "ABC123"})
	expectNone(t, host)
}

func TestHostLeaveIsNoop(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p := connect(t, c, "p")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p, "ABC123")
	drain(t, host)

	send(t, c, host, map[string]any{"type": "leave_session", "code": "ABC123"})
	expectNone(t, host)
	expectNone(t, p)
	if _, sessions := c.Stats(); sessions != 1 {
		t.Errorf("sessions = %d, want 1", sessions)
	}
}

func TestEndSession(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p1 := connect(t, c, "p1")
	p2 := connect(t, c, "p2")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p1, "ABC123")
	joinSession(t, c, p2, "ABC123")
	drain(t, host)
	drain(t, p1)

	// Followers cannot end the session.
	send(t, c, p1, map[string]any{"type": "end_session", "code": "ABC123"})
	expectNone(t, host)
	expectNone(t, p2)

	send(t, c, host, map[string]any{"type": "end_session", "code": "ABC123"})
	expectOne(t, p1, TypeSessionEnded)
	expectOne(t, p2, TypeSessionEnded)
	expectNone(t, host)

	if _, sessions := c.Stats(); sessions != 0 {
		t.Errorf("sessions = %d, want 0", sessions)
	}

	// The code is free again.
	createSession(t, c, p1, "ABC123")
}

func TestMalformedFramesDropped(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p := connect(t, c, "p")
	createSession(t, c, host, "ABC123")
	joinSession(t, c, p, "ABC123")
	drain(t, host)

	frames := []string{
		`not json`,
		`{"type":"unknown"}`,
		`{"type":"join_session"}`,
		`{"type":"sync_state","code":"ABC123","senderId":"user-host","songIndex":"x"}`,
		`{"type":"sync_state","code":"ABC123"}`,
		`42`,
	}
	for _, f := range frames {
		c.HandleFrame(host, []byte(f))
		c.HandleFrame(p, []byte(f))
	}
	expectNone(t, host)
	expectNone(t, p)

	joined := joinSession(t, c, p, "ABC123")
	if joined["songIndex"] != float64(0) {
		t.Errorf("state changed by malformed frames: %v", joined)
	}
}

func TestRateLimitDropsFrames(t *testing.T) {
	c := newTestCoordinator(t, Options{MessagesPerSecond: 1})
	p := connect(t, c, "p")

	send(t, c, p, map[string]any{"type": "join_session", "code": "NOPE99"})
	expectOne(t, p, TypeError)

	send(t, c, p, map[string]any{"type": "join_session", "code": "NOPE99"})
	expectNone(t, p)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p1 := connect(t, c, "p1")
	p2 := connect(t, c, "p2")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p1, "ABC123")
	joinSession(t, c, p2, "ABC123")
	drain(t, host)
	drain(t, p1)

	c.Disconnect(p1)
	c.Disconnect(p1)
	expectOne(t, host, TypeParticipantLeft)
	expectOne(t, p2, TypeParticipantLeft)

	c.Disconnect(host)
	c.Disconnect(host)
	expectOne(t, p2, TypeSessionEnded)

	if conns, _ := c.Stats(); conns != 1 {
		t.Errorf("connections = %d, want 1", conns)
	}
	if _, ok := <-p1.Outbound(); ok {
		t.Error("outbound channel of released connection should be closed")
	}
}

func TestConcurrentCommands(t *testing.T) {
	c := newTestCoordinator(t, Options{SendBuffer: 1024})
	host := connect(t, c, "host")
	createSession(t, c, host, "ABC123")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := c.Connect(Identity{UserID: "u", Email: "p@example.com"})
			if err != nil {
				t.Errorf("Connect: %v", err)
				return
			}
			frame, _ := json.Marshal(map[string]any{"type": "join_session", "code": "ABC123"})
			c.HandleFrame(p, frame)
			if i%2 == 0 {
				c.Disconnect(p)
			}
		}(i)
	}
	wg.Wait()

	sessions := c.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if sessions[0].ParticipantCount != 10 {
		t.Errorf("ParticipantCount = %d, want 10", sessions[0].ParticipantCount)
	}
}

func TestReapIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)
	c := newTestCoordinator(t, Options{IdleTimeout: 10 * time.Minute, Now: func() time.Time { return now }})
	host := connect(t, c, "host")
	p := connect(t, c, "p")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p, "ABC123")
	drain(t, host)

	if n := c.ReapIdle(now.Add(5 * time.Minute)); n != 0 {
		t.Fatalf("reaped %d sessions before timeout", n)
	}
	if n := c.ReapIdle(now.Add(11 * time.Minute)); n != 1 {
		t.Fatalf("reaped %d sessions, want 1", n)
	}
	expectOne(t, host, TypeSessionEnded)
	expectOne(t, p, TypeSessionEnded)
}

func TestReapIdleDisabled(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	createSession(t, c, host, "ABC123")

	if n := c.ReapIdle(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("reaped %d sessions with reaping disabled", n)
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	topics []string
}

func (n *recordingNotifier) Publish(topic string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topic)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.topics)
}

func TestLobbyNotifications(t *testing.T) {
	n := &recordingNotifier{}
	c := newTestCoordinator(t, Options{Notifier: n})
	host := connect(t, c, "host")
	p := connect(t, c, "p")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p, "ABC123")
	send(t, c, host, map[string]any{"type": "end_session", "code": "ABC123"})

	if got := n.count(); got != 3 {
		t.Errorf("published %d times, want 3", got)
	}
	for _, topic := range n.topics {
		if topic != LobbyTopic {
			t.Errorf("topic = %q, want %q", topic, LobbyTopic)
		}
	}
}

type recordingPersister struct {
	mu    sync.Mutex
	snaps []Snapshot
	err   error
}

func (p *recordingPersister) PersistSnapshot(_ context.Context, snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	return p.err
}

func TestPersistSnapshots(t *testing.T) {
	p := &recordingPersister{}
	c := NewCoordinator(Options{Persister: p})
	host := connect(t, c, "host")
	follower := connect(t, c, "f")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, follower, "ABC123")
	// Scroll-only updates are not persisted.
	send(t, c, host, map[string]any{"type": "sync_state", "code": "ABC123", "senderId": "user-host", "scrollPosition": 10})
	send(t, c, host, map[string]any{"type": "sync_state", "code": "ABC123", "senderId": "user-host", "songIndex": 1})
	send(t, c, host, map[string]any{"type": "end_session", "code": "ABC123"})

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snaps) != 4 {
		t.Fatalf("got %d snapshots, want 4: %+v", len(p.snaps), p.snaps)
	}
	if p.snaps[1].ParticipantCount != 1 {
		t.Errorf("join snapshot ParticipantCount = %d, want 1", p.snaps[1].ParticipantCount)
	}
	if p.snaps[2].SongIndex != 1 || p.snaps[2].ScrollPosition != 10 {
		t.Errorf("sync snapshot = %+v", p.snaps[2])
	}
	last := p.snaps[3]
	if !last.Ended || last.HostID != "user-host" || last.Code != "ABC123" {
		t.Errorf("final snapshot = %+v", last)
	}
}

func TestPersistFailureDoesNotAffectSession(t *testing.T) {
	p := &recordingPersister{err: errors.New("disk full")}
	c := newTestCoordinator(t, Options{Persister: p})
	host := connect(t, c, "host")
	follower := connect(t, c, "f")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, follower, "ABC123")
	expectOne(t, host, TypeParticipantJoined)
}

func TestShutdown(t *testing.T) {
	c := NewCoordinator(Options{})
	host := connect(t, c, "host")
	p := connect(t, c, "p")
	idle := connect(t, c, "idle")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p, "ABC123")
	drain(t, host)

	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	expectOne(t, host, TypeSessionEnded)
	expectOne(t, p, TypeSessionEnded)
	for _, conn := range []*Conn{host, p, idle} {
		if _, ok := <-conn.Outbound(); ok {
			t.Errorf("conn %d outbound still open", conn.ID())
		}
	}

	if _, err := c.Connect(Identity{UserID: "late"}); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Connect after shutdown err = %v, want ErrShuttingDown", err)
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}

func TestSessionsSummary(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(t, c, "host")
	p := connect(t, c, "p")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p, "ABC123")

	sessions := c.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("len(Sessions()) = %d, want 1", len(sessions))
	}
	s := sessions[0]
	if s.Code != "ABC123" || s.HostEmail != "host@example.com" || s.HostName != "host" || s.ParticipantCount != 1 {
		t.Errorf("summary = %+v", s)
	}
}

func TestSlowConsumerDoesNotBlock(t *testing.T) {
	c := newTestCoordinator(t, Options{SendBuffer: 1})
	host := connect(t, c, "host")
	p := connect(t, c, "p")

	createSession(t, c, host, "ABC123")
	joinSession(t, c, p, "ABC123")

	done := make(chan struct{})
	go func() {
		for i := range 50 {
			frame, _ := json.Marshal(map[string]any{"type": "sync_state", "code": "ABC123", "senderId": "user-host", "scrollPosition": i})
			c.HandleFrame(host, frame)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sync broadcasts blocked on a saturated follower")
	}
	if msgs := drain(t, p); len(msgs) != 1 {
		t.Errorf("follower buffered %d messages, want 1", len(msgs))
	}
}
