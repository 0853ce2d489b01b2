package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/guitarbuddy/backend/internal/logging"
	"github.com/guitarbuddy/backend/internal/metrics"
)

// LobbyTopic is the topic published on the Notifier whenever the set of
// live sessions or their membership changes.
const LobbyTopic = "live"

const (
	defaultSendBuffer     = 64
	defaultPersistTimeout = 5 * time.Second
	persistQueueSize      = 256
	maxCodeAttempts       = 16
)

var ErrShuttingDown = errors.New("live coordinator is shutting down")

// Notifier receives a signal per topic. broker.Broker satisfies it.
type Notifier interface {
	Publish(topic string)
}

// Options configures a Coordinator. Zero values select defaults.
type Options struct {
	// SendBuffer is the per connection outbound queue length.
	SendBuffer int
	// MessagesPerSecond caps inbound frames per connection. 0 disables the cap.
	MessagesPerSecond int
	// IdleTimeout ends sessions with no activity for this long. 0 disables it.
	IdleTimeout time.Duration
	// PersistTimeout bounds a single snapshot write.
	PersistTimeout time.Duration
	Persister      Persister
	Notifier       Notifier
	Now            func() time.Time
}

// Coordinator owns every live session and connection. A single mutex
// guards the session store, each Session and each Conn's session code.
type Coordinator struct {
	mu       sync.Mutex
	registry *registry
	store    *store
	closed   bool

	sendBuffer  int
	perSecond   int
	idleTimeout time.Duration
	now         func() time.Time
	notifier    Notifier

	persister      Persister
	persistTimeout time.Duration
	persistQueue   chan Snapshot
	persistDone    chan struct{}
}

// NewCoordinator creates a Coordinator and starts its snapshot writer when a
// Persister is configured.
func NewCoordinator(opts Options) *Coordinator {
	c := &Coordinator{
		registry:       newRegistry(),
		store:          newStore(),
		sendBuffer:     opts.SendBuffer,
		perSecond:      opts.MessagesPerSecond,
		idleTimeout:    opts.IdleTimeout,
		now:            opts.Now,
		notifier:       opts.Notifier,
		persister:      opts.Persister,
		persistTimeout: opts.PersistTimeout,
	}
	if c.sendBuffer <= 0 {
		c.sendBuffer = defaultSendBuffer
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.persistTimeout <= 0 {
		c.persistTimeout = defaultPersistTimeout
	}
	if c.persister != nil {
		c.persistQueue = make(chan Snapshot, persistQueueSize)
		c.persistDone = make(chan struct{})
		go c.runPersister()
	}
	return c
}

// Connect registers an authenticated connection.
func (c *Coordinator) Connect(identity Identity) (*Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrShuttingDown
	}
	conn := newConn(identity, c.sendBuffer, c.perSecond)
	c.registry.add(conn)
	metrics.LiveConnections.Set(float64(c.registry.len()))
	slog.Debug("live connection registered",
		slog.Uint64("conn_id", uint64(conn.id)),
		slog.String("user_id", identity.UserID))
	return conn, nil
}

// HandleFrame decodes one inbound text frame and applies it. Frames that
// fail decoding or exceed the connection's rate are dropped without a reply.
func (c *Coordinator) HandleFrame(conn *Conn, frame []byte) {
	if !conn.allow() {
		metrics.LiveFramesDropped.WithLabelValues("rate_limited").Inc()
		return
	}
	cmd, err := DecodeCommand(frame)
	if err != nil {
		metrics.LiveFramesDropped.WithLabelValues("malformed").Inc()
		slog.Debug("dropping live frame",
			slog.Uint64("conn_id", uint64(conn.id)),
			slog.String("error", err.Error()))
		return
	}
	c.Handle(conn, cmd)
}

// Handle applies a decoded command on behalf of conn.
func (c *Coordinator) Handle(conn *Conn, cmd Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, ok := c.registry.get(conn.id); !ok {
		return
	}

	metrics.LiveCommands.WithLabelValues(cmd.Type()).Inc()

	switch cmd := cmd.(type) {
	case *CreateSession:
		c.createSession(conn, cmd)
	case *JoinSession:
		c.joinSession(conn, cmd)
	case *SyncState:
		c.syncState(conn, cmd)
	case *LeaveSession:
		c.leaveSession(conn, cmd)
	case *EndSession:
		c.endSessionCmd(conn, cmd)
	}
}

// Disconnect releases a connection and reconciles the session it belonged
// to. Only the first call for a connection has any effect.
func (c *Coordinator) Disconnect(conn *Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.registry.remove(conn.id) {
		return
	}
	c.detach(conn, reasonHostDisconnected)
	conn.close()
	metrics.LiveConnections.Set(float64(c.registry.len()))
	slog.Debug("live connection released", slog.Uint64("conn_id", uint64(conn.id)))
}

// SessionSummary is the public lobby view of an active session.
type SessionSummary struct {
	Code             string    `json:"code"`
	HostEmail        string    `json:"hostEmail"`
	HostName         string    `json:"hostName,omitempty"`
	SongIndex        int       `json:"songIndex"`
	ParticipantCount int       `json:"participantCount"`
	CreatedAt        time.Time `json:"createdAt"`
	LastActivityAt   time.Time `json:"lastActivityAt"`
}

// Sessions lists the active sessions ordered by creation time.
func (c *Coordinator) Sessions() []SessionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.store.all()
	out := make([]SessionSummary, 0, len(all))
	for _, s := range all {
		out = append(out, SessionSummary{
			Code:             s.Code,
			HostEmail:        s.Host.Email,
			HostName:         s.Host.DisplayName,
			SongIndex:        s.SongIdx,
			ParticipantCount: len(s.participants),
			CreatedAt:        s.Created,
			LastActivityAt:   s.Activity,
		})
	}
	return out
}

// Stats returns the number of registered connections and active sessions.
func (c *Coordinator) Stats() (connections, sessions int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.len(), c.store.len()
}

// Shutdown ends every session, notifying hosts and followers, closes every
// connection and waits for queued snapshots to be written or ctx to expire.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	for _, s := range c.store.all() {
		c.endSession(s, reasonShutdown, true)
	}
	for _, conn := range c.registry.all() {
		conn.close()
	}
	c.closed = true
	if c.persistQueue != nil {
		close(c.persistQueue)
	}
	c.mu.Unlock()

	if c.persistDone == nil {
		return nil
	}
	select {
	case <-c.persistDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) publishLobby() {
	if c.notifier != nil {
		c.notifier.Publish(LobbyTopic)
	}
}

func (c *Coordinator) setSessionGauge() {
	metrics.LiveSessions.Set(float64(c.store.len()))
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode live message",
			slog.Any("error", logging.WrapError(err, "encode live message")))
		return nil
	}
	return b
}
