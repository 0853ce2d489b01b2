package live

import (
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/guitarbuddy/backend/internal/metrics"
)

// ConnID identifies a connection for its whole lifetime. IDs are assigned
// from a monotonically increasing counter so participant lists can be
// ordered deterministically. Zero is never assigned.
type ConnID uint64

var connIDCounter atomic.Uint64

// Identity is the authenticated user behind a connection.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

// Conn is one authenticated WebSocket connection as seen by the coordinator.
// The transport drains Outbound and writes each payload as a text frame.
type Conn struct {
	id       ConnID
	identity Identity
	limiter  *rate.Limiter

	mu     sync.Mutex
	send   chan []byte
	closed bool

	// sessionCode is the session this connection hosts or follows, or empty.
	// Guarded by Coordinator.mu.
	sessionCode string
}

func newConn(identity Identity, buffer int, perSecond int) *Conn {
	if buffer < 1 {
		buffer = 1
	}
	limit := rate.Inf
	burst := 0
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = perSecond
	}
	return &Conn{
		id:       ConnID(connIDCounter.Add(1)),
		identity: identity,
		limiter:  rate.NewLimiter(limit, burst),
		send:     make(chan []byte, buffer),
	}
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() ConnID {
	return c.id
}

// Identity returns the authenticated user behind the connection.
func (c *Conn) Identity() Identity {
	return c.identity
}

// Outbound returns the channel of encoded messages waiting to be written.
// It is closed when the coordinator releases the connection.
func (c *Conn) Outbound() <-chan []byte {
	return c.send
}

// enqueue queues msg without blocking. Messages for closed connections or
// connections whose buffer is full are dropped.
func (c *Conn) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		metrics.LiveMessagesDropped.Inc()
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		metrics.LiveMessagesDropped.Inc()
		return false
	}
}

// close marks the connection closed and closes its outbound channel. Safe to
// call more than once.
func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) allow() bool {
	return c.limiter.Allow()
}

func (c *Conn) participant() Participant {
	return Participant{
		UserID: c.identity.UserID,
		Email:  c.identity.Email,
		Name:   c.identity.DisplayName,
	}
}
