package live

import (
	"log/slog"

	"github.com/guitarbuddy/backend/internal/metrics"
)

// Reasons a session ends.
const (
	reasonHostEnded        = "host_ended"
	reasonHostDisconnected = "host_disconnected"
	reasonHostMoved        = "host_moved"
	reasonIdle             = "idle"
	reasonShutdown         = "shutdown"
)

// detach removes conn from the session it belongs to. A host's session is
// ended. A follower is removed and the rest of the session is told.
func (c *Coordinator) detach(conn *Conn, reason string) {
	code := conn.sessionCode
	if code == "" {
		return
	}
	if s, ok := c.store.get(code); ok {
		if s.HostID == conn.id {
			c.endSession(s, reason, false)
		} else if s.hasParticipant(conn.id) {
			c.removeParticipant(s, conn)
		}
	}
	conn.sessionCode = ""
}

func (c *Coordinator) removeParticipant(s *Session, conn *Conn) {
	delete(s.participants, conn.id)
	conn.sessionCode = ""
	s.Activity = c.now()

	c.broadcast(s, encode(participantMsg{
		Type:         TypeParticipantLeft,
		Email:        conn.identity.Email,
		Participants: s.participantList(),
	}), conn.id)
	c.persist(s, false)
	c.publishLobby()
}

// endSession notifies every follower, and the host when notifyHost is set,
// then removes the session from the store.
func (c *Coordinator) endSession(s *Session, reason string, notifyHost bool) {
	msg := encode(sessionEndedMsg{Type: TypeSessionEnded})
	exclude := s.HostID
	if notifyHost {
		exclude = 0
	}
	c.broadcast(s, msg, exclude)

	for _, id := range s.participantIDs() {
		if p, ok := c.registry.get(id); ok && p.sessionCode == s.Code {
			p.sessionCode = ""
		}
	}
	if host, ok := c.registry.get(s.HostID); ok && host.sessionCode == s.Code {
		host.sessionCode = ""
	}

	s.Activity = c.now()
	c.persist(s, true)
	c.store.delete(s.Code)
	c.setSessionGauge()
	c.publishLobby()
	metrics.LiveSessionsEnded.WithLabelValues(reason).Inc()

	slog.Info("live session ended",
		slog.String("code", s.Code),
		slog.String("reason", reason),
		slog.Int("participants", len(s.participants)))
}
