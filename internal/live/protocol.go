package live

import (
	"context"
	"log/slog"

	"github.com/guitarbuddy/backend/internal/logging"
)

func (c *Coordinator) createSession(conn *Conn, cmd *CreateSession) {
	code := cmd.Code
	if code == "" {
		code = c.freeCode()
		if code == "" {
			c.sendError(conn, MsgCodeInUse)
			return
		}
	} else if _, taken := c.store.get(code); taken {
		c.sendError(conn, MsgCodeInUse)
		return
	}

	c.detach(conn, reasonHostMoved)

	songIndex := 0
	if cmd.SongIndex != nil {
		songIndex = *cmd.SongIndex
	}
	var setlist []byte
	if present(cmd.Setlist) {
		setlist = cmd.Setlist
	}
	s := newSession(code, conn, setlist, songIndex, c.now())
	if err := c.store.create(s); err != nil {
		c.sendError(conn, MsgCodeInUse)
		return
	}
	conn.sessionCode = code
	c.setSessionGauge()

	c.sendTo(conn, encode(sessionCreatedMsg{
		Type:         TypeSessionCreated,
		Code:         code,
		Participants: s.participantList(),
	}))
	c.persist(s, false)
	c.publishLobby()

	slog.Info("live session created",
		slog.String("code", code),
		slog.String("host_id", conn.identity.UserID))
}

func (c *Coordinator) freeCode() string {
	for range maxCodeAttempts {
		code := randomCode()
		if _, taken := c.store.get(code); !taken {
			return code
		}
	}
	return ""
}

func (c *Coordinator) joinSession(conn *Conn, cmd *JoinSession) {
	s, ok := c.store.get(cmd.Code)
	if !ok {
		c.sendError(conn, MsgSessionNotFound)
		return
	}

	if conn.sessionCode == s.Code {
		if s.HostID == conn.id {
			c.sendError(conn, MsgAlreadyHosting)
			return
		}
		// Re-join: resend the current state to the caller only.
		s.Activity = c.now()
		c.sendTo(conn, encode(joinedMsg(s)))
		return
	}

	c.detach(conn, reasonHostMoved)

	s.participants[conn.id] = conn.participant()
	s.Activity = c.now()
	conn.sessionCode = s.Code

	c.sendTo(conn, encode(joinedMsg(s)))
	c.broadcast(s, encode(participantMsg{
		Type:         TypeParticipantJoined,
		Email:        conn.identity.Email,
		Participants: s.participantList(),
	}), conn.id)
	c.persist(s, false)
	c.publishLobby()

	slog.Info("live session joined",
		slog.String("code", s.Code),
		slog.String("user_id", conn.identity.UserID),
		slog.Int("participants", len(s.participants)))
}

func joinedMsg(s *Session) sessionJoinedMsg {
	return sessionJoinedMsg{
		Type:           TypeSessionJoined,
		Code:           s.Code,
		Participants:   s.participantList(),
		Setlist:        s.setlistOrNull(),
		SongIndex:      s.SongIdx,
		ScrollPosition: s.Scroll,
	}
}

func (c *Coordinator) syncState(conn *Conn, cmd *SyncState) {
	s, ok := c.store.get(cmd.Code)
	if !ok || s.HostID != conn.id {
		slog.Debug("ignoring sync_state from non-host",
			slog.String("code", cmd.Code),
			slog.Uint64("conn_id", uint64(conn.id)))
		return
	}

	structural := false
	if cmd.SongIndex != nil {
		structural = structural || s.SongIdx != *cmd.SongIndex
		s.SongIdx = *cmd.SongIndex
	}
	if cmd.ScrollPosition != nil {
		s.Scroll = *cmd.ScrollPosition
	}
	if present(cmd.Setlist) {
		s.Setlist = cmd.Setlist
		structural = true
	}
	s.Activity = c.now()

	c.broadcast(s, encode(syncStateMsg{
		Type:           TypeSyncState,
		SenderID:       cmd.SenderID,
		SongIndex:      s.SongIdx,
		ScrollPosition: s.Scroll,
		Setlist:        s.setlistOrNull(),
	}), conn.id)

	// Scroll-only updates arrive many times per second and are not persisted.
	if structural {
		c.persist(s, false)
	}
}

func (c *Coordinator) leaveSession(conn *Conn, cmd *LeaveSession) {
	if conn.sessionCode != cmd.Code {
		return
	}
	s, ok := c.store.get(cmd.Code)
	if !ok {
		conn.sessionCode = ""
		return
	}
	// A host leaves by ending the session.
	if s.HostID == conn.id {
		return
	}
	c.removeParticipant(s, conn)
	slog.Info("live session left",
		slog.String("code", s.Code),
		slog.String("user_id", conn.identity.UserID))
}

func (c *Coordinator) endSessionCmd(conn *Conn, cmd *EndSession) {
	s, ok := c.store.get(cmd.Code)
	if !ok {
		return
	}
	if s.HostID != conn.id {
		logging.LogSecurityEvent(context.Background(), logging.SecurityEventWSUnauthorizedOp,
			"ignoring end_session from non-host "+conn.identity.UserID)
		return
	}
	c.endSession(s, reasonHostEnded, false)
}

func (c *Coordinator) sendError(conn *Conn, message string) {
	c.sendTo(conn, encode(errorMsg{Type: TypeError, Message: message}))
}
