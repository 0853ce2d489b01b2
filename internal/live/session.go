package live

import (
	"errors"
	"sort"
	"time"

	json "github.com/goccy/go-json"
)

var ErrSessionExists = errors.New("session code already in use")

// Participant is the public view of a session follower.
type Participant struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

// Session is one live performance. Fields are guarded by Coordinator.mu.
type Session struct {
	Code     string
	HostID   ConnID
	Host     Identity
	Setlist  json.RawMessage
	SongIdx  int
	Scroll   float64
	Created  time.Time
	Activity time.Time

	participants map[ConnID]Participant
}

func newSession(code string, host *Conn, setlist json.RawMessage, songIndex int, now time.Time) *Session {
	return &Session{
		Code:         code,
		HostID:       host.id,
		Host:         host.identity,
		Setlist:      setlist,
		SongIdx:      songIndex,
		Created:      now,
		Activity:     now,
		participants: make(map[ConnID]Participant),
	}
}

func (s *Session) hasParticipant(id ConnID) bool {
	_, ok := s.participants[id]
	return ok
}

// participantIDs returns follower ids in join order.
func (s *Session) participantIDs() []ConnID {
	ids := make([]ConnID, 0, len(s.participants))
	for id := range s.participants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// participantList never returns nil so it encodes as [].
func (s *Session) participantList() []Participant {
	ids := s.participantIDs()
	out := make([]Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.participants[id])
	}
	return out
}

// setlistOrNull returns the stored setlist or a JSON null.
func (s *Session) setlistOrNull() json.RawMessage {
	if len(s.Setlist) == 0 {
		return json.RawMessage("null")
	}
	return s.Setlist
}

// store maps session codes to sessions. Guarded by Coordinator.mu.
type store struct {
	sessions map[string]*Session
}

func newStore() *store {
	return &store{sessions: make(map[string]*Session)}
}

func (st *store) create(s *Session) error {
	if _, ok := st.sessions[s.Code]; ok {
		return ErrSessionExists
	}
	st.sessions[s.Code] = s
	return nil
}

func (st *store) get(code string) (*Session, bool) {
	s, ok := st.sessions[code]
	return s, ok
}

func (st *store) delete(code string) {
	delete(st.sessions, code)
}

func (st *store) len() int {
	return len(st.sessions)
}

// all returns sessions ordered by creation time, then code.
func (st *store) all() []*Session {
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].Code < out[j].Code
	})
	return out
}
