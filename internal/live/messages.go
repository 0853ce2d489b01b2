package live

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

// Inbound message types.
const (
	TypeCreateSession = "create_session"
	TypeJoinSession   = "join_session"
	TypeSyncState     = "sync_state"
	TypeLeaveSession  = "leave_session"
	TypeEndSession    = "end_session"
)

// Outbound message types.
const (
	TypeSessionCreated    = "session_created"
	TypeSessionJoined     = "session_joined"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeSessionEnded      = "session_ended"
	TypeError             = "error"
)

// Error messages sent to the originating connection.
const (
	MsgSessionNotFound = "Session not found"
	MsgCodeInUse       = "Session code already in use"
	MsgAlreadyHosting  = "You are already hosting this session"
)

var ErrInvalidCommand = errors.New("invalid command")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Command is a decoded and validated inbound message.
type Command interface {
	Type() string
	normalize()
}

type CreateSession struct {
	Code      string          `json:"code" validate:"omitempty,len=6,alphanum"`
	Setlist   json.RawMessage `json:"setlist"`
	SongIndex *int            `json:"songIndex" validate:"omitempty,min=0"`
}

func (*CreateSession) Type() string { return TypeCreateSession }

func (c *CreateSession) normalize() { c.Code = NormalizeCode(c.Code) }

type JoinSession struct {
	Code string `json:"code" validate:"required,max=32"`
}

func (*JoinSession) Type() string { return TypeJoinSession }

func (c *JoinSession) normalize() { c.Code = NormalizeCode(c.Code) }

// SyncState carries a partial state update. Absent fields keep their
// current value.
type SyncState struct {
	Code           string          `json:"code" validate:"required,max=32"`
	SenderID       string          `json:"senderId" validate:"required,max=128"`
	SongIndex      *int            `json:"songIndex" validate:"omitempty,min=0"`
	ScrollPosition *float64        `json:"scrollPosition" validate:"omitempty,min=0"`
	Setlist        json.RawMessage `json:"setlist"`
}

func (*SyncState) Type() string { return TypeSyncState }

func (c *SyncState) normalize() { c.Code = NormalizeCode(c.Code) }

type LeaveSession struct {
	Code string `json:"code" validate:"required,max=32"`
}

func (*LeaveSession) Type() string { return TypeLeaveSession }

func (c *LeaveSession) normalize() { c.Code = NormalizeCode(c.Code) }

type EndSession struct {
	Code string `json:"code" validate:"required,max=32"`
}

func (*EndSession) Type() string { return TypeEndSession }

func (c *EndSession) normalize() { c.Code = NormalizeCode(c.Code) }

// DecodeCommand parses a text frame into a Command. Malformed JSON, unknown
// types, wrongly typed fields and missing required fields all yield an error
// wrapping ErrInvalidCommand.
func DecodeCommand(frame []byte) (Command, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	var cmd Command
	switch envelope.Type {
	case TypeCreateSession:
		cmd = &CreateSession{}
	case TypeJoinSession:
		cmd = &JoinSession{}
	case TypeSyncState:
		cmd = &SyncState{}
	case TypeLeaveSession:
		cmd = &LeaveSession{}
	case TypeEndSession:
		cmd = &EndSession{}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidCommand, envelope.Type)
	}

	if err := json.Unmarshal(frame, cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	cmd.normalize()
	if err := validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return cmd, nil
}

// present reports whether a raw JSON field was supplied with a non-null value.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

type sessionCreatedMsg struct {
	Type         string        `json:"type"`
	Code         string        `json:"code"`
	Participants []Participant `json:"participants"`
}

type sessionJoinedMsg struct {
	Type           string          `json:"type"`
	Code           string          `json:"code"`
	Participants   []Participant   `json:"participants"`
	Setlist        json.RawMessage `json:"setlist"`
	SongIndex      int             `json:"songIndex"`
	ScrollPosition float64         `json:"scrollPosition"`
}

type participantMsg struct {
	Type         string        `json:"type"`
	Email        string        `json:"email"`
	Participants []Participant `json:"participants"`
}

type syncStateMsg struct {
	Type           string          `json:"type"`
	SenderID       string          `json:"senderId"`
	SongIndex      int             `json:"songIndex"`
	ScrollPosition float64         `json:"scrollPosition"`
	Setlist        json.RawMessage `json:"setlist"`
}

type sessionEndedMsg struct {
	Type string `json:"type"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
