package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Verified     bool
	VerifyToken  sql.NullString
	ResetToken   sql.NullString
	ResetExpires sql.NullTime
	CreatedAt    time.Time
}

type Song struct {
	ID        string
	OwnerID   string
	Title     string
	Artist    string
	CreatedAt time.Time
}

type Version struct {
	ID              string
	SongID          string
	TeacherID       string
	TeacherName     string
	Content         string
	Key             string
	Bpm             int64
	Capo            int64
	TimeSignature   string
	YoutubeURL      sql.NullString
	BackingTrackURL sql.NullString
	Monetized       bool
	Price           float64
	Rating          float64
	RatingCount     int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Purchase struct {
	ID        string
	UserID    string
	VersionID string
	Price     float64
	CreatedAt time.Time
}

type Setlist struct {
	ID        string
	OwnerID   string
	Name      string
	Songs     json.RawMessage
	CreatedAt time.Time
}

type PracticeSession struct {
	ID        string
	OwnerID   string
	Payload   json.RawMessage
	CreatedAt time.Time
}

type LiveSession struct {
	Code             string
	HostID           string
	HostEmail        string
	Setlist          json.RawMessage
	SongIndex        int64
	ScrollPosition   float64
	ParticipantCount int64
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const (
	LiveSessionActive = "active"
	LiveSessionEnded  = "ended"
)
