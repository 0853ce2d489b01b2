// Package models holds the JSON request and response bodies of the HTTP API.
// Request types carry validator tags checked by the handlers.
package models

import (
	"encoding/json"
	"time"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type IDResponse struct {
	ID string `json:"id"`
}

type PublicConfigResponse struct {
	Environment  string `json:"environment"`
	SentryDSN    string `json:"sentryDsn,omitempty"`
	SentryTunnel string `json:"sentryTunnel,omitempty"`
	LiveIdleSecs int    `json:"liveIdleTimeoutSeconds"`
}

// Accounts
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=6,max=128"`
	DisplayName string `json:"displayName" validate:"omitempty,max=64"`
}

type RegisterResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	VerifyToken string `json:"verifyToken,omitempty"`
}

type VerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

type RequestResetRequest struct {
	Email string `json:"email" validate:"required"`
}

type RequestResetResponse struct {
	OK         bool   `json:"ok"`
	ResetToken string `json:"resetToken,omitempty"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type MeResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Songs and versions
type CreateSongRequest struct {
	Title  string `json:"title" validate:"required,max=200"`
	Artist string `json:"artist" validate:"max=200"`
}

type SongResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	CreatedAt time.Time `json:"createdAt"`
}

type SongDetailResponse struct {
	SongResponse
	Versions []VersionResponse `json:"versions"`
}

type VersionRequest struct {
	Content         string  `json:"content" validate:"required"`
	Key             string  `json:"key" validate:"max=16"`
	Bpm             int64   `json:"bpm" validate:"min=0,max=400"`
	Capo            int64   `json:"capo" validate:"min=0,max=12"`
	TimeSignature   string  `json:"timeSignature" validate:"max=8"`
	YoutubeURL      string  `json:"youtubeUrl" validate:"omitempty,url"`
	BackingTrackURL string  `json:"backingTrackUrl" validate:"omitempty,url"`
	Monetized       bool    `json:"monetized"`
	Price           float64 `json:"price" validate:"min=0"`
}

// VersionResponse omits Content and sets Locked when the caller has not
// purchased a monetized version.
type VersionResponse struct {
	ID              string    `json:"id"`
	SongID          string    `json:"songId"`
	TeacherID       string    `json:"teacherId"`
	TeacherName     string    `json:"teacherName"`
	Content         string    `json:"content,omitempty"`
	Locked          bool      `json:"locked"`
	Key             string    `json:"key,omitempty"`
	Bpm             int64     `json:"bpm,omitempty"`
	Capo            int64     `json:"capo"`
	TimeSignature   string    `json:"timeSignature,omitempty"`
	YoutubeURL      string    `json:"youtubeUrl,omitempty"`
	BackingTrackURL string    `json:"backingTrackUrl,omitempty"`
	Monetized       bool      `json:"monetized"`
	Price           float64   `json:"price"`
	Rating          float64   `json:"rating"`
	RatingCount     int64     `json:"ratingCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type AccessResponse struct {
	Access bool `json:"access"`
}

// Purchases
type PurchaseResponse struct {
	ID          string    `json:"id"`
	VersionID   string    `json:"versionId"`
	Price       float64   `json:"price"`
	SongTitle   string    `json:"songTitle"`
	SongArtist  string    `json:"songArtist"`
	TeacherName string    `json:"teacherName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Setlists and practice sessions
type CreateSetlistRequest struct {
	Name  string          `json:"name" validate:"required,max=200"`
	Songs json.RawMessage `json:"songs"`
}

type SetlistResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Songs     json.RawMessage `json:"songs"`
	CreatedAt time.Time       `json:"createdAt"`
}

type PracticeSessionResponse struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ActiveSessionResponse is a persisted live-session snapshot.
type ActiveSessionResponse struct {
	Code             string          `json:"code"`
	HostEmail        string          `json:"hostEmail"`
	Setlist          json.RawMessage `json:"setlist"`
	SongIndex        int64           `json:"songIndex"`
	ParticipantCount int64           `json:"participantCount"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}
