package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/guitarbuddy/backend/internal/db"
	"github.com/guitarbuddy/backend/internal/middleware"
	"github.com/guitarbuddy/backend/internal/models"
)

const activeSessionsLimit = 50

// LibraryHandler stores a user's setlists and practice session records and
// exposes recently active live sessions.
type LibraryHandler struct {
	queries *db.Queries
	now     func() time.Time
}

// NewLibraryHandler creates a LibraryHandler backed by queries.
func NewLibraryHandler(queries *db.Queries) *LibraryHandler {
	return &LibraryHandler{queries: queries, now: time.Now}
}

// ListSetlists returns the caller's setlists.
func (h *LibraryHandler) ListSetlists(w http.ResponseWriter, r *http.Request) {
	setlists, err := h.queries.ListSetlistsByOwner(r.Context(), middleware.GetClaims(r.Context()).UserID())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list setlists", err)
		return
	}
	out := make([]models.SetlistResponse, 0, len(setlists))
	for _, s := range setlists {
		out = append(out, models.SetlistResponse{ID: s.ID, Name: s.Name, Songs: s.Songs, CreatedAt: s.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateSetlist stores a named, ordered list of songs.
func (h *LibraryHandler) CreateSetlist(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSetlistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}
	songs := req.Songs
	if len(songs) == 0 || string(songs) == "null" {
		songs = json.RawMessage("[]")
	}

	id := uuid.New().String()
	if err := h.queries.CreateSetlist(r.Context(), db.CreateSetlistParams{
		ID:        id,
		OwnerID:   middleware.GetClaims(r.Context()).UserID(),
		Name:      req.Name,
		Songs:     songs,
		CreatedAt: h.now().UTC(),
	}); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create setlist", err)
		return
	}
	writeJSON(w, http.StatusOK, models.IDResponse{ID: id})
}

// CreatePracticeSession stores an arbitrary JSON practice record.
func (h *LibraryHandler) CreatePracticeSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	id := uuid.New().String()
	if err := h.queries.CreatePracticeSession(r.Context(), db.CreatePracticeSessionParams{
		ID:        id,
		OwnerID:   middleware.GetClaims(r.Context()).UserID(),
		Payload:   body,
		CreatedAt: h.now().UTC(),
	}); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to store practice session", err)
		return
	}
	writeJSON(w, http.StatusOK, models.IDResponse{ID: id})
}

// ListPracticeSessions returns the caller's practice records.
func (h *LibraryHandler) ListPracticeSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.queries.ListPracticeSessionsByOwner(r.Context(), middleware.GetClaims(r.Context()).UserID())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list practice sessions", err)
		return
	}
	out := make([]models.PracticeSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, models.PracticeSessionResponse{ID: s.ID, Data: s.Payload, CreatedAt: s.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// ActiveSessions lists the most recently updated live session snapshots.
// Public and read-only.
func (h *LibraryHandler) ActiveSessions(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.queries.ListRecentLiveSessions(r.Context(), activeSessionsLimit)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list sessions", err)
		return
	}
	out := make([]models.ActiveSessionResponse, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, models.ActiveSessionResponse{
			Code:             s.Code,
			HostEmail:        s.HostEmail,
			Setlist:          s.Setlist,
			SongIndex:        s.SongIndex,
			ParticipantCount: s.ParticipantCount,
			Status:           s.Status,
			CreatedAt:        s.CreatedAt,
			UpdatedAt:        s.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
