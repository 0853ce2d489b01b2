package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/guitarbuddy/backend/internal/db"
	"github.com/guitarbuddy/backend/internal/logging"
	"github.com/guitarbuddy/backend/internal/middleware"
	"github.com/guitarbuddy/backend/internal/models"
)

const searchLimit = 50

// SongHandler manages songs, their teacher-authored versions and purchases
// of monetized versions.
type SongHandler struct {
	queries *db.Queries
	now     func() time.Time
}

// NewSongHandler creates a SongHandler backed by queries.
func NewSongHandler(queries *db.Queries) *SongHandler {
	return &SongHandler{queries: queries, now: time.Now}
}

func songResponse(s db.Song) models.SongResponse {
	return models.SongResponse{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Title:     s.Title,
		Artist:    s.Artist,
		CreatedAt: s.CreatedAt,
	}
}

func songResponses(songs []db.Song) []models.SongResponse {
	out := make([]models.SongResponse, 0, len(songs))
	for _, s := range songs {
		out = append(out, songResponse(s))
	}
	return out
}

// versionResponse renders v. Content is withheld unless full is set.
func versionResponse(v db.Version, full bool) models.VersionResponse {
	resp := models.VersionResponse{
		ID:              v.ID,
		SongID:          v.SongID,
		TeacherID:       v.TeacherID,
		TeacherName:     v.TeacherName,
		Key:             v.Key,
		Bpm:             v.Bpm,
		Capo:            v.Capo,
		TimeSignature:   v.TimeSignature,
		YoutubeURL:      v.YoutubeURL.String,
		BackingTrackURL: v.BackingTrackURL.String,
		Monetized:       v.Monetized,
		Price:           v.Price,
		Rating:          v.Rating,
		RatingCount:     v.RatingCount,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
	if full {
		resp.Content = v.Content
	} else {
		resp.Locked = true
	}
	return resp
}

// hasAccess reports whether userID may read the full content of v.
// Free versions are open to everyone and teachers always see their own.
func (h *SongHandler) hasAccess(ctx context.Context, userID string, v db.Version) (bool, error) {
	if !v.Monetized {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}
	if v.TeacherID == userID {
		return true, nil
	}
	return h.queries.HasPurchased(ctx, userID, v.ID)
}

// List returns the caller's own songs.
func (h *SongHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	songs, err := h.queries.ListSongsByOwner(r.Context(), claims.UserID())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list songs", err)
		return
	}
	writeJSON(w, http.StatusOK, songResponses(songs))
}

// Search returns songs from every owner whose title or artist matches q.
func (h *SongHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	songs, err := h.queries.SearchSongs(r.Context(), q, searchLimit)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to search songs", err)
		return
	}
	writeJSON(w, http.StatusOK, songResponses(songs))
}

// Create adds a song owned by the caller.
func (h *SongHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSongRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}
	claims := middleware.GetClaims(r.Context())

	song, err := h.queries.CreateSong(r.Context(), db.CreateSongParams{
		ID:        uuid.New().String(),
		OwnerID:   claims.UserID(),
		Title:     strings.TrimSpace(req.Title),
		Artist:    strings.TrimSpace(req.Artist),
		CreatedAt: h.now().UTC(),
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create song", err)
		return
	}
	writeJSON(w, http.StatusOK, models.IDResponse{ID: song.ID})
}

// Get returns a song with previews of its versions.
func (h *SongHandler) Get(w http.ResponseWriter, r *http.Request) {
	song, err := h.queries.GetSongByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load song", err)
		return
	}

	versions, err := h.queries.ListVersionsBySong(r.Context(), song.ID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list versions", err)
		return
	}

	userID := middleware.GetClaims(r.Context()).UserID()
	resp := models.SongDetailResponse{
		SongResponse: songResponse(song),
		Versions:     make([]models.VersionResponse, 0, len(versions)),
	}
	for _, v := range versions {
		access, err := h.hasAccess(r.Context(), userID, v)
		if err != nil {
			writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check access", err)
			return
		}
		resp.Versions = append(resp.Versions, versionResponse(v, access))
	}
	writeJSON(w, http.StatusOK, resp)
}

func validVersion(req models.VersionRequest) bool {
	return !req.Monetized || req.Price > 0
}

// CreateVersion adds a version of a song authored by the caller.
func (h *SongHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req models.VersionRequest
	if err := decodeJSON(r, &req); err != nil || !validVersion(req) {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	song, err := h.queries.GetSongByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load song", err)
		return
	}

	claims := middleware.GetClaims(r.Context())
	teacherName := claims.DisplayName
	if teacherName == "" {
		teacherName = claims.Email
	}

	version, err := h.queries.CreateVersion(r.Context(), db.CreateVersionParams{
		ID:              uuid.New().String(),
		SongID:          song.ID,
		TeacherID:       claims.UserID(),
		TeacherName:     teacherName,
		Content:         req.Content,
		Key:             req.Key,
		Bpm:             req.Bpm,
		Capo:            req.Capo,
		TimeSignature:   req.TimeSignature,
		YoutubeURL:      req.YoutubeURL,
		BackingTrackURL: req.BackingTrackURL,
		Monetized:       req.Monetized,
		Price:           req.Price,
		CreatedAt:       h.now().UTC(),
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create version", err)
		return
	}
	writeJSON(w, http.StatusOK, models.IDResponse{ID: version.ID})
}

// loadVersion fetches the {id} version, writing 404 or 500 on failure.
func (h *SongHandler) loadVersion(w http.ResponseWriter, r *http.Request, param string) (db.Version, bool) {
	version, err := h.queries.GetVersionByID(r.Context(), chi.URLParam(r, param))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return db.Version{}, false
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load version", err)
		return db.Version{}, false
	}
	return version, true
}

// GetVersion returns a version preview. Content is included when the
// caller has access.
func (h *SongHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	version, ok := h.loadVersion(w, r, "id")
	if !ok {
		return
	}
	var userID string
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		userID = claims.UserID()
	}
	access, err := h.hasAccess(r.Context(), userID, version)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check access", err)
		return
	}
	writeJSON(w, http.StatusOK, versionResponse(version, access))
}

// UpdateVersion replaces a version's editable fields. Authors only.
func (h *SongHandler) UpdateVersion(w http.ResponseWriter, r *http.Request) {
	version, ok := h.loadVersion(w, r, "id")
	if !ok {
		return
	}
	if !h.requireAuthor(w, r, version) {
		return
	}

	var req models.VersionRequest
	if err := decodeJSON(r, &req); err != nil || !validVersion(req) {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	updated, err := h.queries.UpdateVersion(r.Context(), db.UpdateVersionParams{
		ID:              version.ID,
		Content:         req.Content,
		Key:             req.Key,
		Bpm:             req.Bpm,
		Capo:            req.Capo,
		TimeSignature:   req.TimeSignature,
		YoutubeURL:      req.YoutubeURL,
		BackingTrackURL: req.BackingTrackURL,
		Monetized:       req.Monetized,
		Price:           req.Price,
		UpdatedAt:       h.now().UTC(),
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update version", err)
		return
	}
	writeJSON(w, http.StatusOK, versionResponse(updated, true))
}

// DeleteVersion removes a version. Authors only.
func (h *SongHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	version, ok := h.loadVersion(w, r, "id")
	if !ok {
		return
	}
	if !h.requireAuthor(w, r, version) {
		return
	}
	err := h.queries.DeleteVersion(r.Context(), version.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to delete version", err)
		return
	}
	writeJSON(w, http.StatusOK, models.OKResponse{OK: true})
}

func (h *SongHandler) requireAuthor(w http.ResponseWriter, r *http.Request, v db.Version) bool {
	if middleware.GetClaims(r.Context()).UserID() != v.TeacherID {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventForbiddenAccess, "version modification by non-author")
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

// Access reports whether the caller may read the full version.
func (h *SongHandler) Access(w http.ResponseWriter, r *http.Request) {
	version, ok := h.loadVersion(w, r, "id")
	if !ok {
		return
	}
	access, err := h.hasAccess(r.Context(), middleware.GetClaims(r.Context()).UserID(), version)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check access", err)
		return
	}
	writeJSON(w, http.StatusOK, models.AccessResponse{Access: access})
}

// Full returns the complete version, or 402 when it must be purchased first.
func (h *SongHandler) Full(w http.ResponseWriter, r *http.Request) {
	version, ok := h.loadVersion(w, r, "id")
	if !ok {
		return
	}
	access, err := h.hasAccess(r.Context(), middleware.GetClaims(r.Context()).UserID(), version)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check access", err)
		return
	}
	if !access {
		writeError(w, http.StatusPaymentRequired, "purchase_required")
		return
	}
	writeJSON(w, http.StatusOK, versionResponse(version, true))
}

// Purchase records the caller's purchase of a monetized version.
func (h *SongHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	version, ok := h.loadVersion(w, r, "versionId")
	if !ok {
		return
	}
	if !version.Monetized {
		writeError(w, http.StatusBadRequest, "not_for_sale")
		return
	}
	claims := middleware.GetClaims(r.Context())
	if version.TeacherID == claims.UserID() {
		writeError(w, http.StatusBadRequest, "own_version")
		return
	}

	purchase, err := h.queries.CreatePurchase(r.Context(), db.CreatePurchaseParams{
		ID:        uuid.New().String(),
		UserID:    claims.UserID(),
		VersionID: version.ID,
		Price:     version.Price,
		CreatedAt: h.now().UTC(),
	})
	if errors.Is(err, db.ErrConflict) {
		writeError(w, http.StatusConflict, "already_purchased")
		return
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to record purchase", err)
		return
	}
	writeJSON(w, http.StatusOK, models.IDResponse{ID: purchase.ID})
}

// MyPurchases lists the caller's purchases, newest first.
func (h *SongHandler) MyPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.queries.ListPurchasesByUser(r.Context(), middleware.GetClaims(r.Context()).UserID())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list purchases", err)
		return
	}
	out := make([]models.PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, models.PurchaseResponse{
			ID:          p.ID,
			VersionID:   p.VersionID,
			Price:       p.Price,
			SongTitle:   p.SongTitle,
			SongArtist:  p.SongArtist,
			TeacherName: p.TeacherName,
			CreatedAt:   p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
