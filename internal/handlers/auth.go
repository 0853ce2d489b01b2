package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guitarbuddy/backend/internal/config"
	"github.com/guitarbuddy/backend/internal/crypto"
	"github.com/guitarbuddy/backend/internal/db"
	"github.com/guitarbuddy/backend/internal/logging"
	"github.com/guitarbuddy/backend/internal/middleware"
	"github.com/guitarbuddy/backend/internal/models"
	"github.com/guitarbuddy/backend/internal/services"
)

const resetTokenTTL = time.Hour

// AuthHandler manages accounts: registration, verification, password
// resets and login.
type AuthHandler struct {
	queries     *db.Queries
	authService *services.AuthService
	names       *services.NameService
	cfg         *config.Config
	now         func() time.Time
}

// NewAuthHandler creates an AuthHandler with the required dependencies.
func NewAuthHandler(queries *db.Queries, authService *services.AuthService, names *services.NameService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		queries:     queries,
		authService: authService,
		names:       names,
		cfg:         cfg,
		now:         time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account. Outside production the
// verification token is returned so the client can complete verification
// without email delivery.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}
	email := normalizeEmail(req.Email)

	if _, err := h.queries.GetUserByEmail(r.Context(), email); err == nil {
		writeError(w, http.StatusConflict, "user_exists")
		return
	} else if !errors.Is(err, db.ErrNotFound) {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to look up user", err)
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to hash password", err)
		return
	}
	verifyToken, err := crypto.RandomToken()
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = h.names.GenerateName()
	}

	user, err := h.queries.CreateUser(r.Context(), db.CreateUserParams{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		VerifyToken:  verifyToken,
		CreatedAt:    h.now().UTC(),
	})
	if errors.Is(err, db.ErrConflict) {
		writeError(w, http.StatusConflict, "user_exists")
		return
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create user", err)
		return
	}

	resp := models.RegisterResponse{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName}
	if !h.cfg.IsProduction() {
		resp.VerifyToken = verifyToken
	}
	writeJSON(w, http.StatusOK, resp)
}

// Verify consumes a verification token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	err := h.queries.VerifyUser(r.Context(), req.Token)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "invalid_token")
		return
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to verify user", err)
		return
	}
	writeJSON(w, http.StatusOK, models.OKResponse{OK: true})
}

// RequestReset issues a one hour password reset token. The response is the
// same whether or not the account exists.
func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req models.RequestResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	user, err := h.queries.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusOK, models.RequestResetResponse{OK: true})
		return
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to look up user", err)
		return
	}

	token, err := crypto.RandomToken()
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}
	if err := h.queries.SetResetToken(r.Context(), db.SetResetTokenParams{
		ID:      user.ID,
		Token:   token,
		Expires: h.now().UTC().Add(resetTokenTTL),
	}); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to store reset token", err)
		return
	}

	resp := models.RequestResetResponse{OK: true}
	if !h.cfg.IsProduction() {
		resp.ResetToken = token
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reset sets a new password using an unexpired reset token.
func (h *AuthHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	user, err := h.queries.GetUserByResetToken(r.Context(), req.Token)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "invalid_token")
		return
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to look up reset token", err)
		return
	}
	if !user.ResetExpires.Valid || !user.ResetExpires.Time.After(h.now()) {
		writeError(w, http.StatusBadRequest, "invalid_token")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to hash password", err)
		return
	}
	if err := h.queries.ResetPassword(r.Context(), user.ID, hash); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to reset password", err)
		return
	}
	writeJSON(w, http.StatusOK, models.OKResponse{OK: true})
}

// Login exchanges credentials for a signed JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input")
		return
	}

	user, err := h.queries.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to look up user", err)
		return
	}
	if err != nil || !crypto.CheckPassword(user.PasswordHash, req.Password) {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadCredentials, "invalid login credentials")
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Email, user.DisplayName)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	user, err := h.queries.GetUserByID(r.Context(), claims.UserID())
	if errors.Is(err, db.ErrNotFound) {
		// Token outlived the account; fall back to the claims.
		writeJSON(w, http.StatusOK, models.MeResponse{ID: claims.UserID(), Email: claims.Email, DisplayName: claims.DisplayName})
		return
	}
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load user", err)
		return
	}
	writeJSON(w, http.StatusOK, models.MeResponse{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName})
}
