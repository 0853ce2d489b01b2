package handlers

import (
	"net/http"

	"github.com/guitarbuddy/backend/internal/config"
	"github.com/guitarbuddy/backend/internal/models"
)

type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// PublicConfig returns non-sensitive configuration for the frontend
func (h *ConfigHandler) PublicConfig(w http.ResponseWriter, r *http.Request) {
	// Only expose public, non-sensitive configuration
	resp := models.PublicConfigResponse{
		Environment:  h.cfg.AppEnv,
		LiveIdleSecs: int(h.cfg.LiveIdleTimeout.Seconds()),
	}
	if h.cfg.SentryDSNFrontend != "" {
		resp.SentryDSN = h.cfg.SentryDSNFrontend
		resp.SentryTunnel = "/api/sentry-tunnel"
	}
	writeJSON(w, http.StatusOK, resp)
}
