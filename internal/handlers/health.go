// Package handlers implements the HTTP API: schedules, runs, reports,
// tracked stocks, artifacts, health, version.
package handlers

import (
	"net/http"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger *common.Logger
	cfg    *config.Config
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(logger *common.Logger, cfg *config.Config) *HealthHandler {
	return &HealthHandler{logger: logger, cfg: cfg}
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": h.cfg.Storage.Backend,
	})
}
