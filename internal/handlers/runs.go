package handlers

import (
	"net/http"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// RunsHandler lists run history for the requesting user.
type RunsHandler struct {
	logger  *common.Logger
	storage interfaces.StorageManager
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(logger *common.Logger, storage interfaces.StorageManager) *RunsHandler {
	return &RunsHandler{logger: logger, storage: storage}
}

// ServeHTTP handles GET /api/runs.
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	user := common.UserFromContext(r.Context())

	limit := queryLimit(r, 50)
	scheduleID := r.URL.Query().Get("scheduleId")

	// The schedule filter applies before the limit, so matches beyond
	// the first page are not dropped.
	listLimit := limit
	if scheduleID != "" {
		listLimit = 0
	}
	items, err := h.storage.Runs().ListByUser(r.Context(), user.ID, listLimit)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	if scheduleID != "" {
		filtered := items[:0]
		for _, run := range items {
			if run.ScheduleID == scheduleID {
				filtered = append(filtered, run)
			}
		}
		items = filtered
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
	}
	if items == nil {
		items = []models.Run{}
	}
	WriteJSON(w, http.StatusOK, items)
}
