package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
	"github.com/stockscout/stockscout/internal/research"
	"github.com/stockscout/stockscout/internal/scheduler"
)

// ReportsHandler serves stored reports and report actions.
type ReportsHandler struct {
	logger  *common.Logger
	cfg     *config.Config
	storage interfaces.StorageManager
	blobs   interfaces.ObjectStore
	engine  *research.Engine
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(logger *common.Logger, cfg *config.Config, storage interfaces.StorageManager, blobs interfaces.ObjectStore, engine *research.Engine) *ReportsHandler {
	return &ReportsHandler{logger: logger, cfg: cfg, storage: storage, blobs: blobs, engine: engine}
}

// reportResponse augments a report with short-lived download links.
type reportResponse struct {
	models.Report
	Links map[string]string `json:"links,omitempty"`
}

// ServeCollection handles GET /api/reports.
func (h *ReportsHandler) ServeCollection(w http.ResponseWriter, r *http.Request) {
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
	items, err := h.storage.Reports().ListByUser(r.Context(), user.ID, listLimit)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	if scheduleID != "" {
		filtered := items[:0]
		for _, rep := range items {
			if rep.ScheduleID == scheduleID {
				filtered = append(filtered, rep)
			}
		}
		items = filtered
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
	}
	if items == nil {
		items = []models.Report{}
	}
	WriteJSON(w, http.StatusOK, items)
}

// ServeItem handles /api/reports/{id} and /api/reports/{id}/send-email.
func (h *ReportsHandler) ServeItem(w http.ResponseWriter, r *http.Request) {
	id, action := splitItemPath(r.URL.Path, "/api/reports/")
	if id == "" {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}

	if action == "send-email" {
		if !RequireMethod(w, r, "POST") {
			return
		}
		h.sendEmail(w, r, id)
		return
	}
	if action != "" {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ReportsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rep, ok := h.load(w, r, id)
	if !ok {
		return
	}

	resp := reportResponse{Report: *rep, Links: map[string]string{}}
	for kind, path := range rep.BlobPaths {
		link, err := h.blobs.SignedURL(path, h.signedTTL())
		if err != nil {
			h.logger.Warn().Str("report_id", rep.ID).Str("kind", kind).Err(err).Msg("Failed to sign artifact link")
			continue
		}
		resp.Links[kind] = link
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *ReportsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	rep, ok := h.load(w, r, id)
	if !ok {
		return
	}
	if err := scheduler.DeleteReport(r.Context(), h.storage, h.blobs, rep); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Info().Str("report_id", rep.ID).Msg("Report deleted")
	w.WriteHeader(http.StatusNoContent)
}

// sendEmail re-sends a stored report to the requested recipients.
func (h *ReportsHandler) sendEmail(w http.ResponseWriter, r *http.Request, id string) {
	rep, ok := h.load(w, r, id)
	if !ok {
		return
	}

	var req struct {
		To        []string `json:"to"`
		AttachPDF bool     `json:"attachPdf"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.To) == 0 {
		WriteError(w, http.StatusBadRequest, "at least one recipient is required")
		return
	}

	settings := models.EmailSettings{To: req.To, AttachPDF: req.AttachPDF}
	if err := h.engine.SendReportEmail(r.Context(), rep.ID, settings); err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *ReportsHandler) load(w http.ResponseWriter, r *http.Request, id string) (*models.Report, bool) {
	user := common.UserFromContext(r.Context())

	rep, err := h.storage.Reports().Get(r.Context(), id)
	if err != nil {
		WriteStorageError(w, err)
		return nil, false
	}
	if rep.UserID != user.ID {
		WriteError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	return rep, true
}

func (h *ReportsHandler) signedTTL() time.Duration {
	hours := h.cfg.Blob.SignedTTLHrs
	if hours <= 0 {
		hours = 48
	}
	return time.Duration(hours) * time.Hour
}

// queryLimit parses ?limit=, clamping junk to the default.
func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
