package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
	"github.com/stockscout/stockscout/internal/research"
	"github.com/stockscout/stockscout/internal/scheduler"
)

// SchedulesHandler handles schedule CRUD and manual run triggers.
type SchedulesHandler struct {
	logger  *common.Logger
	storage interfaces.StorageManager
	blobs   interfaces.ObjectStore
	engine  *research.Engine
}

// NewSchedulesHandler creates a new schedules handler.
func NewSchedulesHandler(logger *common.Logger, storage interfaces.StorageManager, blobs interfaces.ObjectStore, engine *research.Engine) *SchedulesHandler {
	return &SchedulesHandler{logger: logger, storage: storage, blobs: blobs, engine: engine}
}

// scheduleRequest is the create/update payload. Pointer fields
// distinguish "absent" from "set to zero" on update.
type scheduleRequest struct {
	Prompt       *string               `json:"prompt"`
	Symbols      *[]string             `json:"symbols"`
	Recurrence   *models.Recurrence    `json:"recurrence"`
	Email        *models.EmailSettings `json:"email"`
	DeepResearch *bool                 `json:"deepResearch"`
	Active       *bool                 `json:"active"`
}

// ServeCollection handles GET (list) and POST (create) on /api/schedules.
func (h *SchedulesHandler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ServeItem handles /api/schedules/{id} and /api/schedules/{id}/run.
func (h *SchedulesHandler) ServeItem(w http.ResponseWriter, r *http.Request) {
	id, action := splitItemPath(r.URL.Path, "/api/schedules/")
	if id == "" {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}

	if action == "run" {
		if !RequireMethod(w, r, "POST") {
			return
		}
		h.trigger(w, r, id)
		return
	}
	if action != "" {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SchedulesHandler) list(w http.ResponseWriter, r *http.Request) {
	user := common.UserFromContext(r.Context())

	items, err := h.storage.Schedules().ListByUser(r.Context(), user.ID)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	if items == nil {
		items = []models.Schedule{}
	}
	WriteJSON(w, http.StatusOK, items)
}

func (h *SchedulesHandler) create(w http.ResponseWriter, r *http.Request) {
	user := common.UserFromContext(r.Context())

	var req scheduleRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	prompt := ""
	if req.Prompt != nil {
		prompt = strings.TrimSpace(*req.Prompt)
	}
	var symbols []string
	if req.Symbols != nil {
		symbols = normalizeSymbols(*req.Symbols)
	}
	if err := validateInput(prompt, symbols); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := models.DefaultRecurrence()
	if req.Recurrence != nil && req.Recurrence.Cadence != "" {
		rec = *req.Recurrence
	}

	now := time.Now().UTC()
	sched := &models.Schedule{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Prompt:     prompt,
		Symbols:    symbols,
		Recurrence: rec,
		Active:     true,
		NextRunAt:  models.NextRunISO(rec, now),
		CreatedAt:  models.FormatTime(now),
	}
	if req.Email != nil {
		sched.Email = *req.Email
	}
	if req.DeepResearch != nil {
		sched.DeepResearch = *req.DeepResearch
	}
	if req.Active != nil {
		sched.Active = *req.Active
	}

	if err := h.storage.Schedules().Put(r.Context(), sched); err != nil {
		WriteStorageError(w, err)
		return
	}

	h.logger.Info().
		Str("schedule_id", sched.ID).
		Str("user_id", user.ID).
		Str("next_run_at", sched.NextRunAt).
		Msg("Schedule created")

	WriteJSON(w, http.StatusCreated, sched)
}

func (h *SchedulesHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sched, ok := h.load(w, r, id)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, sched)
}

func (h *SchedulesHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	sched, ok := h.load(w, r, id)
	if !ok {
		return
	}

	var req scheduleRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Prompt != nil {
		sched.Prompt = strings.TrimSpace(*req.Prompt)
	}
	if req.Symbols != nil {
		sched.Symbols = normalizeSymbols(*req.Symbols)
	}
	if err := validateInput(sched.Prompt, sched.Symbols); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email != nil {
		sched.Email = *req.Email
	}
	if req.DeepResearch != nil {
		sched.DeepResearch = *req.DeepResearch
	}
	if req.Active != nil {
		sched.Active = *req.Active
	}
	if req.Recurrence != nil {
		// A cadence change re-anchors the next fire time.
		sched.Recurrence = *req.Recurrence
		sched.NextRunAt = models.NextRunISO(sched.Recurrence, time.Now().UTC())
	}
	if sched.Active && sched.NextRunAt == "" {
		sched.NextRunAt = models.NextRunISO(sched.Recurrence, time.Now().UTC())
	}

	if err := h.storage.Schedules().Put(r.Context(), sched); err != nil {
		WriteStorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sched)
}

// delete removes the schedule along with its runs, reports, and report
// artifacts. Cascade is explicit; nothing else cleans these up.
func (h *SchedulesHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	sched, ok := h.load(w, r, id)
	if !ok {
		return
	}
	user := common.UserFromContext(r.Context())

	runs, err := h.storage.Runs().ListByUser(r.Context(), user.ID, 0)
	if err == nil {
		for _, run := range runs {
			if run.ScheduleID != sched.ID {
				continue
			}
			if err := h.storage.Runs().Delete(r.Context(), run.ID); err != nil {
				h.logger.Warn().Str("run_id", run.ID).Err(err).Msg("Failed to delete run during schedule cascade")
			}
		}
	}

	reports, err := h.storage.Reports().ListByUser(r.Context(), user.ID, 0)
	if err == nil {
		for _, rep := range reports {
			if rep.ScheduleID != sched.ID {
				continue
			}
			if err := scheduler.DeleteReport(r.Context(), h.storage, h.blobs, &rep); err != nil {
				h.logger.Warn().Str("report_id", rep.ID).Err(err).Msg("Failed to delete report during schedule cascade")
			}
		}
	}

	if err := h.storage.Schedules().Delete(r.Context(), sched.ID); err != nil {
		WriteStorageError(w, err)
		return
	}

	h.logger.Info().Str("schedule_id", sched.ID).Msg("Schedule deleted")
	w.WriteHeader(http.StatusNoContent)
}

// trigger starts a run immediately without touching NextRunAt.
func (h *SchedulesHandler) trigger(w http.ResponseWriter, r *http.Request, id string) {
	sched, ok := h.load(w, r, id)
	if !ok {
		return
	}

	run, err := h.engine.StartRun(r.Context(), sched)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusAccepted, run)
}

// load fetches the schedule and enforces ownership. A schedule owned by
// another user reads as not found.
func (h *SchedulesHandler) load(w http.ResponseWriter, r *http.Request, id string) (*models.Schedule, bool) {
	user := common.UserFromContext(r.Context())

	sched, err := h.storage.Schedules().Get(r.Context(), id)
	if err != nil {
		WriteStorageError(w, err)
		return nil, false
	}
	if sched.UserID != user.ID {
		WriteError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	return sched, true
}

// splitItemPath peels "{id}" and an optional "{id}/{action}" off a
// route prefix.
func splitItemPath(path, prefix string) (id, action string) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action
}
