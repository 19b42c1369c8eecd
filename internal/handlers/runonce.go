package handlers

import (
	"net/http"
	"strings"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/models"
	"github.com/stockscout/stockscout/internal/research"
)

// RunOnceHandler starts an ad hoc research run outside any schedule.
type RunOnceHandler struct {
	logger *common.Logger
	engine *research.Engine
}

// NewRunOnceHandler creates a new run-once handler.
func NewRunOnceHandler(logger *common.Logger, engine *research.Engine) *RunOnceHandler {
	return &RunOnceHandler{logger: logger, engine: engine}
}

// ServeHTTP handles POST /api/run-once.
func (h *RunOnceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	user := common.UserFromContext(r.Context())

	var req struct {
		Prompt       string               `json:"prompt"`
		Symbols      []string             `json:"symbols"`
		Email        models.EmailSettings `json:"email"`
		DeepResearch bool                 `json:"deepResearch"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	symbols := normalizeSymbols(req.Symbols)
	if err := validateInput(prompt, symbols); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.engine.StartRun(r.Context(), &models.Schedule{
		ID:           models.OneOffScheduleID,
		UserID:       user.ID,
		Prompt:       prompt,
		Symbols:      symbols,
		Email:        req.Email,
		DeepResearch: req.DeepResearch,
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info().Str("run_id", run.ID).Str("user_id", user.ID).Msg("Ad hoc run started")
	WriteJSON(w, http.StatusAccepted, run)
}
