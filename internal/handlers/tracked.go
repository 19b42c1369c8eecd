package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// TrackedStocksHandler manages the tracked-stock watchlist.
type TrackedStocksHandler struct {
	logger  *common.Logger
	storage interfaces.StorageManager
	prices  interfaces.PriceFeed
}

// NewTrackedStocksHandler creates a new tracked stocks handler.
func NewTrackedStocksHandler(logger *common.Logger, storage interfaces.StorageManager, prices interfaces.PriceFeed) *TrackedStocksHandler {
	return &TrackedStocksHandler{logger: logger, storage: storage, prices: prices}
}

// ServeCollection handles GET (list) and POST (create) on /api/tracked-stocks.
func (h *TrackedStocksHandler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ServeItem handles /api/tracked-stocks/{id} and /api/tracked-stocks/prices.
func (h *TrackedStocksHandler) ServeItem(w http.ResponseWriter, r *http.Request) {
	id, action := splitItemPath(r.URL.Path, "/api/tracked-stocks/")
	if id == "prices" && action == "" {
		if !RequireMethod(w, r, "GET") {
			return
		}
		h.currentPrices(w, r)
		return
	}
	if id == "" || action != "" {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}
	if !RequireMethod(w, r, "DELETE") {
		return
	}
	h.delete(w, r, id)
}

func (h *TrackedStocksHandler) list(w http.ResponseWriter, r *http.Request) {
	user := common.UserFromContext(r.Context())

	items, err := h.storage.TrackedStocks().ListByUser(r.Context(), user.ID)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	if items == nil {
		items = []models.TrackedStock{}
	}
	WriteJSON(w, http.StatusOK, items)
}

func (h *TrackedStocksHandler) create(w http.ResponseWriter, r *http.Request) {
	user := common.UserFromContext(r.Context())

	var req struct {
		Symbol              string   `json:"symbol"`
		ReportID            string   `json:"reportId"`
		ReportTitle         string   `json:"reportTitle"`
		RecommendationDate  string   `json:"recommendationDate"`
		RecommendationPrice *float64 `json:"recommendationPrice"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if req.RecommendationDate == "" {
		WriteError(w, http.StatusBadRequest, "recommendationDate is required")
		return
	}
	if req.RecommendationPrice == nil {
		WriteError(w, http.StatusBadRequest, "recommendationPrice is required")
		return
	}

	stock := &models.TrackedStock{
		ID:                  uuid.NewString(),
		UserID:              user.ID,
		Symbol:              symbol,
		ReportID:            req.ReportID,
		ReportTitle:         req.ReportTitle,
		RecommendationDate:  req.RecommendationDate,
		RecommendationPrice: *req.RecommendationPrice,
		CreatedAt:           models.FormatTime(time.Now().UTC()),
	}

	stored, err := h.storage.TrackedStocks().Upsert(r.Context(), stock)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, stored)
}

func (h *TrackedStocksHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	user := common.UserFromContext(r.Context())

	stock, err := h.storage.TrackedStocks().Get(r.Context(), id)
	if err != nil {
		WriteStorageError(w, err)
		return
	}
	if stock.UserID != user.ID {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}
	if err := h.storage.TrackedStocks().Delete(r.Context(), id); err != nil {
		WriteStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// currentPrices returns the latest quote per distinct tracked symbol.
// Symbols whose quote fails are omitted rather than failing the call.
func (h *TrackedStocksHandler) currentPrices(w http.ResponseWriter, r *http.Request) {
	user := common.UserFromContext(r.Context())

	items, err := h.storage.TrackedStocks().ListByUser(r.Context(), user.ID)
	if err != nil {
		WriteStorageError(w, err)
		return
	}

	prices := map[string]float64{}
	for _, stock := range items {
		if _, done := prices[stock.Symbol]; done {
			continue
		}
		price, err := h.prices.LatestPrice(r.Context(), stock.Symbol)
		if err != nil {
			h.logger.Warn().Str("symbol", stock.Symbol).Err(err).Msg("Quote lookup failed")
			continue
		}
		prices[stock.Symbol] = price
	}
	WriteJSON(w, http.StatusOK, prices)
}
