package badger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// TrackedStockStorage implements interfaces.TrackedStockStorage using
// BadgerDB.
type TrackedStockStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewTrackedStockStorage creates a new tracked stock storage backed by
// BadgerDB.
func NewTrackedStockStorage(db *BadgerDB, logger *common.Logger) *TrackedStockStorage {
	return &TrackedStockStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the stock, deduplicating on (UserID, Symbol, ReportID).
// When a duplicate exists, the record with the earlier RecommendationDate
// is kept. Returns the record as stored.
func (s *TrackedStockStorage) Upsert(_ context.Context, ts *models.TrackedStock) (*models.TrackedStock, error) {
	var existing []models.TrackedStock
	query := badgerhold.Where("UserID").Eq(ts.UserID).Index("UserID").
		And("Symbol").Eq(ts.Symbol).
		And("ReportID").Eq(ts.ReportID)
	if err := s.db.Store().Find(&existing, query); err != nil {
		return nil, fmt.Errorf("failed to query tracked stocks: %w", err)
	}

	if len(existing) > 0 {
		cur := existing[0]
		// ISO dates compare lexicographically
		if ts.RecommendationDate != "" &&
			(cur.RecommendationDate == "" || ts.RecommendationDate < cur.RecommendationDate) {
			cur.RecommendationDate = ts.RecommendationDate
			cur.RecommendationPrice = ts.RecommendationPrice
			if err := s.db.Store().Upsert(cur.ID, &cur); err != nil {
				return nil, fmt.Errorf("failed to update tracked stock %s: %w", cur.ID, err)
			}
		}
		return &cur, nil
	}

	if err := s.db.Store().Upsert(ts.ID, ts); err != nil {
		return nil, fmt.Errorf("failed to put tracked stock %s: %w", ts.ID, err)
	}
	return ts, nil
}

// Get retrieves a tracked stock by ID.
func (s *TrackedStockStorage) Get(_ context.Context, id string) (*models.TrackedStock, error) {
	var ts models.TrackedStock
	err := s.db.Store().Get(id, &ts)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("tracked stock %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tracked stock %s: %w", id, err)
	}
	return &ts, nil
}

// Delete removes a tracked stock.
func (s *TrackedStockStorage) Delete(_ context.Context, id string) error {
	err := s.db.Store().Delete(id, models.TrackedStock{})
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete tracked stock %s: %w", id, err)
	}
	return nil
}

// ListByUser retrieves all tracked stocks for a user, sorted by symbol.
func (s *TrackedStockStorage) ListByUser(_ context.Context, userID string) ([]models.TrackedStock, error) {
	var stocks []models.TrackedStock
	query := badgerhold.Where("UserID").Eq(userID).Index("UserID").SortBy("Symbol")
	if err := s.db.Store().Find(&stocks, query); err != nil {
		return nil, fmt.Errorf("failed to list tracked stocks for user %s: %w", userID, err)
	}
	return stocks, nil
}
