package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// TrackedStockStorage implements interfaces.TrackedStockStorage on the
// JSON file backend.
type TrackedStockStorage struct {
	db *FileDB
}

// NewTrackedStockStorage creates a new file-backed tracked stock
// storage.
func NewTrackedStockStorage(db *FileDB) *TrackedStockStorage {
	return &TrackedStockStorage{db: db}
}

// Upsert inserts the stock, deduplicating on (UserID, Symbol, ReportID);
// the earlier RecommendationDate wins on merge. Returns the record as
// stored.
func (s *TrackedStockStorage) Upsert(_ context.Context, ts *models.TrackedStock) (*models.TrackedStock, error) {
	var stored models.TrackedStock
	err := s.db.update(func(d *database) error {
		for id, cur := range d.TrackedStocks {
			if cur.UserID == ts.UserID && cur.Symbol == ts.Symbol && cur.ReportID == ts.ReportID {
				if ts.RecommendationDate != "" &&
					(cur.RecommendationDate == "" || ts.RecommendationDate < cur.RecommendationDate) {
					cur.RecommendationDate = ts.RecommendationDate
					cur.RecommendationPrice = ts.RecommendationPrice
					d.TrackedStocks[id] = cur
				}
				stored = cur
				return nil
			}
		}
		d.TrackedStocks[ts.ID] = *ts
		stored = *ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Get retrieves a tracked stock by ID.
func (s *TrackedStockStorage) Get(_ context.Context, id string) (*models.TrackedStock, error) {
	var ts models.TrackedStock
	err := s.db.view(func(d *database) error {
		got, ok := d.TrackedStocks[id]
		if !ok {
			return fmt.Errorf("tracked stock %s: %w", id, interfaces.ErrNotFound)
		}
		ts = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// Delete removes a tracked stock.
func (s *TrackedStockStorage) Delete(_ context.Context, id string) error {
	return s.db.update(func(d *database) error {
		delete(d.TrackedStocks, id)
		return nil
	})
}

// ListByUser retrieves all tracked stocks for a user, sorted by symbol.
func (s *TrackedStockStorage) ListByUser(_ context.Context, userID string) ([]models.TrackedStock, error) {
	var stocks []models.TrackedStock
	err := s.db.view(func(d *database) error {
		for _, ts := range d.TrackedStocks {
			if ts.UserID == userID {
				stocks = append(stocks, ts)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(stocks, func(i, j int) bool {
		return stocks[i].Symbol < stocks[j].Symbol
	})
	return stocks, nil
}
