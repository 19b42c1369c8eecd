package badger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// RunStorage implements interfaces.RunStorage using BadgerDB.
type RunStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewRunStorage creates a new run storage backed by BadgerDB.
func NewRunStorage(db *BadgerDB, logger *common.Logger) *RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

// Put stores or replaces a run record.
func (s *RunStorage) Put(_ context.Context, run *models.Run) error {
	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to put run %s: %w", run.ID, err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *RunStorage) Get(_ context.Context, id string) (*models.Run, error) {
	var run models.Run
	err := s.db.Store().Get(id, &run)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("run %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}

// Delete removes a run record.
func (s *RunStorage) Delete(_ context.Context, id string) error {
	err := s.db.Store().Delete(id, models.Run{})
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}

// ListByUser retrieves runs for a user, newest first, at most limit.
func (s *RunStorage) ListByUser(_ context.Context, userID string, limit int) ([]models.Run, error) {
	var runs []models.Run
	query := badgerhold.Where("UserID").Eq(userID).Index("UserID").
		SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs for user %s: %w", userID, err)
	}
	return runs, nil
}
