package badger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// OrchestrationStorage implements interfaces.OrchestrationStorage using
// BadgerDB.
type OrchestrationStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewOrchestrationStorage creates a new orchestration state storage
// backed by BadgerDB.
func NewOrchestrationStorage(db *BadgerDB, logger *common.Logger) *OrchestrationStorage {
	return &OrchestrationStorage{
		db:     db,
		logger: logger,
	}
}

// Put stores or replaces an orchestration state.
func (s *OrchestrationStorage) Put(_ context.Context, state *models.OrchestrationState) error {
	if err := s.db.Store().Upsert(state.ID, state); err != nil {
		return fmt.Errorf("failed to put orchestration %s: %w", state.ID, err)
	}
	return nil
}

// Get retrieves an orchestration state by run ID.
func (s *OrchestrationStorage) Get(_ context.Context, id string) (*models.OrchestrationState, error) {
	var state models.OrchestrationState
	err := s.db.Store().Get(id, &state)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("orchestration %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get orchestration %s: %w", id, err)
	}
	return &state, nil
}

// Delete removes an orchestration state.
func (s *OrchestrationStorage) Delete(_ context.Context, id string) error {
	err := s.db.Store().Delete(id, models.OrchestrationState{})
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete orchestration %s: %w", id, err)
	}
	return nil
}

// ListActive retrieves orchestrations that have not reached a terminal
// stage, oldest first. Used at startup to resume interrupted runs.
func (s *OrchestrationStorage) ListActive(_ context.Context) ([]models.OrchestrationState, error) {
	var states []models.OrchestrationState
	query := badgerhold.Where("Stage").Ne(models.StageCompleted).
		And("Stage").Ne(models.StageFailed).
		SortBy("CreatedAt")
	if err := s.db.Store().Find(&states, query); err != nil {
		return nil, fmt.Errorf("failed to list active orchestrations: %w", err)
	}
	return states, nil
}
