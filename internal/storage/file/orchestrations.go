package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// OrchestrationStorage implements interfaces.OrchestrationStorage on the
// JSON file backend.
type OrchestrationStorage struct {
	db *FileDB
}

// NewOrchestrationStorage creates a new file-backed orchestration state
// storage.
func NewOrchestrationStorage(db *FileDB) *OrchestrationStorage {
	return &OrchestrationStorage{db: db}
}

// Put stores or replaces an orchestration state.
func (s *OrchestrationStorage) Put(_ context.Context, state *models.OrchestrationState) error {
	return s.db.update(func(d *database) error {
		d.Orchestrations[state.ID] = *state
		return nil
	})
}

// Get retrieves an orchestration state by run ID.
func (s *OrchestrationStorage) Get(_ context.Context, id string) (*models.OrchestrationState, error) {
	var state models.OrchestrationState
	err := s.db.view(func(d *database) error {
		got, ok := d.Orchestrations[id]
		if !ok {
			return fmt.Errorf("orchestration %s: %w", id, interfaces.ErrNotFound)
		}
		state = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Delete removes an orchestration state.
func (s *OrchestrationStorage) Delete(_ context.Context, id string) error {
	return s.db.update(func(d *database) error {
		delete(d.Orchestrations, id)
		return nil
	})
}

// ListActive retrieves orchestrations that have not reached a terminal
// stage, oldest first.
func (s *OrchestrationStorage) ListActive(_ context.Context) ([]models.OrchestrationState, error) {
	var states []models.OrchestrationState
	err := s.db.view(func(d *database) error {
		for _, state := range d.Orchestrations {
			if !state.Terminal() {
				states = append(states, state)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].CreatedAt < states[j].CreatedAt
	})
	return states, nil
}
