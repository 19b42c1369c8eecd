package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// RunStorage implements interfaces.RunStorage on the JSON file backend.
type RunStorage struct {
	db *FileDB
}

// NewRunStorage creates a new file-backed run storage.
func NewRunStorage(db *FileDB) *RunStorage {
	return &RunStorage{db: db}
}

// Put stores or replaces a run record.
func (s *RunStorage) Put(_ context.Context, run *models.Run) error {
	return s.db.update(func(d *database) error {
		d.Runs[run.ID] = *run
		return nil
	})
}

// Get retrieves a run by ID.
func (s *RunStorage) Get(_ context.Context, id string) (*models.Run, error) {
	var run models.Run
	err := s.db.view(func(d *database) error {
		got, ok := d.Runs[id]
		if !ok {
			return fmt.Errorf("run %s: %w", id, interfaces.ErrNotFound)
		}
		run = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Delete removes a run record.
func (s *RunStorage) Delete(_ context.Context, id string) error {
	return s.db.update(func(d *database) error {
		delete(d.Runs, id)
		return nil
	})
}

// ListByUser retrieves runs for a user, newest first, at most limit.
func (s *RunStorage) ListByUser(_ context.Context, userID string, limit int) ([]models.Run, error) {
	var runs []models.Run
	err := s.db.view(func(d *database) error {
		for _, run := range d.Runs {
			if run.UserID == userID {
				runs = append(runs, run)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt > runs[j].CreatedAt
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
