package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// ReportStorage implements interfaces.ReportStorage on the JSON file
// backend.
type ReportStorage struct {
	db *FileDB
}

// NewReportStorage creates a new file-backed report storage.
func NewReportStorage(db *FileDB) *ReportStorage {
	return &ReportStorage{db: db}
}

// Put stores or replaces a report.
func (s *ReportStorage) Put(_ context.Context, rep *models.Report) error {
	return s.db.update(func(d *database) error {
		d.Reports[rep.ID] = *rep
		return nil
	})
}

// Get retrieves a report by ID.
func (s *ReportStorage) Get(_ context.Context, id string) (*models.Report, error) {
	var rep models.Report
	err := s.db.view(func(d *database) error {
		got, ok := d.Reports[id]
		if !ok {
			return fmt.Errorf("report %s: %w", id, interfaces.ErrNotFound)
		}
		rep = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// Delete removes a report's metadata.
func (s *ReportStorage) Delete(_ context.Context, id string) error {
	return s.db.update(func(d *database) error {
		delete(d.Reports, id)
		return nil
	})
}

// ListByUser retrieves reports for a user, newest first, at most limit.
func (s *ReportStorage) ListByUser(_ context.Context, userID string, limit int) ([]models.Report, error) {
	var reps []models.Report
	err := s.db.view(func(d *database) error {
		for _, rep := range d.Reports {
			if rep.UserID == userID {
				reps = append(reps, rep)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(reps, func(i, j int) bool {
		return reps[i].CreatedAt > reps[j].CreatedAt
	})
	if limit > 0 && len(reps) > limit {
		reps = reps[:limit]
	}
	return reps, nil
}

// ListOlderThan retrieves reports created before cutoffISO, across all
// users.
func (s *ReportStorage) ListOlderThan(_ context.Context, cutoffISO string) ([]models.Report, error) {
	var reps []models.Report
	err := s.db.view(func(d *database) error {
		for _, rep := range d.Reports {
			if rep.CreatedAt != "" && rep.CreatedAt < cutoffISO {
				reps = append(reps, rep)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(reps, func(i, j int) bool {
		return reps[i].CreatedAt < reps[j].CreatedAt
	})
	return reps, nil
}
