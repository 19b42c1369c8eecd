package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// ScheduleStorage implements interfaces.ScheduleStorage on the JSON file
// backend.
type ScheduleStorage struct {
	db *FileDB
}

// NewScheduleStorage creates a new file-backed schedule storage.
func NewScheduleStorage(db *FileDB) *ScheduleStorage {
	return &ScheduleStorage{db: db}
}

// Put stores or replaces a schedule.
func (s *ScheduleStorage) Put(_ context.Context, sched *models.Schedule) error {
	return s.db.update(func(d *database) error {
		d.Schedules[sched.ID] = *sched
		return nil
	})
}

// Get retrieves a schedule by ID.
func (s *ScheduleStorage) Get(_ context.Context, id string) (*models.Schedule, error) {
	var sched models.Schedule
	err := s.db.view(func(d *database) error {
		got, ok := d.Schedules[id]
		if !ok {
			return fmt.Errorf("schedule %s: %w", id, interfaces.ErrNotFound)
		}
		sched = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sched, nil
}

// Delete removes a schedule.
func (s *ScheduleStorage) Delete(_ context.Context, id string) error {
	return s.db.update(func(d *database) error {
		delete(d.Schedules, id)
		return nil
	})
}

// ListByUser retrieves all schedules for a user, newest first.
func (s *ScheduleStorage) ListByUser(_ context.Context, userID string) ([]models.Schedule, error) {
	var scheds []models.Schedule
	err := s.db.view(func(d *database) error {
		for _, sched := range d.Schedules {
			if sched.UserID == userID {
				scheds = append(scheds, sched)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(scheds, func(i, j int) bool {
		return scheds[i].CreatedAt > scheds[j].CreatedAt
	})
	return scheds, nil
}

// ListDue retrieves active schedules with NextRunAt <= nowISO, oldest
// first, at most limit. The file backend scans and sorts in memory; it
// is not meant for large schedule counts.
func (s *ScheduleStorage) ListDue(_ context.Context, nowISO string, limit int) ([]models.Schedule, error) {
	var due []models.Schedule
	err := s.db.view(func(d *database) error {
		for _, sched := range d.Schedules {
			if sched.Active && sched.NextRunAt != "" && sched.NextRunAt <= nowISO {
				due = append(due, sched)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRunAt < due[j].NextRunAt
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}
