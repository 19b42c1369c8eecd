package badger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// ScheduleStorage implements interfaces.ScheduleStorage using BadgerDB.
type ScheduleStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewScheduleStorage creates a new schedule storage backed by BadgerDB.
func NewScheduleStorage(db *BadgerDB, logger *common.Logger) *ScheduleStorage {
	return &ScheduleStorage{
		db:     db,
		logger: logger,
	}
}

// Put stores or replaces a schedule.
func (s *ScheduleStorage) Put(_ context.Context, sched *models.Schedule) error {
	if err := s.db.Store().Upsert(sched.ID, sched); err != nil {
		return fmt.Errorf("failed to put schedule %s: %w", sched.ID, err)
	}
	return nil
}

// Get retrieves a schedule by ID.
func (s *ScheduleStorage) Get(_ context.Context, id string) (*models.Schedule, error) {
	var sched models.Schedule
	err := s.db.Store().Get(id, &sched)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("schedule %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get schedule %s: %w", id, err)
	}
	return &sched, nil
}

// Delete removes a schedule.
func (s *ScheduleStorage) Delete(_ context.Context, id string) error {
	err := s.db.Store().Delete(id, models.Schedule{})
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}
	return nil
}

// ListByUser retrieves all schedules for a user, newest first.
func (s *ScheduleStorage) ListByUser(_ context.Context, userID string) ([]models.Schedule, error) {
	var scheds []models.Schedule
	query := badgerhold.Where("UserID").Eq(userID).Index("UserID").
		SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&scheds, query); err != nil {
		return nil, fmt.Errorf("failed to list schedules for user %s: %w", userID, err)
	}
	return scheds, nil
}

// ListDue retrieves active schedules whose next run is at or before
// nowISO, oldest first. Canonical timestamps sort lexicographically in
// chronological order, so a plain string comparison is correct here.
func (s *ScheduleStorage) ListDue(_ context.Context, nowISO string, limit int) ([]models.Schedule, error) {
	var scheds []models.Schedule
	query := badgerhold.Where("Active").Eq(true).
		And("NextRunAt").Ne("").
		And("NextRunAt").Le(nowISO).
		SortBy("NextRunAt")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&scheds, query); err != nil {
		return nil, fmt.Errorf("failed to list due schedules: %w", err)
	}
	return scheds, nil
}
