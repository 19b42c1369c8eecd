package badger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// ReportStorage implements interfaces.ReportStorage using BadgerDB.
type ReportStorage struct {
	db     *BadgerDB
	logger *common.Logger
}

// NewReportStorage creates a new report storage backed by BadgerDB.
func NewReportStorage(db *BadgerDB, logger *common.Logger) *ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

// Put stores or replaces a report.
func (s *ReportStorage) Put(_ context.Context, rep *models.Report) error {
	if err := s.db.Store().Upsert(rep.ID, rep); err != nil {
		return fmt.Errorf("failed to put report %s: %w", rep.ID, err)
	}
	return nil
}

// Get retrieves a report by ID.
func (s *ReportStorage) Get(_ context.Context, id string) (*models.Report, error) {
	var rep models.Report
	err := s.db.Store().Get(id, &rep)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("report %s: %w", id, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}
	return &rep, nil
}

// Delete removes a report's metadata. Blob artifacts are deleted
// separately by the caller.
func (s *ReportStorage) Delete(_ context.Context, id string) error {
	err := s.db.Store().Delete(id, models.Report{})
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}
	return nil
}

// ListByUser retrieves reports for a user, newest first, at most limit.
func (s *ReportStorage) ListByUser(_ context.Context, userID string, limit int) ([]models.Report, error) {
	var reps []models.Report
	query := badgerhold.Where("UserID").Eq(userID).Index("UserID").
		SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&reps, query); err != nil {
		return nil, fmt.Errorf("failed to list reports for user %s: %w", userID, err)
	}
	return reps, nil
}

// ListOlderThan retrieves reports created before cutoffISO, across all
// users, for the retention sweep.
func (s *ReportStorage) ListOlderThan(_ context.Context, cutoffISO string) ([]models.Report, error) {
	var reps []models.Report
	query := badgerhold.Where("CreatedAt").Ne("").And("CreatedAt").Lt(cutoffISO)
	if err := s.db.Store().Find(&reps, query); err != nil {
		return nil, fmt.Errorf("failed to list reports older than %s: %w", cutoffISO, err)
	}
	return reps, nil
}
