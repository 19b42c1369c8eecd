package interfaces

import (
	"context"
	"errors"

	"github.com/stockscout/stockscout/internal/models"
)

// ErrNotFound is returned by the Get methods when no record exists for
// the given key. Both backends map their own sentinel onto this one.
var ErrNotFound = errors.New("record not found")

// StorageManager provides access to domain-specific storage interfaces.
// Implementations can be swapped (embedded BadgerDB now, a single JSON
// file for dev and tests).
type StorageManager interface {
	Schedules() ScheduleStorage
	Runs() RunStorage
	Reports() ReportStorage
	TrackedStocks() TrackedStockStorage
	Orchestrations() OrchestrationStorage
	Close() error
}

// ScheduleStorage persists recurring research schedules.
type ScheduleStorage interface {
	Put(ctx context.Context, s *models.Schedule) error
	Get(ctx context.Context, id string) (*models.Schedule, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]models.Schedule, error)
	// ListDue returns active schedules with NextRunAt <= nowISO, oldest
	// first, at most limit. nowISO uses the canonical timestamp layout.
	ListDue(ctx context.Context, nowISO string, limit int) ([]models.Schedule, error)
}

// RunStorage persists run records.
type RunStorage interface {
	Put(ctx context.Context, r *models.Run) error
	Get(ctx context.Context, id string) (*models.Run, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Run, error)
}

// ReportStorage persists report metadata. Report artifacts live in the
// object store, keyed by the report's BlobPaths.
type ReportStorage interface {
	Put(ctx context.Context, r *models.Report) error
	Get(ctx context.Context, id string) (*models.Report, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Report, error)
	// ListOlderThan returns reports with CreatedAt < cutoffISO, across
	// all users. Used by the retention sweep.
	ListOlderThan(ctx context.Context, cutoffISO string) ([]models.Report, error)
}

// TrackedStockStorage persists stock recommendations extracted from
// reports.
type TrackedStockStorage interface {
	// Upsert inserts the stock, or merges it into an existing record
	// with the same (UserID, Symbol, ReportID). On merge the earlier
	// RecommendationDate wins. Returns the stored record.
	Upsert(ctx context.Context, ts *models.TrackedStock) (*models.TrackedStock, error)
	Get(ctx context.Context, id string) (*models.TrackedStock, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]models.TrackedStock, error)
}

// OrchestrationStorage persists per-run checkpoint state.
type OrchestrationStorage interface {
	Put(ctx context.Context, s *models.OrchestrationState) error
	Get(ctx context.Context, id string) (*models.OrchestrationState, error)
	Delete(ctx context.Context, id string) error
	// ListActive returns states whose stage is not terminal, for
	// resuming interrupted runs at startup.
	ListActive(ctx context.Context) ([]models.OrchestrationState, error)
}
