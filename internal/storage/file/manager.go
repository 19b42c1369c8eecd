package file

import (
	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
)

// Manager implements the StorageManager interface for the JSON file
// backend.
type Manager struct {
	db             *FileDB
	schedules      interfaces.ScheduleStorage
	runs           interfaces.RunStorage
	reports        interfaces.ReportStorage
	trackedStocks  interfaces.TrackedStockStorage
	orchestrations interfaces.OrchestrationStorage
	logger         *common.Logger
}

// NewManager creates a new file-backed storage manager.
func NewManager(logger *common.Logger, cfg *config.FileConfig) (interfaces.StorageManager, error) {
	db, err := NewFileDB(logger, cfg)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:             db,
		schedules:      NewScheduleStorage(db),
		runs:           NewRunStorage(db),
		reports:        NewReportStorage(db),
		trackedStocks:  NewTrackedStockStorage(db),
		orchestrations: NewOrchestrationStorage(db),
		logger:         logger,
	}

	logger.Debug().Msg("file storage manager initialized")

	return manager, nil
}

// Schedules returns the schedule storage interface.
func (m *Manager) Schedules() interfaces.ScheduleStorage {
	return m.schedules
}

// Runs returns the run storage interface.
func (m *Manager) Runs() interfaces.RunStorage {
	return m.runs
}

// Reports returns the report storage interface.
func (m *Manager) Reports() interfaces.ReportStorage {
	return m.reports
}

// TrackedStocks returns the tracked stock storage interface.
func (m *Manager) TrackedStocks() interfaces.TrackedStockStorage {
	return m.trackedStocks
}

// Orchestrations returns the orchestration state storage interface.
func (m *Manager) Orchestrations() interfaces.OrchestrationStorage {
	return m.orchestrations
}

// Close closes the store.
func (m *Manager) Close() error {
	return m.db.Close()
}
