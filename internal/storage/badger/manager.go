package badger

import (
	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger.
type Manager struct {
	db             *BadgerDB
	schedules      interfaces.ScheduleStorage
	runs           interfaces.RunStorage
	reports        interfaces.ReportStorage
	trackedStocks  interfaces.TrackedStockStorage
	orchestrations interfaces.OrchestrationStorage
	logger         *common.Logger
}

// NewManager creates a new Badger storage manager.
func NewManager(logger *common.Logger, cfg *config.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:             db,
		schedules:      NewScheduleStorage(db, logger),
		runs:           NewRunStorage(db, logger),
		reports:        NewReportStorage(db, logger),
		trackedStocks:  NewTrackedStockStorage(db, logger),
		orchestrations: NewOrchestrationStorage(db, logger),
		logger:         logger,
	}

	logger.Debug().Msg("Badger storage manager initialized")

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

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
