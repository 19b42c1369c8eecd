// Package file implements the storage interfaces on a single JSON file.
// It is the dev and test backend: all collections live in one document,
// guarded by a mutex, persisted atomically on every mutation.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/models"
)

// database is the on-disk document. Each collection is keyed by record ID.
type database struct {
	Schedules      map[string]models.Schedule           `json:"schedules"`
	Runs           map[string]models.Run                `json:"runs"`
	Reports        map[string]models.Report             `json:"reports"`
	TrackedStocks  map[string]models.TrackedStock       `json:"trackedStocks"`
	Orchestrations map[string]models.OrchestrationState `json:"orchestrations"`
}

func newDatabase() database {
	return database{
		Schedules:      make(map[string]models.Schedule),
		Runs:           make(map[string]models.Run),
		Reports:        make(map[string]models.Report),
		TrackedStocks:  make(map[string]models.TrackedStock),
		Orchestrations: make(map[string]models.OrchestrationState),
	}
}

// FileDB owns the JSON document and serializes access to it.
type FileDB struct {
	path   string
	logger *common.Logger

	mu   sync.Mutex
	data database
}

// NewFileDB opens or creates the JSON store at cfg.Path.
func NewFileDB(logger *common.Logger, cfg *config.FileConfig) (*FileDB, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db := &FileDB{
		path:   cfg.Path,
		logger: logger,
		data:   newDatabase(),
	}

	raw, err := os.ReadFile(cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("path", cfg.Path).Msg("file store created")
			return db, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &db.data); err != nil {
			return nil, fmt.Errorf("failed to parse store file %s: %w", cfg.Path, err)
		}
	}
	// Collections absent from an older file come back nil
	if db.data.Schedules == nil {
		db.data.Schedules = make(map[string]models.Schedule)
	}
	if db.data.Runs == nil {
		db.data.Runs = make(map[string]models.Run)
	}
	if db.data.Reports == nil {
		db.data.Reports = make(map[string]models.Report)
	}
	if db.data.TrackedStocks == nil {
		db.data.TrackedStocks = make(map[string]models.TrackedStock)
	}
	if db.data.Orchestrations == nil {
		db.data.Orchestrations = make(map[string]models.OrchestrationState)
	}

	logger.Debug().Str("path", cfg.Path).Msg("file store loaded")
	return db, nil
}

// update runs fn against the document under the lock and persists the
// result. The write goes to a temp file first and is renamed into place,
// so a crash mid-write never corrupts the store.
func (db *FileDB) update(fn func(*database) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := fn(&db.data); err != nil {
		return err
	}
	return db.persistLocked()
}

// view runs fn against a read-only snapshot of the document.
func (db *FileDB) view(fn func(*database) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(&db.data)
}

func (db *FileDB) persistLocked() error {
	raw, err := json.MarshalIndent(&db.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	tmp := db.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, db.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// Close is a no-op; every mutation is already persisted.
func (db *FileDB) Close() error {
	return nil
}
