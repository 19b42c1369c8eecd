package storage

import (
	"fmt"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/storage/badger"
	"github.com/stockscout/stockscout/internal/storage/file"
)

// NewStorageManager creates a new storage manager based on config.
// The backend is fixed for the life of the process.
func NewStorageManager(logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	switch cfg.Storage.Backend {
	case "badger", "":
		return badger.NewManager(logger, &cfg.Storage.Badger)
	case "file":
		return file.NewManager(logger, &cfg.Storage.File)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
