package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sundaylabs/sunday-digest/internal/adapters/store"
	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a store based on the configuration
func (f *StoreFactory) CreateStore() (core.Store, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(storeCfg.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(storeCfg.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
