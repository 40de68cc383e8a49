package cache

import (
	"context"
	"fmt"

	"curiousqa/pkg/config"
	"curiousqa/pkg/curiouscat"
	"curiousqa/pkg/logger"
)

// Store persists one profile snapshot per username
type Store interface {
	// Load returns the saved snapshot, or an empty one when none exists
	Load(ctx context.Context, username string) (*curiouscat.Snapshot, error)
	// Save replaces the saved snapshot for username
	Save(ctx context.Context, username string, snap *curiouscat.Snapshot) error
	Close() error
}

// New opens the backend selected by cfg
func New(cfg config.CacheConfig, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "cache")

	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Directory, log)
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, log)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
