package scraper

import (
	"context"

	"curiousqa/pkg/curiouscat"
)

// PageWalker walks a profile backward from cursor, handing every page to fn
type PageWalker interface {
	Walk(ctx context.Context, username string, cursor int64, fn curiouscat.PageFunc) (*curiouscat.WalkResult, error)
}

// SnapshotStore loads and saves cached snapshots
type SnapshotStore interface {
	Load(ctx context.Context, username string) (*curiouscat.Snapshot, error)
	Save(ctx context.Context, username string, snap *curiouscat.Snapshot) error
}

// ExportCache holds finished workbooks for a short time
type ExportCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
}
