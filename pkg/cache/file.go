package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"curiousqa/pkg/curiouscat"
	"curiousqa/pkg/logger"
	"curiousqa/pkg/storage"

	json "github.com/goccy/go-json"
)

// FileStore keeps each snapshot in {dir}/{username}.json
type FileStore struct {
	dir    string
	logger logger.Logger
}

// NewFileStore creates a file-backed store rooted at dir
func NewFileStore(dir string, log logger.Logger) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &FileStore{dir: dir, logger: log}, nil
}

// Path returns the snapshot file for username
func (s *FileStore) Path(username string) string {
	return filepath.Join(s.dir, filepath.Base(username)+".json")
}

func (s *FileStore) Load(ctx context.Context, username string) (*curiouscat.Snapshot, error) {
	path := s.Path(username)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.DebugWithFields("No cached snapshot", map[string]interface{}{
				"username": username,
				"path":     path,
			})
			return curiouscat.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap curiouscat.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}

	s.logger.DebugWithFields("Snapshot loaded", map[string]interface{}{
		"username": username,
		"posts":    len(snap.Posts),
	})

	return &snap, nil
}

func (s *FileStore) Save(ctx context.Context, username string, snap *curiouscat.Snapshot) error {
	path := s.Path(username)

	err := storage.WriteFileAtomic(path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(snap)
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.DebugWithFields("Snapshot saved", map[string]interface{}{
		"username": username,
		"posts":    len(snap.Posts),
		"path":     path,
	})

	return nil
}

func (s *FileStore) Close() error { return nil }
