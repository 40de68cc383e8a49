package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"curiousqa/pkg/curiouscat"
	"curiousqa/pkg/logger"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	username   TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SQLiteStore keeps snapshots as JSON documents in a single SQLite table
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// OpenSQLite opens (or creates) the database at path. Pass ":memory:" for an
// in-memory database.
func OpenSQLite(path string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// One connection avoids "database is locked" and keeps :memory: shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: log}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, username string) (*curiouscat.Snapshot, error) {
	var document string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM snapshots WHERE username = ?", username).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.DebugWithFields("No cached snapshot", map[string]interface{}{
			"username": username,
		})
		return curiouscat.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	var snap curiouscat.Snapshot
	if err := json.Unmarshal([]byte(document), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot for %s: %w", username, err)
	}
	return &snap, nil
}

func (s *SQLiteStore) Save(ctx context.Context, username string, snap *curiouscat.Snapshot) error {
	document, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (username, document, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(username) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		username, string(document), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	s.logger.DebugWithFields("Snapshot saved", map[string]interface{}{
		"username": username,
		"posts":    len(snap.Posts),
	})
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
