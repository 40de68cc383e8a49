package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"curiousqa/pkg/config"
	"curiousqa/pkg/curiouscat"
	"curiousqa/pkg/logger"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aliceDoc = `{
	"userData": {"username": "alice", "answers": 2},
	"posts": [
		{"type": "post", "post": {"comment": "q1", "reply": "a1", "timestamp": 1700000200}},
		{"type": "post", "post": {"comment": "q2", "reply": "a2", "timestamp": 1700000100}}
	]
}`

func mustSnapshot(t *testing.T, doc string) *curiouscat.Snapshot {
	t.Helper()
	var snap curiouscat.Snapshot
	require.NoError(t, json.Unmarshal([]byte(doc), &snap))
	return &snap
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	log := logger.NewNopLogger()

	fileStore, err := NewFileStore(t.TempDir(), log)
	require.NoError(t, err)

	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{"file": fileStore, "sqlite": sqliteStore}
}

func TestLoadMissingReturnsEmptySnapshot(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			snap, err := store.Load(context.Background(), "nobody")
			require.NoError(t, err)
			assert.Empty(t, snap.Posts)
			assert.Equal(t, int64(1700009999), snap.Cursor(1700009999))
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "alice", mustSnapshot(t, aliceDoc)))

			snap, err := store.Load(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, snap.Posts, 2)
			assert.Equal(t, "q1", *snap.Posts[0].Post.Comment)
			assert.Equal(t, int64(1700000100), snap.Cursor(0))
			assert.JSONEq(t, `{"username": "alice", "answers": 2}`, string(snap.Metadata["userData"]))
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "alice", mustSnapshot(t, aliceDoc)))
			require.NoError(t, store.Save(ctx, "alice", curiouscat.NewSnapshot()))

			snap, err := store.Load(ctx, "alice")
			require.NoError(t, err)
			assert.Empty(t, snap.Posts)
		})
	}
}

func TestFileStoreReadsExistingDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice.json"), []byte(aliceDoc), 0644))

	store, err := NewFileStore(dir, logger.NewNopLogger())
	require.NoError(t, err)

	snap, err := store.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, snap.Posts, 2)
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice.json"), []byte("{not json"), 0644))

	store, err := NewFileStore(dir, logger.NewNopLogger())
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "alice")
	assert.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	store, err := New(config.CacheConfig{Backend: "file", Directory: dir}, logger.NewNopLogger())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = New(config.CacheConfig{Backend: "sqlite", SQLitePath: filepath.Join(dir, "c.db")}, logger.NewNopLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	store.Close()

	_, err = New(config.CacheConfig{Backend: "redis"}, logger.NewNopLogger())
	assert.Error(t, err)
}
