package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Manager writes exported spreadsheets into an output directory
type Manager struct {
	outputDir string
	written   map[string]string // username -> path
	mu        sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		written:   make(map[string]string),
	}, nil
}

// Path returns where the export named filename is written
func (m *Manager) Path(filename string) string {
	return filepath.Join(m.outputDir, filepath.Base(filename))
}

// Exists reports whether an export named filename is already on disk
func (m *Manager) Exists(filename string) bool {
	_, err := os.Stat(m.Path(filename))
	return err == nil
}

// SaveExport copies r into filename inside the output directory and returns
// the final path. The file appears only once it is complete.
func (m *Manager) SaveExport(r io.Reader, username, filename string) (string, error) {
	path := m.Path(filename)

	if err := WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	}); err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}

	m.mu.Lock()
	m.written[username] = path
	m.mu.Unlock()

	return path, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetWrittenCount returns the number of exports saved by this manager
func (m *Manager) GetWrittenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.written)
}

// WriteFileAtomic writes path through a temporary sibling that is synced
// and renamed into place, so readers never observe a partial file.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
