package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFunc streams content into w and reports the bytes written.
type WriteFunc func(w io.Writer) (int64, error)

type Manager struct {
	baseDir     string
	stagingRoot string
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir:     baseDir,
		stagingRoot: filepath.Join(baseDir, ".staging"),
	}
}

func (m *Manager) FinalDir() string {
	return m.baseDir
}

func (m *Manager) StagingRoot() string {
	return m.stagingRoot
}

func (m *Manager) StagingDir(batch string) string {
	return filepath.Join(m.stagingRoot, batch)
}

func (m *Manager) PrepareStaging(batch string) error {
	dir := m.StagingDir(batch)
	return os.MkdirAll(dir, 0750)
}

// WriteAtomic writes destPath through a sibling temp file and renames it
// into place, so readers never observe a partial file.
func (m *Manager) WriteAtomic(destPath string, write WriteFunc) (int64, error) {
	// Create parent directories
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return 0, fmt.Errorf("creating directories: %w", err)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	size, err := write(f)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("writing file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}

	return size, nil
}

func (m *Manager) CommitStaging(batch string) error {
	stagingDir := m.StagingDir(batch)
	finalDir := filepath.Join(m.baseDir, batch)

	// Walk staging and move files
	return filepath.Walk(stagingDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return err
		}

		destPath := filepath.Join(finalDir, relPath)
		if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
			return err
		}

		return os.Rename(path, destPath)
	})
}

func (m *Manager) CleanupStaging(batch string) error {
	return os.RemoveAll(m.StagingDir(batch))
}
