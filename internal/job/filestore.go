package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const shareScheme = "share://"

var ErrBadReference = errors.New("job: invalid artifact reference")

// FileStore writes export artifacts to the shared volume and hands out
// share:// references for them.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save writes data under the given file name and returns its reference.
func (f *FileStore) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("job: create share folder: %w", err)
	}
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("job: write artifact: %w", err)
	}
	return shareScheme + name, nil
}

// Open loads the artifact behind a share:// reference. References never
// escape the share folder.
func (f *FileStore) Open(ref string) ([]byte, error) {
	name, ok := strings.CutPrefix(ref, shareScheme)
	if !ok || name == "" || name != filepath.Base(name) {
		return nil, ErrBadReference
	}
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		return nil, fmt.Errorf("job: read artifact: %w", err)
	}
	return data, nil
}

// Delete removes the artifact behind a reference. Missing files are fine.
func (f *FileStore) Delete(ref string) error {
	name, ok := strings.CutPrefix(ref, shareScheme)
	if !ok || name == "" || name != filepath.Base(name) {
		return ErrBadReference
	}
	err := os.Remove(filepath.Join(f.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DeleteOlderThan removes artifacts whose modification time is before
// the cutoff, returning how many were deleted.
func (f *FileStore) DeleteOlderThan(age time.Duration) (int, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := time.Now().Add(-age)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(f.dir, entry.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}
