package cache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"PivotMirror/internal/series"
)

// Entry describes one cached series.
type Entry struct {
	Key       string
	Path      string
	LastWrite *time.Time
}

// FileStore caches raw series as CSV files under Dir, one file per key.
// The file's modification time is the entry's last write time.
type FileStore struct {
	Dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Path returns the file backing key. Keys that already look like a path
// (absolute, or carrying a .csv extension) are used as-is.
func (s *FileStore) Path(key string) string {
	if filepath.IsAbs(key) || filepath.Ext(key) == ".csv" {
		return key
	}
	return filepath.Join(s.Dir, key+".csv")
}

// Lookup returns the cache entry for key. LastWrite is nil when no file
// exists yet.
func (s *FileStore) Lookup(key string) (Entry, error) {
	e := Entry{Key: key, Path: s.Path(key)}
	fi, err := os.Stat(e.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return e, nil
		}
		return e, fmt.Errorf("stat cache %s: %w", e.Path, err)
	}
	mt := fi.ModTime()
	e.LastWrite = &mt
	return e, nil
}

// LastWriteTime returns when key was last written, or nil if never.
func (s *FileStore) LastWriteTime(key string) (*time.Time, error) {
	e, err := s.Lookup(key)
	if err != nil {
		return nil, err
	}
	return e.LastWrite, nil
}

// Load reads the cached table for key.
func (s *FileStore) Load(key string) (series.RawTable, error) {
	t, err := series.ReadCSVFile(s.Path(key))
	if err != nil {
		return series.RawTable{}, fmt.Errorf("load cache %s: %w", key, err)
	}
	return t, nil
}

// Save overwrites the cached table for key. The file is written to a
// temporary sibling and renamed so readers never see a partial file.
func (s *FileStore) Save(key string, t series.RawTable) error {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	var buf bytes.Buffer
	if err := series.WriteCSV(&buf, t); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write cache %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename cache %s: %w", key, err)
	}
	return nil
}
