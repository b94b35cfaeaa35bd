package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/horizons/internal/probe"
)

// FileStore keeps a single report artifact on disk. Each Save replaces the
// file atomically, so readers never see a partially written report.
//
// The encoding follows the extension: .yaml and .yml are YAML, anything else JSON.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore creates a store backed by path. The file need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the artifact location.
func (f *FileStore) Path() string {
	return f.path
}

// Save writes report to a temp file next to the artifact and renames it into place.
func (f *FileStore) Save(ctx context.Context, report probe.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.encode(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp report file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}

// Get returns the stored report if its ID matches.
func (f *FileStore) Get(ctx context.Context, id string) (*probe.Report, error) {
	report, err := f.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if report.ID != id {
		return nil, ErrNotFound
	}
	return report, nil
}

// Latest returns the stored report.
func (f *FileStore) Latest(ctx context.Context) (*probe.Report, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var report probe.Report
	if f.isYAML() {
		err = yaml.Unmarshal(data, &report)
	} else {
		err = json.Unmarshal(data, &report)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", f.path, err)
	}
	return &report, nil
}

// List returns the summary of the stored report, if any.
func (f *FileStore) List(ctx context.Context) ([]probe.Summary, error) {
	report, err := f.Latest(ctx)
	if errors.Is(err, ErrNotFound) {
		return []probe.Summary{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []probe.Summary{report.Summarize()}, nil
}

// Close is a no-op.
func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(f.path))
	return ext == ".yaml" || ext == ".yml"
}

func (f *FileStore) encode(report probe.Report) ([]byte, error) {
	if f.isYAML() {
		return yaml.Marshal(report)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
