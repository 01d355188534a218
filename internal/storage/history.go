// Package storage persists the timeline history and caches commit statistics.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/naka-gawa/github-timeline/internal/domain"
)

// DefaultHistoryPath is where the website expects the timeline.
const DefaultHistoryPath = "src/timeline.json"

// historyJSON matches the standard encoder except that HTML characters are written as is,
// so summaries keep the bytes other tools wrote for them.
var historyJSON = sonic.Config{
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
}.Froze()

// HistoryStore reads and writes the timeline JSON file.
type HistoryStore struct {
	path string
}

// NewHistoryStore returns a store for the file at path.
func NewHistoryStore(path string) *HistoryStore {
	if path == "" {
		path = DefaultHistoryPath
	}
	return &HistoryStore{path: path}
}

// Path returns the file location.
func (s *HistoryStore) Path() string {
	return s.path
}

// Load returns the persisted history. A missing file is an empty history.
func (s *HistoryStore) Load() (domain.History, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.History{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history %s: %w", s.path, err)
	}
	history := domain.History{}
	if err := historyJSON.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to decode history %s: %w", s.path, err)
	}
	return history, nil
}

// Save pretty-prints history and replaces the file atomically.
func (s *HistoryStore) Save(history domain.History) error {
	if history == nil {
		history = domain.History{}
	}
	data, err := historyJSON.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".timeline-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
