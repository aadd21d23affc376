// Package store persists pipeline state as JSON files under the data
// directory: one queue file per stage, one crash-recovery current-item file
// per stage, and append-only per-outcome archives under history/.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"wai/internal/item"
)

// Store owns the data directory. All writes go through an atomic
// write-then-rename so readers never observe a torn file.
type Store struct {
	dataDir    string
	historyDir string
	logger     *slog.Logger
}

// New ensures the data and history directories exist and returns a store
// rooted there.
func New(dataDir string, logger *slog.Logger) (*Store, error) {
	if dataDir == "" {
		return nil, errors.New("store: data directory not set")
	}
	if logger == nil {
		logger = slog.Default()
	}
	historyDir := filepath.Join(dataDir, "history")
	for _, dir := range []string{dataDir, historyDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}
	return &Store{dataDir: dataDir, historyDir: historyDir, logger: logger}, nil
}

// QueuePath returns the queue file for a stage.
func (s *Store) QueuePath(stage item.Stage) string {
	return filepath.Join(s.dataDir, string(stage)+"_queue.json")
}

// CurrentPath returns the crash-recovery current-item file for a stage.
func (s *Store) CurrentPath(stage item.Stage) string {
	return filepath.Join(s.dataDir, "current_"+string(stage)+".json")
}

// ArchivePath returns the history file for a terminal outcome.
func (s *Store) ArchivePath(outcome item.Outcome) string {
	return filepath.Join(s.historyDir, outcome.Filename())
}

// LoadQueue reads a stage's queue. A missing file is an empty queue;
// malformed content is logged and treated as empty so a corrupt file never
// wedges the worker.
func (s *Store) LoadQueue(stage item.Stage) ([]item.Item, error) {
	return s.loadList(s.QueuePath(stage))
}

// SaveQueue atomically replaces a stage's queue file.
func (s *Store) SaveQueue(stage item.Stage, items []item.Item) error {
	return s.writeList(s.QueuePath(stage), items)
}

// LoadCurrent reads the current-item file for a stage. Returns nil when the
// stage has no in-flight item.
func (s *Store) LoadCurrent(stage item.Stage) (*item.Item, error) {
	path := s.CurrentPath(stage)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	var it item.Item
	if err := json.Unmarshal(data, &it); err != nil {
		s.logger.Warn("discarding malformed current-item file",
			slog.String("path", path), slog.String("error", err.Error()))
		return nil, nil
	}
	return &it, nil
}

// SaveCurrent atomically writes the current-item file for a stage.
func (s *Store) SaveCurrent(stage item.Stage, it item.Item) error {
	data, err := json.MarshalIndent(it, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal current item: %w", err)
	}
	return s.atomicWrite(s.CurrentPath(stage), data)
}

// ClearCurrent removes the current-item file. Missing files are fine.
func (s *Store) ClearCurrent(stage item.Stage) error {
	err := os.Remove(s.CurrentPath(stage))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: clear current: %w", err)
	}
	return nil
}

// ArchiveAppend appends an item to the outcome's history file, creating it
// on first use. Non-array content is repaired once with a warning.
func (s *Store) ArchiveAppend(outcome item.Outcome, it item.Item) error {
	path := s.ArchivePath(outcome)
	items := s.loadArchiveRepairing(path)
	items = append(items, it)
	return s.writeList(path, items)
}

// ArchiveLoad returns the items recorded under an outcome.
func (s *Store) ArchiveLoad(outcome item.Outcome) ([]item.Item, error) {
	return s.loadList(s.ArchivePath(outcome))
}

// ArchiveRemove deletes every archived item the predicate selects and
// reports how many were removed.
func (s *Store) ArchiveRemove(outcome item.Outcome, match func(item.Item) bool) (int, error) {
	path := s.ArchivePath(outcome)
	items, err := s.loadList(path)
	if err != nil {
		return 0, err
	}
	kept := items[:0]
	removed := 0
	for _, it := range items {
		if match(it) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.writeList(path, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) loadList(path string) ([]item.Item, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	var items []item.Item
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("discarding malformed queue file",
			slog.String("path", path), slog.String("error", err.Error()))
		return nil, nil
	}
	return items, nil
}

// loadArchiveRepairing reads an archive, flattening non-array content to an
// empty list so the next write restores a valid file.
func (s *Store) loadArchiveRepairing(path string) []item.Item {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.logger.Warn("unreadable archive file, starting fresh",
			slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	var items []item.Item
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("archive file is not a JSON array, repairing",
			slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	return items
}

func (s *Store) writeList(path string, items []item.Item) error {
	if items == nil {
		items = []item.Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", path, err)
	}
	return s.atomicWrite(path, data)
}

func (s *Store) atomicWrite(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	return nil
}
