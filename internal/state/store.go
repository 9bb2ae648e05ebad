// Package state persists chore snapshots between runs. Snapshots live in a
// single JSON file under the base directory; the file is rewritten whole on
// every save, so a crash leaves either the old or the new contents.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/choretrack/choretrack/internal/chore"
)

// formatVersion tags the on-disk layout.
const formatVersion = 1

// fileData is the on-disk shape of the state file.
type fileData struct {
	Version int                       `json:"version"`
	Chores  map[string]chore.Snapshot `json:"chores"`
}

// Store handles snapshot persistence for all chores.
type Store struct {
	basePath string
	chores   map[string]chore.Snapshot
}

// NewStore creates a Store rooted at basePath. State is stored in
// basePath/.choretrack/state.json.
func NewStore(basePath string) *Store {
	return &Store{
		basePath: basePath,
		chores:   make(map[string]chore.Snapshot),
	}
}

// statePath returns the path to the state file.
func (s *Store) statePath() string {
	return filepath.Join(s.basePath, ".choretrack", "state.json")
}

// Load reads the state file into memory. A missing file is not an error; the
// store starts empty. A corrupt file is also not fatal: chores restart from
// their defaults rather than blocking startup.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var file fileData
	if err := json.Unmarshal(data, &file); err != nil {
		s.chores = make(map[string]chore.Snapshot)
		return nil
	}
	if file.Chores != nil {
		s.chores = file.Chores
	}
	return nil
}

// Save writes the current snapshots to disk.
func (s *Store) Save() error {
	dir := filepath.Dir(s.statePath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	file := fileData{Version: formatVersion, Chores: s.chores}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(s.statePath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Get returns the snapshot for a chore ID.
func (s *Store) Get(id string) (chore.Snapshot, bool) {
	snap, ok := s.chores[id]
	return snap, ok
}

// Set records the snapshot for a chore ID in memory. Call Save to persist.
func (s *Store) Set(id string, snap chore.Snapshot) {
	s.chores[id] = snap
}

// Remove drops the snapshot for a chore ID.
func (s *Store) Remove(id string) {
	delete(s.chores, id)
}

// IDs returns the stored chore IDs, sorted.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.chores))
	for id := range s.chores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
