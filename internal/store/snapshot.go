package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/Averyy/bridge-up/internal/model"
)

// SnapshotStore owns the single on-disk snapshot file (spec.md §4.2). A
// process-wide mutex serializes writers; readers may open the file at any
// time since AtomicWrite's rename guarantees they see a complete version.
type SnapshotStore struct {
	path string
	mu   sync.Mutex
}

// NewSnapshotStore creates a store rooted at path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Load reads the snapshot file. A missing or unparsable file is treated as
// empty and logged, per spec.md §4.2 recovery semantics.
func (s *SnapshotStore) Load() *model.Snapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("snapshot file unreadable, starting empty", "path", s.path, "error", err)
		}
		return model.NewSnapshot()
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("snapshot file unparsable, starting empty", "path", s.path, "error", err)
		return model.NewSnapshot()
	}
	if snap.Bridges == nil {
		snap.Bridges = make(map[string]*model.Bridge)
	}
	return &snap
}

// Save atomically persists the snapshot.
func (s *SnapshotStore) Save(snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := AtomicWrite(s.path, data, 0o644); err != nil {
		// Persistence write failure: log, do not retry (spec.md §7). The
		// next successful change will overwrite; the orphaned temp file
		// from a half-written attempt is harmless.
		slog.Error("failed to write snapshot", "path", s.path, "error", err)
		return err
	}
	return nil
}
