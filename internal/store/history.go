package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Averyy/bridge-up/internal/model"
)

// HistoryStore owns the per-bridge append-only history files (spec.md §4.2).
// Each bridge has exactly one writer path (the Scraper for appends, the
// Statistics Engine for trim+recompute), so no cross-file locking is
// needed; the per-bridge mutex here only protects the read-modify-write
// cycle within a single file against concurrent callers in this process.
type HistoryStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewHistoryStore creates a store rooted at dir.
func NewHistoryStore(dir string) *HistoryStore {
	return &HistoryStore{dir: dir, locks: make(map[string]*sync.Mutex)}
}

func (h *HistoryStore) pathFor(bridgeID string) string {
	return filepath.Join(h.dir, bridgeID+".json")
}

func (h *HistoryStore) lockFor(bridgeID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.locks[bridgeID]
	if !ok {
		l = &sync.Mutex{}
		h.locks[bridgeID] = l
	}
	return l
}

// Load reads a bridge's history, newest-first. A missing or unparsable file
// is treated as empty, per spec.md §4.2.
func (h *HistoryStore) Load(bridgeID string) []model.HistoryEntry {
	data, err := os.ReadFile(h.pathFor(bridgeID))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("history file unreadable, treating as empty", "bridge", bridgeID, "error", err)
		}
		return nil
	}
	var entries []model.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("history file unparsable, treating as empty", "bridge", bridgeID, "error", err)
		return nil
	}
	return entries
}

// Prepend inserts a new entry at index 0, truncates to MaxHistoryEntries,
// and rewrites the file atomically.
func (h *HistoryStore) Prepend(bridgeID string, entry model.HistoryEntry) error {
	l := h.lockFor(bridgeID)
	l.Lock()
	defer l.Unlock()

	entries := h.Load(bridgeID)
	entries = append([]model.HistoryEntry{entry}, entries...)
	return h.writeLocked(bridgeID, entries)
}

// ReplaceMostRecent overwrites the newest (index 0) entry, used when the
// Scraper closes an open entry (sets EndTime/Duration) without starting a
// new one yet.
func (h *HistoryStore) ReplaceMostRecent(bridgeID string, entry model.HistoryEntry) error {
	l := h.lockFor(bridgeID)
	l.Lock()
	defer l.Unlock()

	entries := h.Load(bridgeID)
	if len(entries) == 0 {
		entries = []model.HistoryEntry{entry}
	} else {
		entries[0] = entry
	}
	return h.writeLocked(bridgeID, entries)
}

// Save overwrites the whole history (used by the Statistics Engine's
// trim+recompute pass). Save takes the per-bridge lock itself.
func (h *HistoryStore) Save(bridgeID string, entries []model.HistoryEntry) error {
	l := h.lockFor(bridgeID)
	l.Lock()
	defer l.Unlock()
	return h.writeLocked(bridgeID, entries)
}

func (h *HistoryStore) writeLocked(bridgeID string, entries []model.HistoryEntry) error {
	if len(entries) > model.MaxHistoryEntries {
		entries = entries[:model.MaxHistoryEntries]
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history for %s: %w", bridgeID, err)
	}
	if err := AtomicWrite(h.pathFor(bridgeID), data, 0o644); err != nil {
		slog.Error("failed to write history", "bridge", bridgeID, "error", err)
		return err
	}
	return nil
}
