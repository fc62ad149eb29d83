// Package store implements the persistence layer (spec.md §4.2): an atomic
// write primitive, a single-writer snapshot file, and per-bridge append-only
// history files. The teacher has no flat-file persistence (it writes to
// Postgres via pgx); this is grounded instead on the read-JSON-or-default,
// mutate, atomic-rewrite shape of the teacher's own
// internal/bridge.StatusReporter heartbeat file, generalized from one
// process-heartbeat file to many bridge-keyed files plus the shared
// snapshot.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWrite writes data to a temp file in dir(path), fsyncs it where the
// host supports it, and renames it over path. A reader opening path mid-write
// observes either the pre-write or post-write bytes, never a torn file.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Best-effort cleanup if we fail before the rename; once renamed this
	// is a no-op (the path no longer exists under tmpPath).
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		// Some filesystems/hosts don't support fsync; treat as best-effort,
		// not a hard failure, per spec.md §4.2 ("fsyncs where supported").
		_ = err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
