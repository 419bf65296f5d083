// Package store holds the persisted, incrementally mergeable mapping from
// canonical region identity to accumulated coverage state. The snapshot
// file is the sole piece of durable cross-run state in the system.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zjy-dev/covmerge/internal/region"
)

// ErrSnapshotCorrupt reports a snapshot file that exists but cannot be
// parsed. Callers treat it as fatal for the aggregation pass; the file on
// disk is left untouched.
var ErrSnapshotCorrupt = errors.New("snapshot corrupt")

// Mode selects how hit counts accumulate per region.
type Mode string

const (
	// ModeBoolean records only whether a region was ever observed with a
	// positive hit count. Entries hold 0 or 1.
	ModeBoolean Mode = "bool"

	// ModeCount accumulates a running sum of hit counts across distinct
	// executions. Entries hold the accumulated count.
	ModeCount Mode = "count"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBoolean, ModeCount:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid store mode %q", s)
	}
}

// Metrics summarizes the aggregate coverage state.
type Metrics struct {
	TotalRegions   int
	CoveredRegions int
	TotalLines     int
	CoveredLines   int
}

// Store maps region keys to accumulated hit state. A Store instance is
// owned by one aggregation pass: it is loaded once, mutated in memory, and
// persisted once at the end. It is not safe for concurrent use.
type Store struct {
	mode    Mode
	entries map[string]uint64

	// merged tracks the digests of exports merged during this pass so
	// that re-merging the same execution contributes nothing.
	merged map[string]bool
}

// New creates an empty store.
func New(mode Mode) *Store {
	return &Store{
		mode:    mode,
		entries: make(map[string]uint64),
		merged:  make(map[string]bool),
	}
}

// Load deserializes a prior snapshot, or returns an empty store when no
// snapshot exists at the path. A file that exists but cannot be parsed
// fails with ErrSnapshotCorrupt.
func Load(path string, mode Mode) (*Store, error) {
	s := New(mode)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, ErrSnapshotCorrupt)
	}
	for k := range s.entries {
		if _, err := region.ParseKey(k); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot %s: bad key %q: %w", path, k, ErrSnapshotCorrupt)
		}
	}

	return s, nil
}

// Mode returns the store's accumulation mode.
func (s *Store) Mode() Mode {
	return s.mode
}

// Len returns the number of tracked regions.
func (s *Store) Len() int {
	return len(s.entries)
}

// MergeExport merges the normalized hits of one raw export, identified by
// its content digest. Merging is monotonic: covered state never reverts
// and accumulated counts never decrease.
//
// An export whose digest was already merged during this pass contributes
// nothing, which makes repeated merges of the same execution idempotent.
// Within one export, a key observed more than once (re-instrumented inline
// expansions) contributes only its first occurrence.
func (s *Store) MergeExport(digest string, hits []region.Hit) {
	if s.merged[digest] {
		return
	}
	s.merged[digest] = true

	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		k := h.Key.String()
		if seen[k] {
			continue
		}
		seen[k] = true

		switch s.mode {
		case ModeCount:
			s.entries[k] += h.Count
		default:
			covered := s.entries[k]
			if covered == 0 && h.Count > 0 {
				covered = 1
			}
			s.entries[k] = covered
		}
	}
}

// Metrics computes the coverage summary. Line figures weight each region
// by its line span, recomputed from the key coordinates.
func (s *Store) Metrics() Metrics {
	var m Metrics
	for k, v := range s.entries {
		key, err := region.ParseKey(k)
		if err != nil {
			// Keys are validated on load and constructed internally
			// otherwise; skip rather than report garbage.
			continue
		}
		m.TotalRegions++
		m.TotalLines += key.Lines()
		if v > 0 {
			m.CoveredRegions++
			m.CoveredLines += key.Lines()
		}
	}
	return m
}

// Persist atomically overwrites the snapshot at path: the serialized store
// is written to a temp file in the same directory and renamed into place,
// so a concurrent reader never observes a half-written snapshot.
func (s *Store) Persist(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp snapshot %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp snapshot %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot %s: %w", path, err)
	}

	return nil
}
