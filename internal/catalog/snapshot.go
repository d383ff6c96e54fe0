package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adamancini/ersc/internal/fsutil"
)

// SnapshotStore persists the last good catalog so releases can be shown offline.
type SnapshotStore struct {
	path string
}

type snapshot struct {
	FetchedAt time.Time `json:"fetched_at"`
	Releases  []Release `json:"releases"`
}

// NewSnapshotStore stores the snapshot as catalog.json under dir.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{path: filepath.Join(dir, "catalog.json")}
}

// Path returns the snapshot file location.
func (s *SnapshotStore) Path() string {
	return s.path
}

// Save writes the catalog atomically.
func (s *SnapshotStore) Save(c *Catalog) error {
	data, err := json.MarshalIndent(snapshot{FetchedAt: c.FetchedAt, Releases: c.releases}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to save catalog snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot. It returns nil, nil when none has been saved.
// The returned catalog is marked Stale.
func (s *SnapshotStore) Load() (*Catalog, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode catalog snapshot %s: %w", s.path, err)
	}

	c := New(snap.Releases, snap.FetchedAt)
	c.Stale = true
	return c, nil
}
