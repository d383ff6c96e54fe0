package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adamancini/ersc/internal/fsutil"
	"github.com/adamancini/ersc/internal/locate"
	"github.com/adamancini/ersc/internal/policy"
)

// MarkerSchemaVersion is the marker format written by this version.
// Newer markers are still read for the fields known here.
const MarkerSchemaVersion = 1

// Marker is the on-disk record of an install.
type Marker struct {
	SchemaVersion  int       `json:"schema_version"`
	Version        string    `json:"version"`
	Files          []string  `json:"files"`
	InstalledAt    time.Time `json:"installed_at"`
	InstallID      string    `json:"install_id,omitempty"`
	Artifact       string    `json:"artifact,omitempty"`
	ManagerVersion string    `json:"manager_version,omitempty"`
	// Interrupted names a release whose install stopped partway. Files then
	// also lists what that install already wrote.
	Interrupted string `json:"interrupted,omitempty"`
}

// MarkerPath returns the absolute marker location for root.
func MarkerPath(root locate.InstallRoot) string {
	return filepath.Join(root.ModDir(), filepath.FromSlash(MarkerRelPath))
}

// ReadMarker loads and validates the marker. A missing marker yields an
// error matching os.ErrNotExist.
func ReadMarker(root locate.InstallRoot) (*Marker, error) {
	path := MarkerPath(root)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if strings.TrimSpace(m.Version) == "" {
		return nil, fmt.Errorf("marker %s has no version", path)
	}
	m.Files = cleanFiles(m.Files)
	return &m, nil
}

// WriteMarker records m in root, replacing any previous marker atomically.
func WriteMarker(root locate.InstallRoot, m Marker) error {
	if strings.TrimSpace(m.Version) == "" {
		return errors.New("marker version is required")
	}
	if m.SchemaVersion == 0 {
		m.SchemaVersion = MarkerSchemaVersion
	}
	if m.InstalledAt.IsZero() {
		m.InstalledAt = time.Now().UTC()
	}
	m.Files = cleanFiles(m.Files)
	if m.Files == nil {
		m.Files = []string{}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode marker: %w", err)
	}
	data = append(data, '\n')

	if err := fsutil.WriteFileAtomic(MarkerPath(root), data, 0644); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}
	return nil
}

// RemoveMarker deletes the marker. A missing marker is not an error.
func RemoveMarker(root locate.InstallRoot) error {
	err := os.Remove(MarkerPath(root))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove marker: %w", err)
	}
	return nil
}

// cleanFiles normalizes, dedupes and sorts recorded paths. Entries that are
// absolute or escape the game directory are dropped.
func cleanFiles(files []string) []string {
	if len(files) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		n := policy.Normalize(f)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
