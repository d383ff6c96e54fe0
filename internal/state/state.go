// Package state detects which version of the mod is installed in a game
// directory and maintains the marker file that records it.
package state

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adamancini/ersc/internal/locate"
	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/policy"
	"github.com/adamancini/ersc/internal/types"
)

const (
	// ModSubdir is the mod's own folder inside the game directory.
	ModSubdir = "SeamlessCoop"
	// MarkerRelPath is the marker location relative to the game directory.
	MarkerRelPath = ModSubdir + "/ersc_manager.json"
	// LauncherExe is the launcher shipped by current releases.
	LauncherExe = "ersc_launcher.exe"
	// LegacyLauncherExe is the launcher shipped by releases before 1.7.
	LegacyLauncherExe = "launch_elden_ring_seamlesscoop.exe"
)

// InstalledState describes the mod currently present in an install root.
type InstalledState struct {
	Version     string    `json:"version" yaml:"version"`
	Files       []string  `json:"files" yaml:"files"` // sorted, relative to the game directory
	InstalledAt time.Time `json:"installed_at,omitzero" yaml:"installed_at,omitempty"`
	InstallID   string    `json:"install_id,omitempty" yaml:"install_id,omitempty"`
	Artifact    string    `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	MarkerValid bool      `json:"marker_valid" yaml:"marker_valid"`
	Interrupted string    `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
}

// Unknown reports whether mod files exist but the version could not be determined.
func (s *InstalledState) Unknown() bool {
	return s != nil && !s.MarkerValid
}

// Owns reports whether relPath is part of the recorded installed set.
func (s *InstalledState) Owns(relPath string) bool {
	if s == nil {
		return false
	}
	for _, f := range s.Files {
		if f == relPath {
			return true
		}
	}
	return false
}

// Reader returns the installed state of a root, or nil when nothing is installed.
type Reader interface {
	Inspect(root locate.InstallRoot) *InstalledState
}

// Inspector reads the marker written by the engine.
type Inspector struct{}

// NewInspector returns an Inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// Inspect returns the installed state, or nil when no mod files are present.
// A marker that cannot be read or parsed degrades to version "unknown".
func (i *Inspector) Inspect(root locate.InstallRoot) *InstalledState {
	m, err := ReadMarker(root)
	if err == nil {
		return &InstalledState{
			Version:     m.Version,
			Files:       m.Files,
			InstalledAt: m.InstalledAt,
			InstallID:   m.InstallID,
			Artifact:    m.Artifact,
			MarkerValid: true,
			Interrupted: m.Interrupted,
		}
	}
	if !errors.Is(err, os.ErrNotExist) {
		log.Warnf("could not read install marker in %s: %v", root, err)
	}

	if !hasModFiles(root) {
		return nil
	}
	return &InstalledState{Version: types.UnknownVersion}
}

// hasModFiles reports whether a launcher or any unprotected file under the
// mod subfolder exists. A settings file left behind by an uninstall does
// not count.
func hasModFiles(root locate.InstallRoot) bool {
	modDir := root.ModDir()
	for _, name := range []string{LauncherExe, LegacyLauncherExe} {
		if _, err := os.Stat(filepath.Join(modDir, name)); err == nil {
			return true
		}
	}

	pol := policy.Default()
	found := false
	_ = filepath.WalkDir(filepath.Join(modDir, ModSubdir), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(modDir, path)
		if err == nil && !pol.Protected(filepath.ToSlash(rel)) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}
