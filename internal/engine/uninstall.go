package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/adamancini/ersc/internal/locate"
	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/state"
	"github.com/adamancini/ersc/internal/types"
)

// ErrNotInstalled is returned by Uninstall when root has no mod files.
var ErrNotInstalled = errors.New("seamless co-op is not installed")

// Uninstall removes the mod's files and the marker. Protected files stay.
// When the installed version is unknown, the launchers and the mod
// subfolder are removed instead of the recorded file list.
func (e *Engine) Uninstall(ctx context.Context, root locate.InstallRoot, current *state.InstalledState) (*Report, error) {
	start := time.Now()

	unlock, err := e.lock(ctx, root)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if fresh := state.NewInspector().Inspect(root); fresh != nil {
		current = fresh
	}
	if current == nil {
		return nil, ErrNotInstalled
	}

	modDir := root.ModDir()
	report := &Report{Version: current.Version, From: current.Version}

	files := current.Files
	if !current.MarkerValid {
		files = e.unknownInstallFiles(modDir)
	}

	if e.backups != nil {
		if paths := e.protectedFiles(root, nil); len(paths) > 0 {
			id, err := e.backups.Snapshot(modDir, paths, current.Version, "before uninstall")
			if err != nil {
				return nil, &InstallError{Kind: types.InstallBackup, Report: report, Err: err}
			}
			report.BackupID = id
		}
	}

	for _, rel := range files {
		if rel == state.MarkerRelPath {
			continue
		}
		if e.policy.Protected(rel) {
			if _, err := os.Stat(filepath.Join(modDir, filepath.FromSlash(rel))); err == nil {
				report.FilesPreserved = append(report.FilesPreserved, rel)
			}
			continue
		}

		dst := filepath.Join(modDir, filepath.FromSlash(rel))
		if err := os.Remove(dst); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			report.Duration = time.Since(start)
			return nil, &InstallError{Kind: types.InstallPartial, Report: report, Err: fmt.Errorf("failed to remove %s: %w", rel, err)}
		}
		removeEmptyParents(filepath.Dir(dst), modDir)
		report.FilesRemoved = append(report.FilesRemoved, rel)
	}

	if err := state.RemoveMarker(root); err != nil {
		report.Duration = time.Since(start)
		return nil, &InstallError{Kind: types.InstallPartial, Report: report, Err: err}
	}
	removeEmptyParents(filepath.Join(modDir, state.ModSubdir), modDir)

	report.Duration = time.Since(start)
	log.Infof("uninstalled %s (%d removed, %d preserved)", current.Version, len(report.FilesRemoved), len(report.FilesPreserved))
	return report, nil
}

// unknownInstallFiles lists the launchers and every file under the mod
// subfolder, for installs made without a marker.
func (e *Engine) unknownInstallFiles(modDir string) []string {
	var files []string
	for _, exe := range []string{state.LauncherExe, state.LegacyLauncherExe} {
		if _, err := os.Stat(filepath.Join(modDir, exe)); err == nil {
			files = append(files, exe)
		}
	}

	_ = filepath.WalkDir(filepath.Join(modDir, state.ModSubdir), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(modDir, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})

	sort.Strings(files)
	return files
}
