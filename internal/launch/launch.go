// Package launch starts the co-op launcher and detects a running game.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/adamancini/ersc/internal/locate"
	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/state"
)

// GameProcessNames are the executables that hold the mod files open.
var GameProcessNames = []string{"eldenring.exe", "start_protected_game.exe"}

// ErrLauncherMissing is returned when no launcher exists in the game directory.
var ErrLauncherMissing = errors.New("co-op launcher not found (is Seamless Co-op installed?)")

// Launcher returns the path of the co-op launcher under root, preferring
// the current name over the legacy one.
func Launcher(root locate.InstallRoot) (string, error) {
	for _, name := range []string{state.LauncherExe, state.LegacyLauncherExe} {
		path := filepath.Join(root.ModDir(), name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", ErrLauncherMissing
}

// Launch starts the co-op launcher with the game directory as working
// directory and returns without waiting for it.
func Launch(root locate.InstallRoot) (*os.Process, error) {
	exe, err := Launcher(root)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe)
	cmd.Dir = root.ModDir()
	log.Infof("launching %s", exe)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", filepath.Base(exe), err)
	}
	return cmd.Process, nil
}

// processNames lists the names of running processes.
var processNames = func(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Exited or not ours to inspect.
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Running reports the first of names found among running processes.
// Matching is case-insensitive.
func Running(ctx context.Context, names ...string) (string, bool, error) {
	running, err := processNames(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to list processes: %w", err)
	}
	for _, r := range running {
		for _, n := range names {
			if strings.EqualFold(r, n) {
				return r, true, nil
			}
		}
	}
	return "", false, nil
}

// GameRunning reports whether Elden Ring is running.
func GameRunning(ctx context.Context) (bool, error) {
	name, ok, err := Running(ctx, GameProcessNames...)
	if ok {
		log.Debugf("game process %s is running", name)
	}
	return ok, err
}
