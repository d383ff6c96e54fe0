package launch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/adamancini/ersc/internal/locate"
	"github.com/adamancini/ersc/internal/state"
	"github.com/adamancini/ersc/internal/testutil"
)

func TestLauncher(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"current", []string{state.LauncherExe}, state.LauncherExe},
		{"legacy", []string{state.LegacyLauncherExe}, state.LegacyLauncherExe},
		{"both", []string{state.LegacyLauncherExe, state.LauncherExe}, state.LauncherExe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := locate.InstallRoot(testutil.MakeGameDir(t))
			for _, f := range tt.files {
				testutil.WriteFile(t, filepath.Join(root.ModDir(), f), "MZ")
			}
			got, err := Launcher(root)
			if err != nil {
				t.Fatalf("Launcher() error = %v", err)
			}
			if filepath.Base(got) != tt.want {
				t.Errorf("Launcher() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLaunchMissing(t *testing.T) {
	root := locate.InstallRoot(testutil.MakeGameDir(t))
	if _, err := Launch(root); !errors.Is(err, ErrLauncherMissing) {
		t.Errorf("Launch() error = %v, want ErrLauncherMissing", err)
	}
}

func TestLaunchRunsInGameDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the launcher")
	}

	root := locate.InstallRoot(testutil.MakeGameDir(t))
	exe := filepath.Join(root.ModDir(), state.LauncherExe)
	if err := os.WriteFile(exe, []byte("#!/bin/sh\npwd > launched.txt\n"), 0755); err != nil {
		t.Fatal(err)
	}

	proc, err := Launch(root)
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if _, err := proc.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	marker := filepath.Join(root.ModDir(), "launched.txt")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("launcher did not run in the game directory")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func fakeProcesses(t *testing.T, names []string, err error) {
	t.Helper()
	orig := processNames
	processNames = func(context.Context) ([]string, error) { return names, err }
	t.Cleanup(func() { processNames = orig })
}

func TestGameRunning(t *testing.T) {
	tests := []struct {
		name  string
		procs []string
		want  bool
	}{
		{"not running", []string{"steam.exe", "explorer.exe"}, false},
		{"game", []string{"steam.exe", "eldenring.exe"}, true},
		{"easy anti-cheat wrapper", []string{"start_protected_game.exe"}, true},
		{"case-insensitive", []string{"EldenRing.exe"}, true},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeProcesses(t, tt.procs, nil)
			got, err := GameRunning(context.Background())
			if err != nil {
				t.Fatalf("GameRunning() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("GameRunning() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGameRunningError(t *testing.T) {
	fakeProcesses(t, nil, errors.New("permission denied"))
	if _, err := GameRunning(context.Background()); err == nil {
		t.Error("GameRunning() expected error")
	}
}

func TestProcessNamesLive(t *testing.T) {
	names, err := processNames(context.Background())
	if err != nil {
		t.Skipf("process listing unavailable: %v", err)
	}
	if len(names) == 0 {
		t.Error("processNames() returned no processes, expected at least the test binary")
	}
}
