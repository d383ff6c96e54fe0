package plan

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamancini/ersc/internal/archive"
	"github.com/adamancini/ersc/internal/policy"
	"github.com/adamancini/ersc/internal/state"
	"github.com/adamancini/ersc/internal/testutil"
	"github.com/adamancini/ersc/internal/types"
)

// stage writes files into a staging dir and returns matching archive entries.
func stage(t *testing.T, files map[string]string) (string, []archive.Entry) {
	t.Helper()
	dir := t.TempDir()
	var entries []archive.Entry
	for name, content := range files {
		testutil.WriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
		entries = append(entries, archive.Entry{Path: name, Mode: 0644, Size: int64(len(content))})
	}
	return dir, entries
}

func actions(p *Plan) map[string]types.FileAction {
	out := make(map[string]types.FileAction, len(p.Steps))
	for _, s := range p.Steps {
		out[s.Path] = s.Action
	}
	return out
}

func TestComputeFreshInstall(t *testing.T) {
	modDir := t.TempDir()
	staging, entries := stage(t, map[string]string{
		"ersc_launcher.exe":              "launcher",
		"SeamlessCoop/ersc.dll":          "dll",
		"SeamlessCoop/ersc_settings.ini": "[PASSWORD]\ncooppassword =\n",
	})

	p, err := Compute(Input{ModDir: modDir, StagingDir: staging, Entries: entries, Target: "v1.0.0"})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	want := map[string]types.FileAction{
		"ersc_launcher.exe":              types.ActionWrite,
		"SeamlessCoop/ersc.dll":          types.ActionWrite,
		"SeamlessCoop/ersc_settings.ini": types.ActionWrite,
	}
	if diff := cmp.Diff(want, actions(p)); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
	if p.From != "" || p.To != "v1.0.0" {
		t.Errorf("From/To = %q/%q", p.From, p.To)
	}
	if !p.HasChanges() {
		t.Error("HasChanges() = false for fresh install")
	}
}

func TestComputePreservesAndSkipsUnchanged(t *testing.T) {
	modDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(modDir, "SeamlessCoop", "ersc.dll"), "dll-v1")
	testutil.WriteFile(t, filepath.Join(modDir, "ersc_launcher.exe"), "launcher")
	testutil.WriteFile(t, filepath.Join(modDir, "SeamlessCoop", "ersc_settings.ini"), "user settings")

	staging, entries := stage(t, map[string]string{
		"ersc_launcher.exe":              "launcher",
		"SeamlessCoop/ersc.dll":          "dll-v2",
		"SeamlessCoop/ersc_settings.ini": "defaults",
	})

	current := &state.InstalledState{Version: "v1.0.0", MarkerValid: true,
		Files: []string{"SeamlessCoop/ersc.dll", "SeamlessCoop/ersc_settings.ini", "ersc_launcher.exe"}}

	p, err := Compute(Input{ModDir: modDir, StagingDir: staging, Entries: entries, Current: current, Target: "v2.0.0"})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	want := map[string]types.FileAction{
		"ersc_launcher.exe":              types.ActionUnchanged,
		"SeamlessCoop/ersc.dll":          types.ActionWrite,
		"SeamlessCoop/ersc_settings.ini": types.ActionPreserve,
	}
	if diff := cmp.Diff(want, actions(p)); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}

	write, unchanged, preserve, remove := p.Summary()
	if write != 1 || unchanged != 1 || preserve != 1 || remove != 0 {
		t.Errorf("Summary() = %d/%d/%d/%d", write, unchanged, preserve, remove)
	}
	if diff := cmp.Diff([]string{"SeamlessCoop/ersc.dll", "SeamlessCoop/ersc_settings.ini", "ersc_launcher.exe"}, p.Installed()); diff != "" {
		t.Errorf("Installed() mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeRemovesOnlyOldVersionFiles(t *testing.T) {
	modDir := t.TempDir()
	for _, f := range []string{"SeamlessCoop/a.dll", "SeamlessCoop/old.dll", "launch_elden_ring_seamlesscoop.exe", "SeamlessCoop/cooppassword.ini", "user_mod.dll"} {
		testutil.WriteFile(t, filepath.Join(modDir, filepath.FromSlash(f)), f)
	}

	staging, entries := stage(t, map[string]string{
		"SeamlessCoop/a.dll": "new a",
		"ersc_launcher.exe":  "launcher",
	})

	current := &state.InstalledState{Version: "v1.0.0", MarkerValid: true, Files: []string{
		"SeamlessCoop/a.dll",
		"SeamlessCoop/old.dll",
		"SeamlessCoop/cooppassword.ini",
		"SeamlessCoop/gone.dll",
		"launch_elden_ring_seamlesscoop.exe",
	}}

	p, err := Compute(Input{ModDir: modDir, StagingDir: staging, Entries: entries, Current: current, Target: "v2.0.0"})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	// Removals first, sorted; user files and protected files are never listed.
	if diff := cmp.Diff([]string{"SeamlessCoop/old.dll", "launch_elden_ring_seamlesscoop.exe"}, p.Paths(types.ActionRemove)); diff != "" {
		t.Errorf("removals mismatch (-want +got):\n%s", diff)
	}
	if p.Steps[0].Action != types.ActionRemove {
		t.Errorf("first step = %+v, want a removal", p.Steps[0])
	}
}

func TestComputeSameVersionDoesNotRemove(t *testing.T) {
	modDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(modDir, "SeamlessCoop", "extra.dll"), "x")

	staging, entries := stage(t, map[string]string{"SeamlessCoop/a.dll": "a"})
	current := &state.InstalledState{Version: "v1.0.0", MarkerValid: true, Files: []string{"SeamlessCoop/a.dll", "SeamlessCoop/extra.dll"}}

	p, err := Compute(Input{ModDir: modDir, StagingDir: staging, Entries: entries, Current: current, Target: "v1.0.0"})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if got := p.Paths(types.ActionRemove); len(got) != 0 {
		t.Errorf("removals = %v, want none", got)
	}
}

func TestComputeInterruptedSameVersionRemoves(t *testing.T) {
	modDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(modDir, "SeamlessCoop", "a.dll"), "newer a")
	testutil.WriteFile(t, filepath.Join(modDir, "SeamlessCoop", "newer.dll"), "x")

	staging, entries := stage(t, map[string]string{"SeamlessCoop/a.dll": "a"})
	current := &state.InstalledState{
		Version:     "v1.0.0",
		MarkerValid: true,
		Interrupted: "v2.0.0",
		Files:       []string{"SeamlessCoop/a.dll", "SeamlessCoop/newer.dll"},
	}

	p, err := Compute(Input{ModDir: modDir, StagingDir: staging, Entries: entries, Current: current, Target: "v1.0.0"})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	want := map[string]types.FileAction{
		"SeamlessCoop/a.dll":     types.ActionWrite,
		"SeamlessCoop/newer.dll": types.ActionRemove,
	}
	if diff := cmp.Diff(want, actions(p)); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeUnknownVersionDoesNotRemove(t *testing.T) {
	modDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(modDir, "SeamlessCoop", "extra.dll"), "x")

	staging, entries := stage(t, map[string]string{"SeamlessCoop/a.dll": "a"})
	current := &state.InstalledState{Version: types.UnknownVersion}

	p, err := Compute(Input{ModDir: modDir, StagingDir: staging, Entries: entries, Current: current, Target: "v1.0.0"})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if p.From != types.UnknownVersion {
		t.Errorf("From = %q", p.From)
	}
	if got := p.Paths(types.ActionRemove); len(got) != 0 {
		t.Errorf("removals = %v, want none", got)
	}
}

func TestComputeIgnoresShippedMarker(t *testing.T) {
	staging, entries := stage(t, map[string]string{
		"SeamlessCoop/a.dll":             "a",
		"SeamlessCoop/ersc_manager.json": "{}",
	})
	p, err := Compute(Input{ModDir: t.TempDir(), StagingDir: staging, Entries: entries, Target: "v1"})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if _, ok := actions(p)["SeamlessCoop/ersc_manager.json"]; ok {
		t.Error("marker path should not be planned")
	}
}

func TestComputeCustomPolicy(t *testing.T) {
	modDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(modDir, "SeamlessCoop", "Lang", "english.json"), "mine")

	pol, err := policy.New("SeamlessCoop/lang/*.json")
	if err != nil {
		t.Fatal(err)
	}
	staging, entries := stage(t, map[string]string{"SeamlessCoop/Lang/english.json": "theirs"})

	p, err := Compute(Input{ModDir: modDir, StagingDir: staging, Entries: entries, Target: "v1", Policy: pol})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if got := actions(p)["SeamlessCoop/Lang/english.json"]; got != types.ActionPreserve {
		t.Errorf("action = %s, want preserve", got)
	}
}

func TestGuard(t *testing.T) {
	modDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(modDir, "SeamlessCoop", "ersc_settings.ini"), "user")
	pol := policy.Default()

	tests := []struct {
		name    string
		step    Step
		wantErr bool
	}{
		{"write over existing protected", Step{Path: "SeamlessCoop/ersc_settings.ini", Action: types.ActionWrite}, true},
		{"remove existing protected", Step{Path: "SeamlessCoop/ersc_settings.ini", Action: types.ActionRemove}, true},
		{"write missing protected", Step{Path: "SeamlessCoop/cooppassword.ini", Action: types.ActionWrite}, false},
		{"preserve protected", Step{Path: "SeamlessCoop/ersc_settings.ini", Action: types.ActionPreserve}, false},
		{"write regular file", Step{Path: "SeamlessCoop/ersc.dll", Action: types.ActionWrite}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Guard(tt.step, modDir, pol)
			if tt.wantErr != errors.Is(err, ErrProtected) {
				t.Errorf("Guard() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	p := &Plan{To: "v2", Steps: []Step{
		{Path: "old.dll", Action: types.ActionRemove},
		{Path: "a.dll", Action: types.ActionWrite},
		{Path: "b.dll", Action: types.ActionUnchanged},
		{Path: "SeamlessCoop/ersc_settings.ini", Action: types.ActionPreserve},
	}}

	out := p.Format(false)
	if strings.Contains(out, "b.dll") {
		t.Errorf("unchanged files should be hidden:\n%s", out)
	}
	for _, want := range []string{"- old.dll", "+ a.dll", "= SeamlessCoop/ersc_settings.ini (protected, kept)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(p.Format(true), "b.dll") {
		t.Error("verbose format should list unchanged files")
	}
}
