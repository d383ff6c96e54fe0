package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamancini/ersc/internal/locate"
	"github.com/adamancini/ersc/internal/testutil"
)

// newTestManager returns a manager whose clock advances one minute per backup.
func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(t.TempDir(), "0.1.0")
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return m
}

func TestManager_Create(t *testing.T) {
	root := locate.InstallRoot(testutil.MakeGameDir(t))
	testutil.WriteFile(t, filepath.Join(root.ModDir(), "SeamlessCoop", "ersc_settings.ini"), "[PASSWORD]\ncooppassword = hunter2\n")

	manager := newTestManager(t)
	bak, err := manager.Create(root.ModDir(), []string{"SeamlessCoop/ersc_settings.ini", "SeamlessCoop/cooppassword.ini"}, "v1.7.3", "before install v1.7.4")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if bak.ID == "" {
		t.Error("Create() backup ID is empty")
	}
	if bak.ManagerVersion != "0.1.0" || bak.Version != "v1.7.3" {
		t.Errorf("Create() = %+v", bak)
	}
	// The missing password file is skipped.
	if len(bak.Files) != 1 || bak.Files[0].Path != "SeamlessCoop/ersc_settings.ini" {
		t.Errorf("Create() Files = %+v", bak.Files)
	}

	if _, err := os.Stat(filepath.Join(manager.BackupDir(), bak.ID+".json")); err != nil {
		t.Errorf("backup file not written: %v", err)
	}
}

func TestManager_CreateRejectsEscapingPath(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.Create(t.TempDir(), []string{"../outside.ini"}, "", ""); err == nil {
		t.Error("Create() should reject paths outside the game directory")
	}
}

func TestManager_ListAndGet(t *testing.T) {
	modDir := t.TempDir()
	manager := newTestManager(t)

	var ids []string
	for _, note := range []string{"first", "second", "third"} {
		bak, err := manager.Create(modDir, nil, "", note)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, bak.ID)
	}

	list, err := manager.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var got []string
	for _, b := range list {
		got = append(got, b.Note)
	}
	if diff := cmp.Diff([]string{"third", "second", "first"}, got); diff != "" {
		t.Errorf("List() order mismatch (-want +got):\n%s", diff)
	}

	latest, err := manager.Get("latest")
	if err != nil {
		t.Fatalf("Get(latest) error = %v", err)
	}
	if latest.ID != ids[2] {
		t.Errorf("Get(latest) = %s, want %s", latest.ID, ids[2])
	}

	if _, err := manager.Get("does-not-exist"); err == nil {
		t.Error("Get() should fail for unknown id")
	}
	if _, err := manager.Get("../etc/passwd"); err == nil {
		t.Error("Get() should reject ids with separators")
	}
}

func TestManager_ListEmptyDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "missing"), "0.1.0")
	list, err := manager.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List() = %v, want empty", list)
	}
	if _, err := manager.Get("latest"); err == nil {
		t.Error("Get(latest) should fail without backups")
	}
}

func TestManager_Restore(t *testing.T) {
	root := locate.InstallRoot(testutil.MakeGameDir(t))
	settings := filepath.Join(root.ModDir(), "SeamlessCoop", "ersc_settings.ini")
	testutil.WriteFile(t, settings, "original")

	manager := newTestManager(t)
	bak, err := manager.Create(root.ModDir(), []string{"SeamlessCoop/ersc_settings.ini"}, "v1", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	testutil.WriteFile(t, settings, "clobbered")

	restored, err := manager.Restore(bak.ID, root)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if diff := cmp.Diff([]string{"SeamlessCoop/ersc_settings.ini"}, restored); diff != "" {
		t.Errorf("Restore() mismatch (-want +got):\n%s", diff)
	}
	if got := testutil.ReadFile(t, settings); got != "original" {
		t.Errorf("settings = %q, want original", got)
	}
}

func TestManager_Delete(t *testing.T) {
	manager := newTestManager(t)
	bak, err := manager.Create(t.TempDir(), nil, "", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := manager.Delete(bak.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := manager.Delete(bak.ID); err == nil {
		t.Error("Delete() of a missing backup should fail")
	}
}

func TestManager_SnapshotPrunes(t *testing.T) {
	manager := newTestManager(t).WithKeep(2)
	modDir := t.TempDir()

	var last string
	for range 4 {
		id, err := manager.Snapshot(modDir, nil, "", "")
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		last = id
	}

	list, err := manager.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("List() after snapshots = %d entries, want 2", len(list))
	}
	if list[0].ID != last {
		t.Errorf("newest backup = %s, want %s", list[0].ID, last)
	}
}
