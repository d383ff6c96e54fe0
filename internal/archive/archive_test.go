package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamancini/ersc/internal/testutil"
)

func TestExtract_Success(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "ersc.zip")
	testutil.WriteZip(t, src, map[string]string{
		"SeamlessCoop/ersc.dll":          "dll",
		"SeamlessCoop/ersc_settings.ini": "[PASSWORD]\ncooppassword =\n",
		"ersc_launcher.exe":              "exe",
		"SeamlessCoop/locale/":           "",
	})

	dst := filepath.Join(tmpDir, "staging")
	entries, err := Extract(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	var got []string
	for _, e := range entries {
		got = append(got, e.Path)
	}
	want := []string{"SeamlessCoop/ersc.dll", "SeamlessCoop/ersc_settings.ini", "ersc_launcher.exe"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() paths mismatch (-want +got):\n%s", diff)
	}

	if content := testutil.ReadFile(t, filepath.Join(dst, "SeamlessCoop", "ersc.dll")); content != "dll" {
		t.Errorf("ersc.dll content = %q, want dll", content)
	}
}

func TestExtract_RejectsTraversal(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"parent dir", "../evil.txt"},
		{"nested parent", "SeamlessCoop/../../evil.txt"},
		{"absolute", "/etc/evil.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			src := filepath.Join(tmpDir, "bad.zip")
			testutil.WriteZip(t, src, map[string]string{tt.entry: "x"})

			_, err := Extract(context.Background(), src, filepath.Join(tmpDir, "staging"))
			if err == nil {
				t.Fatal("expected error for escaping entry")
			}
			if _, err := os.Stat(filepath.Join(tmpDir, "evil.txt")); !os.IsNotExist(err) {
				t.Error("escaping entry must not be written")
			}
		})
	}
}

func TestExtract_Corrupt(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "broken.zip")
	testutil.WriteFile(t, src, "this is not a zip")

	if _, err := Extract(context.Background(), src, filepath.Join(tmpDir, "staging")); err == nil {
		t.Error("expected error for corrupt archive")
	}
}

func TestExtract_Unsupported(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "ersc.7z")
	testutil.WriteFile(t, src, "7z")

	_, err := Extract(context.Background(), src, filepath.Join(tmpDir, "staging"))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Extract() error = %v, want ErrUnsupported", err)
	}
}

func TestExtract_Empty(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "empty.zip")
	testutil.WriteZip(t, src, map[string]string{"SeamlessCoop/": ""})

	if _, err := Extract(context.Background(), src, filepath.Join(tmpDir, "staging")); err == nil {
		t.Error("expected error for archive without files")
	}
}

func TestExtract_Cancelled(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "ersc.zip")
	testutil.WriteZip(t, src, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Extract(ctx, src, filepath.Join(tmpDir, "staging"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want context.Canceled", err)
	}
}
