package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.ini")

	if err := WriteFileAtomic(path, []byte("one"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("content = %q, want two", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestCopyFileAtomicMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileAtomic(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"), 0644); err == nil {
		t.Error("expected error for missing source")
	}
	if _, err := os.Stat(filepath.Join(dir, "dst")); !os.IsNotExist(err) {
		t.Error("destination should not be created")
	}
}

func TestSameContent(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	big := strings.Repeat("x", 100*1024)
	a := write("a", "same")
	b := write("b", "same")
	c := write("c", "diff")
	d := write("d", "longer content")
	e := write("e", big)
	f := write("f", big)
	g := write("g", big[:len(big)-1]+"y")

	tests := []struct {
		name string
		x, y string
		want bool
	}{
		{"equal", a, b, true},
		{"same size different bytes", a, c, false},
		{"different size", a, d, false},
		{"missing", a, filepath.Join(dir, "missing"), false},
		{"large equal", e, f, true},
		{"large differ at end", e, g, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SameContent(tt.x, tt.y)
			if err != nil {
				t.Fatalf("SameContent() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SameContent() = %v, want %v", got, tt.want)
			}
		})
	}
}
