// Package archive unpacks release artifacts into a staging directory.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/adamancini/ersc/internal/policy"
)

// ErrUnsupported is returned for artifacts that are not zip archives.
var ErrUnsupported = errors.New("unsupported archive format")

// maxEntrySize bounds a single extracted file.
const maxEntrySize = 512 << 20

// Entry is one regular file extracted from an archive.
type Entry struct {
	Path string      // relative, slash-separated
	Mode os.FileMode // permission bits only
	Size int64
}

// Extract unpacks the zip at src into dst and returns the extracted files
// sorted by path. Directory entries are skipped, symlinks and entries that
// would land outside dst are rejected.
func Extract(ctx context.Context, src, dst string) ([]Entry, error) {
	if !strings.EqualFold(filepath.Ext(src), ".zip") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(src))
	}

	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	seen := make(map[string]bool)
	var entries []Entry

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if f.FileInfo().IsDir() {
			continue
		}
		if f.Mode()&os.ModeSymlink != 0 {
			return nil, fmt.Errorf("archive entry %s is a symlink", f.Name)
		}

		rel := policy.Normalize(f.Name)
		if rel == "" {
			return nil, fmt.Errorf("archive entry %q escapes the destination", f.Name)
		}
		key := strings.ToLower(rel)
		if seen[key] {
			return nil, fmt.Errorf("archive contains duplicate entry %s", rel)
		}
		seen[key] = true

		if f.UncompressedSize64 > maxEntrySize {
			return nil, fmt.Errorf("archive entry %s is too large (%d bytes)", rel, f.UncompressedSize64)
		}

		mode := f.Mode().Perm()
		if mode == 0 {
			mode = 0644
		}

		n, err := extractFile(f, filepath.Join(dst, filepath.FromSlash(rel)), mode)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", rel, err)
		}

		entries = append(entries, Entry{Path: rel, Mode: mode, Size: n})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("archive %s contains no files", filepath.Base(src))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func extractFile(f *zip.File, target string, mode os.FileMode) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, err
	}

	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, io.LimitReader(rc, maxEntrySize+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, err
	}
	if n > maxEntrySize {
		return n, fmt.Errorf("entry exceeds %d bytes", maxEntrySize)
	}
	return n, nil
}
