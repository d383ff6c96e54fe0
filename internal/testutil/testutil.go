// Package testutil holds fixtures shared by package tests: zip artifacts,
// fake game installs and a fake release feed.
package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
)

// WriteZip writes a zip archive at path containing files (name -> content).
// Entries are written in sorted order so archives are reproducible.
func WriteZip(t *testing.T, path string, files map[string]string) []byte {
	t.Helper()
	data := BuildZip(t, files)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	return data
}

// BuildZip returns the bytes of a zip archive containing files.
func BuildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf strings.Builder
	w := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(files[name])); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return []byte(buf.String())
}

// SHA256 returns the lower-case hex sha256 of data.
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MakeGameDir creates a fake game install (root/Game/eldenring.exe) and returns root.
func MakeGameDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	WriteFile(t, filepath.Join(root, "Game", "eldenring.exe"), "MZ")
	return root
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// ListFiles returns every regular file under dir as sorted slash paths.
func ListFiles(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	sort.Strings(out)
	return out
}

// FeedAsset is one asset served by a Feed.
type FeedAsset struct {
	Name   string
	Data   []byte
	Digest bool // advertise "sha256:<hex>" in the release listing
}

// FeedRelease is one release served by a Feed.
type FeedRelease struct {
	Tag         string
	PublishedAt string
	Assets      []FeedAsset
}

// Feed is a fake GitHub releases API plus asset download server.
type Feed struct {
	Server *httptest.Server

	mu        sync.Mutex
	releases  []FeedRelease
	listCalls int
	fail      map[string]int // asset name -> status code
}

// NewFeed starts a Feed serving releases in the given order.
func NewFeed(t *testing.T, releases ...FeedRelease) *Feed {
	t.Helper()
	f := &Feed{releases: releases, fail: make(map[string]int)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Owner and Repo are the coordinates the feed answers for.
const (
	Owner = "LukeYui"
	Repo  = "EldenRingSeamlessCoopRelease"
)

// FailAsset makes downloads of the named asset answer with status.
func (f *Feed) FailAsset(name string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[name] = status
}

// ListCalls returns how many release listings were served.
func (f *Feed) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// AssetURL returns the download URL of an asset.
func (f *Feed) AssetURL(tag, name string) string {
	return fmt.Sprintf("%s/download/%s/%s", f.Server.URL, tag, name)
}

func (f *Feed) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	listPath := fmt.Sprintf("/repos/%s/%s/releases", Owner, Repo)
	if r.URL.Path == listPath {
		f.listCalls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.listing())
		return
	}

	if strings.HasPrefix(r.URL.Path, "/download/") {
		parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/download/"), "/", 2)
		if len(parts) == 2 {
			if status, ok := f.fail[parts[1]]; ok {
				w.WriteHeader(status)
				return
			}
			for _, rel := range f.releases {
				if rel.Tag != parts[0] {
					continue
				}
				for _, a := range rel.Assets {
					if a.Name == parts[1] {
						_, _ = w.Write(a.Data)
						return
					}
				}
			}
		}
	}

	http.NotFound(w, r)
}

func (f *Feed) listing() []map[string]any {
	out := make([]map[string]any, 0, len(f.releases))
	for _, rel := range f.releases {
		assets := make([]map[string]any, 0, len(rel.Assets))
		for _, a := range rel.Assets {
			asset := map[string]any{
				"name":                 a.Name,
				"browser_download_url": f.AssetURL(rel.Tag, a.Name),
				"size":                 len(a.Data),
				"content_type":         "application/zip",
			}
			if a.Digest {
				asset["digest"] = "sha256:" + SHA256(a.Data)
			}
			assets = append(assets, asset)
		}
		out = append(out, map[string]any{
			"tag_name":     rel.Tag,
			"name":         "Seamless Co-op " + rel.Tag,
			"published_at": rel.PublishedAt,
			"prerelease":   false,
			"draft":        false,
			"assets":       assets,
			"author":       map[string]any{"login": Owner},
		})
	}
	return out
}
