package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adamancini/ersc/internal/log"
)

// Cache keeps verified artifacts on disk so reinstalling a version does not
// download it again.
type Cache struct {
	dir        string
	downloader *HTTPDownloader
}

// NewCache creates a cache rooted at dir that fills itself with downloader.
func NewCache(dir string, downloader *HTTPDownloader) *Cache {
	return &Cache{dir: dir, downloader: downloader}
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns where the artifact name of release tag is cached.
func (c *Cache) Path(tag, name string) string {
	return filepath.Join(c.dir, sanitize(tag), sanitize(name))
}

// Has reports whether the artifact is present in the cache.
func (c *Cache) Has(tag, name string) bool {
	info, err := os.Stat(c.Path(tag, name))
	return err == nil && info.Mode().IsRegular()
}

// Get returns a verified local copy of the artifact, downloading it if the
// cached copy is missing or fails verification.
func (c *Cache) Get(ctx context.Context, tag string, req Request) (string, error) {
	path := c.Path(tag, req.Name)

	if c.Has(tag, req.Name) {
		err := c.downloader.Verify(ctx, req, path)
		if err == nil {
			log.Debugf("using cached artifact %s", path)
			return path, nil
		}
		log.Warnf("cached artifact %s failed verification, downloading again: %v", path, err)
		_ = os.Remove(path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := c.downloader.Fetch(ctx, req, path); err != nil {
		return "", err
	}
	return path, nil
}

// sanitize keeps cache paths inside the cache dir whatever a tag contains.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
