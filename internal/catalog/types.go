// Package catalog lists the mod releases published on the GitHub release feed.
package catalog

import (
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/adamancini/ersc/internal/download"
)

// Artifact is a single downloadable archive belonging to a release.
type Artifact struct {
	Name        string `json:"name" yaml:"name"`
	URL         string `json:"url" yaml:"url"`
	Size        int64  `json:"size" yaml:"size"`
	Checksum    string `json:"checksum,omitempty" yaml:"checksum,omitempty"`         // hex sha256
	ChecksumURL string `json:"checksum_url,omitempty" yaml:"checksum_url,omitempty"` // checksums.txt asset
}

// Request converts the artifact into a download request.
func (a Artifact) Request() download.Request {
	return download.Request{
		URL:         a.URL,
		Name:        a.Name,
		Size:        a.Size,
		Checksum:    a.Checksum,
		ChecksumURL: a.ChecksumURL,
	}
}

// Release is one published version of the mod.
type Release struct {
	Tag         string     `json:"tag" yaml:"tag"`
	Name        string     `json:"name,omitempty" yaml:"name,omitempty"`
	PublishedAt time.Time  `json:"published_at" yaml:"published_at"` // zero when the feed had no usable date
	Prerelease  bool       `json:"prerelease,omitempty" yaml:"prerelease,omitempty"`
	Notes       string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	HTMLURL     string     `json:"html_url,omitempty" yaml:"html_url,omitempty"`
	Artifacts   []Artifact `json:"artifacts" yaml:"artifacts"`
}

// Artifact returns the primary archive of the release.
func (r Release) Artifact() Artifact {
	if len(r.Artifacts) == 0 {
		return Artifact{}
	}
	return r.Artifacts[0]
}

// DisplayName returns the release name, falling back to the tag.
func (r Release) DisplayName() string {
	if strings.TrimSpace(r.Name) != "" {
		return r.Name
	}
	return r.Tag
}

// Catalog is an immutable, newest-first list of releases.
type Catalog struct {
	releases  []Release
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale"` // loaded from the snapshot after a failed fetch
}

// New builds a catalog from releases in feed order. Releases are sorted by
// publish time, newest first; releases without a date keep their feed order
// and follow the dated ones.
func New(releases []Release, fetchedAt time.Time) *Catalog {
	sorted := append([]Release(nil), releases...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].PublishedAt, sorted[j].PublishedAt
		switch {
		case a.IsZero() && b.IsZero():
			return false
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		default:
			return a.After(b)
		}
	})
	return &Catalog{releases: sorted, FetchedAt: fetchedAt}
}

// All yields releases newest first. Each call starts a fresh walk.
func (c *Catalog) All() iter.Seq[Release] {
	return func(yield func(Release) bool) {
		for _, r := range c.releases {
			if !yield(r) {
				return
			}
		}
	}
}

// Releases returns a copy of the ordered releases.
func (c *Catalog) Releases() []Release {
	return append([]Release(nil), c.releases...)
}

// Len returns the number of releases.
func (c *Catalog) Len() int {
	return len(c.releases)
}

// Latest returns the newest release.
func (c *Catalog) Latest() (Release, bool) {
	if len(c.releases) == 0 {
		return Release{}, false
	}
	return c.releases[0], true
}

// Find returns the release with the given tag. A missing "v" prefix is tolerated.
func (c *Catalog) Find(tag string) (Release, bool) {
	want := NormalizeVersion(strings.TrimSpace(tag))
	for _, r := range c.releases {
		if r.Tag == tag || NormalizeVersion(r.Tag) == want {
			return r, true
		}
	}
	return Release{}, false
}
