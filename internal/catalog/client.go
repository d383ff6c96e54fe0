package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gobwas/glob"
	"golang.org/x/sync/singleflight"

	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/types"
)

const (
	// DefaultAPIURL is the GitHub REST API base.
	DefaultAPIURL = "https://api.github.com"
	// DefaultOwner and DefaultRepo identify the Seamless Co-op release feed.
	DefaultOwner = "LukeYui"
	DefaultRepo  = "EldenRingSeamlessCoopRelease"
	// DefaultAssetPattern selects the mod archive among a release's assets.
	DefaultAssetPattern = "*.zip"
)

// FetchError is returned when the release feed cannot be listed.
type FetchError struct {
	Kind        types.FetchErrorKind
	StatusCode  int  // HTTP status when the server answered
	RateLimited bool // GitHub API rate limit hit
	Err         error
}

func (e *FetchError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("release feed %s error: github api rate limit exceeded: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("release feed %s error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is a FetchError of the given kind.
func IsFetchError(err error, kind types.FetchErrorKind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}

// Options configures a Client.
type Options struct {
	APIURL       string
	Owner        string
	Repo         string
	AssetPattern string
	Token        string // optional, raises the API rate limit
	UserAgent    string
	MaxRetries   uint64
	HTTPClient   *http.Client
	Snapshot     *SnapshotStore // optional cache of the last good catalog
}

// Client lists releases from the GitHub releases API.
type Client struct {
	apiURL     string
	owner      string
	repo       string
	token      string
	userAgent  string
	maxRetries uint64
	asset      glob.Glob
	client     *http.Client
	snapshot   *SnapshotStore
	group      singleflight.Group
	now        func() time.Time
}

// NewClient creates a Client, applying defaults for empty options.
func NewClient(opts Options) (*Client, error) {
	pattern := opts.AssetPattern
	if pattern == "" {
		pattern = DefaultAssetPattern
	}
	asset, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid asset pattern %q: %w", pattern, err)
	}

	c := &Client{
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		owner:      opts.Owner,
		repo:       opts.Repo,
		token:      opts.Token,
		userAgent:  opts.UserAgent,
		maxRetries: opts.MaxRetries,
		asset:      asset,
		client:     opts.HTTPClient,
		snapshot:   opts.Snapshot,
		now:        time.Now,
	}
	if c.apiURL == "" {
		c.apiURL = DefaultAPIURL
	}
	if c.owner == "" {
		c.owner = DefaultOwner
	}
	if c.repo == "" {
		c.repo = DefaultRepo
	}
	if c.userAgent == "" {
		c.userAgent = "ersc"
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 30 * time.Second}
	}
	return c, nil
}

// sharedFetchTimeout bounds a fetch shared by several callers, since none of
// their contexts may cancel it.
const sharedFetchTimeout = 2 * time.Minute

// ListReleases fetches the feed and returns the usable releases newest first.
// Concurrent callers share a single request. Cancelling ctx only abandons
// this caller's wait; the shared request keeps running for the others.
func (c *Client) ListReleases(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Kind: types.FetchNetwork, Err: err}
	}

	ch := c.group.DoChan("releases", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return c.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, &FetchError{Kind: types.FetchNetwork, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Catalog), nil
	}
}

// ListReleasesOrCached returns the live catalog, or the last saved snapshot
// marked Stale together with the fetch error when the feed is unavailable.
func (c *Client) ListReleasesOrCached(ctx context.Context) (*Catalog, error) {
	cat, err := c.ListReleases(ctx)
	if err == nil {
		return cat, nil
	}

	cached, cacheErr := c.Cached()
	if cacheErr != nil || cached == nil {
		return nil, err
	}
	log.Warnf("release feed unavailable, using catalog cached %s: %v", cached.FetchedAt.Format(time.RFC3339), err)
	return cached, err
}

// Cached returns the last saved catalog, or nil if there is none.
func (c *Client) Cached() (*Catalog, error) {
	if c.snapshot == nil {
		return nil, nil
	}
	return c.snapshot.Load()
}

func (c *Client) fetch(ctx context.Context) (*Catalog, error) {
	var body []byte

	operation := func() error {
		data, err := c.get(ctx)
		if err != nil {
			return err
		}
		body = data
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{Kind: types.FetchNetwork, Err: err}
	}

	releases, err := c.parse(body)
	if err != nil {
		return nil, err
	}

	cat := New(releases, c.now())
	if c.snapshot != nil {
		if err := c.snapshot.Save(cat); err != nil {
			log.Warnf("could not save catalog snapshot: %v", err)
		}
	}
	return cat, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// get performs one request. Errors worth retrying are returned as-is,
// the rest are wrapped with backoff.Permanent.
func (c *Client) get(ctx context.Context) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=100", c.apiURL, c.owner, c.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(&FetchError{Kind: types.FetchNetwork, Err: err})
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		fe := &FetchError{Kind: types.FetchNetwork, Err: err}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(fe)
		}
		return nil, fe
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fe := &FetchError{
			Kind:       types.FetchNetwork,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("GitHub API returned status %d", resp.StatusCode),
		}
		if isRateLimited(resp) {
			fe.RateLimited = true
			return nil, backoff.Permanent(fe)
		}
		if resp.StatusCode >= 500 {
			return nil, fe
		}
		return nil, backoff.Permanent(fe)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: types.FetchNetwork, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return data, nil
}

func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if resp.StatusCode != http.StatusForbidden {
		return false
	}
	remaining, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("X-RateLimit-Remaining")))
	return err == nil && remaining == 0
}

// githubRelease holds the parts of the GitHub release API we use.
// See https://docs.github.com/en/rest/releases/releases
type githubRelease struct {
	TagName     string        `json:"tag_name"`
	Name        string        `json:"name"`
	Body        string        `json:"body"`
	HTMLURL     string        `json:"html_url"`
	Draft       bool          `json:"draft"`
	Prerelease  bool          `json:"prerelease"`
	PublishedAt string        `json:"published_at"`
	Assets      []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
	Digest             string `json:"digest"`
}

func (c *Client) parse(body []byte) ([]Release, error) {
	var raw []githubRelease
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &FetchError{Kind: types.FetchParse, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	releases := make([]Release, 0, len(raw))
	for _, gr := range raw {
		rel, ok := c.convert(gr)
		if !ok {
			continue
		}
		releases = append(releases, rel)
	}
	return releases, nil
}

// convert turns a feed entry into a Release. It returns false for entries
// that cannot be installed.
func (c *Client) convert(gr githubRelease) (Release, bool) {
	tag := strings.TrimSpace(gr.TagName)
	if tag == "" || gr.Draft {
		log.Debugf("skipping release without tag or still in draft")
		return Release{}, false
	}

	artifact, ok := c.findAsset(gr.Assets)
	if !ok {
		log.Debugf("skipping release %s: no asset matches the mod archive pattern", tag)
		return Release{}, false
	}

	rel := Release{
		Tag:        tag,
		Name:       strings.TrimSpace(gr.Name),
		Prerelease: gr.Prerelease,
		Notes:      gr.Body,
		HTMLURL:    gr.HTMLURL,
		Artifacts:  []Artifact{artifact},
	}
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(gr.PublishedAt)); err == nil {
		rel.PublishedAt = ts.UTC()
	} else {
		log.Debugf("release %s has no usable publish date %q", tag, gr.PublishedAt)
	}
	return rel, true
}

// findAsset selects the first asset matching the archive pattern and attaches
// a checksums listing if the release publishes one.
func (c *Client) findAsset(assets []githubAsset) (Artifact, bool) {
	var checksumURL string
	for _, a := range assets {
		name := strings.ToLower(a.Name)
		if name == "checksums.txt" || name == "sha256sums.txt" {
			checksumURL = a.BrowserDownloadURL
		}
	}

	for _, a := range assets {
		if a.BrowserDownloadURL == "" || !c.asset.Match(strings.ToLower(a.Name)) {
			continue
		}
		artifact := Artifact{
			Name:        a.Name,
			URL:         a.BrowserDownloadURL,
			Size:        a.Size,
			ChecksumURL: checksumURL,
		}
		if sum, ok := strings.CutPrefix(a.Digest, "sha256:"); ok {
			artifact.Checksum = strings.ToLower(sum)
		}
		return artifact, true
	}
	return Artifact{}, false
}
