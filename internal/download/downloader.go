// Package download fetches release artifacts and verifies them.
package download

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrChecksumMismatch is returned when a downloaded file does not match its advertised sha256.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ErrSizeMismatch is returned when a downloaded file does not match its advertised size.
var ErrSizeMismatch = errors.New("size mismatch")

// Request describes one artifact to fetch.
type Request struct {
	URL         string
	Name        string // file name used for checksums.txt lookups
	Size        int64  // 0 when unknown
	Checksum    string // hex sha256, empty when not advertised
	ChecksumURL string // optional checksums.txt style listing
}

// HTTPDownloader downloads artifacts over HTTP
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
}

// NewHTTPDownloader creates a new HTTP downloader
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{
			Timeout: 10 * time.Minute,
		},
		userAgent: "ersc",
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func (d *HTTPDownloader) WithUserAgent(ua string) *HTTPDownloader {
	d.userAgent = ua
	return d
}

// WithClient replaces the HTTP client.
func (d *HTTPDownloader) WithClient(c *http.Client) *HTTPDownloader {
	d.client = c
	return d
}

// Fetch downloads req into dst and verifies size and checksum when they are
// known. dst only exists once the whole file has been received and verified.
func (d *HTTPDownloader) Fetch(ctx context.Context, req Request, dst string) error {
	if err := d.Download(ctx, req.URL, dst); err != nil {
		return err
	}
	if err := d.Verify(ctx, req, dst); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}

// Download downloads a file from url to dst
func (d *HTTPDownloader) Download(ctx context.Context, url string, dst string) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// Write to a sibling temp file so dst never holds a partial download
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".part-*")
	if err != nil {
		return fmt.Errorf("failed to create download file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to download %s: %w", url, err)
	}

	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	return nil
}

// Verify checks file against the size and checksum advertised in req.
func (d *HTTPDownloader) Verify(ctx context.Context, req Request, file string) error {
	if req.Size > 0 {
		info, err := os.Stat(file)
		if err != nil {
			return fmt.Errorf("failed to stat download: %w", err)
		}
		if info.Size() != req.Size {
			return fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, info.Size(), req.Size)
		}
	}

	expected := strings.ToLower(strings.TrimSpace(req.Checksum))
	if expected == "" && req.ChecksumURL != "" {
		checksums, err := d.downloadChecksums(ctx, req.ChecksumURL)
		if err != nil {
			return fmt.Errorf("failed to download checksums: %w", err)
		}
		name := req.Name
		if name == "" {
			name = getFilename(file)
		}
		sum, ok := checksums[name]
		if !ok {
			return fmt.Errorf("checksum for %s not found in checksums file", name)
		}
		expected = strings.ToLower(sum)
	}

	if expected == "" {
		return nil
	}
	return VerifyChecksum(file, expected)
}

// VerifyChecksum verifies the file's sha256 against expected (hex).
func VerifyChecksum(file, expected string) error {
	actual, err := calculateSHA256(file)
	if err != nil {
		return fmt.Errorf("failed to calculate checksum: %w", err)
	}
	if actual != strings.ToLower(expected) {
		return fmt.Errorf("%w for %s: got %s, want %s", ErrChecksumMismatch, getFilename(file), actual, expected)
	}
	return nil
}

func (d *HTTPDownloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download of %s returned status %d", url, resp.StatusCode)
	}
	return resp, nil
}

// downloadChecksums fetches a checksums.txt listing ("<hex>  <name>" per line).
// Malformed lines are ignored.
func (d *HTTPDownloader) downloadChecksums(ctx context.Context, url string) (map[string]string, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	result := make(map[string]string)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		result[strings.TrimPrefix(fields[1], "*")] = fields[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func calculateSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func getFilename(path string) string {
	return filepath.Base(path)
}
