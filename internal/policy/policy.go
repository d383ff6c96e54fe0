// Package policy decides which mod files belong to the user and must never be
// overwritten or deleted by an install.
package policy

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultPatterns are always protected. Paths are relative to the game's
// Game directory and use forward slashes.
var DefaultPatterns = []string{
	"SeamlessCoop/ersc_settings.ini",
	"SeamlessCoop/seamlesscoopsettings.ini",
	"SeamlessCoop/cooppassword.ini",
	"**/cooppassword.ini",
}

// Policy matches relative paths against a fixed set of glob patterns.
type Policy struct {
	patterns []string
	globs    []glob.Glob
}

// Default returns the policy built from DefaultPatterns only.
func Default() *Policy {
	p, err := New()
	if err != nil {
		// DefaultPatterns are constants; a compile failure is a programming error.
		panic(err)
	}
	return p
}

// New builds a policy from DefaultPatterns plus any extra patterns.
// Extra patterns can only widen the protected set.
func New(extra ...string) (*Policy, error) {
	seen := make(map[string]bool)
	p := &Policy{}

	for _, raw := range append(append([]string{}, DefaultPatterns...), extra...) {
		pattern := normalizePattern(raw)
		if pattern == "" || seen[pattern] {
			continue
		}
		seen[pattern] = true

		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid protected pattern %q: %w", raw, err)
		}
		p.patterns = append(p.patterns, pattern)
		p.globs = append(p.globs, g)
	}

	return p, nil
}

// Protected reports whether relPath is covered by the policy. Matching is
// case-insensitive because the game runs on a case-insensitive filesystem.
func (p *Policy) Protected(relPath string) bool {
	candidate := Normalize(relPath)
	if candidate == "" {
		return false
	}
	candidate = strings.ToLower(candidate)
	for _, g := range p.globs {
		if g.Match(candidate) {
			return true
		}
	}
	return false
}

// Filter returns the subset of paths that are protected, sorted.
func (p *Policy) Filter(paths []string) []string {
	var out []string
	for _, rel := range paths {
		if p.Protected(rel) {
			out = append(out, Normalize(rel))
		}
	}
	sort.Strings(out)
	return out
}

// Patterns returns the normalized patterns in evaluation order.
func (p *Policy) Patterns() []string {
	return append([]string(nil), p.patterns...)
}

// Normalize cleans a relative path into the slash-separated form used by the
// policy, the planner and the installed-state marker. Absolute paths and paths
// escaping the root normalize to "".
func Normalize(relPath string) string {
	s := strings.ReplaceAll(strings.TrimSpace(relPath), "\\", "/")
	if s == "" || strings.HasPrefix(s, "/") || (len(s) > 1 && s[1] == ':') {
		return ""
	}
	s = path.Clean(s)
	if s == "." || s == ".." || strings.HasPrefix(s, "../") {
		return ""
	}
	return s
}

func normalizePattern(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/")
	s = strings.TrimPrefix(s, "./")
	return strings.ToLower(s)
}
