// Package settings edits the Seamless Co-op INI file in place, keeping the
// comments and key order the mod ships with.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/adamancini/ersc/internal/fsutil"
	"github.com/adamancini/ersc/internal/locate"
	"github.com/adamancini/ersc/internal/state"
)

const (
	// FileName is the settings file shipped by current releases.
	FileName = "ersc_settings.ini"
	// LegacyFileName is the settings file shipped by releases before 1.5.
	LegacyFileName = "seamlesscoopsettings.ini"

	PasswordSection = "PASSWORD"
	PasswordKey     = "cooppassword"
)

// ErrNotFound is returned by Open when neither settings file exists.
var ErrNotFound = errors.New("settings file not found (is Seamless Co-op installed?)")

// Entry is one key in the settings file.
type Entry struct {
	Section string `json:"section" yaml:"section"`
	Key     string `json:"key" yaml:"key"`
	Value   string `json:"value" yaml:"value"`
}

// Settings is an opened settings file.
type Settings struct {
	path string
	file *ini.File
}

// Locate returns the path of the settings file under root, preferring the
// current name over the legacy one.
func Locate(root locate.InstallRoot) (string, error) {
	dir := filepath.Join(root.ModDir(), state.ModSubdir)
	for _, name := range []string{FileName, LegacyFileName} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// Open loads the settings file under root.
func Open(root locate.InstallRoot) (*Settings, error) {
	path, err := Locate(root)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load parses the settings file at path.
func Load(path string) (*Settings, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		// Passwords may contain ';' or '#'.
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return &Settings{path: path, file: f}, nil
}

// Path returns the file the settings were loaded from.
func (s *Settings) Path() string {
	return s.path
}

// Get returns the value of key in section.
func (s *Settings) Get(section, key string) (string, bool) {
	sec, err := s.file.GetSection(section)
	if err != nil || !sec.HasKey(key) {
		return "", false
	}
	return sec.Key(key).String(), true
}

// Set stores value under section and key, creating both if needed.
// Existing keys keep their position and comments.
func (s *Settings) Set(section, key, value string) error {
	section, key = strings.TrimSpace(section), strings.TrimSpace(key)
	if section == "" || key == "" {
		return fmt.Errorf("section and key are required")
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("value for %s.%s must be a single line", section, key)
	}

	sec := s.file.Section(section)
	if sec.HasKey(key) {
		sec.Key(key).SetValue(strings.TrimSpace(value))
		return nil
	}
	if _, err := sec.NewKey(key, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("failed to add %s.%s: %w", section, key, err)
	}
	return nil
}

// Password returns the co-op session password.
func (s *Settings) Password() string {
	v, _ := s.Get(PasswordSection, PasswordKey)
	return v
}

// SetPassword changes the co-op session password.
func (s *Settings) SetPassword(password string) error {
	return s.Set(PasswordSection, PasswordKey, password)
}

// Entries lists every key in file order. Keys before the first section
// are skipped.
func (s *Settings) Entries() []Entry {
	var entries []Entry
	for _, sec := range s.file.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		for _, k := range sec.Keys() {
			entries = append(entries, Entry{Section: sec.Name(), Key: k.Name(), Value: k.String()})
		}
	}
	return entries
}

// Save writes the settings back to their file atomically.
func (s *Settings) Save() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", s.path, err)
	}

	var buf bytes.Buffer
	if _, err := s.file.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
