// Package locate finds the Elden Ring installation directory.
package locate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/adamancini/ersc/internal/log"
)

const (
	// GameDirName is the directory holding the game executable and the mod files.
	GameDirName = "Game"
	// GameExe is the file whose presence identifies an installation.
	GameExe = "eldenring.exe"
	// SteamAppID is the Steam application id of Elden Ring.
	SteamAppID = "1245620"
	// steamFolderName is the install folder name under steamapps/common.
	steamFolderName = "ELDEN RING"
)

// InstallRoot is the directory that contains Game/eldenring.exe.
type InstallRoot string

// String returns the root path.
func (r InstallRoot) String() string {
	return string(r)
}

// ModDir returns the directory mod archives extract into.
func (r InstallRoot) ModDir() string {
	return filepath.Join(string(r), GameDirName)
}

// Validate checks that the root still holds the game and that the mod
// directory is writable.
func (r InstallRoot) Validate() error {
	if !isInstall(string(r)) {
		return fmt.Errorf("%s does not contain %s/%s", r, GameDirName, GameExe)
	}

	probe, err := os.CreateTemp(r.ModDir(), ".ersc-probe-*")
	if err != nil {
		return fmt.Errorf("game directory is not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

// NotFoundError is returned when no candidate location holds the game.
type NotFoundError struct {
	Tried []string
}

func (e *NotFoundError) Error() string {
	if len(e.Tried) == 0 {
		return "elden ring installation not found"
	}
	return fmt.Sprintf("elden ring installation not found (tried %d locations: %s)",
		len(e.Tried), strings.Join(e.Tried, ", "))
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Locator resolves the install root from, in order, the remembered override,
// the platform's known locations and a scan of common library directories.
type Locator struct {
	// Override is a previously confirmed install path.
	Override string
	// SteamRoots replaces the platform default Steam directories when set.
	SteamRoots []string
	// ScanDirs replaces the default common parent directories when set.
	ScanDirs []string

	// registry looks up the install location recorded by the Steam uninstaller.
	registry func() (string, bool)
}

// New returns a Locator using the platform defaults.
func New(override string) *Locator {
	return &Locator{Override: override, registry: registryInstallLocation}
}

// Locate returns the first candidate that holds the game.
func (l *Locator) Locate(ctx context.Context) (InstallRoot, error) {
	tried := make([]string, 0, 16)
	seen := make(map[string]bool)

	for candidate := range l.candidates() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if candidate == "" {
			continue
		}
		key := strings.ToLower(filepath.Clean(candidate))
		if seen[key] {
			continue
		}
		seen[key] = true
		tried = append(tried, candidate)

		log.Debugf("checking %s", candidate)
		if root, ok := asRoot(candidate); ok {
			return root, nil
		}
	}

	return "", &NotFoundError{Tried: tried}
}

// candidates yields possible install roots in priority order.
func (l *Locator) candidates() iter.Seq[string] {
	return func(yield func(string) bool) {
		if l.Override != "" {
			if p, err := homedir.Expand(l.Override); err == nil {
				if !yield(p) {
					return
				}
			}
		}

		if l.registry != nil {
			if p, ok := l.registry(); ok && !yield(p) {
				return
			}
		}

		steamRoots := l.SteamRoots
		if steamRoots == nil {
			steamRoots = defaultSteamRoots()
		}
		for _, steam := range steamRoots {
			libraries := append([]string{steam}, libraryFolders(steam)...)
			for _, lib := range libraries {
				if !yield(filepath.Join(lib, "steamapps", "common", steamFolderName)) {
					return
				}
			}
		}

		scanDirs := l.ScanDirs
		if scanDirs == nil {
			scanDirs = defaultScanDirs()
		}
		for _, dir := range scanDirs {
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				if !yield(filepath.Join(dir, e.Name())) {
					return
				}
			}
		}
	}
}

// ValidateManual checks a user supplied path. Both the install root and its
// Game directory are accepted.
func ValidateManual(path string) (InstallRoot, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is empty")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", path, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	if root, ok := asRoot(abs); ok {
		return root, nil
	}
	return "", &NotFoundError{Tried: []string{abs}}
}

// asRoot accepts either an install root or its Game directory.
func asRoot(path string) (InstallRoot, bool) {
	if isInstall(path) {
		return InstallRoot(filepath.Clean(path)), true
	}
	if strings.EqualFold(filepath.Base(path), GameDirName) {
		parent := filepath.Dir(path)
		if isInstall(parent) {
			return InstallRoot(filepath.Clean(parent)), true
		}
	}
	return "", false
}

func isInstall(root string) bool {
	info, err := os.Stat(filepath.Join(root, GameDirName, GameExe))
	return err == nil && info.Mode().IsRegular()
}

// "path"		"D:\\SteamLibrary"
var vdfPathRegex = regexp.MustCompile(`^\s*"path"\s+"((?:[^"\\]|\\.)*)"`)

// libraryFolders lists the extra Steam libraries recorded in
// steamapps/libraryfolders.vdf.
func libraryFolders(steamRoot string) []string {
	f, err := os.Open(filepath.Join(steamRoot, "steamapps", "libraryfolders.vdf"))
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	var folders []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := vdfPathRegex.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		p := strings.ReplaceAll(m[1], `\\`, `\`)
		if filepath.Separator == '/' {
			p = strings.ReplaceAll(p, `\`, "/")
		}
		folders = append(folders, p)
	}
	if err := scanner.Err(); err != nil {
		log.Debugf("failed to read %s: %v", f.Name(), err)
	}
	return folders
}

// homeJoin joins elem under the user's home directory, or returns "" if the
// home directory is unknown.
func homeJoin(elem ...string) string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(append([]string{home}, elem...)...)
}
