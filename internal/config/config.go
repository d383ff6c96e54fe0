// Package config handles the ersc config file and its location resolution.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	"github.com/adamancini/ersc/internal/backup"
)

// EnvConfig names the environment variable that points at a config file.
const EnvConfig = "ERSC_CONFIG"

// EnvToken overrides feed.token when set.
const EnvToken = "GITHUB_TOKEN"

// ErrNotFound is returned by Find when no config file exists.
var ErrNotFound = errors.New("no config file found in standard locations")

// fileNames are the accepted config file names, in order of precedence.
var fileNames = []string{
	"ersc.toml",
	"ersc.yaml",
	"ersc.yml",
	"ersc.json",
}

// Feed overrides where releases are listed.
type Feed struct {
	APIURL       string `yaml:"api_url,omitempty" toml:"api_url,omitempty" json:"api_url,omitempty"`
	Owner        string `yaml:"owner,omitempty" toml:"owner,omitempty" json:"owner,omitempty"`
	Repo         string `yaml:"repo,omitempty" toml:"repo,omitempty" json:"repo,omitempty"`
	AssetPattern string `yaml:"asset_pattern,omitempty" toml:"asset_pattern,omitempty" json:"asset_pattern,omitempty"`
	Token        string `yaml:"token,omitempty" toml:"token,omitempty" json:"token,omitempty"`
}

// Config represents the parsed configuration file.
type Config struct {
	InstallPath string   `yaml:"install_path,omitempty" toml:"install_path,omitempty" json:"install_path,omitempty"`
	Feed        Feed     `yaml:"feed,omitempty" toml:"feed,omitempty" json:"feed,omitzero"`
	Protected   []string `yaml:"protected,omitempty" toml:"protected,omitempty" json:"protected,omitempty"`
	CacheDir    string   `yaml:"cache_dir,omitempty" toml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
	KeepBackups *int     `yaml:"keep_backups,omitempty" toml:"keep_backups,omitempty" json:"keep_backups,omitempty"`
}

// Default returns an empty config. Every field falls back to a built-in default.
func Default() *Config {
	return &Config{}
}

// ResolvedCacheDir returns cache_dir with ~ expanded, or the user cache dir.
func (c *Config) ResolvedCacheDir() (string, error) {
	if c.CacheDir != "" {
		return homedir.Expand(c.CacheDir)
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine cache directory: %w", err)
	}
	return filepath.Join(dir, "ersc"), nil
}

// ResolvedInstallPath returns install_path with ~ expanded.
func (c *Config) ResolvedInstallPath() (string, error) {
	if c.InstallPath == "" {
		return "", nil
	}
	return homedir.Expand(c.InstallPath)
}

// Keep returns how many backups to retain.
func (c *Config) Keep() int {
	if c.KeepBackups == nil {
		return backup.DefaultKeepCount
	}
	return *c.KeepBackups
}

// applyEnv lets the environment override file values.
func (c *Config) applyEnv() {
	if token := os.Getenv(EnvToken); token != "" {
		c.Feed.Token = token
	}
}

// searchDirs returns the directories searched for a config file.
func searchDirs() ([]string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		filepath.Join(xdgConfig, "ersc"),
		filepath.Join(home, ".ersc"),
	}, nil
}

// DefaultPath returns where a new config file is written.
func DefaultPath() (string, error) {
	dirs, err := searchDirs()
	if err != nil {
		return "", err
	}
	return filepath.Join(dirs[0], fileNames[0]), nil
}

// Find searches for a config file in the standard locations.
// Returns the path to the first file found, or ErrNotFound.
func Find(explicitPath string) (string, error) {
	if explicitPath != "" {
		expanded, err := homedir.Expand(explicitPath)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", fmt.Errorf("specified config file not found: %s", explicitPath)
		}
		return expanded, nil
	}

	if envPath := os.Getenv(EnvConfig); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	dirs, err := searchDirs()
	if err != nil {
		return "", err
	}
	for _, dir := range dirs {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", ErrNotFound
}

// Load reads and parses a config file from the given path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	cfg, err := parse(content, format)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// Resolve finds and loads the config file. When none exists it returns the
// defaults and the path a new file would be written to.
func Resolve(explicitPath string) (*Config, string, error) {
	path, err := Find(explicitPath)
	if errors.Is(err, ErrNotFound) {
		path, err = DefaultPath()
		if err != nil {
			return nil, "", err
		}
		cfg := Default()
		cfg.applyEnv()
		return cfg, path, nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
