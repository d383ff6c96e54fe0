package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		content  string
		expected Format
	}{
		{"yaml extension", "ersc.yaml", "", FormatYAML},
		{"yml extension", "ersc.yml", "", FormatYAML},
		{"toml extension", "ersc.toml", "", FormatTOML},
		{"json extension", "ersc.json", "", FormatJSON},
		{"uppercase extension", "ERSC.TOML", "", FormatTOML},
		{"json content", "ersc", `{"install_path": "/games"}`, FormatJSON},
		{"yaml content", "ersc", `install_path: /games`, FormatYAML},
		{"toml content", "ersc", `install_path = "/games"`, FormatTOML},
		{"toml table", "ersc", "# comment\n[feed]\nowner = \"x\"", FormatTOML},
		{"empty", "ersc", "", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectFormat(tt.path, []byte(tt.content))
			if got != tt.expected {
				t.Errorf("detectFormat() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")
	t.Setenv("EMPTY_VAR", "")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple var", "${TEST_VAR}", "test_value"},
		{"var with default", "${MISSING_VAR:-default_value}", "default_value"},
		{"existing var ignores default", "${TEST_VAR:-default_value}", "test_value"},
		{"empty var uses default", "${EMPTY_VAR:-default_value}", "default_value"},
		{"no var", "plain text", "plain text"},
		{"mixed content", "prefix ${TEST_VAR} suffix", "prefix test_value suffix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(expandEnvVars([]byte(tt.input)))
			if got != tt.expected {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func intPtr(n int) *int { return &n }

func wantConfig() *Config {
	return &Config{
		InstallPath: "/games/ELDEN RING",
		Feed: Feed{
			Owner:        "LukeYui",
			Repo:         "EldenRingSeamlessCoopRelease",
			AssetPattern: "ersc*.zip",
			Token:        "secret",
		},
		Protected:   []string{"SeamlessCoop/mods/**"},
		CacheDir:    "/tmp/ersc",
		KeepBackups: intPtr(5),
	}
}

func TestParseFormats(t *testing.T) {
	t.Setenv("ERSC_TEST_TOKEN", "secret")

	tests := []struct {
		name    string
		format  Format
		content string
	}{
		{"toml", FormatTOML, `
install_path = "/games/ELDEN RING"
protected = ["SeamlessCoop/mods/**"]
cache_dir = "/tmp/ersc"
keep_backups = 5

[feed]
owner = "LukeYui"
repo = "EldenRingSeamlessCoopRelease"
asset_pattern = "ersc*.zip"
token = "${ERSC_TEST_TOKEN}"
`},
		{"yaml", FormatYAML, `
install_path: /games/ELDEN RING
feed:
  owner: LukeYui
  repo: EldenRingSeamlessCoopRelease
  asset_pattern: "ersc*.zip"
  token: ${ERSC_TEST_TOKEN}
protected:
  - SeamlessCoop/mods/**
cache_dir: /tmp/ersc
keep_backups: 5
`},
		{"json", FormatJSON, `{
  "install_path": "/games/ELDEN RING",
  "feed": {
    "owner": "LukeYui",
    "repo": "EldenRingSeamlessCoopRelease",
    "asset_pattern": "ersc*.zip",
    "token": "${ERSC_TEST_TOKEN}"
  },
  "protected": ["SeamlessCoop/mods/**"],
  "cache_dir": "/tmp/ersc",
  "keep_backups": 5
}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parse([]byte(tt.content), tt.format)
			if err != nil {
				t.Fatalf("parse() error = %v", err)
			}
			if diff := cmp.Diff(wantConfig(), got); diff != "" {
				t.Errorf("parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		content string
		wantErr string
	}{
		{"bad toml", FormatTOML, "install_path = [", "TOML parse error"},
		{"bad yaml", FormatYAML, "feed: [unclosed", "YAML parse error"},
		{"bad json", FormatJSON, "{", "JSON parse error"},
		{"unknown", FormatUnknown, "", "unsupported format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse([]byte(tt.content), tt.format)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("parse() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"ersc.toml", "ersc.yaml", "ersc.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := wantConfig()
			if err := Save(path, want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			t.Setenv(EnvToken, "")
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSaveInstallPath(t *testing.T) {
	t.Run("creates file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ersc", "ersc.toml")
		if err := SaveInstallPath(path, "/games/ELDEN RING"); err != nil {
			t.Fatalf("SaveInstallPath() error = %v", err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.InstallPath != "/games/ELDEN RING" {
			t.Errorf("InstallPath = %q", cfg.InstallPath)
		}
	})

	t.Run("keeps other settings and format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ersc")
		content := "install_path: /old\nkeep_backups: 3\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		if err := SaveInstallPath(path, "/new"); err != nil {
			t.Fatalf("SaveInstallPath() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if got := sniffFormat(data); got != FormatYAML {
			t.Errorf("rewritten format = %v, want YAML:\n%s", got, data)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.InstallPath != "/new" || cfg.Keep() != 3 {
			t.Errorf("Load() = %+v", cfg)
		}
	})
}
