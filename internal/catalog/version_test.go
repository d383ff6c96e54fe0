package catalog

import (
	"testing"
	"time"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Version
		wantErr bool
	}{
		{
			name:  "mod tag",
			input: "v1.7.3",
			want:  &Version{Major: 1, Minor: 7, Patch: 3},
		},
		{
			name:  "no prefix",
			input: "1.6.7",
			want:  &Version{Major: 1, Minor: 6, Patch: 7},
		},
		{
			name:  "two components",
			input: "1.2",
			want:  &Version{Major: 1, Minor: 2},
		},
		{
			name:  "suffix",
			input: "v1.5.1-hotfix",
			want:  &Version{Major: 1, Minor: 5, Patch: 1, Prerelease: "hotfix"},
		},
		{
			name:  "prerelease",
			input: "1.0.0-rc.1",
			want:  &Version{Major: 1, Minor: 0, Patch: 0, Prerelease: "rc.1"},
		},
		{
			name:    "invalid format",
			input:   "latest",
			wantErr: true,
		},
		{
			name:    "single number",
			input:   "7",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseVersion() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if *got != *tt.want {
				t.Errorf("ParseVersion() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"v1.7.3", "1.7.3"},
		{"1.2", "1.2.0"},
		{"v1.5.1-hotfix", "1.5.1-hotfix"},
	}

	for _, tt := range tests {
		v, err := ParseVersion(tt.in)
		if err != nil {
			t.Fatalf("ParseVersion(%q) error = %v", tt.in, err)
		}
		if got := v.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name    string
		v1, v2  string
		want    int
		wantErr bool
	}{
		{"equal", "v1.7.3", "1.7.3", 0, false},
		{"major", "2.0.0", "1.9.9", 1, false},
		{"minor", "v1.6.0", "v1.7.0", -1, false},
		{"patch", "v1.7.4", "v1.7.3", 1, false},
		{"two vs three components", "1.2", "1.2.0", 0, false},
		{"release beats prerelease", "1.0.0", "1.0.0-rc.1", 1, false},
		{"prerelease ordering", "1.0.0-rc.1", "1.0.0-rc.2", -1, false},
		{"invalid first", "nightly", "1.0.0", 0, true},
		{"invalid second", "1.0.0", "nightly", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompareVersions(tt.v1, tt.v2)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CompareVersions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CompareVersions(%s, %s) = %d, want %d", tt.v1, tt.v2, got, tt.want)
			}
		})
	}
}

func TestNormalizeVersion(t *testing.T) {
	tests := map[string]string{
		"v1.7.3": "1.7.3",
		"V1.7.3": "1.7.3",
		"1.7.3":  "1.7.3",
		"":       "",
	}
	for in, want := range tests {
		if got := NormalizeVersion(in); got != want {
			t.Errorf("NormalizeVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsNewer(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		candidate Release
		installed Release
		want      bool
	}{
		{"semver newer", Release{Tag: "v1.7.4"}, Release{Tag: "v1.7.3"}, true},
		{"semver older", Release{Tag: "v1.7.2"}, Release{Tag: "v1.7.3"}, false},
		{"semver beats dates", Release{Tag: "v1.0.0", PublishedAt: feb}, Release{Tag: "v2.0.0", PublishedAt: jan}, false},
		{"date fallback", Release{Tag: "nightly-b", PublishedAt: feb}, Release{Tag: "nightly-a", PublishedAt: jan}, true},
		{"unknown installed", Release{Tag: "v1.7.4", PublishedAt: feb}, Release{Tag: "unknown"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNewer(tt.candidate, tt.installed); got != tt.want {
				t.Errorf("IsNewer() = %v, want %v", got, tt.want)
			}
		})
	}
}
