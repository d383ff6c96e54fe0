package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestDefaultLoggerLevels(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name  string
		level Level
		want  []string
		skip  []string
	}{
		{
			name:  "info hides debug",
			level: LevelInfo,
			want:  []string{"Error: e", "Warning: w", "Info: i"},
			skip:  []string{"Debug: d"},
		},
		{
			name:  "debug shows all",
			level: LevelDebug,
			want:  []string{"Error: e", "Warning: w", "Info: i", "Debug: d"},
		},
		{
			name:  "error only",
			level: LevelError,
			want:  []string{"Error: e"},
			skip:  []string{"Warning: w", "Info: i", "Debug: d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewDefaultLogger(&buf, tt.level)
			l.Errorf("e")
			l.Warnf("w")
			l.Infof("i")
			l.Debugf("d")

			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, s := range tt.skip {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestSetLogger(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	SetLogger(NewDefaultLogger(&buf, LevelDebug))
	defer SetLogger(Discard{})

	Warnf("marker %s unreadable", "x.json")
	if got := buf.String(); got != "Warning: marker x.json unreadable\n" {
		t.Errorf("got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"", LevelInfo, false},
		{"WARNING", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
