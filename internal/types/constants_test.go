package types

import (
	"testing"
)

func TestPhaseValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Phase
		wantErr bool
	}{
		{"idle valid", PhaseIdle, false},
		{"writing valid", PhaseWriting, false},
		{"failed valid", PhaseFailed, false},
		{"empty invalid", "", true},
		{"invalid value", "paused", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Phase.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPhaseCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Phase
		to   Phase
		want bool
	}{
		{"idle to downloading", PhaseIdle, PhaseDownloading, true},
		{"downloading to extracting", PhaseDownloading, PhaseExtracting, true},
		{"extracting to diffing", PhaseExtracting, PhaseDiffing, true},
		{"diffing to writing", PhaseDiffing, PhaseWriting, true},
		{"writing to finalizing", PhaseWriting, PhaseFinalizing, true},
		{"finalizing to done", PhaseFinalizing, PhaseDone, true},
		{"idle to failed", PhaseIdle, PhaseFailed, true},
		{"writing to failed", PhaseWriting, PhaseFailed, true},
		{"done to failed", PhaseDone, PhaseFailed, false},
		{"failed to failed", PhaseFailed, PhaseFailed, false},
		{"skip extracting", PhaseDownloading, PhaseDiffing, false},
		{"backwards", PhaseWriting, PhaseDiffing, false},
		{"re-enter", PhaseWriting, PhaseWriting, false},
		{"done to idle", PhaseDone, PhaseIdle, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("%s.CanTransition(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPhaseIsTerminal(t *testing.T) {
	for _, p := range AllPhases() {
		want := p == PhaseDone || p == PhaseFailed
		if got := p.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", p, got, want)
		}
	}
}

func TestParsePhase(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Phase
		wantErr bool
	}{
		{"lowercase", "diffing", PhaseDiffing, false},
		{"uppercase", "DONE", PhaseDone, false},
		{"empty", "", "", true},
		{"invalid", "unknown", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePhase(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParsePhase() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParsePhase() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInstallErrorKindLeavesNoTrace(t *testing.T) {
	tests := []struct {
		kind InstallErrorKind
		want bool
	}{
		{InstallDownload, true},
		{InstallExtract, true},
		{InstallBackup, true},
		{InstallPartial, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.LeavesNoTrace(); got != tt.want {
				t.Errorf("LeavesNoTrace() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileActionValidate(t *testing.T) {
	for _, a := range AllFileActions() {
		if err := a.Validate(); err != nil {
			t.Errorf("%s.Validate() error = %v", a, err)
		}
	}
	if err := FileAction("").Validate(); err == nil {
		t.Error("empty action should be invalid")
	}
	if err := FileAction("copy").Validate(); err == nil {
		t.Error("unknown action should be invalid")
	}
}

func TestFileActionMutates(t *testing.T) {
	tests := []struct {
		a    FileAction
		want bool
	}{
		{ActionWrite, true},
		{ActionRemove, true},
		{ActionUnchanged, false},
		{ActionPreserve, false},
	}

	for _, tt := range tests {
		t.Run(tt.a.String(), func(t *testing.T) {
			if got := tt.a.Mutates(); got != tt.want {
				t.Errorf("Mutates() = %v, want %v", got, tt.want)
			}
		})
	}
}
