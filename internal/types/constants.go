// Package types provides type-safe constants shared by the ersc engine and CLI.
//
// This package centralizes the enumerated types used throughout the codebase,
// replacing magic strings with typed constants that provide compile-time safety
// and validation methods.
package types

import (
	"fmt"
	"strings"
)

// Phase is a step of the install state machine.
type Phase string

const (
	// PhaseIdle is the state before an install starts.
	PhaseIdle Phase = "idle"
	// PhaseDownloading fetches the artifact into staging.
	PhaseDownloading Phase = "downloading"
	// PhaseExtracting unpacks the artifact inside staging.
	PhaseExtracting Phase = "extracting"
	// PhaseDiffing computes the file-level plan.
	PhaseDiffing Phase = "diffing"
	// PhaseWriting applies removals and writes into the install root.
	PhaseWriting Phase = "writing"
	// PhaseFinalizing writes the installed-state marker.
	PhaseFinalizing Phase = "finalizing"
	// PhaseDone is terminal success.
	PhaseDone Phase = "done"
	// PhaseFailed is terminal failure.
	PhaseFailed Phase = "failed"
)

// AllPhases returns every phase in state machine order.
func AllPhases() []Phase {
	return []Phase{
		PhaseIdle, PhaseDownloading, PhaseExtracting, PhaseDiffing,
		PhaseWriting, PhaseFinalizing, PhaseDone, PhaseFailed,
	}
}

// Validate checks if the Phase is a valid value.
func (p Phase) Validate() error {
	for _, known := range AllPhases() {
		if p == known {
			return nil
		}
	}
	if p == "" {
		return fmt.Errorf("phase is required")
	}
	return fmt.Errorf("invalid phase '%s'", p)
}

// String returns the string representation of the Phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true for done and failed.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// next maps each non-terminal phase to its successor.
var next = map[Phase]Phase{
	PhaseIdle:        PhaseDownloading,
	PhaseDownloading: PhaseExtracting,
	PhaseExtracting:  PhaseDiffing,
	PhaseDiffing:     PhaseWriting,
	PhaseWriting:     PhaseFinalizing,
	PhaseFinalizing:  PhaseDone,
}

// CanTransition reports whether moving from p to to is a legal edge.
// Every phase except done may fail; otherwise phases advance one step at a time.
func (p Phase) CanTransition(to Phase) bool {
	if to == PhaseFailed {
		return p != PhaseDone && p != PhaseFailed
	}
	return next[p] == to
}

// ParsePhase parses a string into a Phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToLower(s))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// FetchErrorKind classifies catalog fetch failures.
type FetchErrorKind string

const (
	// FetchNetwork covers transport failures and unexpected HTTP statuses.
	FetchNetwork FetchErrorKind = "network"
	// FetchParse covers responses that do not decode as a release list.
	FetchParse FetchErrorKind = "parse"
)

// String returns the string representation of the FetchErrorKind.
func (k FetchErrorKind) String() string {
	return string(k)
}

// InstallErrorKind classifies install failures.
type InstallErrorKind string

const (
	// InstallDownload means the artifact could not be fetched or verified.
	InstallDownload InstallErrorKind = "download"
	// InstallExtract means the artifact could not be unpacked.
	InstallExtract InstallErrorKind = "extract"
	// InstallBackup means protected files could not be snapshotted before writing.
	InstallBackup InstallErrorKind = "backup"
	// InstallPartial means the install root was modified before the failure.
	InstallPartial InstallErrorKind = "partial"
)

// String returns the string representation of the InstallErrorKind.
func (k InstallErrorKind) String() string {
	return string(k)
}

// LeavesNoTrace returns true if a failure of this kind left the install root untouched.
func (k InstallErrorKind) LeavesNoTrace() bool {
	return k != InstallPartial
}

// FileAction is what the planner decided for a single relative path.
type FileAction string

const (
	// ActionWrite writes the staged file into the install root.
	ActionWrite FileAction = "write"
	// ActionUnchanged means the file on disk already matches the staged file.
	ActionUnchanged FileAction = "unchanged"
	// ActionPreserve keeps an existing protected file as-is.
	ActionPreserve FileAction = "preserve"
	// ActionRemove deletes a file left over from the previous version.
	ActionRemove FileAction = "remove"
)

// AllFileActions returns all valid file actions.
func AllFileActions() []FileAction {
	return []FileAction{ActionWrite, ActionUnchanged, ActionPreserve, ActionRemove}
}

// Validate checks if the FileAction is a valid value.
func (a FileAction) Validate() error {
	switch a {
	case ActionWrite, ActionUnchanged, ActionPreserve, ActionRemove:
		return nil
	case "":
		return fmt.Errorf("file action is required")
	default:
		return fmt.Errorf("invalid file action '%s' (must be write, unchanged, preserve, or remove)", a)
	}
}

// String returns the string representation of the FileAction.
func (a FileAction) String() string {
	return string(a)
}

// Mutates returns true if the action changes the install root.
func (a FileAction) Mutates() bool {
	return a == ActionWrite || a == ActionRemove
}

// UnknownVersion is reported when mod files exist without a readable marker.
const UnknownVersion = "unknown"
