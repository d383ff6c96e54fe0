package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/adamancini/ersc/internal/types"
)

// Report describes what an install or uninstall did. Paths are relative to
// the game directory.
type Report struct {
	Version        string        `json:"version" yaml:"version"`
	From           string        `json:"from,omitempty" yaml:"from,omitempty"`
	InstallID      string        `json:"install_id,omitempty" yaml:"install_id,omitempty"`
	FilesWritten   []string      `json:"files_written" yaml:"files_written"`
	FilesUnchanged []string      `json:"files_unchanged" yaml:"files_unchanged"`
	FilesPreserved []string      `json:"files_preserved" yaml:"files_preserved"`
	FilesRemoved   []string      `json:"files_removed" yaml:"files_removed"`
	BackupID       string        `json:"backup_id,omitempty" yaml:"backup_id,omitempty"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
}

// InstallError is returned by Install and Uninstall. Report holds whatever
// was done before the failure.
type InstallError struct {
	Kind   types.InstallErrorKind
	Report *Report
	Err    error
}

func (e *InstallError) Error() string {
	if e.Kind == types.InstallPartial && e.Report != nil {
		return fmt.Sprintf("install %s failed after writing %d and removing %d files: %v",
			e.Kind, len(e.Report.FilesWritten), len(e.Report.FilesRemoved), e.Err)
	}
	return fmt.Sprintf("install %s failed: %v", e.Kind, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// IsInstallError reports whether err is an InstallError of the given kind.
func IsInstallError(err error, kind types.InstallErrorKind) bool {
	var ie *InstallError
	return errors.As(err, &ie) && ie.Kind == kind
}

// Event is a state machine transition delivered to observers.
type Event struct {
	From    types.Phase
	To      types.Phase
	Version string
	Err     error // set when To is PhaseFailed
}
