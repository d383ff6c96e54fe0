// Package plan computes the file-level changes needed to move a game
// directory from its installed mod version to a staged release.
package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adamancini/ersc/internal/policy"
	"github.com/adamancini/ersc/internal/types"
)

// ErrProtected is returned when a step would modify an existing protected file.
var ErrProtected = errors.New("refusing to modify protected file")

// Step is the decision for one relative path.
type Step struct {
	Path   string           `json:"path" yaml:"path"`
	Action types.FileAction `json:"action" yaml:"action"`
	Source string           `json:"-" yaml:"-"` // staged file, empty for removals
	Mode   os.FileMode      `json:"-" yaml:"-"`
}

// Plan is the ordered list of steps for one transition. Removals come first,
// then the artifact's files in path order.
type Plan struct {
	From  string `json:"from,omitempty" yaml:"from,omitempty"`
	To    string `json:"to" yaml:"to"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// Summary counts the steps per action.
func (p *Plan) Summary() (write, unchanged, preserve, remove int) {
	for _, s := range p.Steps {
		switch s.Action {
		case types.ActionWrite:
			write++
		case types.ActionUnchanged:
			unchanged++
		case types.ActionPreserve:
			preserve++
		case types.ActionRemove:
			remove++
		}
	}
	return
}

// Paths returns the paths of the steps with the given action.
func (p *Plan) Paths(action types.FileAction) []string {
	var out []string
	for _, s := range p.Steps {
		if s.Action == action {
			out = append(out, s.Path)
		}
	}
	return out
}

// Installed returns the paths that make up the new installed set: every
// file of the artifact, whether written, unchanged or preserved.
func (p *Plan) Installed() []string {
	var out []string
	for _, s := range p.Steps {
		if s.Action != types.ActionRemove {
			out = append(out, s.Path)
		}
	}
	return out
}

// HasChanges reports whether executing the plan would modify the game directory.
func (p *Plan) HasChanges() bool {
	for _, s := range p.Steps {
		if s.Action.Mutates() {
			return true
		}
	}
	return false
}

// Guard fails with ErrProtected if step would write over or remove a
// protected file that exists under modDir.
func Guard(step Step, modDir string, pol *policy.Policy) error {
	if !step.Action.Mutates() || !pol.Protected(step.Path) {
		return nil
	}
	if _, err := os.Lstat(filepath.Join(modDir, filepath.FromSlash(step.Path))); err != nil {
		return nil
	}
	return fmt.Errorf("%w: %s %s", ErrProtected, step.Action, step.Path)
}

// Format renders the plan as one line per step, skipping unchanged files
// unless verbose is set.
func (p *Plan) Format(verbose bool) string {
	var b strings.Builder
	for _, s := range p.Steps {
		var sym string
		switch s.Action {
		case types.ActionWrite:
			sym = "+"
		case types.ActionRemove:
			sym = "-"
		case types.ActionPreserve:
			sym = "="
		case types.ActionUnchanged:
			if !verbose {
				continue
			}
			sym = " "
		}
		fmt.Fprintf(&b, "%s %s", sym, s.Path)
		if s.Action == types.ActionPreserve {
			b.WriteString(" (protected, kept)")
		}
		b.WriteString("\n")
	}
	return b.String()
}
