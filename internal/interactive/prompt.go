// Package interactive provides interactive prompts for user confirmation.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/adamancini/ersc/internal/plan"
)

// Response represents the user's response to a prompt.
type Response int

const (
	ResponseYes  Response = iota // Proceed
	ResponseNo                   // Decline
	ResponseQuit                 // Abort, also returned on EOF
)

// Prompter handles interactive prompts.
type Prompter struct {
	out     io.Writer
	scanner *bufio.Scanner
}

// NewPrompter creates a prompter with stdin/stdout.
func NewPrompter() *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stdout)
}

// NewPrompterWithIO creates a prompter with custom input/output (for testing).
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		out:     out,
		scanner: bufio.NewScanner(in),
	}
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// prompt displays a question and reads the response.
func (p *Prompter) prompt(format string, args ...any) Response {
	_, _ = fmt.Fprintf(p.out, format, args...)
	_, _ = fmt.Fprint(p.out, " [y/n] ")

	if !p.scanner.Scan() {
		return ResponseQuit
	}

	switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
	case "y", "yes":
		return ResponseYes
	case "q", "quit":
		return ResponseQuit
	default:
		// Anything else is a no.
		return ResponseNo
	}
}

// Confirm asks a yes/no question. Only an explicit yes returns true.
func (p *Prompter) Confirm(format string, args ...any) bool {
	return p.prompt(format, args...) == ResponseYes
}

// ConfirmPlan shows the steps of pl and asks whether to apply them.
// A plan without changes is confirmed without asking.
func (p *Prompter) ConfirmPlan(pl *plan.Plan) bool {
	if !pl.HasChanges() {
		return true
	}

	from := pl.From
	if from == "" {
		from = "not installed"
	}
	_, _ = fmt.Fprintf(p.out, "\nSeamless Co-op %s -> %s\n", from, pl.To)
	_, _ = fmt.Fprint(p.out, pl.Format(false))

	if !p.Confirm("\nProceed?") {
		_, _ = fmt.Fprintln(p.out, "Aborted.")
		return false
	}
	return true
}
