package cmd

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/adamancini/ersc/internal/catalog"
	"github.com/adamancini/ersc/internal/engine"
	"github.com/adamancini/ersc/internal/interactive"
	"github.com/adamancini/ersc/internal/launch"
	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/plan"
	"github.com/adamancini/ersc/internal/state"
	"github.com/adamancini/ersc/internal/types"
)

// errGameRunning stops installs while the game holds the mod files open.
var errGameRunning = errors.New("the game is running; close Elden Ring first or pass --force")

// gameRunning is replaced in tests.
var gameRunning = launch.GameRunning

func newInstallCmd(a *app) *cobra.Command {
	var (
		yes    bool
		force  bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "install [TAG|latest]",
		Short: "Install or update Seamless Co-op",
		Long: `Install downloads a Seamless Co-op release and installs it into the game
directory. Without a tag the latest release is installed.

Your co-op settings and password are never overwritten. Files from the
previous version that the new release no longer ships are removed.

Examples:
  ersc install              # Install or update to the latest release
  ersc install v1.7.3       # Install a specific release
  ersc install --dry-run    # Show what would change`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag := "latest"
			if len(args) == 1 {
				tag = args[0]
			}
			return a.runInstall(cmd, tag, yes, force, dryRun)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&force, "force", false, "Install even while the game is running")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the planned changes without applying them")

	return cmd
}

func (a *app) checkGameStopped(cmd *cobra.Command, force bool) error {
	if force {
		return nil
	}
	running, err := gameRunning(cmd.Context())
	if err != nil {
		log.Warnf("could not check for a running game: %v", err)
		return nil
	}
	if running {
		return errGameRunning
	}
	return nil
}

func (a *app) runInstall(cmd *cobra.Command, tag string, yes, force, dryRun bool) error {
	ctx := cmd.Context()

	root, err := a.installRoot(ctx)
	if err != nil {
		return err
	}
	if !dryRun {
		if err := a.checkGameStopped(cmd, force); err != nil {
			return err
		}
	}

	cat, err := a.releases(ctx)
	if err != nil {
		return err
	}
	target, err := pickRelease(cat, tag)
	if err != nil {
		return err
	}

	current := state.NewInspector().Inspect(root)
	eng, err := a.engine()
	if err != nil {
		return err
	}

	prep, err := eng.Prepare(ctx, root, target, current)
	if err != nil {
		return err
	}
	defer prep.Close()
	p := prep.Plan

	if dryRun {
		if a.env.out.Structured() {
			return a.env.out.Write(p)
		}
		a.printPlan(p)
		return nil
	}

	if current != nil && current.MarkerValid && current.Version == target.Tag && !p.HasChanges() {
		a.printf("Seamless Co-op %s is already installed.\n", target.Tag)
		return nil
	}

	ok, err := a.confirm(yes, func() bool {
		return interactive.NewPrompterWithIO(a.stdin, a.stdout).ConfirmPlan(p)
	})
	if err != nil || !ok {
		return err
	}

	if !a.quiet && !a.env.out.Structured() {
		eng.Observe(func(ev engine.Event) {
			if ev.To == types.PhaseDone || ev.To == types.PhaseFailed {
				return
			}
			fmt.Fprintf(a.stderr, "%s %s...\n", titleCase(ev.To.String()), ev.Version)
		})
	}

	report, err := eng.InstallPrepared(ctx, root, prep)
	if err != nil {
		var ie *engine.InstallError
		if errors.As(err, &ie) && !ie.Kind.LeavesNoTrace() {
			log.Errorf("the game directory was partly updated; run 'ersc install %s' again to finish", target.Tag)
		}
		return err
	}

	if a.env.out.Structured() {
		return a.env.out.Write(report)
	}
	a.printReport("Installed", report)
	return nil
}

// titleCase capitalizes the first letter of a string.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// pickRelease resolves "latest" or a tag against cat.
func pickRelease(cat *catalog.Catalog, tag string) (catalog.Release, error) {
	if tag == "" || strings.EqualFold(tag, "latest") {
		latest, ok := cat.Latest()
		if !ok {
			return catalog.Release{}, errors.New("no releases available")
		}
		return latest, nil
	}
	r, ok := cat.Find(tag)
	if !ok {
		return catalog.Release{}, fmt.Errorf("release %s not found; run 'ersc releases' to list them", tag)
	}
	return r, nil
}

func (a *app) printPlan(p *plan.Plan) {
	from := p.From
	if from == "" {
		from = "not installed"
	}
	a.printf("Seamless Co-op %s -> %s\n", from, p.To)
	if !p.HasChanges() {
		a.printf("No changes.\n")
		return
	}
	a.printf("%s", p.Format(a.verbose))
	write, unchanged, preserve, remove := p.Summary()
	a.printf("\n%d to write, %d to remove, %d unchanged, %d protected\n", write, remove, unchanged, preserve)
}

func (a *app) printReport(verb string, r *engine.Report) {
	if r.From != "" && r.From != r.Version {
		a.printf("%s Seamless Co-op %s (was %s)\n", verb, r.Version, r.From)
	} else {
		a.printf("%s Seamless Co-op %s\n", verb, r.Version)
	}
	a.printf("  %d written, %d removed, %d unchanged, %d protected kept\n",
		len(r.FilesWritten), len(r.FilesRemoved), len(r.FilesUnchanged), len(r.FilesPreserved))
	if r.BackupID != "" {
		a.printf("  settings backup: %s\n", r.BackupID)
	}
	if a.verbose {
		for _, f := range r.FilesPreserved {
			a.printf("  = %s\n", f)
		}
	}
}

func newUninstallCmd(a *app) *cobra.Command {
	var (
		yes   bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove Seamless Co-op from the game directory",
		Long: `Uninstall removes the mod's files. Your co-op settings file is kept so a
later install picks it up again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root, err := a.installRoot(ctx)
			if err != nil {
				return err
			}
			if err := a.checkGameStopped(cmd, force); err != nil {
				return err
			}

			current := state.NewInspector().Inspect(root)
			if current == nil {
				return engine.ErrNotInstalled
			}

			ok, err := a.confirm(yes, func() bool {
				return interactive.NewPrompterWithIO(a.stdin, a.stdout).Confirm("Uninstall Seamless Co-op %s from %s?", current.Version, root)
			})
			if err != nil || !ok {
				return err
			}

			eng, err := a.engine()
			if err != nil {
				return err
			}
			report, err := eng.Uninstall(ctx, root, current)
			if err != nil {
				return err
			}

			if a.env.out.Structured() {
				return a.env.out.Write(report)
			}
			a.printReport("Uninstalled", report)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&force, "force", false, "Uninstall even while the game is running")

	return cmd
}
