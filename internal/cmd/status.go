package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adamancini/ersc/internal/catalog"
	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/output"
	"github.com/adamancini/ersc/internal/state"
)

type statusResult struct {
	InstallRoot     string                `json:"install_root" yaml:"install_root"`
	Installed       *state.InstalledState `json:"installed" yaml:"installed"`
	Latest          string                `json:"latest,omitempty" yaml:"latest,omitempty"`
	UpdateAvailable bool                  `json:"update_available" yaml:"update_available"`
	GameRunning     bool                  `json:"game_running" yaml:"game_running"`
}

// updateAvailable reports whether latest should replace the installed version.
// An install of unknown version is always offered the latest release.
func updateAvailable(installed *state.InstalledState, latest catalog.Release) bool {
	if installed == nil || installed.Unknown() {
		return true
	}
	return catalog.IsNewer(latest, catalog.Release{Tag: installed.Version})
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the installed version and whether an update exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root, err := a.installRoot(ctx)
			if err != nil {
				return err
			}

			result := statusResult{
				InstallRoot: root.String(),
				Installed:   state.NewInspector().Inspect(root),
			}

			if running, err := gameRunning(ctx); err != nil {
				log.Debugf("could not check for a running game: %v", err)
			} else {
				result.GameRunning = running
			}

			if cat, err := a.releases(ctx); err != nil {
				log.Warnf("could not check for updates: %v", err)
			} else if latest, ok := cat.Latest(); ok {
				result.Latest = latest.Tag
				result.UpdateAvailable = updateAvailable(result.Installed, latest)
			}

			if a.env.out.Structured() {
				return a.env.out.Write(result)
			}

			a.printf("Game:      %s\n", result.InstallRoot)
			switch {
			case result.Installed == nil:
				a.printf("Installed: not installed\n")
			case result.Installed.Unknown():
				a.printf("Installed: unknown version (installed without ersc)\n")
			default:
				a.printf("Installed: %s (%d files, %s)\n", result.Installed.Version,
					len(result.Installed.Files), output.Age(result.Installed.InstalledAt))
			}
			if result.Installed != nil && result.Installed.Interrupted != "" {
				a.printf("           install of %s did not finish; run 'ersc install %s' again\n",
					result.Installed.Interrupted, result.Installed.Interrupted)
			}
			if result.Latest != "" {
				a.printf("Latest:    %s\n", result.Latest)
			}
			if result.UpdateAvailable {
				a.printf("\nRun 'ersc install' to install %s\n", result.Latest)
			}
			if result.GameRunning {
				a.printf("\nElden Ring is running.\n")
			}
			return nil
		},
	}
}
