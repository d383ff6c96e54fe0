package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// app holds the global flags and what they resolve to for one invocation.
type app struct {
	// Global flags
	outputFormat string
	configPath   string
	gameDir      string
	verbose      bool
	quiet        bool

	version string
	commit  string
	date    string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	env *env
}

// Execute runs the CLI. SIGINT cancels the running command.
func Execute(version, commit, date string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return newRootCmd(&app{version: version, commit: commit, date: date}).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ersc",
		Short: "Install and update Elden Ring Seamless Co-op",
		Long: `ersc finds your Elden Ring install, lists Seamless Co-op releases and
installs or updates the mod without touching your co-op settings.`,
		Version:      a.version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&a.outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&a.gameDir, "game-dir", "", "Elden Ring install directory (skips detection)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Quiet mode (errors only)")

	rootCmd.AddCommand(newLocateCmd(a))
	rootCmd.AddCommand(newReleasesCmd(a))
	rootCmd.AddCommand(newStatusCmd(a))
	rootCmd.AddCommand(newInstallCmd(a))
	rootCmd.AddCommand(newUninstallCmd(a))
	rootCmd.AddCommand(newPasswordCmd(a))
	rootCmd.AddCommand(newSettingsCmd(a))
	rootCmd.AddCommand(newLaunchCmd(a))
	rootCmd.AddCommand(newBackupCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.MarkPersistentFlagDirname("game-dir")

	return rootCmd
}
