package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adamancini/ersc/internal/config"
	"github.com/adamancini/ersc/internal/locate"
)

type locateResult struct {
	InstallRoot string `json:"install_root" yaml:"install_root"`
	GameDir     string `json:"game_dir" yaml:"game_dir"`
	Saved       bool   `json:"saved,omitempty" yaml:"saved,omitempty"`
	ConfigPath  string `json:"config_path,omitempty" yaml:"config_path,omitempty"`
}

func newLocateCmd(a *app) *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Find the Elden Ring install directory",
		Long: `Locate looks for Elden Ring in the configured path, the Steam registry entry,
every Steam library and common game folders, and prints the first match.

Use --set to validate a path and save it to the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				root locate.InstallRoot
				err  error
			)
			if set != "" {
				root, err = locate.ValidateManual(set)
			} else {
				root, err = a.installRoot(cmd.Context())
			}
			if err != nil {
				return err
			}

			result := locateResult{InstallRoot: root.String(), GameDir: root.ModDir()}
			if set != "" {
				if err := root.Validate(); err != nil {
					return err
				}
				if err := config.SaveInstallPath(a.env.cfgPath, root.String()); err != nil {
					return err
				}
				result.Saved = true
				result.ConfigPath = a.env.cfgPath
			}

			if a.env.out.Structured() {
				return a.env.out.Write(result)
			}
			a.printf("%s\n", result.InstallRoot)
			if result.Saved {
				a.printf("Saved to %s\n", result.ConfigPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "Validate PATH and save it as the install path")
	_ = cmd.MarkFlagDirname("set")

	return cmd
}
