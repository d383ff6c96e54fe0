package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adamancini/ersc/internal/launch"
)

func newLaunchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "launch",
		Short: "Start Elden Ring with Seamless Co-op",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.installRoot(cmd.Context())
			if err != nil {
				return err
			}
			proc, err := launch.Launch(root)
			if err != nil {
				return err
			}
			a.printf("Started co-op launcher (pid %d)\n", proc.Pid)
			return proc.Release()
		},
	}
}
