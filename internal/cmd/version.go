package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{Version: a.version, Commit: a.commit, Date: a.date}
			if a.env.out.Structured() {
				return a.env.out.Write(info)
			}
			_, err := fmt.Fprintf(a.stdout, "ersc version %s (commit %s, built %s)\n", info.Version, info.Commit, info.Date)
			return err
		},
	}
}
