package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/settings"
)

func (a *app) openSettings(cmd *cobra.Command) (*settings.Settings, error) {
	root, err := a.installRoot(cmd.Context())
	if err != nil {
		return nil, err
	}
	return settings.Open(root)
}

func newPasswordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Show or change the co-op session password",
		Long: `Password shows the co-op session password. Players must use the same
password to see each other's sessions.

Examples:
  ersc password              # Show the password
  ersc password set hunter2  # Change it`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPasswordGet(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the co-op session password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPasswordGet(cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <password>",
		Short: "Change the co-op session password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSettings(cmd)
			if err != nil {
				return err
			}
			if err := s.SetPassword(args[0]); err != nil {
				return err
			}
			if err := s.Save(); err != nil {
				return err
			}
			a.printf("Password updated in %s\n", s.Path())
			return nil
		},
	})

	return cmd
}

func (a *app) runPasswordGet(cmd *cobra.Command) error {
	s, err := a.openSettings(cmd)
	if err != nil {
		return err
	}
	if a.env.out.Structured() {
		return a.env.out.Write(map[string]string{"password": s.Password()})
	}
	if s.Password() == "" {
		a.printf("No password set.\n")
		return nil
	}
	_, err = fmt.Fprintln(a.stdout, s.Password())
	return err
}

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "View and edit the co-op settings file",
		Long: `Settings reads and edits the Seamless Co-op settings file in the game
directory. Comments and ordering in the file are kept.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSettings(cmd)
			if err != nil {
				return err
			}
			entries := s.Entries()
			if a.env.out.Structured() {
				return a.env.out.Write(entries)
			}
			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "SECTION\tKEY\tVALUE")
			for _, e := range entries {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.Section, e.Key, e.Value)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <section> <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSettings(cmd)
			if err != nil {
				return err
			}
			v, ok := s.Get(args[0], args[1])
			if !ok {
				return fmt.Errorf("setting %s.%s not found in %s", args[0], args[1], s.Path())
			}
			if a.env.out.Structured() {
				return a.env.out.Write(settings.Entry{Section: args[0], Key: args[1], Value: v})
			}
			_, err = fmt.Fprintln(a.stdout, v)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <section> <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSettings(cmd)
			if err != nil {
				return err
			}
			if _, ok := s.Get(args[0], args[1]); !ok {
				log.Warnf("%s.%s is not in %s; adding it", args[0], args[1], s.Path())
			}
			if err := s.Set(args[0], args[1], args[2]); err != nil {
				return err
			}
			if err := s.Save(); err != nil {
				return err
			}
			a.printf("%s.%s = %s\n", args[0], args[1], args[2])
			return nil
		},
	})

	return cmd
}
