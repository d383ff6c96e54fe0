package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adamancini/ersc/internal/backup"
	"github.com/adamancini/ersc/internal/interactive"
	"github.com/adamancini/ersc/internal/output"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "List and restore settings backups",
		Long: `Backup manages the snapshots of your co-op settings taken before every
install and uninstall.

Backups are stored in the ersc cache directory and include the content of
each protected file (settings, password) that existed at the time.`,
	}

	cmd.AddCommand(newBackupListCmd(a))
	cmd.AddCommand(newBackupRestoreCmd(a))
	cmd.AddCommand(newBackupDeleteCmd(a))
	cmd.AddCommand(newBackupPruneCmd(a))

	return cmd
}

func newBackupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups",
		Long:  `List displays all available backups with their creation time, version, notes, and size.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := a.backups()
			backups, err := manager.List()
			if err != nil {
				return err
			}

			if a.env.out.Structured() {
				return a.env.out.Write(backups)
			}

			if len(backups) == 0 {
				a.printf("No backups found.\n")
				a.printf("Backup directory: %s\n", manager.BackupDir())
				return nil
			}

			a.printf("Backups stored in %s:\n\n", manager.BackupDir())
			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tCreated\tVersion\tFiles\tNote\tSize")
			for _, b := range backups {
				note, version := b.Note, b.Version
				if note == "" {
					note = "-"
				}
				if version == "" {
					version = "-"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					b.ID,
					b.CreatedAt.Format("2006-01-02 15:04:05"),
					version,
					b.Files,
					note,
					output.Size(b.Size),
				)
			}
			return w.Flush()
		},
	}
}

func newBackupRestoreCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore settings from a backup",
		Long: `Restore writes the files saved in a backup back into the game directory,
replacing the current ones.

Use 'latest' as the ID to restore the most recent backup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.installRoot(cmd.Context())
			if err != nil {
				return err
			}

			manager := a.backups()
			bak, err := manager.Get(args[0])
			if err != nil {
				return err
			}

			a.printf("Restoring from backup: %s\n", bak.ID)
			a.printf("Created: %s\n", bak.CreatedAt.Format("2006-01-02 15:04:05"))
			if bak.Note != "" {
				a.printf("Note: %s\n", bak.Note)
			}
			for _, f := range bak.Files {
				a.printf("  ~ %s\n", f.Path)
			}
			if len(bak.Files) == 0 {
				a.printf("Backup contains no files. Nothing to restore.\n")
				return nil
			}

			ok, err := a.confirm(yes, func() bool {
				return interactive.NewPrompterWithIO(a.stdin, a.stdout).Confirm("\nProceed?")
			})
			if err != nil {
				return err
			}
			if !ok {
				a.printf("Restore cancelled.\n")
				return nil
			}

			restored, err := manager.Restore(bak.ID, root)
			if err != nil {
				return err
			}
			if a.env.out.Structured() {
				return a.env.out.Write(map[string]any{"id": bak.ID, "restored": restored})
			}
			a.printf("Restored %d file(s)\n", len(restored))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}

func newBackupDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Long:  `Delete removes a backup by its ID.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.backups().Delete(args[0]); err != nil {
				return err
			}
			a.printf("Backup deleted: %s\n", args[0])
			return nil
		},
	}
}

func newBackupPruneCmd(a *app) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old backups",
		Long: `Prune deletes old backups, keeping only the most recent N backups.

By default, keeps the number set by keep_backups in the config file (30).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("keep") {
				keep = a.env.cfg.Keep()
			}
			result, err := a.backups().Prune(keep)
			if err != nil {
				return err
			}

			if a.env.out.Structured() {
				return a.env.out.Write(result)
			}
			if len(result.Deleted) == 0 {
				a.printf("No backups to prune. Keeping %d backups.\n", result.Kept)
				return nil
			}
			a.printf("Pruned %d backup(s), keeping %d:\n", len(result.Deleted), result.Kept)
			for _, b := range result.Deleted {
				a.printf("  - %s (%s)\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", backup.DefaultKeepCount, "Number of backups to keep")

	return cmd
}
