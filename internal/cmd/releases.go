package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adamancini/ersc/internal/catalog"
	"github.com/adamancini/ersc/internal/output"
)

type releasesResult struct {
	Releases  []catalog.Release `json:"releases" yaml:"releases"`
	FetchedAt string            `json:"fetched_at" yaml:"fetched_at"`
	Stale     bool              `json:"stale" yaml:"stale"`
}

func newReleasesCmd(a *app) *cobra.Command {
	var (
		refresh bool
		offline bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "releases",
		Short: "List Seamless Co-op releases",
		Long: `Releases lists the published Seamless Co-op versions, newest first.

When the release feed cannot be reached the last downloaded list is shown.
Use --refresh to fail instead, or --offline to skip the network.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if refresh && offline {
				return fmt.Errorf("--refresh and --offline cannot be used together")
			}

			client, err := a.catalogClient()
			if err != nil {
				return err
			}

			var cat *catalog.Catalog
			switch {
			case offline:
				cat, err = client.Cached()
				if err == nil && cat == nil {
					err = fmt.Errorf("no saved release list; run 'ersc releases' while online")
				}
			case refresh:
				cat, err = client.ListReleases(cmd.Context())
			default:
				cat, err = a.releases(cmd.Context())
			}
			if err != nil {
				return err
			}

			list := cat.Releases()
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}

			if a.env.out.Structured() {
				return a.env.out.Write(releasesResult{
					Releases:  list,
					FetchedAt: cat.FetchedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
					Stale:     cat.Stale,
				})
			}

			if len(list) == 0 {
				a.printf("No releases found.\n")
				return nil
			}
			if cat.Stale {
				a.printf("Saved list from %s (feed unavailable)\n\n", output.Age(cat.FetchedAt))
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "TAG\tPUBLISHED\tASSET\tSIZE")
			for i, r := range list {
				tag := r.Tag
				if i == 0 {
					tag += " (latest)"
				}
				art := r.Artifact()
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tag, output.Age(r.PublishedAt), art.Name, output.Size(art.Size))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Always fetch the feed; fail when it is unreachable")
	cmd.Flags().BoolVar(&offline, "offline", false, "Show the last downloaded list without fetching")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most N releases")

	return cmd
}
