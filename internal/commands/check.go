package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmsync/internal/culler"
	"github.com/nikbrunner/bmsync/internal/session"
)

func addCheck(topLevel *cobra.Command, ro *rootOptions) {
	var (
		remove      bool
		unreachable bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Find bookmarks whose links are dead",
		Long: `Request every bookmarked URL and report the ones answering 404 or 410.
404s on cull.exclude_domains count as private, not dead.`,
		Example: `
bm check
bm check --unreachable
bm check --delete
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ro.withSession(cmd, func(ctx context.Context, d *session.Deps) error {
				progress := cmd.ErrOrStderr()
				results := culler.CheckURLs(ctx, d.Store.Bookmarks(), culler.Options{
					Concurrency:    d.Config.Cull.Concurrency,
					Timeout:        d.Config.Cull.Timeout,
					ExcludeDomains: d.Config.Cull.ExcludeDomains,
					OnProgress: func(completed, total int) {
						_, _ = fmt.Fprintf(progress, "\rchecking %d/%d", completed, total)
					},
				})
				if len(results) > 0 {
					_, _ = fmt.Fprintln(progress)
				}

				w := cmd.OutOrStdout()
				dead := culler.Filter(results, culler.Dead)
				printResults(w, "Dead", dead)
				if unreachable {
					printResults(w, "Unreachable", culler.Filter(results, culler.Unreachable))
				}
				_, _ = fmt.Fprintf(w, "%d checked, %d dead\n", len(results), len(dead))

				if !remove {
					return nil
				}
				for _, r := range dead {
					if err := d.Store.DeleteBookmark(r.Bookmark.ID); err != nil {
						d.Log.Debugf("skip delete of %s: %v", r.Bookmark.ID, err)
					}
				}
				_, _ = fmt.Fprintf(w, "%s %d dead bookmarks\n", red("removed"), len(dead))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "Delete dead bookmarks.")
	cmd.Flags().BoolVar(&unreachable, "unreachable", false, "Also list bookmarks that could not be reached.")

	topLevel.AddCommand(cmd)
}

func printResults(w io.Writer, title string, results []culler.Result) {
	if len(results) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, header(title))
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	for _, r := range results {
		reason := r.Error
		if r.StatusCode != 0 {
			reason = fmt.Sprintf("%d", r.StatusCode)
		}
		tbl.AddRow(shortID(r.Bookmark.ID), r.Bookmark.URL, reason)
	}
	_, _ = fmt.Fprintln(w, tbl)
}
