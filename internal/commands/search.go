package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/picker"
	"github.com/nikbrunner/bmsync/internal/search"
	"github.com/nikbrunner/bmsync/internal/session"
)

const modeFuzzy = "fuzzy"

func addSearch(topLevel *cobra.Command, ro *rootOptions) {
	var (
		mode string
		list bool
	)

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Find a bookmark and open or copy it",
		Long: `Search matches titles fuzzily by default. The all, title and url modes
match a plain substring instead. A single match is opened right away;
several matches are shown in a picker (enter opens, y copies the URL,
b copies the bolt.new form).`,
		Example: `
bm search gh issues
bm search --mode url github.com --list
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				results, err := find(d.Store.Bookmarks(), query, mode)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				names := categoryNames(d.Store)

				if len(results) == 0 {
					_, _ = fmt.Fprintf(w, "No bookmarks found for '%s'\n", query)
					return nil
				}
				if list {
					bookmarks := make([]model.Bookmark, len(results))
					for i, r := range results {
						bookmarks[i] = *r.Bookmark
					}
					printBookmarks(w, bookmarks, names)
					_, _ = fmt.Fprintln(w, faint(fmt.Sprintf("%d results", len(results))))
					return nil
				}
				if len(results) == 1 {
					return ro.apply(cmd, d, *results[0].Bookmark, actionOpen)
				}

				p, err := picker.Run(results, query, names)
				if err != nil {
					return fmt.Errorf("run picker: %w", err)
				}
				selected := p.SelectedBookmark()
				if selected == nil {
					return nil
				}
				switch p.Action() {
				case picker.ActionCopyURL:
					return ro.apply(cmd, d, *selected, actionCopy)
				case picker.ActionCopyConverted:
					return ro.apply(cmd, d, *selected, actionConvert)
				default:
					return ro.apply(cmd, d, *selected, actionOpen)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", modeFuzzy, "Match mode: fuzzy, all, title or url.")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "Print the matches instead of picking one.")

	topLevel.AddCommand(cmd)
}

// find runs a fuzzy title search or a substring filter depending on mode.
func find(bookmarks []model.Bookmark, query, mode string) ([]search.SearchResult, error) {
	if strings.EqualFold(strings.TrimSpace(mode), modeFuzzy) {
		return search.FuzzySearchBookmarks(bookmarks, query), nil
	}
	m, err := search.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	filtered := search.Filter(bookmarks, query, m)
	results := make([]search.SearchResult, len(filtered))
	for i := range filtered {
		results[i] = search.SearchResult{Bookmark: &filtered[i]}
	}
	return results, nil
}
