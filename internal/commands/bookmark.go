package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmsync/internal/clip"
	"github.com/nikbrunner/bmsync/internal/dragdrop"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/rewrite"
	"github.com/nikbrunner/bmsync/internal/search"
	"github.com/nikbrunner/bmsync/internal/session"
)

var errDuplicateURL = errors.New("url is already bookmarked (use --force to add it again)")

func addAdd(topLevel *cobra.Command, ro *rootOptions) {
	var (
		category string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "add <url> [title...]",
		Short: "Add a bookmark",
		Example: `
bm add go.dev/doc Go documentation
bm add https://example.com --category reading
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, title := args[0], strings.Join(args[1:], " ")
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				if !force && d.Store.HasBookmarkURL(url) {
					return errDuplicateURL
				}
				var target model.Category
				if category != "" {
					c, err := resolveCategory(d.Store, category)
					if err != nil {
						return err
					}
					target = c
				}

				b, err := d.Store.AddBookmark(title, url)
				if err != nil {
					return err
				}
				if target.ID != "" {
					if err := d.Store.ReassignBookmarkCategory(b.ID, target.ID); err != nil {
						return err
					}
					b.CategoryID = target.ID
				}

				names := categoryNames(d.Store)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n",
					green("added"), b.URL, faint("→"), names[b.CategoryID])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "",
		"Put the bookmark into this category instead of classifying it.")
	cmd.Flags().BoolVar(&force, "force", false, "Add the URL even if it is already bookmarked.")

	topLevel.AddCommand(cmd)
}

func addRemove(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:     "rm <bookmark>...",
		Aliases: []string{"remove"},
		Short:   "Remove bookmarks by id, id prefix or URL",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				for _, ref := range args {
					b, err := resolveBookmark(d.Store, ref)
					if err != nil {
						return err
					}
					if err := d.Store.DeleteBookmark(b.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", red("removed"), b.URL)
				}
				return nil
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addList(topLevel *cobra.Command, ro *rootOptions) {
	var (
		category string
		filter   string
		mode     string
	)

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List bookmarks",
		Example: `
bm ls
bm ls --category reading
bm ls --filter docs --mode url
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := search.ParseMode(mode)
			if err != nil {
				return err
			}
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				bookmarks := d.Store.Bookmarks()
				if category != "" {
					c, err := resolveCategory(d.Store, category)
					if err != nil {
						return err
					}
					if err := d.Store.Select(c.ID); err != nil {
						return err
					}
					bookmarks = search.InCategory(bookmarks, d.Store.Selected())
				}
				bookmarks = search.Filter(bookmarks, filter, m)
				printBookmarks(cmd.OutOrStdout(), bookmarks, categoryNames(d.Store))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Only list bookmarks in this category.")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only list bookmarks containing this text.")
	cmd.Flags().StringVar(&mode, "mode", "all", "Fields the filter looks at: all, title or url.")

	topLevel.AddCommand(cmd)
}

func addOpen(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "open <bookmark>",
		Short: "Open a bookmark in the browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				b, err := resolveBookmark(d.Store, args[0])
				if err != nil {
					return err
				}
				return ro.apply(cmd, d, b, actionOpen)
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addCopy(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "copy <bookmark>",
		Short: "Copy a bookmark URL to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				b, err := resolveBookmark(d.Store, args[0])
				if err != nil {
					return err
				}
				return ro.apply(cmd, d, b, actionCopy)
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addConvert(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "convert <bookmark>",
		Short: "Copy the bolt.new form of a GitHub or Figma bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				b, err := resolveBookmark(d.Store, args[0])
				if err != nil {
					return err
				}
				return ro.apply(cmd, d, b, actionConvert)
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addMove(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "move <bookmark> <bookmark|category>",
		Short: "Move a bookmark next to another bookmark or into a category",
		Long: `Dropping a bookmark on another bookmark takes over that bookmark's
category and position. Dropping it on a category only changes the category.`,
		Example: `
bm move 1f3a9c2e 7d0b41aa
bm move go.dev/doc reading
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				source, err := resolveBookmark(d.Store, args[0])
				if err != nil {
					return err
				}
				target, err := dropTarget(d.Store, args[1])
				if err != nil {
					return err
				}
				outcome := dragdrop.NewResolver(d.Store).Drop(source.ID, target)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", outcome, source.URL)
				return nil
			})
		},
	}
	topLevel.AddCommand(cmd)
}

// dropTarget resolves ref to a bookmark id, or to a category drop target when
// no bookmark matches.
func dropTarget(store *model.Store, ref string) (string, error) {
	if b, err := resolveBookmark(store, ref); err == nil {
		return b.ID, nil
	}
	c, err := resolveCategory(store, ref)
	if err != nil {
		return "", fmt.Errorf("no bookmark or category matches %q", ref)
	}
	return dragdrop.CategoryTarget(c.ID), nil
}

type action int

const (
	actionOpen action = iota
	actionCopy
	actionConvert
)

func (ro *rootOptions) apply(cmd *cobra.Command, d *session.Deps, b model.Bookmark, a action) error {
	w := cmd.OutOrStdout()
	switch a {
	case actionCopy:
		url, err := clip.CopyURL(d.Clipboard, b)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "copied %s\n", url)
	case actionConvert:
		if kind := rewrite.Detect(b.URL); kind != rewrite.KindGitHub && kind != rewrite.KindFigma {
			return fmt.Errorf("%s is not a GitHub or Figma URL", b.URL)
		}
		url, err := clip.CopyConverted(d.Clipboard, b)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "copied %s\n", url)
	default:
		_, _ = fmt.Fprintf(w, "Opening: %s\n", displayTitle(b))
		return ro.opts.OpenURL(b.URL)
	}
	return nil
}

func displayTitle(b model.Bookmark) string {
	if b.Title != "" {
		return b.Title
	}
	return b.URL
}
