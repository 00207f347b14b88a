package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmsync/internal/dragdrop"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/session"
)

func addCategory(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
		Example: `
bm category add Reading --pattern medium.com
bm category pattern Reading substack.com
bm category move Reading Work
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	addCategoryList(cmd, ro)
	addCategoryAdd(cmd, ro)
	addCategoryRemove(cmd, ro)
	addCategoryRename(cmd, ro)
	addCategoryPattern(cmd, ro)
	addCategoryMove(cmd, ro)

	topLevel.AddCommand(cmd)
}

func addCategoryList(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List categories in order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				printCategories(cmd.OutOrStdout(), d.Store.Categories(), d.Store.Bookmarks())
				return nil
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addCategoryAdd(topLevel *cobra.Command, ro *rootOptions) {
	var pattern string

	cmd := &cobra.Command{
		Use:   "add [name...]",
		Short: "Add a category",
		Long: `Add a category. With --pattern every bookmark whose URL contains the
pattern moves into it, and so do bookmarks added later.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				if p := strings.TrimSpace(pattern); p != "" {
					for _, c := range d.Store.Categories() {
						if !c.IsDefault() && c.URLPattern == p {
							return fmt.Errorf("%w: %s", model.ErrDuplicatePattern, c.Name)
						}
					}
				}

				c := d.Store.AddCategory()
				if strings.TrimSpace(name) != "" {
					if err := d.Store.RenameCategory(c.ID, name); err != nil {
						return err
					}
				}
				if pattern != "" {
					if err := d.Store.UpdateCategoryURLPattern(c.ID, pattern); err != nil {
						return err
					}
				}

				c, _ = d.Store.GetCategoryByID(c.ID)
				moved := len(d.Store.GetBookmarksInCategory(c.ID))
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
					green("added"), c.Name, faint(shortID(c.ID)))
				if moved > 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d bookmarks matched %q\n", moved, c.URLPattern)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "URL pattern that files bookmarks into the category.")

	topLevel.AddCommand(cmd)
}

func addCategoryRemove(topLevel *cobra.Command, ro *rootOptions) {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <category>",
		Aliases: []string{"remove"},
		Short:   "Remove a category, moving its bookmarks to the default category",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				c, err := resolveCategory(d.Store, args[0])
				if err != nil {
					return err
				}
				if c.IsDefault() {
					return model.ErrDefaultCategory
				}
				members := len(d.Store.GetBookmarksInCategory(c.ID))
				if members > 0 && !yes {
					return fmt.Errorf("category %q holds %d bookmarks; pass --yes to move them to %q and delete it",
						c.Name, members, model.DefaultCategoryName)
				}
				if err := d.Store.DeleteCategory(c.ID); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", red("removed"), c.Name)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm removing a category that still holds bookmarks.")

	topLevel.AddCommand(cmd)
}

func addCategoryRename(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "rename <category> <name...>",
		Short: "Rename a category",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args[1:], " ")
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				c, err := resolveCategory(d.Store, args[0])
				if err != nil {
					return err
				}
				if err := d.Store.RenameCategory(c.ID, name); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "renamed %s %s %s\n", c.Name, faint("→"), strings.TrimSpace(name))
				return nil
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addCategoryPattern(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "pattern <category> [pattern]",
		Short: "Set or clear the URL pattern of a category",
		Long: `Set the URL pattern of a category and file every matching bookmark into
it. Without a pattern the current one is cleared; bookmarks stay where
they are.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pattern string
			if len(args) == 2 {
				pattern = args[1]
			}
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				c, err := resolveCategory(d.Store, args[0])
				if err != nil {
					return err
				}
				if err := d.Store.UpdateCategoryURLPattern(c.ID, pattern); err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if strings.TrimSpace(pattern) == "" {
					_, _ = fmt.Fprintf(w, "cleared pattern of %s\n", c.Name)
					return nil
				}
				_, _ = fmt.Fprintf(w, "%s now matches %q (%d bookmarks)\n",
					c.Name, strings.TrimSpace(pattern), len(d.Store.GetBookmarksInCategory(c.ID)))
				return nil
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addCategoryMove(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "move <category> <target category>",
		Short: "Move a category to the position of another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				source, err := resolveCategory(d.Store, args[0])
				if err != nil {
					return err
				}
				target, err := resolveCategory(d.Store, args[1])
				if err != nil {
					return err
				}
				if source.IsDefault() || target.IsDefault() {
					return model.ErrDefaultCategory
				}
				outcome := dragdrop.NewResolver(d.Store).Drop(
					dragdrop.CategoryTarget(source.ID), dragdrop.CategoryTarget(target.ID))
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", outcome, source.Name)
				return nil
			})
		},
	}
	topLevel.AddCommand(cmd)
}
