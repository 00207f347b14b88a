// Package commands implements the bm command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmsync/internal/clip"
)

// Options replaces the system integrations used by commands.
type Options struct {
	Clipboard clip.Writer
	// OpenURL opens a link in the browser.
	OpenURL func(url string) error
}

// New returns the root command using the system clipboard and browser.
func New() *cobra.Command {
	return NewWith(Options{})
}

// NewWith returns the root command with the given integrations.
func NewWith(opts Options) *cobra.Command {
	if opts.Clipboard == nil {
		opts.Clipboard = clip.System{}
	}
	if opts.OpenURL == nil {
		opts.OpenURL = openURL
	}
	return newRoot(&rootOptions{opts: opts})
}

func newRoot(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bm",
		Short: "Categorized bookmarks on the command line.",
		Long: `bm stores titled URLs in categories. Bookmarks whose URL contains a
category's pattern are filed into it automatically. With a remote backend
the collection is kept in a document store and synced per signed-in user.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	addRootArgs(cmd, ro)

	addCommands(cmd, ro)
	return cmd
}

// addCommands attaches every bm subcommand to topLevel.
func addCommands(topLevel *cobra.Command, ro *rootOptions) {
	addAdd(topLevel, ro)
	addRemove(topLevel, ro)
	addList(topLevel, ro)
	addSearch(topLevel, ro)
	addOpen(topLevel, ro)
	addCopy(topLevel, ro)
	addConvert(topLevel, ro)
	addMove(topLevel, ro)
	addCategory(topLevel, ro)
	addImport(topLevel, ro)
	addExport(topLevel, ro)
	addCheck(topLevel, ro)
	addLogin(topLevel, ro)
	addLogout(topLevel, ro)
	addHashPassword(topLevel, ro)
	addShell(topLevel, ro)
}
