package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmsync/internal/exporter"
	"github.com/nikbrunner/bmsync/internal/importer"
	"github.com/nikbrunner/bmsync/internal/session"
)

func addImport(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "import <file.html>",
		Short: "Import bookmarks from a browser export",
		Long: `Import a Netscape bookmark file. Folders become categories (matched by
name), URLs that are already saved are skipped and bookmarks outside any
folder are classified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer file.Close()

			categories, bookmarks, err := importer.ParseHTMLBookmarks(file)
			if err != nil {
				return fmt.Errorf("parse import file: %w", err)
			}

			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				added, skipped := d.Store.ImportMerge(categories, bookmarks)
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "Imported %d bookmarks, %d folders", added, len(categories))
				if skipped > 0 {
					_, _ = fmt.Fprintf(w, " (%d duplicates skipped)", skipped)
				}
				_, _ = fmt.Fprintln(w)
				return nil
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addExport(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export bookmarks as a Netscape bookmark file",
		Long:  "Export bookmarks. The default path is ~/Downloads/bookmarks-export-<date>.html.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := exporter.DefaultExportPath()
				if err != nil {
					return fmt.Errorf("default export path: %w", err)
				}
				path = p
			}

			return ro.withSession(cmd, func(_ context.Context, d *session.Deps) error {
				snap := d.Store.Snapshot()
				if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
					return err
				}
				if err := os.WriteFile(path, []byte(exporter.ExportHTML(snap)), 0644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bookmarks, %d folders to %s\n",
					len(snap.Bookmarks), len(snap.Categories)-1, path)
				return nil
			})
		},
	}
	topLevel.AddCommand(cmd)
}
