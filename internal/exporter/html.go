// Package exporter writes bookmarks as a Netscape bookmark file that
// browsers can import.
package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/bmsync/internal/model"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/bookmarks-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("bookmarks-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML renders the snapshot in Netscape bookmark HTML format. Each
// category becomes a folder; bookmarks in the default category are written
// at the top level.
func ExportHTML(snap model.Snapshot) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	members := make(map[string][]model.Bookmark, len(snap.Categories))
	for _, bm := range snap.Bookmarks {
		members[bm.CategoryID] = append(members[bm.CategoryID], bm)
	}

	const prefix = "    "
	for _, c := range snap.Categories {
		if c.IsDefault() {
			continue
		}
		fmt.Fprintf(&b, "%s<DT><H3>%s</H3>\n", prefix, html.EscapeString(c.Name))
		fmt.Fprintf(&b, "%s<DL><p>\n", prefix)
		writeBookmarks(&b, members[c.ID], prefix+prefix)
		fmt.Fprintf(&b, "%s</DL><p>\n", prefix)
	}
	writeBookmarks(&b, members[model.DefaultCategoryID], prefix)

	b.WriteString("</DL><p>\n")
	return b.String()
}

func writeBookmarks(b *strings.Builder, bookmarks []model.Bookmark, prefix string) {
	for _, bm := range bookmarks {
		fmt.Fprintf(b,
			"%s<DT><A HREF=\"%s\">%s</A>\n",
			prefix,
			html.EscapeString(bm.URL),
			html.EscapeString(bm.Title),
		)
	}
}
