package commands

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/nikbrunner/bmsync/internal/model"
)

var (
	header = color.New(color.Bold, color.Underline).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func printBookmarks(w io.Writer, bookmarks []model.Bookmark, names map[string]string) {
	if len(bookmarks) == 0 {
		_, _ = fmt.Fprintln(w, faint("no bookmarks"))
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.AddRow(header("ID"), header("Title"), header("URL"), header("Category"))
	for _, b := range bookmarks {
		tbl.AddRow(shortID(b.ID), b.Title, b.URL, names[b.CategoryID])
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func printCategories(w io.Writer, categories []model.Category, bookmarks []model.Bookmark) {
	counts := make(map[string]int)
	for _, b := range bookmarks {
		counts[b.CategoryID]++
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(header("ID"), header("Name"), header("Pattern"), header("Bookmarks"))
	for _, c := range categories {
		tbl.AddRow(shortID(c.ID), c.Name, c.URLPattern, counts[c.ID])
	}
	_, _ = fmt.Fprintln(w, tbl)
}

// openURL opens a URL in the default browser.
func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("opening links is not supported on %s", runtime.GOOS)
	}
	return cmd.Start()
}
