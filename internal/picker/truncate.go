package picker

import "github.com/mattn/go-runewidth"

const ellipsis = "…"

// truncate shortens text to at most width terminal cells, ending in an
// ellipsis when something was cut.
func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= width {
		return text
	}
	if width <= runewidth.StringWidth(ellipsis) {
		return runewidth.Truncate(text, width, "")
	}
	return runewidth.Truncate(text, width, ellipsis)
}
