// Package importer reads Netscape bookmark files exported by browsers.
package importer

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/nikbrunner/bmsync/internal/model"
)

// ParseHTMLBookmarks parses Netscape bookmark HTML and returns categories
// and bookmarks. Folders become categories named after the innermost
// folder; folders with the same name share one category. Bookmarks outside
// any folder have an empty CategoryID so they can be classified on merge.
func ParseHTMLBookmarks(r io.Reader) ([]model.Category, []model.Bookmark, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil, err
	}

	var categories []model.Category
	var bookmarks []model.Bookmark
	byName := make(map[string]string)

	// Stack of category IDs for the folders we are inside
	var stack []string
	pending := ""

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				name := getTextContent(n)
				if name == "" {
					return
				}
				id, ok := byName[name]
				if !ok {
					c := model.NewCategory(model.NewCategoryParams{Name: name})
					categories = append(categories, c)
					byName[name] = c.ID
					id = c.ID
				}
				// Pushed when the folder's DL is reached
				pending = id
				return

			case "a":
				href := strings.TrimSpace(getAttr(n, "href"))
				if href == "" {
					return
				}

				title := getTextContent(n)
				if title == "" {
					title = href
				}

				categoryID := ""
				if len(stack) > 0 {
					categoryID = stack[len(stack)-1]
				}

				bookmarks = append(bookmarks, model.Bookmark{
					ID:         model.GenerateUUID(),
					Title:      title,
					URL:        href,
					CategoryID: categoryID,
				})
				return

			case "dl":
				pushed := false
				if pending != "" {
					stack = append(stack, pending)
					pending = ""
					pushed = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushed {
					stack = stack[:len(stack)-1]
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return categories, bookmarks, nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
