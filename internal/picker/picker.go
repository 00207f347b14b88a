// Package picker is a small bubbletea list for choosing one search result.
package picker

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	categoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Action is what the user chose to do with the selected bookmark.
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionCopyURL
	ActionCopyConverted
)

// Picker is a simple TUI for selecting from search results.
type Picker struct {
	results    []search.SearchResult
	query      string
	categories map[string]string
	keys       KeyMap
	cursor     int
	action     Action
	cancelled  bool
	width      int
	height     int
}

// New creates a Picker. categories maps category IDs to display names.
func New(results []search.SearchResult, query string, categories map[string]string) Picker {
	return Picker{
		results:    results,
		query:      query,
		categories: categories,
		keys:       DefaultKeyMap(),
		width:      80,
		height:     24,
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Cancel):
			p.cancelled = true
			return p, tea.Quit
		case key.Matches(msg, p.keys.Open):
			return p.choose(ActionOpen)
		case key.Matches(msg, p.keys.CopyURL):
			return p.choose(ActionCopyURL)
		case key.Matches(msg, p.keys.CopyConvert):
			return p.choose(ActionCopyConverted)
		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}
		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		}
	}

	return p, nil
}

func (p Picker) choose(a Action) (tea.Model, tea.Cmd) {
	if len(p.results) == 0 {
		p.cancelled = true
		return p, tea.Quit
	}
	p.action = a
	return p, tea.Quit
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")

	for i, result := range p.results {
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		title := result.Bookmark.Title
		if title == "" {
			title = result.Bookmark.URL
		}
		fmt.Fprintf(&b, "%s%s\n", cursor, style.Render(truncate(title, p.width-2)))

		name := p.categories[result.Bookmark.CategoryID]
		urlWidth := p.width - 3
		if name != "" {
			urlWidth -= runewidth.StringWidth(name) + 2
		}
		line := urlStyle.Render(truncate(result.Bookmark.URL, urlWidth))
		if name != "" {
			line += "  " + categoryStyle.Render(name)
		}
		fmt.Fprintf(&b, "   %s\n", line)
	}

	b.WriteString("\n")
	var help []string
	for _, k := range p.keys.help() {
		h := k.Help()
		help = append(help, h.Key+": "+h.Desc)
	}
	b.WriteString(helpStyle.Render(strings.Join(help, "  ")))

	return b.String()
}

// SelectedBookmark returns the selected bookmark, or nil if cancelled.
func (p Picker) SelectedBookmark() *model.Bookmark {
	if p.cancelled || p.action == ActionNone {
		return nil
	}
	if p.cursor < len(p.results) {
		return p.results[p.cursor].Bookmark
	}
	return nil
}

// Action returns what to do with the selected bookmark.
func (p Picker) Action() Action {
	if p.cancelled {
		return ActionNone
	}
	return p.action
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}

// Run shows the picker on the terminal and returns its final state.
func Run(results []search.SearchResult, query string, categories map[string]string) (Picker, error) {
	final, err := tea.NewProgram(New(results, query, categories)).Run()
	if err != nil {
		return Picker{}, err
	}
	return final.(Picker), nil
}
