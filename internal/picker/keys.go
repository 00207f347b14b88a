package picker

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the picker's key bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Open        key.Binding
	CopyURL     key.Binding
	CopyConvert key.Binding
	Cancel      key.Binding
}

// DefaultKeyMap returns the default vim-style key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "move down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		CopyURL: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy url"),
		),
		CopyConvert: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "copy as bolt.new"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "cancel"),
		),
	}
}

func (k KeyMap) help() []key.Binding {
	return []key.Binding{k.Down, k.Open, k.CopyURL, k.CopyConvert, k.Cancel}
}
