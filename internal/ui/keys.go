package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the page key bindings. Keys reach the page only when no
// modal dialog is open and neither the command line nor the upload input
// has focus.
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Detail  key.Binding
	Files   key.Binding
	Upload  key.Binding
	Dir     key.Binding
	Yank    key.Binding
	Refresh key.Binding
	History key.Binding
	Help    key.Binding
	Command key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Left:    key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "left")),
		Right:   key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "right")),
		Detail:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "device details")),
		Files:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "view uploaded files")),
		Upload:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload a file")),
		Dir:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "next upload directory")),
		Yank:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy control URL")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh devices")),
		History: key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "upload history")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Command: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// bindings lists the bindings shown by the help dialog, in display order
func (k keyMap) bindings() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Left, k.Right, k.Detail, k.Yank,
		k.Files, k.Upload, k.Dir, k.History, k.Refresh,
		k.Command, k.Help, k.Quit,
	}
}
