package commands

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// CommandFunc is a function that executes a command
type CommandFunc func(args []string) tea.Cmd

// Registry holds all available commands
type Registry struct {
	commands map[string]CommandFunc
}

// NewRegistry creates a new command registry with built-in commands
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]CommandFunc),
	}

	// Register built-in commands (vim-style: full names only, completion handles prefixes)
	r.Register("quit", cmdQuit)
	r.Register("refresh", cmdRefresh)
	r.Register("help", cmdHelp)

	// Upload directory and files
	r.Register("files", cmdFiles)
	r.Register("upload", cmdUpload)
	r.Register("dir", cmdDir)

	// Local upload history
	r.Register("history", cmdHistory)
	r.Register("clear", cmdClear)

	// Device card actions
	r.Register("yank", cmdYank)

	// Theme switching
	r.Register("theme", cmdTheme)

	return r
}

// Register adds a command to the registry
func (r *Registry) Register(name string, fn CommandFunc) {
	r.commands[name] = fn
}

// Execute runs a command by name with arguments
func (r *Registry) Execute(name string, args []string) tea.Cmd {
	// First try exact match
	if fn, ok := r.commands[name]; ok {
		return fn(args)
	}

	// Then try prefix matching (vim-style)
	matches := r.Complete(name)
	if len(matches) == 1 {
		return r.commands[matches[0]](args)
	}

	// If multiple matches, show ambiguous command error
	if len(matches) > 1 {
		return showError(fmt.Sprintf("Ambiguous command '%s': %s", name, strings.Join(matches, ", ")))
	}

	return showError(fmt.Sprintf("Unknown command: %s", name))
}

// Complete returns the sorted command names starting with prefix.
func (r *Registry) Complete(prefix string) []string {
	lower := strings.ToLower(prefix)
	var matches []string
	for name := range r.commands {
		if strings.HasPrefix(strings.ToLower(name), lower) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

// GetCommands returns all registered command names, sorted
func (r *Registry) GetCommands() []string {
	return r.Complete("")
}

// Built-in command implementations

// cmdQuit exits the application
func cmdQuit(args []string) tea.Cmd {
	return tea.Quit
}

// cmdRefresh fetches the device list now instead of waiting for the tick
func cmdRefresh(args []string) tea.Cmd {
	return func() tea.Msg {
		return RefreshMsg{}
	}
}

// cmdHelp shows available commands
func cmdHelp(args []string) tea.Cmd {
	return func() tea.Msg {
		return HelpMsg{}
	}
}

// cmdFiles lists uploaded files: no argument uses the selected directory,
// "*" lists every configured directory
func cmdFiles(args []string) tea.Cmd {
	return func() tea.Msg {
		if len(args) > 0 && args[0] == "*" {
			return FilesMsg{All: true}
		}
		if len(args) > 0 {
			return FilesMsg{Dir: args[0]}
		}
		return FilesMsg{}
	}
}

// cmdUpload uploads a local file into the selected directory
func cmdUpload(args []string) tea.Cmd {
	return func() tea.Msg {
		if len(args) == 0 {
			return ErrorMsg{Message: "upload: file path required"}
		}
		// Paths may contain spaces
		return UploadMsg{Path: strings.Join(args, " ")}
	}
}

// cmdDir selects the upload directory by fuzzy query
func cmdDir(args []string) tea.Cmd {
	return func() tea.Msg {
		if len(args) == 0 {
			return ErrorMsg{Message: "dir: directory name required"}
		}
		return DirMsg{Query: strings.Join(args, " ")}
	}
}

// cmdHistory shows recent uploads
func cmdHistory(args []string) tea.Cmd {
	return func() tea.Msg {
		return HistoryMsg{}
	}
}

// cmdClear asks to wipe the upload history
func cmdClear(args []string) tea.Cmd {
	return func() tea.Msg {
		return ClearHistoryMsg{}
	}
}

// cmdYank copies the selected device's control URL
func cmdYank(args []string) tea.Cmd {
	return func() tea.Msg {
		return YankMsg{}
	}
}

// cmdTheme cycles to the next theme
func cmdTheme(args []string) tea.Cmd {
	return func() tea.Msg {
		return ThemeMsg{}
	}
}

// showError returns a command that shows an error message
func showError(msg string) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Message: msg}
	}
}

// Message types for commands

// RefreshMsg signals that the device list should be fetched now
type RefreshMsg struct{}

// ErrorMsg contains an error message to display
type ErrorMsg struct {
	Message string
}

// HelpMsg signals to show the help dialog
type HelpMsg struct{}

// FilesMsg signals to open the uploaded files dialog
type FilesMsg struct {
	Dir string // Empty means the selected directory
	All bool   // List every configured directory
}

// UploadMsg signals to upload a local file
type UploadMsg struct {
	Path string
}

// DirMsg signals to select an upload directory
type DirMsg struct {
	Query string
}

// HistoryMsg signals to show the upload history dialog
type HistoryMsg struct{}

// ClearHistoryMsg signals to confirm and clear the upload history
type ClearHistoryMsg struct{}

// YankMsg signals to copy the selected device URL to clipboard
type YankMsg struct{}

// ThemeMsg signals to cycle to the next theme
type ThemeMsg struct{}
