package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nickpending/devicelab/internal/commands"
	"github.com/sahilm/fuzzy"
)

// CommandMode represents the vim-style command line
type CommandMode struct {
	active         bool
	input          textinput.Model
	history        []string
	historyIdx     int
	suggestions    []string
	suggestionIdx  int    // Next suggestion handed out by tab
	completionBase string // The text completions were computed from
	registry       *commands.Registry
	dirs           []string // Upload directories offered to "dir" and "files"
	theme          StyleTheme
	width          int
	error          string
}

// clearErrorMsg is sent to clear command error after delay
type clearErrorMsg struct{}

// NewCommandMode creates a new command mode instance
func NewCommandMode() CommandMode {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Width = 50
	ti.Prompt = ":"

	return CommandMode{
		input:      ti,
		history:    make([]string, 0, 100),
		historyIdx: -1,
		registry:   commands.NewRegistry(),
		theme:      CleanCyberTheme,
		width:      80,
	}
}

// SetWidth updates the width of the command line
func (c *CommandMode) SetWidth(width int) {
	c.width = width
	c.input.Width = width - 4
}

// SetDirectories sets the directories offered by argument completion
func (c *CommandMode) SetDirectories(dirs []string) {
	c.dirs = append([]string(nil), dirs...)
}

// SetTheme changes the command line colours
func (c *CommandMode) SetTheme(t StyleTheme) {
	c.theme = t
}

// Show activates command mode
func (c *CommandMode) Show() {
	c.active = true
	c.input.Focus()
	c.input.SetValue("")
	c.historyIdx = len(c.history)
	c.error = ""
	c.resetCompletion()
}

// Hide deactivates command mode
func (c *CommandMode) Hide() {
	c.active = false
	c.input.Blur()
	c.input.SetValue("")
	c.historyIdx = -1
	c.error = ""
	c.resetCompletion()
}

func (c *CommandMode) resetCompletion() {
	c.suggestions = nil
	c.suggestionIdx = 0
	c.completionBase = ""
}

// IsActive returns whether command mode is currently active
func (c CommandMode) IsActive() bool {
	return c.active
}

// SetError shows err on the command line until a key is pressed or two
// seconds pass
func (c *CommandMode) SetError(err string) tea.Cmd {
	c.error = err
	c.active = true
	c.input.Blur()

	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

// Update handles input events for command mode
func (c *CommandMode) Update(msg tea.Msg) (CommandMode, tea.Cmd) {
	if !c.active {
		return *c, nil
	}

	switch msg := msg.(type) {
	case clearErrorMsg:
		if c.error != "" {
			c.Hide()
		}
		return *c, nil

	case tea.KeyMsg:
		if c.error != "" {
			c.Hide()
			return *c, nil
		}

		switch msg.Type {
		case tea.KeyEscape, tea.KeyCtrlC:
			c.Hide()
			return *c, nil

		case tea.KeyEnter:
			line := strings.TrimSpace(c.input.Value())
			c.Hide()
			if line == "" {
				return *c, nil
			}
			c.addToHistory(line)

			parts := parseCommandWithQuotes(line)
			if len(parts) == 0 {
				return *c, nil
			}
			return *c, c.registry.Execute(parts[0], parts[1:])

		case tea.KeyUp:
			if c.historyIdx > 0 {
				c.historyIdx--
				c.input.SetValue(c.history[c.historyIdx])
				c.input.CursorEnd()
			}
			return *c, nil

		case tea.KeyDown:
			if c.historyIdx < len(c.history)-1 {
				c.historyIdx++
				c.input.SetValue(c.history[c.historyIdx])
				c.input.CursorEnd()
			} else if c.historyIdx == len(c.history)-1 {
				c.historyIdx = len(c.history)
				c.input.SetValue("")
			}
			return *c, nil

		case tea.KeyTab:
			c.cycleCompletion()
			return *c, nil

		case tea.KeyBackspace:
			if c.input.Value() == "" {
				c.Hide()
				return *c, nil
			}
		}
	}

	var cmd tea.Cmd
	oldValue := c.input.Value()
	c.input, cmd = c.input.Update(msg)
	if c.input.Value() != oldValue {
		c.resetCompletion()
	}
	return *c, cmd
}

// cycleCompletion replaces the input with the next completion of what the
// user typed
func (c *CommandMode) cycleCompletion() {
	current := c.input.Value()
	if current == "" {
		return
	}

	cycling := len(c.suggestions) > 0 && c.completionBase != "" && current == c.lastSuggestion()
	if !cycling {
		c.completionBase = current
		c.suggestions = c.Complete(current)
		c.suggestionIdx = 0
		if len(c.suggestions) == 0 {
			return
		}
	}

	c.input.SetValue(c.suggestions[c.suggestionIdx])
	c.input.CursorEnd()
	c.suggestionIdx = (c.suggestionIdx + 1) % len(c.suggestions)
}

func (c *CommandMode) lastSuggestion() string {
	if len(c.suggestions) == 0 {
		return ""
	}
	i := c.suggestionIdx - 1
	if i < 0 {
		i = len(c.suggestions) - 1
	}
	return c.suggestions[i]
}

// View renders the command line
func (c CommandMode) View() string {
	if !c.active {
		return ""
	}

	if c.error != "" {
		return lipgloss.NewStyle().
			Foreground(c.theme.VibrantPurple).
			Width(c.width).
			Padding(0, 1).
			Render(c.error)
	}

	content := c.input.View()
	if len(c.suggestions) > 1 {
		pos := c.suggestionIdx
		if pos == 0 {
			pos = len(c.suggestions)
		}
		content += fmt.Sprintf(" [%d/%d]", pos, len(c.suggestions))
	}

	return lipgloss.NewStyle().
		Foreground(c.theme.Cyan).
		Width(c.width).
		Padding(0, 1).
		Render(content)
}

// Complete returns completions for the typed line. Arguments of "dir" and
// "files" complete against the upload directories; anything else completes
// command names.
func (c *CommandMode) Complete(prefix string) []string {
	if c.registry == nil {
		return nil
	}

	for _, name := range []string{"dir", "files"} {
		arg, ok := strings.CutPrefix(strings.ToLower(prefix), name+" ")
		if !ok {
			continue
		}
		var out []string
		for _, d := range matchDirectories(strings.TrimSpace(arg), c.dirs) {
			out = append(out, name+" "+d)
		}
		return out
	}

	return c.registry.Complete(prefix)
}

// matchDirectories returns dirs fuzzy-matching query, best match first. An
// empty query returns every directory.
func matchDirectories(query string, dirs []string) []string {
	if query == "" {
		return append([]string(nil), dirs...)
	}
	matches := fuzzy.Find(query, dirs)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}

// addToHistory adds a command to the history
func (c *CommandMode) addToHistory(cmd string) {
	if len(c.history) > 0 && c.history[len(c.history)-1] == cmd {
		return
	}
	if len(c.history) >= 100 {
		c.history = c.history[1:]
	}
	c.history = append(c.history, cmd)
}

// parseCommandWithQuotes splits a command line on spaces, honouring double
// quotes and backslash escapes
func parseCommandWithQuotes(cmd string) []string {
	var args []string
	var current strings.Builder
	inQuotes, escaped, quoted := false, false, false

	for _, r := range cmd {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
			quoted = true
		case r == ' ' && !inQuotes:
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}
	return args
}
