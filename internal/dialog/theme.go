package dialog

import (
	gansi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the colours the overlay toolkit draws with.
type Theme struct {
	Accent      lipgloss.Color // borders and titles
	Text        lipgloss.Color
	Muted       lipgloss.Color
	Link        lipgloss.Color
	Code        lipgloss.Color
	Button      lipgloss.Color // unfocused button background
	ButtonFocus lipgloss.Color // focused button background
	ButtonText  lipgloss.Color

	// Markdown styles bodies carrying the "markdown" class.
	Markdown gansi.StyleConfig
}

// DefaultTheme returns the theme used when none is configured.
func DefaultTheme() Theme {
	md := styles.DarkStyleConfig
	zero := uint(0)
	md.Document.Margin = &zero
	return Theme{
		Accent:      lipgloss.Color("#00D9FF"),
		Text:        lipgloss.Color("#EEEEEE"),
		Muted:       lipgloss.Color("#666666"),
		Link:        lipgloss.Color("#E6CCFF"),
		Code:        lipgloss.Color("#00FF88"),
		Button:      lipgloss.Color("#333333"),
		ButtonFocus: lipgloss.Color("#00D9FF"),
		ButtonText:  lipgloss.Color("#EEEEEE"),
		Markdown:    md,
	}
}

func (t Theme) boxStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent).
		Padding(0, 1)
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

func (t Theme) textStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Text)
}

func (t Theme) mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted)
}

func (t Theme) buttonStyle(focused bool) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 1).Foreground(t.ButtonText).Background(t.Button)
	if focused {
		s = s.Background(t.ButtonFocus).Foreground(lipgloss.Color("#000000")).Bold(true)
	}
	return s
}
