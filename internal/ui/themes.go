package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/nickpending/devicelab/internal/dialog"
)

// StyleTheme defines a clean cyberpunk color scheme for the console
type StyleTheme struct {
	Name          string
	Cyan          lipgloss.Color // Primary UI accent #00D9FF
	Purple        lipgloss.Color // Links and metadata #E6CCFF
	VibrantPurple lipgloss.Color // Errors and gradient accent #9F4DFF
	Green         lipgloss.Color // Free devices #00FF88
	Red           lipgloss.Color // Offline devices #FF0066
	Orange        lipgloss.Color // Busy devices #FF8800
	Gray          lipgloss.Color // Muted text #666666
	DarkGray      lipgloss.Color // Borders and backgrounds #333333
	White         lipgloss.Color // Main text #EEEEEE
}

// CleanCyberTheme is the default theme
var CleanCyberTheme = StyleTheme{
	Name:          "clean_cyber",
	Cyan:          lipgloss.Color("#00D9FF"),
	Purple:        lipgloss.Color("#E6CCFF"),
	VibrantPurple: lipgloss.Color("#9F4DFF"),
	Green:         lipgloss.Color("#00FF88"),
	Red:           lipgloss.Color("#FF0066"),
	Orange:        lipgloss.Color("#FF8800"),
	Gray:          lipgloss.Color("#666666"),
	DarkGray:      lipgloss.Color("#333333"),
	White:         lipgloss.Color("#EEEEEE"),
}

// MonokaiProTheme provides warm dark colors inspired by Monokai Pro
var MonokaiProTheme = StyleTheme{
	Name:          "monokai_pro",
	Cyan:          lipgloss.Color("#78DCE8"),
	Purple:        lipgloss.Color("#AB9DF2"),
	VibrantPurple: lipgloss.Color("#FF6188"),
	Green:         lipgloss.Color("#A9DC76"),
	Red:           lipgloss.Color("#FF6188"),
	Orange:        lipgloss.Color("#FC9867"),
	Gray:          lipgloss.Color("#727072"),
	DarkGray:      lipgloss.Color("#403E41"),
	White:         lipgloss.Color("#FCFCFA"),
}

// LightTheme uses softer tones that stay readable on dark terminals
var LightTheme = StyleTheme{
	Name:          "light",
	Cyan:          lipgloss.Color("#06B6D4"),
	Purple:        lipgloss.Color("#8B5CF6"),
	VibrantPurple: lipgloss.Color("#EC4899"),
	Green:         lipgloss.Color("#22C55E"),
	Red:           lipgloss.Color("#F43F5E"),
	Orange:        lipgloss.Color("#FB923C"),
	Gray:          lipgloss.Color("#64748B"),
	DarkGray:      lipgloss.Color("#475569"),
	White:         lipgloss.Color("#F1F5F9"),
}

// AvailableThemes is a list of all available themes for cycling
var AvailableThemes = []StyleTheme{
	CleanCyberTheme,
	MonokaiProTheme,
	LightTheme,
}

// ThemeByName returns the theme called name and its index in
// AvailableThemes, falling back to the first theme.
func ThemeByName(name string) (StyleTheme, int) {
	for i, t := range AvailableThemes {
		if t.Name == name {
			return t, i
		}
	}
	return AvailableThemes[0], 0
}

func (t StyleTheme) BorderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.DarkGray)
}

func (t StyleTheme) SelectedBorderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Cyan)
}

func (t StyleTheme) TextStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.White)
}

func (t StyleTheme) MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Gray)
}

func (t StyleTheme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.VibrantPurple).
		Bold(true)
}

func (t StyleTheme) SelectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Cyan).
		Bold(true)
}

// StateStyle colours a device state label
func (t StyleTheme) StateStyle(state string) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch state {
	case "free":
		return s.Foreground(t.Green)
	case "busy":
		return s.Foreground(t.Orange)
	default:
		return s.Foreground(t.Red)
	}
}

// BlurStyle renders page content sitting behind a dialog
func (t StyleTheme) BlurStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.DarkGray).
		Faint(true)
}

// DialogTheme converts the theme for the overlay toolkit
func (t StyleTheme) DialogTheme() dialog.Theme {
	return dialog.Theme{
		Accent:      t.Cyan,
		Text:        t.White,
		Muted:       t.Gray,
		Link:        t.Purple,
		Code:        t.Green,
		Button:      t.DarkGray,
		ButtonFocus: t.Cyan,
		ButtonText:  t.White,
		Markdown:    t.ToGlamourStyle(),
	}
}

// ToGlamourStyle converts our theme to a glamour style config for the
// markdown rendered inside dialogs
func (t StyleTheme) ToGlamourStyle() ansi.StyleConfig {
	style := styles.DraculaStyleConfig

	// Dialog boxes already pad their content
	style.Document.Margin = uintPtr(0)

	style.Document.StylePrimitive.Color = stringPtr(string(t.White))
	style.Heading.StylePrimitive.Color = stringPtr(string(t.Cyan))
	style.Heading.StylePrimitive.Bold = boolPtr(true)

	for _, h := range []*ansi.StyleBlock{&style.H1, &style.H2, &style.H3, &style.H4, &style.H5, &style.H6} {
		h.StylePrimitive.Prefix = "▸ "
		h.StylePrimitive.Suffix = ""
		h.StylePrimitive.Format = ""
	}
	style.H1.StylePrimitive.Color = stringPtr(string(t.Cyan))
	style.H2.StylePrimitive.Color = stringPtr(string(t.Cyan))

	style.Link.Color = stringPtr(string(t.Purple))
	style.LinkText.Color = stringPtr(string(t.Purple))
	style.Code.Color = stringPtr(string(t.Green))
	style.CodeBlock.StylePrimitive.Color = stringPtr(string(t.Green))
	style.Emph.Color = stringPtr(string(t.Orange))
	style.Strong.Color = stringPtr(string(t.Cyan))

	style.List.LevelIndent = 2
	style.Item.BlockPrefix = "• "
	style.Item.Color = stringPtr(string(t.White))

	return style
}

// Helper functions for creating pointers
func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }
func boolPtr(b bool) *bool       { return &b }

// RenderWithGradientBackground renders text padded or cut to width on a
// gradient background
func RenderWithGradientBackground(text string, width int, startColor, endColor string) string {
	runes := []rune(text)
	if len(runes) < width {
		runes = append(runes, []rune(strings.Repeat(" ", width-len(runes)))...)
	} else {
		runes = runes[:width]
	}

	var result strings.Builder
	for i, r := range runes {
		position := float64(i) / float64(max(width-1, 1))
		style := lipgloss.NewStyle().
			Background(lipgloss.Color(InterpolateColor(startColor, endColor, position))).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)
		result.WriteString(style.Render(string(r)))
	}
	return result.String()
}

// InterpolateColor interpolates between two hex colors at the given position
func InterpolateColor(startColor, endColor string, position float64) string {
	startR, startG, startB, err := parseHexColor(startColor)
	if err != nil {
		return startColor
	}
	endR, endG, endB, err := parseHexColor(endColor)
	if err != nil {
		return startColor
	}

	position = min(max(position, 0), 1)
	r := int(float64(startR) + (float64(endR-startR) * position))
	g := int(float64(startG) + (float64(endG-startG) * position))
	b := int(float64(startB) + (float64(endB-startB) * position))

	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// parseHexColor parses a hex color string into RGB values
func parseHexColor(hexColor string) (int, int, int, error) {
	hexColor = strings.TrimPrefix(hexColor, "#")
	if len(hexColor) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex color format")
	}

	var rgb [3]int
	for i := range rgb {
		v, err := strconv.ParseInt(hexColor[i*2:i*2+2], 16, 0)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid color component %q: %w", hexColor[i*2:i*2+2], err)
		}
		rgb[i] = int(v)
	}
	return rgb[0], rgb[1], rgb[2], nil
}
