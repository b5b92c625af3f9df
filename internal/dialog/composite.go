package dialog

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// dimBackground strips styling from every line and redraws it faint so the
// dialog stands out. Lines are padded or cut to height.
func dimBackground(bg string, width, height int, theme Theme) string {
	lines := fitLines(bg, height)
	faint := lipgloss.NewStyle().Foreground(theme.Muted).Faint(true)
	for i, line := range lines {
		plain := ansi.Truncate(ansi.Strip(line), width, "")
		if plain == "" {
			continue
		}
		lines[i] = faint.Render(plain)
	}
	return strings.Join(lines, "\n")
}

// placeOverlay draws fg over bg with fg's top left corner at (x, y).
// Cells of bg outside fg are kept, styles included.
func placeOverlay(x, y int, fg []string, bg string, height int) string {
	lines := fitLines(bg, max(height, y+len(fg)))
	for i, fgLine := range fg {
		row := y + i
		if row < 0 || row >= len(lines) {
			continue
		}
		bgLine := lines[row]
		bgWidth := ansi.StringWidth(bgLine)
		fgWidth := ansi.StringWidth(fgLine)

		left := ansi.Truncate(bgLine, x, "")
		if gap := x - bgWidth; gap > 0 {
			left += strings.Repeat(" ", gap)
		}
		right := ""
		if bgWidth > x+fgWidth {
			right = ansi.TruncateLeft(bgLine, x+fgWidth, "")
		}
		// Reset styling at the seams so neither side bleeds into the other.
		lines[row] = left + ansi.ResetStyle + fgLine + ansi.ResetStyle + right
	}
	return strings.Join(lines, "\n")
}

func fitLines(s string, height int) []string {
	lines := strings.Split(s, "\n")
	if height <= 0 {
		return lines
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines[:max(height, 0)]
}

func fadeLines(lines []string, theme Theme) []string {
	faint := lipgloss.NewStyle().Foreground(theme.Muted).Faint(true)
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = faint.Render(ansi.Strip(line))
	}
	return out
}
