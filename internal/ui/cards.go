package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/nickpending/devicelab/internal/api"
)

const (
	cardWidth  = 30 // Outer width including the border
	cardHeight = 7  // Outer height including the border
)

// gridColumns returns how many cards fit side by side in width
func gridColumns(width int) int {
	return max(1, width/(cardWidth+1))
}

// columns is the grid width of the page, inside its padding
func (m Model) columns() int {
	return gridColumns(m.width - 2)
}

// renderPage renders the console page below any dialogs
func renderPage(m Model) string {
	if m.width == 0 {
		return "Loading..."
	}
	theme := m.theme

	header := renderHeader(m)
	upload := renderUploadBar(m, theme)
	status := renderStatusBar(m, theme)

	// header + blank + upload bar + status line
	gridHeight := max(m.height-4, 1)

	var grid string
	switch {
	case m.loading:
		grid = lipgloss.NewStyle().Foreground(theme.Cyan).Bold(true).Render("Loading devices...")
	case m.err != nil:
		grid = theme.ErrorStyle().Render(fmt.Sprintf("Error: %v", m.err))
	case len(m.devices) == 0:
		grid = theme.MutedStyle().Italic(true).Render("No devices connected to the master server.")
	default:
		grid = renderCards(m, gridHeight, theme)
	}
	grid = lipgloss.NewStyle().
		Width(m.width).
		Height(gridHeight).
		MaxHeight(gridHeight).
		Padding(0, 1).
		Render(grid)

	return lipgloss.JoinVertical(lipgloss.Left, header, "", grid, upload, status)
}

// renderHeader renders the title bar with the device summary
func renderHeader(m Model) string {
	free := 0
	for _, d := range m.devices {
		if d.State() == "free" {
			free++
		}
	}

	title := " DEVICELAB"
	right := fmt.Sprintf("Dir: %s | Devices: %d (%d free)", m.dir(), len(m.devices), free)
	if !m.lastRefresh.IsZero() {
		right += "  ◆ " + m.lastRefresh.Format("15:04:05")
	} else {
		right += "  ◆ " + time.Now().Format("15:04")
	}
	right += " "

	spacing := m.width - len([]rune(title)) - len([]rune(right))
	if spacing < 2 {
		spacing = 2
	}
	content := title + strings.Repeat(" ", spacing) + right
	return RenderWithGradientBackground(content, m.width, string(m.theme.Cyan), string(m.theme.VibrantPurple))
}

// renderCards lays out the device cards, scrolled so the selected card is
// visible
func renderCards(m Model, height int, theme StyleTheme) string {
	cols := m.columns()
	visibleRows := max(1, height/cardHeight)
	selectedRow := m.cursor / cols

	startRow := 0
	if selectedRow >= visibleRows {
		startRow = selectedRow - visibleRows + 1
	}

	var rows []string
	for r := startRow; r < startRow+visibleRows; r++ {
		first := r * cols
		if first >= len(m.devices) {
			break
		}
		var cards []string
		for i := first; i < min(first+cols, len(m.devices)); i++ {
			cards = append(cards, renderCard(m.devices[i], i == m.cursor, theme))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderCard renders one device status card
func renderCard(d api.Device, selected bool, theme StyleTheme) string {
	inner := cardWidth - 4

	name := ansi.Truncate(d.Name(), inner, "…")
	nameStyle := theme.TextStyle().Bold(true)
	if selected {
		nameStyle = theme.SelectedStyle()
	}

	platform := d.Platform()
	if d.SDKVersion != "" {
		platform += " " + d.SDKVersion
	}

	holder := "—"
	switch {
	case d.StfSessionHeldBy != nil && d.StfSessionHeldBy.Name != "":
		holder = "session: " + d.StfSessionHeldBy.Name
	case d.AllocatedTo != nil && d.AllocatedTo.User != "":
		holder = "by " + d.AllocatedTo.User
	}

	link := "no control link"
	if d.HasControlURL() {
		link = "control link ↗"
	}

	lines := []string{
		nameStyle.Render(name),
		theme.MutedStyle().Render(ansi.Truncate(platform+" · "+d.IP, inner, "…")),
		theme.StateStyle(d.State()).Render("● " + d.State()),
		theme.MutedStyle().Render(ansi.Truncate(holder, inner, "…")),
		theme.MutedStyle().Render(link),
	}

	border := theme.BorderStyle()
	if selected {
		border = theme.SelectedBorderStyle()
	}
	return border.
		Width(cardWidth-2).
		Padding(0, 1).
		MarginRight(1).
		Render(strings.Join(lines, "\n"))
}

// renderUploadBar renders the upload input, or a spinner while an upload runs
func renderUploadBar(m Model, theme StyleTheme) string {
	label := theme.SelectedStyle().Render(fmt.Sprintf(" Upload to %s ", m.dir()))
	var body string
	switch {
	case m.uploading:
		body = m.spinner.View() + " " + theme.TextStyle().Render("Uploading "+ansi.Truncate(m.uploadPath, max(m.width-30, 10), "…"))
	case m.upload.Focused():
		body = m.upload.View()
	default:
		body = theme.MutedStyle().Render("press u to choose a file")
	}
	return ansi.Truncate(label+body, m.width, "")
}

// renderStatusBar renders the command line, the status message or key hints
func renderStatusBar(m Model, theme StyleTheme) string {
	if m.commandMode.IsActive() {
		return m.commandMode.View()
	}

	text := "hjkl:move  enter:details  y:yank URL  f:files  u:upload  d:dir  H:history  r:refresh  ?:help  ::command  q:quit"
	if m.statusMessage != "" {
		text = lipgloss.NewStyle().Foreground(theme.Cyan).Bold(true).Render(m.statusMessage)
	}
	return lipgloss.NewStyle().
		Background(theme.DarkGray).
		Foreground(theme.Gray).
		Width(m.width).
		MaxHeight(1).
		Padding(0, 1).
		Render(text)
}

// blur redraws page in the theme's blur colour, dropping its own styling
func blur(page string, theme StyleTheme) string {
	style := theme.BlurStyle()
	lines := strings.Split(page, "\n")
	for i, line := range lines {
		lines[i] = style.Render(ansi.Strip(line))
	}
	return strings.Join(lines, "\n")
}
