package dialog

import tea "github.com/charmbracelet/bubbletea"

// Toolkit presents element subtrees as overlay dialogs. The manager decides
// what a dialog contains; the toolkit decides how it appears.
type Toolkit interface {
	// Mount initialises presentation state for root and starts showing it.
	Mount(root *Element, opts Options) tea.Cmd
	// Show re-displays a mounted root.
	Show(root *Element) tea.Cmd
	// Hide starts hiding root. Handlers registered with OnHidden fire once
	// the root is fully hidden.
	Hide(root *Element) tea.Cmd
	// Dispose drops all presentation state for root.
	Dispose(root *Element)
	// OnHidden registers fn to run when root becomes fully hidden.
	OnHidden(root *Element, fn func())

	// Update handles transition messages and user input. The bool reports
	// whether the message was consumed by a dialog.
	Update(msg tea.Msg) (tea.Cmd, bool)
	// View draws every displayed root over background.
	View(background string, width, height int) string
	// Modal reports whether a displayed dialog blocks the page.
	Modal() bool
}
