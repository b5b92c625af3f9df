package dialog

import (
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// testManager returns a manager on an overlay whose transitions complete
// without waiting.
func testManager(t *testing.T) (*Manager, *Overlay) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	ov := NewOverlay(WithFade(0), WithOverlayLogger(log))
	ov.SetSize(100, 40)
	return NewManager(ov, WithLogger(log)), ov
}

// drain runs cmd and feeds every resulting message back through the manager
// until nothing is left. Messages the manager does not consume are returned.
func drain(t *testing.T, m *Manager, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var out []tea.Msg
	pending := []tea.Cmd{cmd}
	for steps := 0; len(pending) > 0; steps++ {
		if steps > 1000 {
			t.Fatal("drain: command loop did not settle")
		}
		c := pending[0]
		pending = pending[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			pending = append(pending, batch...)
			continue
		}
		if msg == nil {
			continue
		}
		next, handled := m.Update(msg)
		if !handled {
			out = append(out, msg)
		}
		pending = append(pending, next)
	}
	return out
}

// click dispatches a click on el and settles the resulting commands.
func click(t *testing.T, m *Manager, el *Element) []tea.Msg {
	t.Helper()
	el.Dispatch("click")
	return drain(t, m, m.Flush())
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}
