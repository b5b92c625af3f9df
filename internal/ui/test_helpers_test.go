package ui

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"
	"github.com/nickpending/devicelab/internal/api"
	"github.com/nickpending/devicelab/internal/config"
	"github.com/nickpending/devicelab/internal/db"
	"github.com/nickpending/devicelab/internal/dialog"
	"github.com/nickpending/devicelab/internal/logging"
)

// masterServer fakes the device-lab master server
type masterServer struct {
	mu      sync.Mutex
	devices []api.Device
	files   map[string][]string
	uploads []string // directory/name
}

func (s *masterServer) setDevices(devices ...api.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = devices
}

func (s *masterServer) handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/devices", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		json.NewEncoder(w).Encode(s.devices)
	})
	r.Get("/files", func(w http.ResponseWriter, req *http.Request) {
		prefix := req.URL.Query().Get("prefix")
		if prefix == "broken" {
			http.Error(w, "storage unavailable", http.StatusInternalServerError)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		files := s.files[prefix]
		if files == nil {
			files = []string{}
		}
		json.NewEncoder(w).Encode(files)
	})
	r.Post("/upload", func(w http.ResponseWriter, req *http.Request) {
		file, header, err := req.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file.Close()
		dir := req.FormValue("directory")
		if dir == "locked" {
			http.Error(w, "directory is locked", http.StatusForbidden)
			return
		}
		s.mu.Lock()
		s.uploads = append(s.uploads, dir+"/"+header.Filename)
		s.mu.Unlock()
		io.WriteString(w, "http://master:8080/apps/"+dir+"/"+header.Filename)
	})
	return r
}

var testDevices = []api.Device{
	{IP: "10.0.0.2", Connected: true, Free: true, MarketName: "Pixel 7", Android: true, SDKVersion: "33", URL: "http://stf:7100/#!/control/abc"},
	{IP: "10.0.0.3", Connected: true, Model: "iPhone 14", URL: "#", AllocatedTo: &api.Allocation{User: "qa", IP: "10.1.1.1"}},
	{IP: "10.0.0.4", Connected: false, Model: "Galaxy S9", Android: true},
}

// newTestModel returns a sized page wired to a fake master server and a
// temporary history store. Dialog transitions complete without waiting.
func newTestModel(t *testing.T) (Model, *masterServer) {
	t.Helper()

	logging.Discard()
	if err := db.UseDBPath(filepath.Join(t.TempDir(), "history.db")); err != nil {
		t.Fatalf("UseDBPath: %v", err)
	}
	t.Cleanup(func() { db.CloseDB() })

	srv := &masterServer{
		devices: append([]api.Device(nil), testDevices...),
		files:   map[string][]string{},
	}
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.Server.URL = ts.URL
	cfg.TUI.FadeMS = 0
	cfg.Upload.Directories = []string{"apps", "builds", "locked"}

	client := api.NewClient(cfg)
	m := NewModel(cfg, client)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, srv
}

// update feeds one message through the page
func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// send feeds msg through the page and settles the commands it returns
func send(t *testing.T, m Model, msg tea.Msg) (Model, []tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	return settle(t, next.(Model), cmd)
}

// settle runs cmd and feeds the resulting messages back into the page
// until nothing is left. Timers that do not fire within a short window
// (status clearing, auto refresh, cursor blink) are dropped. Every
// delivered message is returned.
func settle(t *testing.T, m Model, cmd tea.Cmd) (Model, []tea.Msg) {
	t.Helper()
	var seen []tea.Msg
	pending := []tea.Cmd{cmd}
	for round := 0; len(pending) > 0; round++ {
		if round > 25 {
			t.Fatal("settle: command loop did not settle")
		}
		msgs := runRound(pending, 300*time.Millisecond)
		pending = nil
		for _, msg := range msgs {
			if _, ok := msg.(spinner.TickMsg); ok {
				continue
			}
			seen = append(seen, msg)
			next, cmd := m.Update(msg)
			m = next.(Model)
			pending = append(pending, cmd)
		}
	}
	return m, seen
}

// runRound runs cmds concurrently and collects what arrives before wait
// runs out. Batches are expanded in place.
func runRound(cmds []tea.Cmd, wait time.Duration) []tea.Msg {
	results := make(chan tea.Msg, 256)
	launched := 0
	launch := func(c tea.Cmd) {
		if c == nil {
			return
		}
		launched++
		go func() { results <- c() }()
	}
	for _, c := range cmds {
		launch(c)
	}

	deadline := time.After(wait)
	var out []tea.Msg
	for received := 0; received < launched; {
		select {
		case msg := <-results:
			received++
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, c := range batch {
					launch(c)
				}
				continue
			}
			if msg != nil {
				out = append(out, msg)
			}
		case <-deadline:
			return out
		}
	}
	return out
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// typeText sends s one rune at a time
func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

// topDialog returns the newest live dialog
func topDialog(t *testing.T, m Model) *dialog.Instance {
	t.Helper()
	live := m.Dialogs().Instances()
	if len(live) == 0 {
		t.Fatal("no dialog open")
	}
	return live[len(live)-1]
}

// loaded returns a page with the initial device list applied
func loaded(t *testing.T) (Model, *masterServer) {
	t.Helper()
	m, srv := newTestModel(t)
	m, _ = settle(t, m, m.Init())
	if len(m.devices) != len(testDevices) {
		t.Fatalf("initial load: got %d devices, want %d", len(m.devices), len(testDevices))
	}
	return m, srv
}
