package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/nickpending/devicelab/internal/api"
	"github.com/nickpending/devicelab/internal/commands"
	"github.com/nickpending/devicelab/internal/config"
	"github.com/nickpending/devicelab/internal/dialog"
	"github.com/nickpending/devicelab/internal/ui/operations"
	"github.com/sirupsen/logrus"
)

// historyLimit caps the rows shown by the history dialog
const historyLimit = 50

// Model represents the console page: the device card grid, the upload
// input and the dialogs layered on top
type Model struct {
	client  *api.APIClient
	dialogs *dialog.Manager
	overlay *dialog.Overlay
	log     logrus.FieldLogger
	keys    keyMap

	devices     []api.Device
	cursor      int
	loading     bool
	err         error
	lastRefresh time.Time

	dirs   []string
	dirIdx int

	upload     textinput.Model
	spinner    spinner.Model
	uploading  bool
	uploadPath string

	blurred bool // Page drawn faint behind a result dialog

	// Request sequence numbers. Responses older than the last applied one
	// are dropped.
	refreshSeq     int
	refreshApplied int
	listSeq        int
	listApplied    int

	statusMessage string
	commandMode   CommandMode
	theme         StyleTheme
	themeIdx      int

	refreshInterval time.Duration
	width           int
	height          int
}

// autoRefreshMsg is sent by the timer to trigger automatic refresh
type autoRefreshMsg struct{}

// clearStatusMsg is sent to clear the status message after a delay
type clearStatusMsg struct{}

// reloadMsg resets the page and repeats its initial load
type reloadMsg struct{}

// unblurMsg clears the page blur
type unblurMsg struct{}

// clearConfirmedMsg is posted when the user agrees to wipe the history
type clearConfirmedMsg struct{}

// NewModel creates the page for cfg talking to client
func NewModel(cfg *config.Config, client *api.APIClient) Model {
	log := logrus.StandardLogger()
	theme, themeIdx := ThemeByName(cfg.TUI.Theme)

	overlay := dialog.NewOverlay(
		dialog.WithTheme(theme.DialogTheme()),
		dialog.WithFade(cfg.GetFade()),
		dialog.WithOverlayLogger(log),
	)

	input := textinput.New()
	input.Placeholder = "path to " + strings.Join(client.AllowedPatterns(), ", ")
	input.Prompt = "▸ "
	input.CharLimit = 1024

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Cyan)

	cm := NewCommandMode()
	cm.SetDirectories(cfg.Upload.Directories)
	cm.SetTheme(theme)

	return Model{
		client:          client,
		dialogs:         dialog.NewManager(overlay, dialog.WithLogger(log)),
		overlay:         overlay,
		log:             log,
		keys:            defaultKeyMap(),
		loading:         true,
		dirs:            append([]string(nil), cfg.Upload.Directories...),
		upload:          input,
		spinner:         sp,
		refreshSeq:      1,
		commandMode:     cm,
		theme:           theme,
		themeIdx:        themeIdx,
		refreshInterval: cfg.GetRefreshInterval(),
	}
}

// SelectDirectory makes dir the upload directory, adding it to the list
// when it is not configured
func (m *Model) SelectDirectory(dir string) {
	for i, d := range m.dirs {
		if d == dir {
			m.dirIdx = i
			return
		}
	}
	m.dirs = append(m.dirs, dir)
	m.dirIdx = len(m.dirs) - 1
	m.commandMode.SetDirectories(m.dirs)
}

// Dialogs exposes the dialog manager
func (m Model) Dialogs() *dialog.Manager {
	return m.dialogs
}

// Init fetches the device list and starts the refresh timer
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{operations.FetchDevices(m.client, m.refreshSeq, false)}
	if m.refreshInterval > 0 {
		cmds = append(cmds, autoRefreshCmd(m.refreshInterval))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.commandMode.SetWidth(msg.Width)
		m.upload.Width = max(msg.Width-30, 10)
	}

	// Command line takes keys first
	if m.commandMode.IsActive() {
		switch msg.(type) {
		case tea.KeyMsg, clearErrorMsg:
			var cmd tea.Cmd
			m.commandMode, cmd = m.commandMode.Update(msg)
			return m, tea.Batch(cmd, m.dialogs.Flush())
		}
	}

	// Dialogs sit above the page
	cmd, handled := m.dialogs.Update(msg)
	cmds = append(cmds, cmd)
	if handled {
		return m, tea.Batch(cmds...)
	}

	// Upload input has focus
	if keyMsg, ok := msg.(tea.KeyMsg); ok && m.upload.Focused() {
		cmds = append(cmds, m.updateUploadInput(keyMsg))
		return m, tea.Batch(cmds...)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case spinner.TickMsg:
		if m.uploading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case autoRefreshMsg:
		// Refresh runs regardless of open dialogs
		m.refreshSeq++
		cmds = append(cmds,
			operations.FetchDevices(m.client, m.refreshSeq, true),
			autoRefreshCmd(m.refreshInterval),
		)

	case operations.DevicesLoadedMsg:
		cmds = append(cmds, m.applyDevices(msg))

	case operations.FilesListedMsg:
		cmds = append(cmds, m.showFiles(msg))

	case operations.UploadedMsg:
		cmds = append(cmds, m.finishUpload(msg))

	case operations.HistoryLoadedMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.alert(errorSpec("Upload History", "failed to read upload history: "+msg.Err.Error(), nil)))
			break
		}
		cmds = append(cmds, m.alert(historySpec(msg.Uploads, m.height)))

	case operations.HistoryClearedMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.setStatus("✗ Failed to clear history: "+msg.Err.Error()))
			break
		}
		cmds = append(cmds, m.setStatus(fmt.Sprintf("✓ Cleared %d upload(s) from history", msg.Count)))

	case commands.RefreshMsg:
		cmds = append(cmds, m.refresh())

	case commands.ErrorMsg:
		cmds = append(cmds, m.commandMode.SetError(msg.Message))

	case commands.HelpMsg:
		cmds = append(cmds, m.alert(helpSpec(m.keys, m.commandMode.registry.GetCommands())))

	case commands.FilesMsg:
		cmds = append(cmds, m.listFiles(msg.Dir, msg.All))

	case commands.UploadMsg:
		cmds = append(cmds, m.startUpload(msg.Path))

	case commands.DirMsg:
		matches := matchDirectories(msg.Query, m.dirs)
		if len(matches) == 0 {
			cmds = append(cmds, m.commandMode.SetError(fmt.Sprintf("No directory matches '%s'", msg.Query)))
			break
		}
		m.SelectDirectory(matches[0])
		cmds = append(cmds, m.setStatus("Upload directory: "+m.dir()))

	case commands.HistoryMsg:
		cmds = append(cmds, operations.LoadHistory(historyLimit))

	case commands.ClearHistoryMsg:
		dialogs := m.dialogs
		_, cmd, err := dialogs.ShowConfirm(clearHistorySpec(func(ok bool) {
			if ok {
				dialogs.Post(clearConfirmedMsg{})
			}
		}))
		if err != nil {
			m.log.WithError(err).Error("failed to build confirm dialog")
			break
		}
		cmds = append(cmds, cmd)

	case clearConfirmedMsg:
		cmds = append(cmds, operations.ClearHistory())

	case commands.YankMsg:
		cmds = append(cmds, m.yank())

	case commands.ThemeMsg:
		m.themeIdx = (m.themeIdx + 1) % len(AvailableThemes)
		m.applyTheme(AvailableThemes[m.themeIdx])
		cmds = append(cmds, m.setStatus("Theme: "+m.theme.Name))

	case unblurMsg:
		m.blurred = false

	case reloadMsg:
		cmds = append(cmds, m.reload())

	case clearStatusMsg:
		m.statusMessage = ""

	default:
		// Cursor blink and similar messages for the focused input
		var cmd tea.Cmd
		switch {
		case m.commandMode.IsActive():
			m.commandMode, cmd = m.commandMode.Update(msg)
		case m.upload.Focused():
			m.upload, cmd = m.upload.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.dialogs.Flush())
	return m, tea.Batch(cmds...)
}

// handleKey handles page keys
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	cols := m.columns()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Command):
		m.commandMode.Show()

	case key.Matches(msg, m.keys.Up):
		if m.cursor-cols >= 0 {
			m.cursor -= cols
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor+cols < len(m.devices) {
			m.cursor += cols
		}
	case key.Matches(msg, m.keys.Left):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Right):
		if m.cursor < len(m.devices)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Detail):
		if d, ok := m.selected(); ok {
			return m.alert(deviceSpec(d))
		}

	case key.Matches(msg, m.keys.Files):
		return m.listFiles("", false)

	case key.Matches(msg, m.keys.Upload):
		if m.uploading {
			return m.setStatus("An upload is already running")
		}
		return m.upload.Focus()

	case key.Matches(msg, m.keys.Dir):
		if len(m.dirs) > 0 {
			m.dirIdx = (m.dirIdx + 1) % len(m.dirs)
			return m.setStatus("Upload directory: " + m.dir())
		}

	case key.Matches(msg, m.keys.Yank):
		return m.yank()

	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()

	case key.Matches(msg, m.keys.History):
		return operations.LoadHistory(historyLimit)

	case key.Matches(msg, m.keys.Help):
		return m.alert(helpSpec(m.keys, m.commandMode.registry.GetCommands()))
	}
	return nil
}

// updateUploadInput handles keys while the upload input has focus
func (m *Model) updateUploadInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.upload.Blur()
		return nil
	case tea.KeyEnter:
		path := m.upload.Value()
		m.upload.Blur()
		return m.startUpload(path)
	}
	var cmd tea.Cmd
	m.upload, cmd = m.upload.Update(msg)
	return cmd
}

// dir returns the selected upload directory
func (m Model) dir() string {
	if len(m.dirs) == 0 {
		return ""
	}
	return m.dirs[m.dirIdx]
}

// selected returns the device under the cursor
func (m Model) selected() (api.Device, bool) {
	if m.cursor < 0 || m.cursor >= len(m.devices) {
		return api.Device{}, false
	}
	return m.devices[m.cursor], true
}

// refresh fetches the device list now
func (m *Model) refresh() tea.Cmd {
	m.refreshSeq++
	return operations.FetchDevices(m.client, m.refreshSeq, false)
}

// applyDevices replaces the card grid with a fetched device list
func (m *Model) applyDevices(msg operations.DevicesLoadedMsg) tea.Cmd {
	if msg.Seq <= m.refreshApplied {
		m.log.WithFields(logrus.Fields{"seq": msg.Seq, "applied": m.refreshApplied}).Debug("dropping stale device list")
		return nil
	}
	m.refreshApplied = msg.Seq
	m.loading = false

	if msg.Err != nil {
		m.log.WithError(msg.Err).Warn("device refresh failed")
		if len(m.devices) == 0 {
			m.err = msg.Err
			return nil
		}
		return m.setStatus("✗ Refresh failed: " + msg.Err.Error())
	}

	m.err = nil
	var current string
	if d, ok := m.selected(); ok {
		current = d.IP
	}
	m.devices = msg.Devices
	m.lastRefresh = time.Now()

	m.cursor = min(m.cursor, max(len(m.devices)-1, 0))
	for i, d := range m.devices {
		if current != "" && d.IP == current {
			m.cursor = i
			break
		}
	}

	if !msg.Auto {
		return m.setStatus(fmt.Sprintf("✓ Refreshed, %d device(s)", len(m.devices)))
	}
	return nil
}

// listFiles requests the file listing for dir (the selected directory when
// empty) or for every configured directory
func (m *Model) listFiles(dir string, all bool) tea.Cmd {
	m.listSeq++
	if all {
		return operations.ListAllFiles(m.client, m.dirs, m.listSeq)
	}
	if dir == "" {
		dir = m.dir()
	}
	return operations.ListFiles(m.client, dir, m.listSeq)
}

// showFiles opens the uploaded files dialog for a listing
func (m *Model) showFiles(msg operations.FilesListedMsg) tea.Cmd {
	if msg.Seq <= m.listApplied {
		m.log.WithFields(logrus.Fields{"seq": msg.Seq, "applied": m.listApplied}).Debug("dropping stale file listing")
		return nil
	}
	m.listApplied = msg.Seq

	if msg.Err != nil {
		return m.alert(errorSpec(filesTitle, "error occurred while listing files with message: "+msg.Err.Error(), nil))
	}

	dialogs := m.dialogs
	_, cmd, err := dialogs.ShowModal(filesSpec(msg.Files, m.height, func(*dialog.Instance) {
		dialogs.Post(unblurMsg{})
		dialogs.Post(reloadMsg{})
	}))
	if err != nil {
		m.log.WithError(err).Error("failed to build files dialog")
		return nil
	}
	m.blurred = true
	return cmd
}

// startUpload sends path to the selected directory
func (m *Model) startUpload(path string) tea.Cmd {
	path = strings.TrimSpace(path)
	if path == "" {
		return m.setStatus("Nothing to upload")
	}
	if m.uploading {
		return m.setStatus("An upload is already running")
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, rest)
		}
	}

	m.uploading = true
	m.uploadPath = path
	m.upload.Blur()
	m.log.WithFields(logrus.Fields{"path": path, "dir": m.dir()}).Info("uploading")
	return tea.Batch(m.spinner.Tick, operations.Upload(m.client, path, m.dir()))
}

// finishUpload re-enables the input and reports the outcome
func (m *Model) finishUpload(msg operations.UploadedMsg) tea.Cmd {
	m.uploading = false
	m.uploadPath = ""
	m.blurred = true

	dialogs := m.dialogs
	unblur := func(*dialog.Instance) { dialogs.Post(unblurMsg{}) }

	if msg.Err != nil {
		m.log.WithError(msg.Err).Warn("upload failed")
		return m.alert(errorSpec("Upload failed", uploadErrorMessage(msg.Err), unblur))
	}

	m.upload.SetValue("")
	_, cmd, err := dialogs.ShowModal(uploadSuccessSpec(msg.URL, unblur))
	if err != nil {
		m.log.WithError(err).Error("failed to build upload popup")
		m.blurred = false
	}
	return tea.Batch(cmd, m.setStatus(fmt.Sprintf("✓ Uploaded %s (%s) to %s",
		filepath.Base(msg.Path), humanize.Bytes(uint64(max(msg.Size, 0))), msg.Dir)))
}

// yank copies the selected device's control URL
func (m *Model) yank() tea.Cmd {
	d, ok := m.selected()
	if !ok {
		return m.setStatus("No device selected")
	}
	if !d.HasControlURL() {
		return m.setStatus("No control URL for " + d.Name())
	}
	if err := copyToClipboard(d.URL); err != nil {
		m.log.WithError(err).Warn("clipboard copy failed")
		return m.setStatus("Failed to copy URL")
	}
	return m.setStatus("URL copied to clipboard")
}

// reload resets the page the way a fresh load would
func (m *Model) reload() tea.Cmd {
	m.devices = nil
	m.cursor = 0
	m.loading = true
	m.err = nil
	m.blurred = false
	m.statusMessage = ""
	m.refreshSeq++
	return operations.FetchDevices(m.client, m.refreshSeq, false)
}

// alert shows spec as an alert dialog
func (m *Model) alert(spec *dialog.Spec) tea.Cmd {
	_, cmd, err := m.dialogs.ShowAlert(spec)
	if err != nil {
		m.log.WithError(err).Error("failed to build alert")
		return nil
	}
	return cmd
}

// applyTheme switches every styled component to t
func (m *Model) applyTheme(t StyleTheme) {
	m.theme = t
	m.overlay.SetTheme(t.DialogTheme())
	m.commandMode.SetTheme(t)
	m.spinner.Style = lipgloss.NewStyle().Foreground(t.Cyan)
}

// setStatus shows msg in the status bar for a few seconds
func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMessage = msg
	return clearStatusAfterDelay(3 * time.Second)
}

// View renders the page with its dialogs on top
func (m Model) View() string {
	page := renderPage(m)
	if m.blurred {
		page = blur(page, m.theme)
	}
	return m.dialogs.View(page, m.width, m.height)
}

// autoRefreshCmd returns a command that triggers auto-refresh after the specified interval
func autoRefreshCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return autoRefreshMsg{}
	})
}

// clearStatusAfterDelay returns a command that clears the status message after a delay
func clearStatusAfterDelay(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
