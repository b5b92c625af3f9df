package ui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/nickpending/devicelab/internal/api"
	"github.com/nickpending/devicelab/internal/commands"
	"github.com/nickpending/devicelab/internal/db"
	"github.com/nickpending/devicelab/internal/dialog"
	"github.com/nickpending/devicelab/internal/ui/operations"
)

func TestNewModel(t *testing.T) {
	m, _ := newTestModel(t)

	if !m.loading {
		t.Error("Expected initial loading state to be true")
	}
	if m.dir() != "apps" {
		t.Errorf("Expected first configured directory, got %q", m.dir())
	}
	if m.theme.Name != "clean_cyber" {
		t.Errorf("Expected clean_cyber theme, got %q", m.theme.Name)
	}
	if m.refreshInterval.Seconds() != 5 {
		t.Errorf("Expected 5s refresh interval, got %v", m.refreshInterval)
	}
}

func TestInitialLoadRendersCards(t *testing.T) {
	m, _ := loaded(t)

	if m.loading {
		t.Error("loading should be cleared once devices arrive")
	}
	view := ansi.Strip(m.View())
	for _, want := range []string{"DEVICELAB", "Pixel 7", "iPhone 14", "Galaxy S9", "free", "busy", "offline", "by qa"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestStaleDeviceResponseDropped(t *testing.T) {
	m, _ := newTestModel(t)

	newer := []api.Device{{IP: "1", Connected: true, Model: "newer"}}
	older := []api.Device{{IP: "2", Connected: true, Model: "older"}}

	m = update(t, m, operations.DevicesLoadedMsg{Seq: 3, Devices: newer})
	m = update(t, m, operations.DevicesLoadedMsg{Seq: 2, Devices: older})

	if len(m.devices) != 1 || m.devices[0].Model != "newer" {
		t.Errorf("late response replaced a newer one: %+v", m.devices)
	}
}

func TestRefreshFailureKeepsCards(t *testing.T) {
	m, _ := loaded(t)

	m = update(t, m, operations.DevicesLoadedMsg{Seq: m.refreshSeq + 1, Err: errors.New("network error")})
	if len(m.devices) != len(testDevices) {
		t.Error("a failed refresh should keep the last known cards")
	}
	if !strings.Contains(m.statusMessage, "Refresh failed") {
		t.Errorf("status = %q", m.statusMessage)
	}
}

func TestAutoRefreshRunsUnderDialog(t *testing.T) {
	m, srv := loaded(t)

	m, _ = send(t, m, keyPress("?"))
	if !m.Dialogs().Modal() {
		t.Fatal("help dialog should be modal")
	}

	srv.setDevices(api.Device{IP: "10.0.0.9", Connected: true, Free: true, Model: "Pixel 8"})
	m, _ = send(t, m, autoRefreshMsg{})

	if len(m.devices) != 1 || m.devices[0].Model != "Pixel 8" {
		t.Errorf("auto refresh should replace the grid while a dialog is open, got %+v", m.devices)
	}
	if len(m.Dialogs().Instances()) != 1 {
		t.Error("refresh must not touch the open dialog")
	}
}

func TestCursorFollowsDeviceAcrossRefresh(t *testing.T) {
	m, srv := loaded(t)
	m = update(t, m, keyPress("l"))
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}

	// Same devices, new order
	srv.setDevices(testDevices[1], testDevices[2], testDevices[0])
	m, _ = send(t, m, commands.RefreshMsg{})
	if d, _ := m.selected(); d.IP != "10.0.0.3" {
		t.Errorf("selection moved to %s", d.IP)
	}
}

func TestViewFilesDialog(t *testing.T) {
	m, srv := loaded(t)
	srv.files["apps"] = []string{"http://master:8080/apps/apps/new.apk", "http://master:8080/apps/apps/old.jar"}

	m, _ = send(t, m, keyPress("f"))

	inst := topDialog(t, m)
	if inst.State() != dialog.StateVisible {
		t.Fatalf("state = %v", inst.State())
	}
	if got := inst.TitleSlot().InnerHTML(); got != filesTitle {
		t.Errorf("title = %q", got)
	}
	want := "<a href='http://master:8080/apps/apps/new.apk'>new.apk</a><br/><a href='http://master:8080/apps/apps/old.jar'>old.jar</a>"
	if got := inst.BodySlot().InnerHTML(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if !inst.FooterSlot().Hidden() {
		t.Error("files dialog has no footer")
	}
	if inst.Spec().Options.Extra["width"] != "50%" {
		t.Errorf("width option = %v", inst.Spec().Options.Extra["width"])
	}
	if !m.blurred {
		t.Error("page should blur once the listing arrives")
	}

	seqBefore := m.refreshSeq
	m, _ = send(t, m, keyPress("esc"))

	if inst.State() != dialog.StateDisposed {
		t.Errorf("state after esc = %v", inst.State())
	}
	if m.blurred {
		t.Error("closing the files dialog should clear the blur")
	}
	if m.refreshSeq <= seqBefore {
		t.Error("closing the files dialog should reload the page")
	}
	if m.loading || len(m.devices) != len(testDevices) {
		t.Error("reload should fetch the devices again")
	}
}

func TestUploadPopupOverFilesDialogKeepsPageBlocked(t *testing.T) {
	m, _ := loaded(t)
	m, _ = send(t, m, keyPress("f"))
	files := topDialog(t, m)

	// An upload started earlier finishes while the listing is open
	m, _ = send(t, m, operations.UploadedMsg{Path: "/tmp/app.apk", Dir: "apps", Size: 3, URL: "http://master:8080/apps/apps/app.apk"})
	if n := len(m.Dialogs().Instances()); n != 2 {
		t.Fatalf("live dialogs = %d, want 2", n)
	}

	m, _ = send(t, m, keyPress("f"))
	if n := len(m.Dialogs().Instances()); n != 2 {
		t.Errorf("f opened another dialog under the files dialog: live = %d", n)
	}
	var seen []tea.Msg
	m, seen = send(t, m, keyPress("q"))
	for _, msg := range seen {
		if _, ok := msg.(tea.QuitMsg); ok {
			t.Fatal("q quit from under the files dialog")
		}
	}

	m, _ = send(t, m, keyPress("esc"))
	if files.State() != dialog.StateVisible {
		t.Errorf("esc should close the popup first, files dialog state = %v", files.State())
	}
	if topDialog(t, m) != files {
		t.Error("files dialog should be the only one left")
	}
}

func TestFilesDialogBlocksPageKeys(t *testing.T) {
	m, _ := loaded(t)
	m, _ = send(t, m, keyPress("f"))

	m = update(t, m, keyPress("d"))
	if m.dir() != "apps" {
		t.Error("page keys must not reach the page under a modal dialog")
	}
}

func TestFilesCommandForDirectoryAndAll(t *testing.T) {
	m, srv := loaded(t)
	srv.files["builds"] = []string{"http://master/apps/builds/b.ipa"}
	srv.files["apps"] = []string{"http://master/apps/apps/a.apk"}

	m, _ = send(t, m, commands.FilesMsg{Dir: "builds"})
	if body := topDialog(t, m).BodySlot().InnerHTML(); !strings.Contains(body, "b.ipa") || strings.Contains(body, "a.apk") {
		t.Errorf("single directory listing = %q", body)
	}
	m, _ = send(t, m, keyPress("esc"))

	m, _ = send(t, m, commands.FilesMsg{All: true})
	body := topDialog(t, m).BodySlot().InnerHTML()
	for _, want := range []string{"<h4>apps</h4>", "<h4>builds</h4>", "<h4>locked</h4>", "a.apk", "b.ipa"} {
		if !strings.Contains(body, want) {
			t.Errorf("all listing missing %q in %q", want, body)
		}
	}
}

func TestFilesListingError(t *testing.T) {
	m, _ := loaded(t)

	m, _ = send(t, m, commands.FilesMsg{Dir: "broken"})
	inst := topDialog(t, m)
	body := inst.BodySlot().TextContent()
	if !strings.Contains(body, "error occurred while listing files") || !strings.Contains(body, "storage unavailable") {
		t.Errorf("error alert body = %q", body)
	}
	if m.blurred {
		t.Error("a failed listing should not blur the page")
	}
}

func TestStaleListingDropped(t *testing.T) {
	m, _ := loaded(t)
	m.listSeq = 2

	m = update(t, m, operations.FilesListedMsg{Seq: 2, Dir: "apps", Files: map[string][]string{"apps": {"http://x/new.apk"}}})
	m = update(t, m, operations.FilesListedMsg{Seq: 1, Dir: "apps", Files: map[string][]string{"apps": {"http://x/old.apk"}}})

	if n := len(m.Dialogs().Instances()); n != 1 {
		t.Errorf("expected one files dialog, got %d", n)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadSuccess(t *testing.T) {
	m, srv := loaded(t)
	path := writeFile(t, "app-release.apk", "PK\x03\x04")

	next, cmd := m.Update(commands.UploadMsg{Path: path})
	m = next.(Model)
	if !m.uploading {
		t.Fatal("upload should start immediately")
	}
	if !strings.Contains(ansi.Strip(m.View()), "Uploading") {
		t.Error("upload bar should show the spinner while uploading")
	}

	m, _ = settle(t, m, cmd)
	if m.uploading {
		t.Error("input should be re-enabled after the upload")
	}
	if len(srv.uploads) != 1 || srv.uploads[0] != "apps/app-release.apk" {
		t.Errorf("server uploads = %v", srv.uploads)
	}

	inst := topDialog(t, m)
	if got := inst.TitleSlot().InnerHTML(); got != "File Uploaded Successfully!" {
		t.Errorf("title = %q", got)
	}
	if !strings.Contains(inst.BodySlot().TextContent(), "http://master:8080/apps/apps/app-release.apk") {
		t.Errorf("body = %q", inst.BodySlot().InnerHTML())
	}
	if m.Dialogs().Modal() {
		t.Error("upload popup should not be modal")
	}
	if !m.blurred {
		t.Error("page should blur after the upload")
	}

	history, err := db.RecentUploads(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || !history[0].Succeeded() || history[0].Size != 4 {
		t.Errorf("history = %+v", history)
	}

	// Non-modal popup lets page keys through
	m = update(t, m, keyPress("d"))
	if m.dir() != "builds" {
		t.Error("page keys should reach the page under a non-modal popup")
	}

	m, _ = send(t, m, keyPress("esc"))
	if inst.State() != dialog.StateDisposed {
		t.Errorf("popup state = %v", inst.State())
	}
	if m.blurred {
		t.Error("closing the popup should clear the blur")
	}
}

func TestUploadServerError(t *testing.T) {
	m, _ := loaded(t)
	m.SelectDirectory("locked")
	path := writeFile(t, "app.apk", "x")

	m, _ = send(t, m, commands.UploadMsg{Path: path})

	inst := topDialog(t, m)
	want := "error occurred while uploading file with message: directory is locked"
	if got := inst.BodySlot().TextContent(); got != want {
		t.Errorf("alert body = %q, want %q", got, want)
	}
	if m.uploading {
		t.Error("input should be re-enabled after a failed upload")
	}

	history, _ := db.RecentUploads(0)
	if len(history) != 1 || history[0].Succeeded() {
		t.Errorf("failed upload should be recorded, got %+v", history)
	}

	m, _ = send(t, m, keyPress("enter"))
	if inst.State() != dialog.StateDisposed || m.blurred {
		t.Error("OK should dispose the alert and clear the blur")
	}
}

func TestUploadDisallowedType(t *testing.T) {
	m, srv := loaded(t)
	path := writeFile(t, "notes.txt", "x")

	m, _ = send(t, m, commands.UploadMsg{Path: path})

	body := topDialog(t, m).BodySlot().TextContent()
	if !strings.Contains(body, "file type not allowed") {
		t.Errorf("alert body = %q", body)
	}
	if len(srv.uploads) != 0 {
		t.Error("disallowed files must not reach the server")
	}
}

func TestUploadInput(t *testing.T) {
	m, srv := loaded(t)
	path := writeFile(t, "bundle.zip", "zip")

	m = update(t, m, keyPress("u"))
	if !m.upload.Focused() {
		t.Fatal("u should focus the upload input")
	}
	m = typeText(t, m, path)
	if m.upload.Value() != path {
		t.Fatalf("input = %q", m.upload.Value())
	}
	if m.dir() != "apps" {
		t.Error("typing into the input must not trigger page keys")
	}

	m, _ = send(t, m, keyPress("enter"))
	if m.upload.Focused() {
		t.Error("input should lose focus once the upload starts")
	}
	if len(srv.uploads) != 1 || srv.uploads[0] != "apps/bundle.zip" {
		t.Errorf("server uploads = %v", srv.uploads)
	}
}

func TestUploadInputEscape(t *testing.T) {
	m, _ := loaded(t)
	m = update(t, m, keyPress("u"))
	m = update(t, m, keyPress("esc"))
	if m.upload.Focused() {
		t.Error("esc should leave the upload input")
	}
}

func TestUploadEmptyPath(t *testing.T) {
	m, _ := loaded(t)
	m = update(t, m, commands.UploadMsg{Path: "  "})
	if m.uploading {
		t.Error("an empty path must not start an upload")
	}
	if m.statusMessage != "Nothing to upload" {
		t.Errorf("status = %q", m.statusMessage)
	}
}

func TestDirectorySelection(t *testing.T) {
	m, _ := loaded(t)

	m = update(t, m, keyPress("d"))
	if m.dir() != "builds" {
		t.Errorf("d should cycle to builds, got %q", m.dir())
	}

	m = update(t, m, commands.DirMsg{Query: "aps"})
	if m.dir() != "apps" {
		t.Errorf("fuzzy query should select apps, got %q", m.dir())
	}

	m = update(t, m, commands.DirMsg{Query: "zzz"})
	if m.dir() != "apps" {
		t.Error("an unmatched query should keep the directory")
	}
	if !m.commandMode.IsActive() || !strings.Contains(m.commandMode.error, "zzz") {
		t.Errorf("unmatched query should show an error, got %q", m.commandMode.error)
	}
}

func TestDeviceDetail(t *testing.T) {
	m, _ := loaded(t)

	m, _ = send(t, m, keyPress("enter"))
	inst := topDialog(t, m)
	if got := inst.TitleSlot().InnerHTML(); got != "Pixel 7" {
		t.Errorf("title = %q", got)
	}
	md := inst.BodySlot().QueryClass("markdown")
	if md == nil {
		t.Fatal("detail body should carry a markdown element")
	}
	if !strings.Contains(md.TextContent(), "**State:** free") {
		t.Errorf("markdown = %q", md.TextContent())
	}
	if !strings.Contains(ansi.Strip(m.View()), "Pixel 7") {
		t.Error("detail dialog not drawn")
	}
}

func TestYank(t *testing.T) {
	var copied []string
	orig := copyToClipboard
	copyToClipboard = func(s string) error {
		copied = append(copied, s)
		return nil
	}
	t.Cleanup(func() { copyToClipboard = orig })

	m, _ := loaded(t)
	m = update(t, m, keyPress("y"))
	if len(copied) != 1 || copied[0] != testDevices[0].URL {
		t.Errorf("copied = %v", copied)
	}
	if m.statusMessage != "URL copied to clipboard" {
		t.Errorf("status = %q", m.statusMessage)
	}

	m = update(t, m, keyPress("l"))
	m = update(t, m, commands.YankMsg{})
	if len(copied) != 1 {
		t.Error("a device without control URL must not be copied")
	}
	if !strings.Contains(m.statusMessage, "No control URL") {
		t.Errorf("status = %q", m.statusMessage)
	}
}

func TestHistoryDialog(t *testing.T) {
	m, _ := loaded(t)
	if _, err := db.RecordUpload(db.Upload{Directory: "apps", FileName: "a.apk", Size: 2048, URL: "http://x/a.apk"}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.RecordUpload(db.Upload{Directory: "apps", FileName: "b.txt", Error: "file type not allowed"}); err != nil {
		t.Fatal(err)
	}

	m, _ = send(t, m, keyPress("H"))
	inst := topDialog(t, m)
	if got := inst.TitleSlot().InnerHTML(); got != "Upload History" {
		t.Errorf("title = %q", got)
	}
	body := inst.BodySlot().TextContent()
	for _, want := range []string{"a.apk", "2.0 kB", "b.txt failed: file type not allowed"} {
		if !strings.Contains(body, want) {
			t.Errorf("history body missing %q in %q", want, body)
		}
	}
}

func TestClearHistoryConfirm(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		wantRow int
	}{
		{"confirm", []string{"tab", "enter"}, 0},
		{"cancel", []string{"enter"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := loaded(t)
			db.RecordUpload(db.Upload{Directory: "apps", FileName: "a.apk"})

			m, _ = send(t, m, commands.ClearHistoryMsg{})
			inst := topDialog(t, m)
			for _, k := range tt.keys {
				m, _ = send(t, m, keyPress(k))
			}

			if inst.State() != dialog.StateDisposed {
				t.Errorf("confirm state = %v", inst.State())
			}
			rows, _ := db.RecentUploads(0)
			if len(rows) != tt.wantRow {
				t.Errorf("history rows = %d, want %d", len(rows), tt.wantRow)
			}
		})
	}
}

func TestCommandModeExecutesHelp(t *testing.T) {
	m, _ := loaded(t)

	m = update(t, m, keyPress(":"))
	if !m.commandMode.IsActive() {
		t.Fatal(": should open the command line")
	}
	m = typeText(t, m, "help")
	if m.dir() != "apps" {
		t.Error("typing a command must not trigger page keys")
	}
	m, _ = send(t, m, keyPress("enter"))

	if m.commandMode.IsActive() {
		t.Error("command line should close after enter")
	}
	if got := topDialog(t, m).TitleSlot().InnerHTML(); got != "Keyboard Shortcuts" {
		t.Errorf("title = %q", got)
	}
}

func TestThemeCycle(t *testing.T) {
	m, _ := loaded(t)
	m = update(t, m, commands.ThemeMsg{})
	if m.theme.Name != "monokai_pro" {
		t.Errorf("theme = %q", m.theme.Name)
	}
	for range AvailableThemes {
		m = update(t, m, commands.ThemeMsg{})
	}
	if m.theme.Name != "monokai_pro" {
		t.Errorf("theme should wrap around, got %q", m.theme.Name)
	}
}

func TestQuit(t *testing.T) {
	m, _ := loaded(t)
	_, cmd := m.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	msgs := runRound([]tea.Cmd{cmd}, 100*time.Millisecond)
	found := false
	for _, msg := range msgs {
		if _, ok := msg.(tea.QuitMsg); ok {
			found = true
		}
	}
	if !found {
		t.Error("q should quit")
	}
}
