package operations

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nickpending/devicelab/internal/api"
	"github.com/nickpending/devicelab/internal/db"
	"github.com/sirupsen/logrus"
)

// UploadedMsg is the outcome of an upload. URL is the server's answer on
// success.
type UploadedMsg struct {
	Path string
	Dir  string
	Size int64
	URL  string
	Err  error
}

// HistoryLoadedMsg carries recent uploads from the local store
type HistoryLoadedMsg struct {
	Uploads []db.Upload
	Err     error
}

// HistoryClearedMsg reports how many history rows were removed
type HistoryClearedMsg struct {
	Count int64
	Err   error
}

// Upload sends the file at path into dir and records the attempt in the
// history store. A history write failure is logged, never reported as an
// upload failure.
func Upload(client *api.APIClient, path, dir string) tea.Cmd {
	return func() tea.Msg {
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}

		url, err := client.Upload(context.Background(), path, dir)
		record := db.Upload{
			Directory: dir,
			FileName:  filepath.Base(path),
			Size:      size,
			URL:       url,
		}
		if err != nil {
			record.Error = err.Error()
		}
		if _, herr := db.RecordUpload(record); herr != nil {
			logrus.WithError(herr).Warn("failed to record upload")
		}

		return UploadedMsg{Path: path, Dir: dir, Size: size, URL: url, Err: err}
	}
}

// LoadHistory reads up to limit recent uploads
func LoadHistory(limit int) tea.Cmd {
	return func() tea.Msg {
		uploads, err := db.RecentUploads(limit)
		return HistoryLoadedMsg{Uploads: uploads, Err: err}
	}
}

// ClearHistory deletes the whole upload history
func ClearHistory() tea.Cmd {
	return func() tea.Msg {
		n, err := db.ClearUploads()
		return HistoryClearedMsg{Count: n, Err: err}
	}
}
