package operations

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nickpending/devicelab/internal/api"
)

// FilesListedMsg carries a directory listing. For a single directory
// Files maps Dir to its URLs; for an all-directories listing Dir is empty
// and every requested directory has an entry.
type FilesListedMsg struct {
	Seq   int
	Dir   string
	Files map[string][]string
	Err   error
}

// ListFiles lists the files uploaded to dir
func ListFiles(client *api.APIClient, dir string, seq int) tea.Cmd {
	return func() tea.Msg {
		files, err := client.ListFiles(context.Background(), dir)
		msg := FilesListedMsg{Seq: seq, Dir: dir, Err: err}
		if err == nil {
			msg.Files = map[string][]string{dir: files}
		}
		return msg
	}
}

// ListAllFiles lists every directory in dirs concurrently
func ListAllFiles(client *api.APIClient, dirs []string, seq int) tea.Cmd {
	return func() tea.Msg {
		files, err := client.ListAllFiles(context.Background(), dirs)
		return FilesListedMsg{Seq: seq, Files: files, Err: err}
	}
}
