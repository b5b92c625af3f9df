package ui

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// copyToClipboard is swapped out in tests
var copyToClipboard = CopyToClipboard

// CopyToClipboard copies text to the system clipboard.
func CopyToClipboard(text string) error {
	if text == "" {
		return fmt.Errorf("cannot copy empty text to clipboard")
	}

	cmd, err := clipboardCommand()
	if err != nil {
		return err
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start clipboard command: %w", err)
	}
	if _, err := io.WriteString(stdin, text); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}
	if err := stdin.Close(); err != nil {
		return fmt.Errorf("failed to close stdin: %w", err)
	}

	// Some clipboard tools exit non-zero after a successful copy
	var exitErr *exec.ExitError
	if err := cmd.Wait(); err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}

// clipboardCommand picks the platform's clipboard writer
func clipboardCommand() (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("pbcopy"), nil
	case "linux":
		candidates := [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
		for _, c := range candidates {
			if _, err := exec.LookPath(c[0]); err == nil {
				return exec.Command(c[0], c[1:]...), nil
			}
		}
		return nil, fmt.Errorf("no clipboard command found (install xclip, xsel, or wl-clipboard)")
	case "windows":
		return exec.Command("clip.exe"), nil
	}
	return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
}
