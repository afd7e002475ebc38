package cli

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
)

// Clipboard copies synthesized prompts using platform clipboard tools.
type Clipboard struct{}

// NewClipboard builds the clipboard helper.
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// Copy copies text to the system clipboard.
func (c *Clipboard) Copy(text string) error {
	cmd, err := clipboardCommand()
	if err != nil {
		return err
	}
	cmd.Stdin = bytes.NewBufferString(text)
	return cmd.Run()
}

func clipboardCommand() (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("pbcopy"), nil
	case "windows":
		return exec.Command("clip"), nil
	case "linux":
		for _, candidate := range [][]string{{"wl-copy"}, {"xclip", "-selection", "clipboard"}, {"xsel", "--clipboard", "--input"}} {
			if _, err := exec.LookPath(candidate[0]); err == nil {
				return exec.Command(candidate[0], candidate[1:]...), nil
			}
		}
		return nil, fmt.Errorf("clipboard utilities not found")
	}
	return nil, fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
}
