// Package input resolves answer text from files, the clipboard, or a
// stdin pipe.
package input

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/prepterm/prepterm/internal/clipboard"
)

// ReadSource reads answer text from path. Special values:
//   - "clipboard": reads text from the system clipboard
//   - "-": reads stdin
//   - "~/..." expands to the home directory
func ReadSource(path string) (string, error) {
	switch strings.ToLower(path) {
	case "clipboard":
		content, err := clipboard.ReadText()
		if err != nil {
			return "", fmt.Errorf("read clipboard: %w", err)
		}
		return content, nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return "", fmt.Errorf("read %q: %w", path, err)
	}
	return string(data), nil
}

// HasStdin returns true if stdin has piped data available
func HasStdin() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode()&os.ModeCharDevice) == 0 || fi.Size() > 0
}

// ReadStdin reads all content from stdin
// Returns empty string if stdin is a TTY or has no data
func ReadStdin() (string, error) {
	if !HasStdin() {
		return "", nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
