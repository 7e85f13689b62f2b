package ui

import (
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// LiveWriter repaints a region of the terminal in place, used by the
// streaming reveal outside the full TUI. Each Update erases the
// previously written lines and writes the new frame.
type LiveWriter struct {
	out       *termenv.Output
	lastLines int
}

func NewLiveWriter(w io.Writer) *LiveWriter {
	return &LiveWriter{out: termenv.NewOutput(w)}
}

// Update replaces the previously painted frame with content.
func (l *LiveWriter) Update(content string) {
	if l.lastLines > 0 {
		l.out.CursorUp(l.lastLines)
	}
	lines := strings.Split(content, "\n")
	total := len(lines)
	if l.lastLines > total {
		total = l.lastLines
	}
	for i := 0; i < total; i++ {
		l.out.ClearLine()
		if i < len(lines) {
			l.out.WriteString(lines[i])
		}
		l.out.WriteString("\n")
	}
	// Park the cursor right below the new frame, not below the cleared
	// remainder of the old one.
	if extra := total - len(lines); extra > 0 {
		l.out.CursorUp(extra)
	}
	l.lastLines = len(lines)
}

// Done finishes the live region, leaving the final frame in place.
func (l *LiveWriter) Done() {
	l.lastLines = 0
}
