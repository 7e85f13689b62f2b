package ui

import (
	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders a complete markdown document through glamour
// with the active theme. Used for one-shot rendering of saved answers,
// where no streaming is involved.
func RenderMarkdown(md string, width int) (string, error) {
	if width < 20 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
