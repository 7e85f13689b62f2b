package doc

import (
	"fmt"
	"strings"

	"github.com/prepterm/prepterm/internal/block"
)

// Markdown reconstructs a portable markdown rendition of the document.
// Inline <strong> and <code> spans emitted by the formatter turn back
// into markdown markers.
func Markdown(d *Document) string {
	var sb strings.Builder
	for i, b := range d.Blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(blockMarkdown(b))
	}
	return sb.String()
}

func blockMarkdown(b block.Block) string {
	switch b.Kind {
	case block.KindHeading:
		level := b.Level
		if level < 1 {
			level = 2
		}
		return strings.Repeat("#", level) + " " + unformat(b.Content)
	case block.KindBulletList:
		lines := make([]string, len(b.Items))
		for i, it := range b.Items {
			lines[i] = "- " + unformat(it)
		}
		return strings.Join(lines, "\n")
	case block.KindOrderedList:
		lines := make([]string, len(b.Items))
		for i, it := range b.Items {
			lines[i] = fmt.Sprintf("%d. %s", i+1, unformat(it))
		}
		return strings.Join(lines, "\n")
	case block.KindCode:
		return "```" + b.Lang + "\n" + b.Source + "\n```"
	case block.KindDiagram:
		return "```mermaid\n" + b.Source + "\n```"
	case block.KindTable:
		return tableMarkdown(b.Table)
	default:
		return unformat(b.Content)
	}
}

func tableMarkdown(t *block.Table) string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for _, c := range cells {
			sb.WriteString(" " + unformat(c) + " |")
		}
		sb.WriteString("\n")
	}
	writeRow(t.Headers)
	sb.WriteString("|")
	for range t.Headers {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")
	for _, row := range t.Rows {
		writeRow(row)
	}
	return strings.TrimRight(sb.String(), "\n")
}

var unformatReplacer = strings.NewReplacer(
	"<strong>", "**",
	"</strong>", "**",
	"<code>", "`",
	"</code>", "`",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&#34;", `"`,
	"&#39;", "'",
)

// unformat maps formatted inline content back to markdown markers.
func unformat(s string) string {
	return unformatReplacer.Replace(s)
}
