package ui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/prepterm/prepterm/internal/block"
	"github.com/prepterm/prepterm/internal/stream"
)

// Renderer turns blocks into styled terminal output. It is used for
// both the live streaming frames and the final settled document, so
// the two look identical.
type Renderer struct {
	styles *Styles
	width  int

	// DiagramStatus, when set, supplies a status line for the nth
	// diagram block in the document.
	DiagramStatus func(ordinal int) string
}

func NewRenderer(styles *Styles, width int) *Renderer {
	if width < 20 {
		width = 80
	}
	return &Renderer{styles: styles, width: width}
}

// Width is the wrap width in terminal columns.
func (r *Renderer) Width() int {
	return r.width
}

// RenderBlocks renders a settled block sequence.
func (r *Renderer) RenderBlocks(blocks []block.Block) string {
	var parts []string
	diagrams := 0
	for _, b := range blocks {
		if b.Kind == block.KindDiagram {
			parts = append(parts, r.renderDiagram(b, diagrams))
			diagrams++
			continue
		}
		parts = append(parts, r.renderBlock(b))
	}
	return strings.Join(parts, "\n\n")
}

// RenderFrame renders a streaming frame: the stable blocks plus the
// in-progress code block tail, if any.
func (r *Renderer) RenderFrame(f stream.Frame) string {
	out := r.RenderBlocks(f.Blocks)
	if f.Open != nil {
		tail := r.renderOpenCode(f.Open)
		if out == "" {
			return tail
		}
		return out + "\n\n" + tail
	}
	return out
}

func (r *Renderer) renderBlock(b block.Block) string {
	switch b.Kind {
	case block.KindHeading:
		level := b.Level
		if level < 1 {
			level = 2
		}
		return r.styles.Heading.Render(strings.Repeat("#", level) + " " + StripInline(b.Content))
	case block.KindBulletList:
		return r.renderList(b.Items, func(int) string { return "• " })
	case block.KindOrderedList:
		return r.renderList(b.Items, func(i int) string { return fmt.Sprintf("%d. ", i+1) })
	case block.KindCode:
		return r.renderCode(b.Lang, b.Source, false)
	case block.KindTable:
		return r.renderTable(b.Table)
	default:
		return wordwrap.String(r.styleInline(b.Content), r.width)
	}
}

func (r *Renderer) renderList(items []string, marker func(int) string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		m := r.styles.Bullet.Render(marker(i))
		body := wordwrap.String(r.styleInline(it), r.width-4)
		body = strings.ReplaceAll(body, "\n", "\n    ")
		lines[i] = "  " + m + body
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) renderCode(lang, source string, open bool) string {
	var sb strings.Builder
	if lang != "" {
		sb.WriteString(r.styles.CodeLang.Render(lang))
		sb.WriteString("\n")
	}
	h := NewHighlighter(lang)
	for i, line := range strings.Split(source, "\n") {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("  ")
		if h != nil {
			sb.WriteString(h.HighlightLine(line))
		} else {
			sb.WriteString(line)
		}
	}
	if open {
		sb.WriteString(r.styles.Spinner.Render("▌"))
	}
	return sb.String()
}

func (r *Renderer) renderOpenCode(oc *stream.OpenCode) string {
	return r.renderCode(oc.Lang, strings.TrimRight(oc.Source, "\n"), true)
}

// renderDiagram shows the diagram as a bordered source panel with a
// status caption. Terminal cells cannot hold SVG; the rendered file is
// reachable through the save and export actions.
func (r *Renderer) renderDiagram(b block.Block, ordinal int) string {
	status := "diagram"
	if r.DiagramStatus != nil {
		if s := r.DiagramStatus(ordinal); s != "" {
			status = s
		}
	}
	body := r.styles.Muted.Render(b.Source)
	panel := r.styles.Diagram.Width(min(r.width-2, 76)).Render(body)
	return r.styles.CodeLang.Render(status) + "\n" + panel
}

func (r *Renderer) renderTable(t *block.Table) string {
	if t == nil || len(t.Headers) == 0 {
		return ""
	}
	widths := make([]int, len(t.Headers))
	measure := func(cells []string) {
		for i, c := range cells {
			if i >= len(widths) {
				break
			}
			if w := runewidth.StringWidth(StripInline(c)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		measure(row)
	}

	sep := r.styles.TableBorder.Render("│")
	var sb strings.Builder
	writeRow := func(cells []string, header bool) {
		sb.WriteString(sep)
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := widths[i] - runewidth.StringWidth(StripInline(cell))
			if pad < 0 {
				pad = 0
			}
			text := r.styleInline(cell)
			if header {
				text = r.styles.TableHeader.Render(StripInline(cell))
			}
			sb.WriteString(" " + text + strings.Repeat(" ", pad) + " " + sep)
		}
		sb.WriteString("\n")
	}

	writeRow(t.Headers, true)
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("─", w+2)
	}
	sb.WriteString(r.styles.TableBorder.Render("├"+strings.Join(rule, "┼")+"┤") + "\n")
	for _, row := range t.Rows {
		writeRow(row, false)
	}
	return strings.TrimRight(sb.String(), "\n")
}

var inlineTagRe = regexp.MustCompile(`<(/?)(strong|code)>`)

// styleInline converts the formatter's <strong> and <code> spans to
// terminal styles.
func (r *Renderer) styleInline(s string) string {
	var sb strings.Builder
	for {
		loc := inlineTagRe.FindStringSubmatchIndex(s)
		if loc == nil {
			sb.WriteString(unescape(s))
			break
		}
		sb.WriteString(unescape(s[:loc[0]]))
		closing := s[loc[2]:loc[3]] == "/"
		tag := s[loc[4]:loc[5]]
		s = s[loc[1]:]
		if closing {
			continue
		}
		end := strings.Index(s, "</"+tag+">")
		if end < 0 {
			continue
		}
		content := unescape(s[:end])
		s = s[end+len(tag)+3:]
		if tag == "strong" {
			sb.WriteString(r.styles.Bold.Render(content))
		} else {
			sb.WriteString(r.styles.InlineCode.Render(content))
		}
	}
	return sb.String()
}

// StripInline removes formatter tags and entities, leaving plain text.
func StripInline(s string) string {
	return unescape(inlineTagRe.ReplaceAllString(s, ""))
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&#34;", `"`,
	"&#39;", "'",
)

func unescape(s string) string {
	return entityReplacer.Replace(s)
}
