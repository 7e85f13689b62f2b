package stream

import (
	"strings"

	"github.com/prepterm/prepterm/internal/block"
	"github.com/prepterm/prepterm/internal/inline"
	"github.com/prepterm/prepterm/internal/sanitize"
)

// renderPrefix builds a best-effort frame from the revealed prefix.
// This is the light streaming tier: fence parity, partial tables, and
// inline formatting only. The full segmenter never runs here.
func renderPrefix(prefix string) Frame {
	parts := strings.Split(prefix, "```")
	frame := Frame{}

	for i, part := range parts {
		last := i == len(parts)-1
		if i%2 == 1 {
			lang, source := splitLangLine(part)
			if last {
				// Odd fence count: this block is still open. Emit it as
				// in-progress rather than closing it.
				frame.Open = &OpenCode{Lang: lang, Source: source}
			} else if source != "" || lang != "" {
				frame.Blocks = append(frame.Blocks, block.Block{
					Kind:   block.KindCode,
					Source: strings.TrimRight(source, "\n"),
					Lang:   lang,
				})
			}
			continue
		}
		frame.Blocks = append(frame.Blocks, lightweightProse(part)...)
	}

	return frame
}

// splitLangLine consumes a leading bare language token from a fence
// payload.
func splitLangLine(payload string) (lang, source string) {
	body := strings.TrimPrefix(payload, "\n")
	idx := strings.IndexByte(body, '\n')
	if idx < 0 {
		t := strings.TrimSpace(body)
		if t != "" && !strings.ContainsAny(t, " \t") {
			return t, ""
		}
		return "", body
	}
	first := strings.TrimSpace(body[:idx])
	if first != "" && !strings.ContainsAny(first, " \t") {
		return first, body[idx+1:]
	}
	return "", body
}

// lightweightProse formats a prose span cheaply: partial tables,
// bullets, and merged paragraphs, with unmatched inline markers
// suppressed so raw ** or backticks never leak mid-stream.
func lightweightProse(span string) []block.Block {
	if strings.TrimSpace(span) == "" {
		return nil
	}

	if before, tbl, after, ok := block.FindPartialTable(span); ok {
		var blocks []block.Block
		blocks = append(blocks, lightweightProse(before)...)
		blocks = append(blocks, block.Block{Kind: block.KindTable, Table: tbl})
		blocks = append(blocks, lightweightProse(after)...)
		return blocks
	}

	s := sanitize.Clean(span)

	var blocks []block.Block
	var para []string
	var items []string

	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, block.Block{
				Kind:    block.KindParagraph,
				Content: inline.Format(strings.Join(para, " ")),
			})
			para = nil
		}
	}
	flushList := func() {
		if len(items) > 0 {
			blocks = append(blocks, block.Block{Kind: block.KindBulletList, Items: items})
			items = nil
		}
	}

	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			flushPara()
			flushList()
			continue
		}
		t = cutUnclosedBacktick(t)
		if t == "" {
			continue
		}
		if isBullet(t) {
			flushPara()
			items = append(items, inline.Format(strings.TrimSpace(t[bulletMarkerLen(t):])))
			continue
		}
		flushList()
		para = append(para, t)
	}
	flushPara()
	flushList()
	return blocks
}

// cutUnclosedBacktick hides an in-progress inline code span: a line
// with an odd number of backticks is cut at the last one so the opener
// never shows as literal text.
func cutUnclosedBacktick(line string) string {
	if strings.Count(line, "`")%2 == 1 {
		return strings.TrimRight(line[:strings.LastIndex(line, "`")], " ")
	}
	return line
}

func isBullet(t string) bool {
	if strings.HasPrefix(t, "**") {
		return false
	}
	if strings.HasPrefix(t, "- ") || strings.HasPrefix(t, "* ") || strings.HasPrefix(t, "– ") {
		return true
	}
	return false
}

func bulletMarkerLen(t string) int {
	if strings.HasPrefix(t, "– ") {
		return len("– ")
	}
	return 2
}
