package block

import (
	"regexp"
	"strings"

	"github.com/prepterm/prepterm/internal/inline"
	"github.com/prepterm/prepterm/internal/sanitize"
)

// diagramKeywords are the leading tokens of the diagram-description
// grammar. A fenced payload (or a bare prose span) whose declaration
// line starts with one of these is treated as a diagram block.
var diagramKeywords = []string{
	"graph",
	"flowchart",
	"sequenceDiagram",
	"classDiagram",
	"stateDiagram",
	"stateDiagram-v2",
	"erDiagram",
	"journey",
	"gantt",
	"pie",
	"mindmap",
	"timeline",
}

var (
	langLineRe    = regexp.MustCompile(`^[A-Za-z0-9_+#.-]+$`)
	atxHeadingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	boldLineRe    = regexp.MustCompile(`^\*\*([^*]+)\*\*$`)
	bulletRe      = regexp.MustCompile(`^[-–*]\s+(.*)$`)
	numberedRe    = regexp.MustCompile(`^\d{1,3}[.)]\s+(.*)$`)
	pyDocstringRe = regexp.MustCompile(`(?s)"""(.*?)"""`)
	jsDocRe       = regexp.MustCompile(`(?s)/\*\*(.*?)\*/`)
)

// connector words allowed lowercase inside a Title-Case heading.
var titleConnectors = map[string]bool{
	"a": true, "an": true, "and": true, "at": true, "by": true,
	"for": true, "in": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "vs": true, "with": true,
}

// Segment partitions text into an ordered sequence of blocks. It splits
// on triple-backtick fences first; odd spans are code payloads, even
// spans are prose. Segmentation never fails: anything unclassifiable
// becomes a paragraph.
func Segment(text string) []Block {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	parts := strings.Split(text, "```")
	var blocks []Block
	for i, part := range parts {
		if i%2 == 1 {
			if b, ok := codeBlock(part); ok {
				blocks = append(blocks, b)
			}
			continue
		}
		blocks = append(blocks, segmentProse(part)...)
	}
	return blocks
}

// codeBlock builds a code or diagram block from a fence payload. The
// first line is consumed as a language tag when it is a bare token.
func codeBlock(payload string) (Block, bool) {
	body := strings.TrimPrefix(payload, "\n")
	lang := ""

	// A payload opening directly with a diagram declaration is a diagram
	// regardless of whether the declaration would parse as a bare token.
	if looksLikeDiagramDecl(firstNonEmptyLine(body)) {
		return Block{Kind: KindDiagram, Source: strings.TrimRight(body, "\n"), Lang: "mermaid"}, true
	}

	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		first := strings.TrimSpace(body[:idx])
		if first != "" && langLineRe.MatchString(first) {
			lang = first
			body = body[idx+1:]
		}
	} else if t := strings.TrimSpace(body); t != "" && langLineRe.MatchString(t) {
		// Payload is a single bare token: treat it as a language tag on
		// an empty block.
		lang = t
		body = ""
	}

	body = strings.TrimRight(body, "\n")
	if body == "" && lang == "" {
		return Block{}, false
	}

	if lang == "mermaid" || looksLikeDiagramDecl(firstNonEmptyLine(body)) {
		return Block{Kind: KindDiagram, Source: body, Lang: "mermaid"}, true
	}
	return Block{Kind: KindCode, Source: body, Lang: lang}, true
}

// segmentProse splits a prose span into table, diagram, docstring, and
// line-classified blocks.
func segmentProse(span string) []Block {
	if strings.TrimSpace(span) == "" {
		return nil
	}

	// Unfenced diagram fallback: a span whose first line is a diagram
	// declaration is emitted whole as a diagram block.
	if looksLikeDiagramDecl(firstNonEmptyLine(span)) {
		return []Block{{Kind: KindDiagram, Source: strings.TrimSpace(span), Lang: "mermaid"}}
	}

	// Docstring-like regions stay intact as code rather than being
	// shredded into paragraph lines.
	if blocks, ok := extractDocstring(span); ok {
		return blocks
	}

	if region, ok := findTable(span, false); ok {
		var blocks []Block
		blocks = append(blocks, segmentProse(region.before)...)
		blocks = append(blocks, Block{Kind: KindTable, Table: region.table})
		blocks = append(blocks, segmentProse(region.after)...)
		return blocks
	}

	return classifyLines(sanitize.Clean(span))
}

// extractDocstring pulls a /** ... */ or """ ... """ region out of a
// span as a code block, recursively segmenting the surrounding prose.
func extractDocstring(span string) ([]Block, bool) {
	type match struct {
		loc  []int
		lang string
	}
	var m *match
	if strings.Count(span, `"""`) >= 2 {
		if loc := pyDocstringRe.FindStringIndex(span); loc != nil {
			m = &match{loc: loc, lang: "python"}
		}
	}
	if m == nil {
		if loc := jsDocRe.FindStringIndex(span); loc != nil {
			m = &match{loc: loc, lang: "javascript"}
		}
	}
	if m == nil {
		return nil, false
	}

	var blocks []Block
	blocks = append(blocks, segmentProse(span[:m.loc[0]])...)
	blocks = append(blocks, Block{
		Kind:   KindCode,
		Source: strings.TrimSpace(span[m.loc[0]:m.loc[1]]),
		Lang:   m.lang,
	})
	blocks = append(blocks, segmentProse(span[m.loc[1]:])...)
	return blocks, true
}

// classifyLines walks sanitized prose line by line, producing heading,
// list, and paragraph blocks. Consecutive paragraph lines merge into a
// single block; consecutive list markers merge into a single list.
func classifyLines(s string) []Block {
	var blocks []Block
	var para []string
	var items []string
	var listKind Kind

	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, Block{
				Kind:    KindParagraph,
				Content: inline.Format(strings.Join(para, " ")),
			})
			para = nil
		}
	}
	flushList := func() {
		if len(items) > 0 {
			blocks = append(blocks, Block{Kind: listKind, Items: items})
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

		if m := atxHeadingRe.FindStringSubmatch(t); m != nil {
			flushPara()
			flushList()
			blocks = append(blocks, Block{
				Kind:    KindHeading,
				Level:   len(m[1]),
				Content: inline.Format(m[2]),
			})
			continue
		}

		if m := bulletRe.FindStringSubmatch(t); m != nil && !strings.HasPrefix(t, "**") {
			flushPara()
			if listKind != KindBulletList {
				flushList()
			}
			listKind = KindBulletList
			items = append(items, inline.Format(m[1]))
			continue
		}

		if m := numberedRe.FindStringSubmatch(t); m != nil {
			flushPara()
			if listKind != KindOrderedList {
				flushList()
			}
			listKind = KindOrderedList
			items = append(items, inline.Format(m[1]))
			continue
		}

		if m := boldLineRe.FindStringSubmatch(t); m != nil {
			flushPara()
			flushList()
			blocks = append(blocks, Block{Kind: KindHeading, Level: 3, Content: m[1]})
			continue
		}

		if isTitleCaseHeading(t) {
			flushPara()
			flushList()
			blocks = append(blocks, Block{Kind: KindHeading, Level: 3, Content: inline.Format(t)})
			continue
		}

		flushList()
		para = append(para, t)
	}
	flushPara()
	flushList()
	return blocks
}

// isTitleCaseHeading reports whether a short Title-Case line should be
// promoted to a heading: at most 8 words, every significant word
// capitalized, and no trailing low-info punctuation.
func isTitleCaseHeading(t string) bool {
	if strings.ContainsAny(t, "`|<>") {
		return false
	}
	switch t[len(t)-1] {
	case '.', ',', ';', ':', '-':
		return false
	}
	words := strings.Fields(t)
	if len(words) == 0 || len(words) > 8 {
		return false
	}
	for i, w := range words {
		r := rune(w[0])
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if i > 0 && titleConnectors[strings.ToLower(w)] {
			continue
		}
		return false
	}
	// A single capitalized word is more likely emphasis than a heading.
	return len(words) >= 2
}

// looksLikeDiagramDecl reports whether a line is a diagram-grammar
// declaration. Direction-less keywords require an exact match so prose
// beginning with words like "pie" does not false-positive.
func looksLikeDiagramDecl(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	fields := strings.Fields(t)
	head := fields[0]
	for _, kw := range diagramKeywords {
		if head != kw {
			continue
		}
		switch kw {
		case "graph", "flowchart":
			if len(fields) >= 2 {
				switch fields[1] {
				case "TD", "TB", "LR", "RL", "BT":
					return true
				}
			}
			return false
		default:
			return len(fields) == 1 || kw == "sequenceDiagram" ||
				kw == "classDiagram" || kw == "stateDiagram" ||
				kw == "stateDiagram-v2" || kw == "erDiagram"
		}
	}
	return false
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
