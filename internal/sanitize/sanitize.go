// Package sanitize normalizes raw answer text before segmentation.
// All transforms are pure string rewrites and idempotent: applying
// Clean twice yields the same output as applying it once.
package sanitize

import (
	"regexp"
	"strings"
)

// Tags that survive sanitization. Anything else is stripped, keeping
// its text content.
var allowedTags = map[string]bool{
	"b":      true,
	"strong": true,
	"i":      true,
	"em":     true,
	"code":   true,
	"pre":    true,
	"br":     true,
	"span":   true,
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	tagRe    = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9-]*)(?:\s[^<>]*)?/?>`)

	// Block math: $$...$$ across lines. Inline math: $...$ on one line,
	// non-greedy, capped at 200 chars, content must not begin or end with
	// whitespace so stray dollar amounts ("$5 and $10") are left alone.
	blockMathRe  = regexp.MustCompile(`(?s)\$\$(.{1,400}?)\$\$`)
	inlineMathRe = regexp.MustCompile(`\$([^\s$])\$|\$([^\s$][^$\n]{0,197}[^\s$])\$`)
)

// latexGlyphs maps LaTeX macro names to unicode equivalents. Applied
// after math conversion so macros inside converted spans still read well.
var latexGlyphs = []struct {
	macro string
	glyph string
}{
	{`\rightarrow`, "→"},
	{`\leftarrow`, "←"},
	{`\Rightarrow`, "⇒"},
	{`\Leftarrow`, "⇐"},
	{`\leftrightarrow`, "↔"},
	{`\to`, "→"},
	{`\leq`, "≤"},
	{`\geq`, "≥"},
	{`\neq`, "≠"},
	{`\approx`, "≈"},
	{`\equiv`, "≡"},
	{`\times`, "×"},
	{`\div`, "÷"},
	{`\pm`, "±"},
	{`\cdot`, "·"},
	{`\in`, "∈"},
	{`\notin`, "∉"},
	{`\subseteq`, "⊆"},
	{`\supseteq`, "⊇"},
	{`\subset`, "⊂"},
	{`\supset`, "⊃"},
	{`\cup`, "∪"},
	{`\cap`, "∩"},
	{`\emptyset`, "∅"},
	{`\infty`, "∞"},
	{`\forall`, "∀"},
	{`\exists`, "∃"},
	{`\land`, "∧"},
	{`\lor`, "∨"},
	{`\neg`, "¬"},
	{`\ldots`, "…"},
	{`\dots`, "…"},
	{`\sum`, "∑"},
	{`\prod`, "∏"},
	{`\sqrt`, "√"},
}

// Clean strips disallowed markup, converts TeX math delimiters into
// inline code spans, and replaces common LaTeX macros with unicode
// glyphs. It never fails; unrecognized input passes through untouched.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}

	s := scriptRe.ReplaceAllString(raw, "")
	s = styleRe.ReplaceAllString(s, "")

	s = tagRe.ReplaceAllStringFunc(s, func(tag string) string {
		m := tagRe.FindStringSubmatch(tag)
		if m == nil {
			return ""
		}
		if allowedTags[strings.ToLower(m[1])] {
			return tag
		}
		return ""
	})

	s = blockMathRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := strings.TrimSpace(m[2 : len(m)-2])
		return asCodeSpan(inner)
	})
	s = inlineMathRe.ReplaceAllStringFunc(s, func(m string) string {
		return asCodeSpan(m[1 : len(m)-1])
	})

	for _, g := range latexGlyphs {
		s = strings.ReplaceAll(s, g.macro, g.glyph)
	}

	return s
}

// asCodeSpan wraps math content in a backtick span. Embedded backticks
// are dropped: the inline code-span scanner has no escape syntax, so a
// kept backtick would terminate the span early.
func asCodeSpan(inner string) string {
	inner = strings.ReplaceAll(inner, "`", "")
	return "`" + inner + "`"
}
