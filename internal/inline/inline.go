// Package inline converts residual inline markdown (bold, inline code)
// into safe markup fragments. Format is idempotent: already-formatted
// fragments pass through unchanged.
package inline

import (
	"html"
	"regexp"
	"strings"
)

var (
	boldRe = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	// Regions that are already formatted output and must not be
	// reprocessed. Content of emitted spans never contains '<'.
	formattedRe = regexp.MustCompile(`<code>[^<]*</code>|<strong>[^<]*</strong>`)
	codeSpanRe  = regexp.MustCompile("`([^`\n]+)`")
)

// Format converts **bold** runs to <strong> and single-backtick spans to
// escaped <code> fragments. An opening ** with no closing pair on the
// same line is suppressed rather than shown, so a mid-stream partial
// bold marker never leaks into the visible output.
func Format(text string) string {
	if text == "" {
		return ""
	}

	var out strings.Builder
	last := 0
	for _, loc := range formattedRe.FindAllStringIndex(text, -1) {
		out.WriteString(formatRaw(text[last:loc[0]]))
		out.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	out.WriteString(formatRaw(text[last:]))
	return out.String()
}

// formatRaw formats a region known to contain no already-emitted markup.
func formatRaw(text string) string {
	if text == "" {
		return ""
	}

	// Code spans first: their content is preserved verbatim (escaped),
	// never bold-formatted.
	var out strings.Builder
	last := 0
	for _, loc := range codeSpanRe.FindAllStringSubmatchIndex(text, -1) {
		out.WriteString(formatBold(text[last:loc[0]]))
		out.WriteString("<code>")
		out.WriteString(html.EscapeString(text[loc[2]:loc[3]]))
		out.WriteString("</code>")
		last = loc[1]
	}
	out.WriteString(formatBold(text[last:]))
	return out.String()
}

// formatBold rewrites paired ** markers and suppresses unpaired ones.
func formatBold(text string) string {
	if !strings.Contains(text, "**") {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = boldRe.ReplaceAllString(line, "<strong>$1</strong>")
		// A leftover ** has no closing pair on this line; hide it until
		// streaming reveals the closer.
		line = strings.ReplaceAll(line, "**", "")
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
