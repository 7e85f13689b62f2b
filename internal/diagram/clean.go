package diagram

import (
	"regexp"
	"strconv"
	"strings"
)

// Rendered SVG comes back with accessibility attributes whose generated
// values ("flowchart-v2", node ids) read as noise when the markup is
// exported or inspected. Strip them; the surrounding document supplies
// its own captions.
var ariaAttrRe = regexp.MustCompile(`\s+(aria-roledescription|aria-label|aria-describedby)="[^"]*"`)

// CleanSVG removes generated aria attributes from SVG markup. Running
// it twice is a no-op.
func CleanSVG(svg string) string {
	return ariaAttrRe.ReplaceAllString(svg, "")
}

var (
	svgWidthRe   = regexp.MustCompile(`<svg[^>]*?\bwidth="([0-9.]+)(?:px)?"`)
	svgViewBoxRe = regexp.MustCompile(`<svg[^>]*?\bviewBox="[0-9.eE+-]+[ ,]+[0-9.eE+-]+[ ,]+([0-9.eE+]+)`)
)

// IntrinsicWidth extracts the natural width of an SVG from its width
// attribute, falling back to the viewBox. Used to compute the one-time
// base auto-fit scale.
func IntrinsicWidth(svg string) (float64, bool) {
	head := svg
	if start := strings.Index(svg, "<svg"); start >= 0 {
		if end := strings.Index(svg[start:], ">"); end >= 0 {
			head = svg[start : start+end+1]
		}
	}
	if m := svgWidthRe.FindStringSubmatch(head); m != nil {
		if w, err := strconv.ParseFloat(m[1], 64); err == nil && w > 0 {
			return w, true
		}
	}
	if m := svgViewBoxRe.FindStringSubmatch(head); m != nil {
		if w, err := strconv.ParseFloat(m[1], 64); err == nil && w > 0 {
			return w, true
		}
	}
	return 0, false
}
