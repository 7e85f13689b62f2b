// Package diagram repairs, renders, and coordinates mermaid diagram
// blocks. Repair is a fixed ordered chain of named rewrite rules; each
// rule is pure, independently testable, and idempotent, so the chain as
// a whole is idempotent.
package diagram

import (
	"regexp"
	"strings"
)

// Rule is one heuristic rewrite. Detect reports whether the rule's
// error pattern is present; Apply rewrites the source to remove it.
type Rule struct {
	Name   string
	Detect func(string) bool
	Apply  func(string) string
}

// Report records which rules fired during a repair, and whether the
// cumulative error count forced a template substitution.
type Report struct {
	Fired     []string
	Templated bool
	Template  string
}

// templateThreshold is the number of fired rules at which the source is
// considered beyond repair and replaced by a template diagram.
const templateThreshold = 4

var declarations = []string{
	"graph", "flowchart", "sequenceDiagram", "classDiagram",
	"stateDiagram", "stateDiagram-v2", "erDiagram", "journey",
	"gantt", "pie", "mindmap", "timeline",
}

var (
	trailingEdgeRe   = regexp.MustCompile(`(?m)[ \t]*(-->|==>|->>|->|--)[ \t]*$`)
	doubledArrowRe   = regexp.MustCompile(`-->[ \t]*-->`)
	longArrowRe      = regexp.MustCompile(`-{4,}>`)
	bareSubgraphRe   = regexp.MustCompile(`(?m)^([ \t]*)subgraph[ \t]+([A-Za-z0-9_]+)[ \t]*$`)
	labelSubgraphRe  = regexp.MustCompile(`(?m)^([ \t]*subgraph[ \t]+[A-Za-z0-9_]+)\["?([^"\]]*)"?\][ \t]*$`)
	bidirEdgeRe      = regexp.MustCompile(`(?m)^([ \t]*)(\S+)[ \t]*<-->[ \t]*(\S+)[ \t]*$`)
	parenLabelRe     = regexp.MustCompile(`-->[ \t]*\(([^)]+)\)[ \t]*`)
	styleStatementRe = regexp.MustCompile(`^[ \t]*(style|classDef|class|linkStyle)\b`)
	unlabeledEdgeRe  = regexp.MustCompile(`-->([ \t]*)([^|\s])`)
)

// rules is the fixed repair chain, applied in order.
var rules = []Rule{
	{
		Name: "ensure-declaration",
		Detect: func(s string) bool {
			return hasEdgeSyntax(s) && !hasDeclaration(s)
		},
		Apply: func(s string) string {
			return "flowchart TD\n" + s
		},
	},
	{
		Name: "strip-trailing-edge",
		Detect: func(s string) bool {
			return trailingEdgeRe.MatchString(s)
		},
		Apply: func(s string) string {
			return trailingEdgeRe.ReplaceAllString(s, "")
		},
	},
	{
		Name: "collapse-doubled-arrow",
		Detect: func(s string) bool {
			return doubledArrowRe.MatchString(s) || longArrowRe.MatchString(s)
		},
		Apply: func(s string) string {
			for {
				next := doubledArrowRe.ReplaceAllString(s, "-->")
				next = longArrowRe.ReplaceAllString(next, "-->")
				if next == s {
					return s
				}
				s = next
			}
		},
	},
	{
		Name:   "normalize-subgraph",
		Detect: detectSubgraphDrift,
		Apply:  normalizeSubgraphs,
	},
	{
		Name:   "reorder-styles",
		Detect: detectStyleBeforeStructure,
		Apply:  moveStylesAfterStructure,
	},
	{
		Name: "rewrite-edges",
		Detect: func(s string) bool {
			return strings.Contains(s, "<-->") || parenLabelRe.MatchString(s)
		},
		Apply: func(s string) string {
			s = bidirEdgeRe.ReplaceAllString(s, "$1$2 --> $3\n$1$3 --> $2")
			// Any bidirectional edge not on its own line still splits.
			s = strings.ReplaceAll(s, "<-->", "-->")
			s = parenLabelRe.ReplaceAllString(s, "-->|$1| ")
			return s
		},
	},
	{
		Name:   "number-edges",
		Detect: detectUnnumberedEdges,
		Apply:  autoNumberEdges,
	},
}

// Repair runs the rule chain over source. When the number of fired
// rules reaches the template threshold, the source is replaced with a
// template diagram so the caller never renders broken syntax.
func Repair(source string) (string, Report) {
	s := source
	report := Report{}
	for _, r := range rules {
		if !r.Detect(s) {
			continue
		}
		s = r.Apply(s)
		report.Fired = append(report.Fired, r.Name)
	}
	if len(report.Fired) >= templateThreshold {
		name, tmpl := pickTemplate(source)
		return tmpl, Report{Fired: report.Fired, Templated: true, Template: name}
	}
	return s, report
}

func hasEdgeSyntax(s string) bool {
	return strings.Contains(s, "-->") || strings.Contains(s, "->>") ||
		strings.Contains(s, "==>")
}

func hasDeclaration(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		head := strings.Fields(t)[0]
		for _, d := range declarations {
			if head == d {
				return true
			}
		}
		return false
	}
	return false
}

// detectSubgraphDrift reports subgraph declarations that are missing a
// bracketed label or whose label lacks the canonical suffix word.
func detectSubgraphDrift(s string) bool {
	if bareSubgraphRe.MatchString(s) {
		return true
	}
	for _, m := range labelSubgraphRe.FindAllStringSubmatch(s, -1) {
		if !strings.Contains(m[2], "Layer") {
			return true
		}
	}
	return false
}

// normalizeSubgraphs rewrites subgraph declarations to the canonical
// quoted bracketed-label form, appending "Layer" to titles lacking it.
func normalizeSubgraphs(s string) string {
	s = bareSubgraphRe.ReplaceAllString(s, `${1}subgraph $2["$2 Layer"]`)
	return labelSubgraphRe.ReplaceAllStringFunc(s, func(line string) string {
		m := labelSubgraphRe.FindStringSubmatch(line)
		title := m[2]
		if !strings.Contains(title, "Layer") {
			title += " Layer"
		}
		return m[1] + `["` + title + `"]`
	})
}

// detectStyleBeforeStructure reports a style statement that appears
// before a structural statement; the rendering grammar requires styles
// to follow structure.
func detectStyleBeforeStructure(s string) bool {
	sawStyle := false
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if styleStatementRe.MatchString(line) {
			sawStyle = true
			continue
		}
		if sawStyle {
			return true
		}
	}
	return false
}

func moveStylesAfterStructure(s string) string {
	var structure, styles []string
	for _, line := range strings.Split(s, "\n") {
		if styleStatementRe.MatchString(line) {
			styles = append(styles, line)
			continue
		}
		structure = append(structure, line)
	}
	return strings.Join(append(structure, styles...), "\n")
}

// detectUnnumberedEdges fires when two or more flowchart edges lack an
// inline label; generated diagrams get consistent step numbering.
func detectUnnumberedEdges(s string) bool {
	if !isFlowchart(s) {
		return false
	}
	return len(unlabeledEdgeRe.FindAllString(s, -1)) >= 2
}

func autoNumberEdges(s string) string {
	n := 0
	return unlabeledEdgeRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := unlabeledEdgeRe.FindStringSubmatch(m)
		n++
		return "-->|" + itoa(n) + "|" + sub[1] + sub[2]
	})
}

func isFlowchart(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "graph") || strings.HasPrefix(t, "flowchart")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [8]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}
