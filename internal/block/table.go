package block

import (
	"strings"

	"github.com/prepterm/prepterm/internal/inline"
	"github.com/prepterm/prepterm/internal/sanitize"
)

// tableRegion is the result of locating a markdown table inside a prose
// span: the text before it, the parsed table, and the text after it.
type tableRegion struct {
	before string
	table  *Table
	after  string
}

// findTable locates the first markdown table region in span. A table is
// a header row and a dash separator row, both wrapped in pipes. In
// strict mode body rows must be pipe-wrapped too; in partial mode
// (streaming) the body may be ragged or still growing, and rows are
// accepted as long as they begin with a pipe.
func findTable(span string, partial bool) (tableRegion, bool) {
	lines := strings.Split(span, "\n")

	for i := 0; i+1 < len(lines); i++ {
		if !isPipeRow(lines[i], true) {
			continue
		}
		if !isSeparatorRow(lines[i+1]) {
			continue
		}

		headers := parseRow(lines[i])
		if len(headers) == 0 {
			continue
		}

		end := i + 2
		var rows [][]string
		for end < len(lines) {
			line := lines[end]
			if !isPipeRow(line, !partial) {
				break
			}
			row := parseRow(line)
			if len(row) == 0 {
				break
			}
			rows = append(rows, padRow(row, len(headers)))
			end++
		}

		tbl := &Table{Headers: formatCells(headers), Rows: rows}
		for r := range tbl.Rows {
			tbl.Rows[r] = formatCells(tbl.Rows[r])
		}
		return tableRegion{
			before: strings.Join(lines[:i], "\n"),
			table:  tbl,
			after:  strings.Join(lines[end:], "\n"),
		}, true
	}

	return tableRegion{}, false
}

// FindPartialTable locates a table region in a still-growing prose
// span, accepting a ragged or incomplete body. Used by the streaming
// renderer so an unfinished table at the tail renders with whatever
// rows exist so far.
func FindPartialTable(span string) (before string, tbl *Table, after string, ok bool) {
	region, found := findTable(span, true)
	if !found {
		return "", nil, "", false
	}
	return region.before, region.table, region.after, true
}

// isPipeRow reports whether a line looks like a table row. When wrapped
// is true the row must both start and end with a pipe.
func isPipeRow(line string, wrapped bool) bool {
	t := strings.TrimSpace(line)
	if len(t) < 2 || !strings.HasPrefix(t, "|") {
		return false
	}
	if wrapped && !strings.HasSuffix(t, "|") {
		return false
	}
	return strings.Count(t, "|") >= 2 || !wrapped
}

// isSeparatorRow matches the dashes row between header and body, e.g.
// |---|:---:|.
func isSeparatorRow(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "|") || !strings.HasSuffix(t, "|") {
		return false
	}
	if !strings.Contains(t, "-") {
		return false
	}
	for _, r := range t {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// parseRow splits a pipe row into trimmed cell texts.
func parseRow(line string) []string {
	t := strings.TrimSpace(line)
	t = strings.TrimPrefix(t, "|")
	t = strings.TrimSuffix(t, "|")
	parts := strings.Split(t, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

// padRow extends or truncates a body row to the header width so partial
// rows render without shifting columns.
func padRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	if len(row) > width {
		return row[:width]
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func formatCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = inline.Format(sanitize.Clean(c))
	}
	return out
}
