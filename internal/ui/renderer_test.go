package ui

import (
	"os"
	"strings"
	"testing"

	"github.com/prepterm/prepterm/internal/block"
	"github.com/prepterm/prepterm/internal/stream"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	return NewRenderer(NewStyles(os.Stdout), 80)
}

func TestRenderHeading(t *testing.T) {
	r := testRenderer(t)
	out := r.RenderBlocks([]block.Block{{Kind: block.KindHeading, Level: 2, Content: "Design"}})
	if !strings.Contains(out, "## Design") {
		t.Errorf("out = %q", out)
	}
}

func TestRenderParagraphStripsTags(t *testing.T) {
	r := testRenderer(t)
	out := r.RenderBlocks([]block.Block{{
		Kind:    block.KindParagraph,
		Content: "use <strong>redis</strong> with <code>GET</code> here",
	}})
	for _, tag := range []string{"<strong>", "</strong>", "<code>", "</code>"} {
		if strings.Contains(out, tag) {
			t.Fatalf("tag %s leaked: %q", tag, out)
		}
	}
	if !strings.Contains(out, "redis") || !strings.Contains(out, "GET") {
		t.Errorf("content lost: %q", out)
	}
}

func TestRenderLists(t *testing.T) {
	r := testRenderer(t)
	out := r.RenderBlocks([]block.Block{
		{Kind: block.KindBulletList, Items: []string{"first", "second"}},
		{Kind: block.KindOrderedList, Items: []string{"alpha", "beta"}},
	})
	if !strings.Contains(out, "• first") || !strings.Contains(out, "• second") {
		t.Errorf("bullets missing: %q", out)
	}
	if !strings.Contains(out, "1. alpha") || !strings.Contains(out, "2. beta") {
		t.Errorf("numbering missing: %q", out)
	}
}

func TestRenderCodeBlock(t *testing.T) {
	r := testRenderer(t)
	out := r.RenderBlocks([]block.Block{{
		Kind:   block.KindCode,
		Lang:   "go",
		Source: "x := 1\nfmt.Println(x)",
	}})
	plain := StripANSI(out)
	if !strings.Contains(plain, "go") {
		t.Errorf("lang caption missing: %q", plain)
	}
	if !strings.Contains(plain, "x := 1") || !strings.Contains(plain, "fmt.Println(x)") {
		t.Errorf("code lines missing: %q", plain)
	}
}

func TestRenderTableAligned(t *testing.T) {
	r := testRenderer(t)
	out := r.RenderBlocks([]block.Block{{
		Kind: block.KindTable,
		Table: &block.Table{
			Headers: []string{"Name", "Latency"},
			Rows:    [][]string{{"redis", "sub-ms"}, {"postgres", "ms"}},
		},
	}})
	lines := strings.Split(StripANSI(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d: %q", len(lines), out)
	}
	width := ANSILen(lines[0])
	for i, l := range lines {
		if ANSILen(l) != width {
			t.Errorf("line %d width %d != %d: %q", i, ANSILen(l), width, l)
		}
	}
	if !strings.Contains(lines[0], "Name") || !strings.Contains(lines[2], "redis") {
		t.Errorf("table content: %q", out)
	}
}

func TestRenderFrameOpenCode(t *testing.T) {
	r := testRenderer(t)
	out := r.RenderFrame(stream.Frame{
		Blocks: []block.Block{{Kind: block.KindParagraph, Content: "intro"}},
		Open:   &stream.OpenCode{Lang: "python", Source: "print(1)"},
	})
	if plain := StripANSI(out); !strings.Contains(plain, "print(1)") {
		t.Errorf("open code missing: %q", plain)
	}
	if !strings.Contains(out, "▌") {
		t.Errorf("no in-progress cursor: %q", out)
	}
}

func TestRenderDiagramStatus(t *testing.T) {
	r := testRenderer(t)
	r.DiagramStatus = func(ordinal int) string {
		if ordinal == 0 {
			return "rendering via kroki"
		}
		return ""
	}
	out := r.RenderBlocks([]block.Block{
		{Kind: block.KindDiagram, Source: "flowchart TD\nA -->|1| B"},
		{Kind: block.KindDiagram, Source: "flowchart TD\nC -->|1| D"},
	})
	if !strings.Contains(out, "rendering via kroki") {
		t.Errorf("status missing: %q", out)
	}
	// Second diagram falls back to the generic caption.
	if !strings.Contains(out, "diagram") {
		t.Errorf("generic caption missing: %q", out)
	}
}

func TestStripInline(t *testing.T) {
	in := "a <strong>b</strong> &lt;tag&gt; <code>c</code>"
	if got := StripInline(in); got != "a b <tag> c" {
		t.Errorf("StripInline = %q", got)
	}
}
