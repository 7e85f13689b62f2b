package doc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prepterm/prepterm/internal/block"
	"github.com/prepterm/prepterm/internal/diagram"
)

type fakeBackend struct{ svg string }

func (f fakeBackend) Name() string { return "fake" }
func (f fakeBackend) Render(context.Context, string, diagram.RenderOptions) (string, error) {
	return f.svg, nil
}

func newCoord(t *testing.T) *diagram.Coordinator {
	t.Helper()
	c := diagram.NewCoordinator(diagram.Config{Delay: time.Millisecond}, fakeBackend{svg: "<svg>d</svg>"})
	t.Cleanup(c.Close)
	return c
}

const answerWithDiagram = "## Design\n\nUse a queue for **decoupling**.\n\n```mermaid\nflowchart TD\nA -->|1| B\n```\n\n```go\nfmt.Println(\"hi\")\n```"

func TestFinalizeSubmitsDiagrams(t *testing.T) {
	coord := newCoord(t)
	a := NewAssembler(coord, nil)

	d := a.Finalize("How to decouple services?", answerWithDiagram)
	if len(d.DiagramIDs) != 1 {
		t.Fatalf("diagram ids = %v", d.DiagramIDs)
	}
	coord.Wait()

	n, ok := coord.Node(d.DiagramIDs[0])
	if !ok || n.State != diagram.StateRendered {
		t.Fatalf("node = %+v", n)
	}
}

func TestFinalizeIDsAreUniqueAcrossAnswers(t *testing.T) {
	coord := newCoord(t)
	a := NewAssembler(coord, nil)

	d1 := a.Finalize("q1", "```mermaid\nflowchart TD\nA -->|1| B\n```")
	d2 := a.Finalize("q2", "```mermaid\nflowchart TD\nA -->|1| B\n```")
	if d1.DiagramIDs[0] == d2.DiagramIDs[0] {
		t.Errorf("colliding diagram ids: %v %v", d1.DiagramIDs, d2.DiagramIDs)
	}
}

func TestFirstCodeBlockSkipsDiagrams(t *testing.T) {
	a := NewAssembler(nil, nil)
	d := a.Finalize("q", answerWithDiagram)

	cb, ok := FirstCodeBlock(d)
	if !ok || cb.Lang != "go" {
		t.Fatalf("first code block = %+v", cb)
	}

	d = a.Finalize("q", "just prose, no code.")
	if _, ok := FirstCodeBlock(d); ok {
		t.Error("found code block in prose-only answer")
	}
}

func TestEvaluationTarget(t *testing.T) {
	a := NewAssembler(nil, nil)

	d := a.Finalize("q", answerWithDiagram)
	source, lang := EvaluationTarget(d)
	if lang != "go" || !strings.Contains(source, "fmt.Println") {
		t.Errorf("target = %q, %q", source, lang)
	}

	d = a.Finalize("q", "just prose, no code.")
	source, lang = EvaluationTarget(d)
	if lang != "" || source != d.Answer {
		t.Errorf("prose fallback = %q, %q", source, lang)
	}
}

func TestMarkdownRendition(t *testing.T) {
	a := NewAssembler(nil, nil)
	d := a.Finalize("q", answerWithDiagram)

	md := Markdown(d)
	for _, want := range []string{
		"## Design",
		"**decoupling**",
		"```mermaid\nflowchart TD\nA -->|1| B\n```",
		"```go\nfmt.Println(\"hi\")\n```",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "<strong>") || strings.Contains(md, "<code>") {
		t.Errorf("inline tags leaked into markdown:\n%s", md)
	}
}

func TestMarkdownTable(t *testing.T) {
	a := NewAssembler(nil, nil)
	d := a.Finalize("q", "| Name | Cost |\n|---|---|\n| redis | low |")

	md := Markdown(d)
	if !strings.Contains(md, "| Name | Cost |") || !strings.Contains(md, "| redis | low |") {
		t.Errorf("table markdown = %q", md)
	}
	// The rendition must segment back into a table.
	again := block.Segment(md)
	if len(again) != 1 || again[0].Kind != block.KindTable {
		t.Errorf("re-segmented = %+v", again)
	}
}

func TestShareMarkdownLinksDiagrams(t *testing.T) {
	a := NewAssembler(nil, nil)
	d := a.Finalize("q", answerWithDiagram)

	md := shareMarkdown(d)
	if !strings.Contains(md, diagram.DefaultInkURL+"/svg/") {
		t.Errorf("no ink link in share rendition:\n%s", md)
	}
	if strings.Contains(md, "```mermaid") {
		t.Errorf("raw diagram source leaked into share rendition:\n%s", md)
	}
}

func TestAnswerfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(nil, nil)
	d := a.Finalize("What is backpressure?", "Backpressure slows **producers** down.")
	path := filepath.Join(dir, "answer.md")

	if err := WriteAnswerfile(path, d); err != nil {
		t.Fatal(err)
	}
	got, err := ReadAnswerfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Question != d.Question {
		t.Errorf("question = %q", got.Question)
	}
	if len(got.Blocks) != 1 || !strings.Contains(got.Blocks[0].Content, "<strong>producers</strong>") {
		t.Errorf("blocks = %+v", got.Blocks)
	}
}

func TestReadAnswerfileRejectsMissingFrontMatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.md")
	if err := os.WriteFile(path, []byte("no front matter here"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadAnswerfile(path); err == nil {
		t.Error("accepted file without front matter")
	}
}

func TestSaveWritesAnswerAndDiagrams(t *testing.T) {
	coord := newCoord(t)
	var notices []string
	a := NewAssembler(coord, func(m string) { notices = append(notices, m) })

	d := a.Finalize("Queue design?", answerWithDiagram)
	coord.Wait()

	dir := t.TempDir()
	path, err := a.Save(d, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, ".md") || !strings.Contains(filepath.Base(path), "queue-design") {
		t.Errorf("path = %q", path)
	}
	svgs, _ := filepath.Glob(filepath.Join(dir, "*.svg"))
	if len(svgs) != 1 {
		t.Errorf("svg files = %v", svgs)
	}
	if len(notices) != 0 {
		t.Errorf("unexpected notices: %v", notices)
	}
}
