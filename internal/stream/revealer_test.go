package stream

import (
	"reflect"
	"strings"
	"testing"

	"github.com/prepterm/prepterm/internal/block"
)

// stepAll drives a revealer to settlement, returning every frame seen.
func stepAll(t *testing.T, r *Revealer) []Frame {
	t.Helper()
	var frames []Frame
	for i := 0; i < 100000; i++ {
		f := r.Step()
		frames = append(frames, f)
		if f.Done {
			return frames
		}
	}
	t.Fatal("revealer never settled")
	return nil
}

// Streaming convergence: settling after token-by-token reveal yields
// exactly the blocks a direct segmentation of the same text produces.
func TestConvergence(t *testing.T) {
	inputs := []string{
		"plain paragraph of text.",
		"# Head\n\nbody text here.\n\n- a\n- b",
		"**Bold** then `code` then a list:\n- a\n- b",
		"before.\n\n```go\nfmt.Println(1)\n```\n\nafter.",
		"| A | B |\n|---|---|\n| 1 | 2 |\n| 3 | 4 |",
		"```mermaid\ngraph TD\nA --> B\n```",
	}
	for _, in := range inputs {
		r := New(in)
		frames := stepAll(t, r)
		final := frames[len(frames)-1]

		want := block.Segment(in)
		if !reflect.DeepEqual(final.Blocks, want) {
			t.Errorf("convergence failed for %q\ngot:  %+v\nwant: %+v", in, final.Blocks, want)
		}
		if r.Phase() != PhaseSettled {
			t.Errorf("phase = %v, want settled", r.Phase())
		}
	}
}

// Fence parity: an odd number of fences means the last code block is
// open and must never be emitted as a closed block.
func TestFenceParity(t *testing.T) {
	r := NewLive()
	r.Append("intro.\n\n```go\npartial code line")

	var sawOpen bool
	for i := 0; i < 1000; i++ {
		f := r.Step()
		if r.Revealed() == "intro.\n\n```go\npartial code line" {
			if f.Open == nil {
				t.Fatal("expected open code block at full reveal of unterminated fence")
			}
			sawOpen = true
			break
		}
		for _, b := range f.Blocks {
			if b.Kind == block.KindCode {
				t.Fatalf("closed code block emitted while fence unterminated: %+v", b)
			}
		}
	}
	if !sawOpen {
		t.Fatal("never reached full reveal")
	}
	if got := r.Step(); got.Done {
		t.Fatal("revealer settled while input unfinished")
	}
}

func TestOpenCodeCarriesLang(t *testing.T) {
	r := New("```python\nprint(1)")
	var lastOpen *OpenCode
	for {
		fr := r.Step()
		if fr.Done {
			break
		}
		if fr.Open != nil {
			lastOpen = fr.Open
		}
	}
	if lastOpen == nil || lastOpen.Lang != "python" {
		t.Fatalf("open code = %+v, want python lang", lastOpen)
	}
}

// No intermediate frame may leak raw ** or a stray backtick as literal
// paragraph text.
func TestNoInlineMarkerLeak(t *testing.T) {
	in := "**Bold** then `code` then a list:\n- a\n- b"
	r := New(in)
	for {
		f := r.Step()
		for _, b := range f.Blocks {
			if b.Kind != block.KindParagraph {
				continue
			}
			plain := strings.ReplaceAll(b.Content, "<code>", "")
			plain = strings.ReplaceAll(plain, "</code>", "")
			if strings.Contains(plain, "**") {
				t.Fatalf("raw ** leaked: %q", b.Content)
			}
			if strings.Contains(plain, "`") {
				t.Fatalf("stray backtick leaked: %q", b.Content)
			}
		}
		if f.Done {
			break
		}
	}

	// Final state: paragraph with strong + code, then a two-item list.
	final := block.Segment(in)
	if len(final) != 2 {
		t.Fatalf("final blocks = %+v", final)
	}
	if !strings.Contains(final[0].Content, "<strong>Bold</strong>") ||
		!strings.Contains(final[0].Content, "<code>code</code>") {
		t.Errorf("final paragraph = %q", final[0].Content)
	}
	if final[1].Kind != block.KindBulletList || len(final[1].Items) != 2 {
		t.Errorf("final list = %+v", final[1])
	}
}

// Partial table: rows appear as they arrive and already-shown rows
// never reset.
func TestPartialTableGrowth(t *testing.T) {
	r := NewLive()
	r.Append("| A | B |\n|---|---|\n| 1 | 2 |")

	rowsAt := func() int {
		f := r.Step()
		for _, b := range f.Blocks {
			if b.Kind == block.KindTable {
				return len(b.Table.Rows)
			}
		}
		return -1
	}

	// Drain the first chunk.
	var rows int
	for i := 0; i < 1000; i++ {
		rows = rowsAt()
		if r.Revealed() == "| A | B |\n|---|---|\n| 1 | 2 |" {
			break
		}
	}
	if rows != 1 {
		t.Fatalf("rows after first chunk = %d, want 1", rows)
	}

	r.Append("\n| 3 | 4 |")
	r.Finish()
	prevRows := 1
	for i := 0; i < 1000; i++ {
		f := r.Step()
		for _, b := range f.Blocks {
			if b.Kind == block.KindTable {
				if len(b.Table.Rows) < prevRows {
					t.Fatalf("table rows reset: %d -> %d", prevRows, len(b.Table.Rows))
				}
				prevRows = len(b.Table.Rows)
			}
		}
		if f.Done {
			break
		}
	}
	if prevRows != 2 {
		t.Fatalf("rows after second chunk = %d, want 2", prevRows)
	}
}

// Replace supersedes the old target: the reveal restarts from empty and
// the generation changes.
func TestReplaceSupersedes(t *testing.T) {
	r := New("first answer text that is fairly long.")
	r.Step()
	r.Step()
	gen := r.Generation()

	r.Replace("second answer.")
	if r.Generation() == gen {
		t.Fatal("generation unchanged after Replace")
	}
	if r.Revealed() != "" {
		t.Fatalf("revealed = %q, want empty after Replace", r.Revealed())
	}

	frames := stepAll(t, r)
	final := frames[len(frames)-1]
	want := block.Segment("second answer.")
	if !reflect.DeepEqual(final.Blocks, want) {
		t.Errorf("settled = %+v, want %+v", final.Blocks, want)
	}
}

// Settle skips revealing entirely for history replay.
func TestSettleDirect(t *testing.T) {
	in := "# Title\n\nbody."
	r := New(in)
	got := r.Settle()
	if !reflect.DeepEqual(got, block.Segment(in)) {
		t.Errorf("Settle() = %+v", got)
	}
	if r.Phase() != PhaseSettled {
		t.Error("not settled")
	}
	// Settling twice returns the same blocks.
	again := r.Settle()
	if !reflect.DeepEqual(got, again) {
		t.Error("second Settle differs")
	}
}
