// Package doc assembles a finished answer into a document: settled
// blocks, diagram handoff, and the copy/share/save actions. Action
// failures surface as notices, never as panics or lost answers.
package doc

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prepterm/prepterm/internal/block"
	"github.com/prepterm/prepterm/internal/clipboard"
	"github.com/prepterm/prepterm/internal/diagram"
)

// Document is one assembled question/answer pair.
type Document struct {
	Question  string
	Answer    string
	Blocks    []block.Block
	CreatedAt time.Time

	// DiagramIDs are the coordinator node ids, in document order.
	DiagramIDs []string
}

// Assembler builds documents and hands diagram blocks off to a
// coordinator. The coordinator may be nil when rendering is disabled.
type Assembler struct {
	coord    *diagram.Coordinator
	onNotice func(string)
	seq      int
}

func NewAssembler(coord *diagram.Coordinator, onNotice func(string)) *Assembler {
	return &Assembler{coord: coord, onNotice: onNotice}
}

// Finalize segments the full answer text and submits every diagram
// block for rendering. Each call mints a fresh id sequence, so every
// finalized answer renders its own diagrams; the coordinator's claim
// registry deduplicates only repeated submits of the same id.
func (a *Assembler) Finalize(question, answer string) *Document {
	d := &Document{
		Question:  question,
		Answer:    answer,
		Blocks:    block.Segment(answer),
		CreatedAt: time.Now(),
	}
	a.seq++
	for i, b := range d.Blocks {
		if b.Kind != block.KindDiagram {
			continue
		}
		id := fmt.Sprintf("a%d-d%d", a.seq, i)
		d.DiagramIDs = append(d.DiagramIDs, id)
		if a.coord != nil {
			a.coord.Submit(id, b.Source)
		}
	}
	return d
}

// FirstCodeBlock returns the first closed code block, the candidate for
// the run/evaluate action. Diagram blocks do not count.
func FirstCodeBlock(d *Document) (block.Block, bool) {
	for _, b := range d.Blocks {
		if b.Kind == block.KindCode {
			return b, true
		}
	}
	return block.Block{}, false
}

// EvaluationTarget returns the text handed to an external evaluator:
// the first closed code block when one exists, otherwise the full
// answer. The language tag is empty in the fallback case.
func EvaluationTarget(d *Document) (source, lang string) {
	if b, ok := FirstCodeBlock(d); ok {
		return b.Source, b.Lang
	}
	return d.Answer, ""
}

// CopyCode puts the evaluation target on the clipboard. Failure is
// reported as a notice and swallowed.
func (a *Assembler) CopyCode(d *Document) {
	source, lang := EvaluationTarget(d)
	if err := clipboard.CopyText(source); err != nil {
		a.notice(fmt.Sprintf("copy failed: %v", err))
		return
	}
	if lang == "" {
		a.notice("answer copied for evaluation")
		return
	}
	a.notice(lang + " code copied for evaluation")
}

// Copy puts the document's markdown on the clipboard. Failure is
// reported as a notice and swallowed.
func (a *Assembler) Copy(d *Document) {
	if err := clipboard.CopyText(Markdown(d)); err != nil {
		a.notice(fmt.Sprintf("copy failed: %v", err))
		return
	}
	a.notice("answer copied")
}

// Share copies a markdown rendition in which each diagram is replaced
// by a mermaid.ink link, so the result is pasteable anywhere.
func (a *Assembler) Share(d *Document) {
	if err := clipboard.CopyText(shareMarkdown(d)); err != nil {
		a.notice(fmt.Sprintf("share failed: %v", err))
		return
	}
	a.notice("shareable answer copied")
}

// Save writes the document as an answer file under dir and returns the
// path. Diagram SVGs are written alongside it from a fresh
// repair+render of each source, never the cached inline vector, so the
// files on disk always match the document.
func (a *Assembler) Save(d *Document, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	path := filepath.Join(dir, answerFilename(d))
	if err := WriteAnswerfile(path, d); err != nil {
		return "", err
	}
	for _, id := range d.DiagramIDs {
		if a.coord == nil {
			break
		}
		svg, err := a.coord.Download(id)
		if err != nil {
			a.notice(fmt.Sprintf("diagram %s not saved: %v", id, err))
			continue
		}
		svgPath := strings.TrimSuffix(path, ".md") + "-" + id + ".svg"
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			a.notice(fmt.Sprintf("diagram %s not saved: %v", id, err))
		}
	}
	return path, nil
}

func (a *Assembler) notice(msg string) {
	if a.onNotice != nil {
		a.onNotice(msg)
	}
}

// answerFilename derives a slugged filename from the question.
func answerFilename(d *Document) string {
	slug := slugify(d.Question)
	if slug == "" {
		slug = "answer"
	}
	return fmt.Sprintf("%s-%s.md", d.CreatedAt.Format("20060102-150405"), slug)
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
		if b.Len() >= 40 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}

// shareMarkdown swaps diagram sources for mermaid.ink links.
func shareMarkdown(d *Document) string {
	var sb strings.Builder
	for i, b := range d.Blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if b.Kind == block.KindDiagram {
			enc := base64.URLEncoding.EncodeToString([]byte(b.Source))
			fmt.Fprintf(&sb, "![diagram](%s/svg/%s)", diagram.DefaultInkURL, enc)
			continue
		}
		sb.WriteString(blockMarkdown(b))
	}
	return sb.String()
}
