package doc

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prepterm/prepterm/internal/block"
)

// frontMatter is the YAML header of a saved answer file.
type frontMatter struct {
	Question  string    `yaml:"question"`
	CreatedAt time.Time `yaml:"created_at"`
	Diagrams  int       `yaml:"diagrams,omitempty"`
}

const frontMatterFence = "---"

// WriteAnswerfile saves the document as markdown with a YAML front
// matter header.
func WriteAnswerfile(path string, d *Document) error {
	fm := frontMatter{
		Question:  d.Question,
		CreatedAt: d.CreatedAt,
		Diagrams:  len(d.DiagramIDs),
	}
	head, err := yaml.Marshal(&fm)
	if err != nil {
		return fmt.Errorf("answerfile: marshal front matter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(frontMatterFence + "\n")
	sb.Write(head)
	sb.WriteString(frontMatterFence + "\n\n")
	sb.WriteString(Markdown(d))
	sb.WriteString("\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("answerfile: %w", err)
	}
	return nil
}

// ReadAnswerfile loads a saved answer. The body is re-segmented, so a
// loaded document renders identically to a freshly assembled one.
func ReadAnswerfile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("answerfile: %w", err)
	}
	head, body, err := splitFrontMatter(string(raw))
	if err != nil {
		return nil, fmt.Errorf("answerfile %s: %w", path, err)
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(head), &fm); err != nil {
		return nil, fmt.Errorf("answerfile %s: front matter: %w", path, err)
	}
	return &Document{
		Question:  fm.Question,
		Answer:    body,
		Blocks:    block.Segment(body),
		CreatedAt: fm.CreatedAt,
	}, nil
}

func splitFrontMatter(raw string) (head, body string, err error) {
	if !strings.HasPrefix(raw, frontMatterFence+"\n") {
		return "", "", fmt.Errorf("missing front matter")
	}
	rest := raw[len(frontMatterFence)+1:]
	idx := strings.Index(rest, "\n"+frontMatterFence+"\n")
	if idx < 0 {
		return "", "", fmt.Errorf("unterminated front matter")
	}
	head = rest[:idx+1]
	body = strings.TrimLeft(rest[idx+len(frontMatterFence)+2:], "\n")
	return head, strings.TrimRight(body, "\n"), nil
}
