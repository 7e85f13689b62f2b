package diagram

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// MmdcBackend renders with a locally installed mermaid CLI. It is the
// offline fallback between the remote tiers.
type MmdcBackend struct {
	Path string
}

// NewMmdc resolves the mermaid CLI binary. An empty path searches PATH
// for mmdc.
func NewMmdc(path string) (*MmdcBackend, error) {
	if path == "" {
		path = "mmdc"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("mmdc: not installed: %w", err)
	}
	return &MmdcBackend{Path: resolved}, nil
}

func (m *MmdcBackend) Name() string { return "mmdc" }

func (m *MmdcBackend) Render(ctx context.Context, source string, opts RenderOptions) (string, error) {
	dir, err := os.MkdirTemp("", "prepterm-mmdc-*")
	if err != nil {
		return "", fmt.Errorf("mmdc: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "diagram.mmd")
	out := filepath.Join(dir, "diagram.svg")
	if err := os.WriteFile(in, []byte(source), 0o600); err != nil {
		return "", fmt.Errorf("mmdc: write source: %w", err)
	}

	args := []string{"-i", in, "-o", out, "-b", "transparent"}
	if opts.Theme != "" {
		args = append(args, "-t", opts.Theme)
	}
	cmd := exec.CommandContext(ctx, m.Path, args...)
	if outb, err := cmd.CombinedOutput(); err != nil {
		msg := string(outb)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return "", fmt.Errorf("mmdc: %w: %s", err, msg)
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		return "", fmt.Errorf("mmdc: read output: %w", err)
	}
	return validateSVG("mmdc", string(svg))
}
