package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepterm/prepterm/internal/block"
	"github.com/prepterm/prepterm/internal/doc"
	"github.com/prepterm/prepterm/internal/export"
	"github.com/prepterm/prepterm/internal/history"
	"github.com/prepterm/prepterm/internal/ui"
)

var (
	exportOutput     string
	exportNoDiagrams bool
)

var exportCmd = &cobra.Command{
	Use:   "export <id|file>",
	Short: "Export an answer to standalone HTML",
	Long: `Export a stored answer (by history id) or an answer file to a
self-contained HTML page. Diagrams are rendered to inline SVG; when a
render fails the page falls back to client-side mermaid.

Examples:
  prepterm export 12 -o raft.html
  prepterm export 20260824-raft-leader-election.md`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output path (default: derived from the question)")
	exportCmd.Flags().BoolVar(&exportNoDiagrams, "no-diagrams", false, "Skip diagram rendering, embed source for client-side mermaid")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var d *doc.Document
	if _, err := strconv.ParseInt(args[0], 10, 64); err == nil {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return err
		}
		defer store.Close()
		if d, err = answerByRef(store, args[0]); err != nil {
			return err
		}
	} else if d, err = doc.ReadAnswerfile(args[0]); err != nil {
		return err
	}

	notices := &ui.Notices{}
	lookup := export.SVGLookup(nil)
	if !exportNoDiagrams {
		coord := newCoordinator(cfg, notices, nil)
		defer coord.Close()

		var ids []string
		for i, b := range d.Blocks {
			if b.Kind != block.KindDiagram {
				continue
			}
			id := fmt.Sprintf("x-d%d", i)
			ids = append(ids, id)
			coord.Submit(id, b.Source)
		}
		coord.Wait()

		lookup = func(ordinal int) (string, bool) {
			if ordinal < 0 || ordinal >= len(ids) {
				return "", false
			}
			svg, err := coord.SVGFor(ids[ordinal])
			return svg, err == nil
		}
	}

	title := d.Question
	if title == "" {
		title = strings.TrimSuffix(args[0], ".md")
	}
	page, err := export.New(lookup).HTML(title, doc.Markdown(d))
	if err != nil {
		return err
	}

	out := exportOutput
	if out == "" {
		out = exportFilename(cfg.Export.Dir, title)
	}
	if err := os.WriteFile(out, []byte(page), 0644); err != nil {
		return fmt.Errorf("write %q: %w", out, err)
	}

	styles := ui.NewStyles(os.Stderr)
	notices.Flush(os.Stderr, styles)
	fmt.Fprintln(os.Stderr, styles.FormatResult(true, "exported "+out))
	return nil
}

func exportFilename(dir, title string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, title)
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	if slug == "" {
		slug = "answer"
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, slug+".html")
}
