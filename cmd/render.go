package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepterm/prepterm/internal/block"
	"github.com/prepterm/prepterm/internal/doc"
	"github.com/prepterm/prepterm/internal/input"
	"github.com/prepterm/prepterm/internal/sanitize"
	"github.com/prepterm/prepterm/internal/ui"
)

var (
	renderWidth   int
	renderGlamour bool
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a saved answer or markdown file once",
	Long: `Render a file (or stdin) straight to the terminal without the
word-by-word reveal. Answer files written by ask --save keep their
question as a heading; anything else is treated as markdown.

Examples:
  prepterm render 20260824-raft-leader-election.md
  cat notes.md | prepterm render
  prepterm render notes.md --glamour`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().IntVar(&renderWidth, "width", 0, "Wrap width (default: terminal width)")
	renderCmd.Flags().BoolVar(&renderGlamour, "glamour", false, "Render through glamour instead of the block renderer")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	width := renderWidth
	if width <= 0 {
		width = getTerminalWidth()
	}

	var d *doc.Document
	if len(args) == 1 {
		if ad, err := doc.ReadAnswerfile(args[0]); err == nil {
			d = ad
		} else {
			raw, rerr := input.ReadSource(args[0])
			if rerr != nil {
				return rerr
			}
			d = &doc.Document{Answer: raw}
		}
	} else {
		raw, err := input.ReadStdin()
		if err != nil {
			return err
		}
		if strings.TrimSpace(raw) == "" {
			return fmt.Errorf("nothing to render: supply a file or pipe stdin")
		}
		d = &doc.Document{Answer: raw}
	}

	if d.Blocks == nil {
		d.Blocks = block.Segment(sanitize.Clean(d.Answer))
	}

	if renderGlamour {
		out, err := ui.RenderMarkdown(doc.Markdown(d), width)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	styles := ui.NewStyles(os.Stdout)
	renderer := ui.NewRenderer(styles, width)
	if d.Question != "" {
		fmt.Println(styles.Title.Render(d.Question))
		fmt.Println()
	}
	fmt.Print(renderer.RenderBlocks(d.Blocks))
	return nil
}
