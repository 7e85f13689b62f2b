package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepterm/prepterm/internal/diagram"
	"github.com/prepterm/prepterm/internal/input"
	"github.com/prepterm/prepterm/internal/ui"
)

var (
	diagramOutput      string
	diagramBackends    []string
	diagramShowRepairs bool
)

var diagramCmd = &cobra.Command{
	Use:   "diagram",
	Short: "Repair and render mermaid diagrams",
}

var diagramRepairCmd = &cobra.Command{
	Use:   "repair <file>",
	Short: "Print a repaired mermaid source",
	Long: `Run the syntax repair rules over a mermaid file and print the
result. Fired rules are listed on stderr. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiagramRepair,
}

var diagramRenderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a mermaid file to SVG",
	Long: `Repair a mermaid file and render it through the configured
backend tiers. The SVG goes to --output, or stdout when omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiagramRender,
}

func init() {
	diagramRenderCmd.Flags().StringVarP(&diagramOutput, "output", "o", "", "Write SVG to file instead of stdout")
	diagramRenderCmd.Flags().StringSliceVar(&diagramBackends, "backend", nil, "Backend order (kroki, mmdc, ink)")
	diagramRenderCmd.Flags().BoolVar(&diagramShowRepairs, "show-repairs", false, "List the repair rules that fired")

	diagramCmd.AddCommand(diagramRepairCmd)
	diagramCmd.AddCommand(diagramRenderCmd)
	rootCmd.AddCommand(diagramCmd)
}

func runDiagramRepair(cmd *cobra.Command, args []string) error {
	source, err := input.ReadSource(args[0])
	if err != nil {
		return err
	}

	repaired, report := diagram.Repair(source)
	fmt.Print(repaired)
	if !strings.HasSuffix(repaired, "\n") {
		fmt.Println()
	}

	for _, rule := range report.Fired {
		fmt.Fprintf(os.Stderr, "fired: %s\n", rule)
	}
	if report.Templated {
		fmt.Fprintf(os.Stderr, "substituted template: %s\n", report.Template)
	}
	return nil
}

func runDiagramRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(0, diagramBackends)

	source, err := input.ReadSource(args[0])
	if err != nil {
		return err
	}

	notices := &ui.Notices{}
	coord := newCoordinator(cfg, notices, nil)
	defer coord.Close()

	coord.Submit("cli-d0", source)
	coord.Wait()

	styles := ui.NewStyles(os.Stderr)
	notices.Flush(os.Stderr, styles)

	if diagramShowRepairs {
		if n, ok := coord.Node("cli-d0"); ok {
			for _, rule := range n.Report.Fired {
				fmt.Fprintf(os.Stderr, "fired: %s\n", rule)
			}
			if n.Report.Templated {
				fmt.Fprintf(os.Stderr, "substituted template: %s\n", n.Report.Template)
			}
		}
	}

	svg, err := coord.SVGFor("cli-d0")
	if err != nil {
		n, _ := coord.Node("cli-d0")
		if n.Err != nil {
			return fmt.Errorf("render failed: %w", n.Err)
		}
		return err
	}

	if diagramOutput != "" {
		if err := os.WriteFile(diagramOutput, []byte(svg), 0644); err != nil {
			return fmt.Errorf("write %q: %w", diagramOutput, err)
		}
		n, _ := coord.Node("cli-d0")
		fmt.Fprintln(os.Stderr, styles.FormatResult(true,
			fmt.Sprintf("rendered via %s to %s", n.Backend, diagramOutput)))
		return nil
	}

	fmt.Print(svg)
	return nil
}
