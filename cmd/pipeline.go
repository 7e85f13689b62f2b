package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/prepterm/prepterm/internal/config"
	"github.com/prepterm/prepterm/internal/diagram"
	"github.com/prepterm/prepterm/internal/doc"
	"github.com/prepterm/prepterm/internal/ui"
)

// newCoordinator assembles the diagram render tiers from config order.
// Unknown backend names are skipped with a notice rather than aborting
// the whole answer.
func newCoordinator(cfg *config.Config, notices *ui.Notices, onUpdate func(diagram.Node)) *diagram.Coordinator {
	var backends []diagram.Backend
	for _, name := range cfg.Diagram.Backends {
		switch name {
		case "kroki":
			backends = append(backends, diagram.NewKroki(cfg.Diagram.KrokiURL))
		case "mmdc":
			b, err := diagram.NewMmdc(cfg.Diagram.MmdcPath)
			if err != nil {
				// Local CLI missing; the remaining tiers still work.
				continue
			}
			backends = append(backends, b)
		case "ink":
			backends = append(backends, diagram.NewInk(cfg.Diagram.InkURL))
		default:
			notices.Add(fmt.Sprintf("unknown diagram backend %q ignored", name))
		}
	}

	return diagram.NewCoordinator(diagram.Config{
		Delay:            cfg.Diagram.Delay(),
		Options:          diagram.RenderOptions{Theme: cfg.Diagram.Theme},
		NotifyOnTemplate: cfg.Diagram.NotifyOnTemplate,
		OnUpdate:         onUpdate,
		OnNotice:         notices.Add,
	}, backends...)
}

// diagramStatus builds the renderer caption callback for a document's
// diagrams, reading live node state from the coordinator.
func diagramStatus(coord *diagram.Coordinator, d *doc.Document) func(int) string {
	return func(ordinal int) string {
		if ordinal < 0 || ordinal >= len(d.DiagramIDs) {
			return ""
		}
		n, ok := coord.Node(d.DiagramIDs[ordinal])
		if !ok {
			return ""
		}
		switch n.State {
		case diagram.StateRendered:
			return fmt.Sprintf("%s rendered via %s", ui.SuccessIcon, n.Backend)
		case diagram.StateFailed:
			return fmt.Sprintf("%s render failed", ui.FailIcon)
		case diagram.StateRendering:
			return "rendering..."
		default:
			return fmt.Sprintf("%s queued", ui.PendingIcon)
		}
	}
}

func getTerminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
