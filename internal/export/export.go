// Package export renders assembled answers to standalone HTML. Fenced
// mermaid blocks become inline SVG when a rendered diagram is
// available, with a client-side mermaid fallback otherwise.
package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// SVGLookup resolves the nth mermaid block of a document to rendered
// SVG markup. Returning false falls back to embedding the source.
type SVGLookup func(ordinal int) (string, bool)

// Exporter converts markdown to HTML.
type Exporter struct {
	svgFor SVGLookup
}

func New(svgFor SVGLookup) *Exporter {
	return &Exporter{svgFor: svgFor}
}

// HTML renders the markdown body into a complete HTML page.
func (e *Exporter) HTML(title, markdown string) (string, error) {
	dr := &diagramRenderer{svgFor: e.svgFor}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			renderer.WithNodeRenderers(util.Prioritized(dr, 100)),
		),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(title))
	sb.WriteString("<style>\n" + pageCSS + "</style>\n</head>\n<body>\n<article>\n")
	sb.WriteString(body.String())
	sb.WriteString("</article>\n")
	if dr.needsScript {
		sb.WriteString(mermaidScript)
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

const pageCSS = `body { max-width: 46rem; margin: 2rem auto; padding: 0 1rem;
  font: 16px/1.6 system-ui, sans-serif; color: #1f2328; }
pre { background: #f6f8fa; padding: 1rem; border-radius: 6px; overflow-x: auto; }
code { font-family: ui-monospace, monospace; font-size: 0.9em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #d1d9e0; padding: 0.4rem 0.8rem; }
.diagram { text-align: center; margin: 1.5rem 0; }
.diagram svg { max-width: 100%; height: auto; }
`

const mermaidScript = `<script type="module">
import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs";
mermaid.initialize({ startOnLoad: true });
</script>
`

// diagramRenderer replaces goldmark's fenced-code rendering. Mermaid
// fences become diagram containers; everything else renders as a
// language-tagged code block.
type diagramRenderer struct {
	svgFor      SVGLookup
	ordinal     int
	needsScript bool
}

func (r *diagramRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

func (r *diagramRenderer) renderFencedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	lang := string(n.Language(source))

	if lang == "mermaid" {
		r.renderDiagram(w, source, n)
		return ast.WalkContinue, nil
	}

	if lang != "" {
		fmt.Fprintf(w, "<pre><code class=\"language-%s\">", html.EscapeString(lang))
	} else {
		w.WriteString("<pre><code>")
	}
	writeEscapedLines(w, source, n)
	w.WriteString("</code></pre>\n")
	return ast.WalkContinue, nil
}

func (r *diagramRenderer) renderDiagram(w util.BufWriter, source []byte, n *ast.FencedCodeBlock) {
	ord := r.ordinal
	r.ordinal++

	if r.svgFor != nil {
		if svg, ok := r.svgFor(ord); ok {
			w.WriteString("<div class=\"diagram\">\n")
			w.WriteString(svg)
			w.WriteString("\n</div>\n")
			return
		}
	}

	// No rendered SVG: embed the source for client-side mermaid.
	r.needsScript = true
	w.WriteString("<pre class=\"mermaid\">\n")
	writeEscapedLines(w, source, n)
	w.WriteString("</pre>\n")
}

func writeEscapedLines(w util.BufWriter, source []byte, n *ast.FencedCodeBlock) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		w.WriteString(html.EscapeString(string(seg.Value(source))))
	}
}
