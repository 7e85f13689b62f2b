package diagram

import (
	"context"
	"fmt"
	"strings"
)

// RenderOptions carries presentation hints to a backend. Backends that
// cannot honor an option ignore it.
type RenderOptions struct {
	Theme string
	Scale float64
}

// Backend turns mermaid source into SVG markup. A successful render
// always returns markup whose root element is <svg; anything else is an
// error, never a partial result.
type Backend interface {
	Name() string
	Render(ctx context.Context, source string, opts RenderOptions) (string, error)
}

// validateSVG enforces the backend contract on a raw response. An XML
// prolog before the root element is tolerated.
func validateSVG(backend, body string) (string, error) {
	svg := strings.TrimSpace(body)
	if strings.HasPrefix(svg, "<?xml") {
		if i := strings.Index(svg, "?>"); i >= 0 {
			svg = strings.TrimSpace(svg[i+2:])
		}
	}
	if !strings.HasPrefix(svg, "<svg") {
		snippet := svg
		if len(snippet) > 80 {
			snippet = snippet[:80]
		}
		return "", fmt.Errorf("%s: response is not svg: %q", backend, snippet)
	}
	return svg, nil
}
