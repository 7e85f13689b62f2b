package diagram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubBackend records every source it is asked to render.
type stubBackend struct {
	mu     sync.Mutex
	name   string
	svg    string
	err    error
	calls  []string
	scales []float64
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Render(_ context.Context, source string, opts RenderOptions) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, source)
	s.scales = append(s.scales, opts.Scale)
	svg, err := s.svg, s.err
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return svg, nil
}

func (s *stubBackend) lastScale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scales) == 0 {
		return 0
	}
	return s.scales[len(s.scales)-1]
}

func (s *stubBackend) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubBackend) lastCall() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return ""
	}
	return s.calls[len(s.calls)-1]
}

func newTestCoordinator(t *testing.T, cfg Config, backends ...Backend) *Coordinator {
	t.Helper()
	if cfg.Delay == 0 {
		cfg.Delay = time.Millisecond
	}
	c := NewCoordinator(cfg, backends...)
	t.Cleanup(c.Close)
	return c
}

func TestCoordinatorRendersThroughPrimary(t *testing.T) {
	primary := &stubBackend{name: "primary", svg: "<svg>ok</svg>"}
	c := newTestCoordinator(t, Config{}, primary)

	if !c.Submit("d1", "flowchart TD\nA -->|1| B") {
		t.Fatal("submit rejected")
	}
	c.Wait()

	n, ok := c.Node("d1")
	if !ok || n.State != StateRendered {
		t.Fatalf("node = %+v", n)
	}
	if n.Backend != "primary" || n.SVG != "<svg>ok</svg>" {
		t.Errorf("node = %+v", n)
	}
	if n.Writes != 1 {
		t.Errorf("writes = %d, want 1", n.Writes)
	}
}

// The repaired source, not the raw source, is what reaches the backend.
func TestCoordinatorSubmitsRepairedSource(t *testing.T) {
	primary := &stubBackend{name: "primary", svg: "<svg/>"}
	c := newTestCoordinator(t, Config{}, primary)

	c.Submit("d1", "flowchart TD\nA <--> B")
	c.Wait()

	got := primary.lastCall()
	if !strings.Contains(got, "A -->|1| B") || !strings.Contains(got, "B -->|2| A") {
		t.Errorf("backend received unrepaired source: %q", got)
	}
	if strings.Contains(got, "<-->") {
		t.Errorf("bidirectional edge reached the backend: %q", got)
	}
}

// Tiered fallback: when the primary fails, the secondary serves the
// render and the tertiary is never contacted.
func TestCoordinatorTieredFallback(t *testing.T) {
	primary := &stubBackend{name: "primary", err: errors.New("unreachable")}
	secondary := &stubBackend{name: "secondary", svg: "<svg>2</svg>"}
	tertiary := &stubBackend{name: "tertiary", svg: "<svg>3</svg>"}
	c := newTestCoordinator(t, Config{}, primary, secondary, tertiary)

	c.Submit("d1", "flowchart TD\nA -->|1| B")
	c.Wait()

	n, _ := c.Node("d1")
	if n.State != StateRendered || n.Backend != "secondary" {
		t.Fatalf("node = %+v", n)
	}
	if primary.callCount() != 1 || secondary.callCount() != 1 {
		t.Errorf("calls: primary=%d secondary=%d", primary.callCount(), secondary.callCount())
	}
	if tertiary.callCount() != 0 {
		t.Errorf("tertiary contacted %d times after secondary success", tertiary.callCount())
	}
}

func TestCoordinatorAllTiersFail(t *testing.T) {
	primary := &stubBackend{name: "primary", err: errors.New("down")}
	secondary := &stubBackend{name: "secondary", err: errors.New("also down")}
	c := newTestCoordinator(t, Config{}, primary, secondary)

	c.Submit("d1", "flowchart TD\nA -->|1| B")
	c.Wait()

	n, _ := c.Node("d1")
	if n.State != StateFailed || n.Err == nil {
		t.Fatalf("node = %+v", n)
	}
	if _, err := c.SVGFor("d1"); err == nil {
		t.Error("SVGFor succeeded for a failed node")
	}
}

// Claim exclusivity: a node id is claimed once; repeat submissions are
// rejected and cause no second write.
func TestCoordinatorClaimExclusivity(t *testing.T) {
	primary := &stubBackend{name: "primary", svg: "<svg/>"}
	c := newTestCoordinator(t, Config{}, primary)

	if !c.Submit("d1", "flowchart TD\nA -->|1| B") {
		t.Fatal("first submit rejected")
	}
	if c.Submit("d1", "flowchart TD\nA -->|1| C") {
		t.Fatal("second submit accepted for claimed id")
	}
	c.Wait()

	n, _ := c.Node("d1")
	if n.Writes != 1 {
		t.Errorf("writes = %d, want 1", n.Writes)
	}
	if primary.callCount() != 1 {
		t.Errorf("backend called %d times", primary.callCount())
	}
	// The surviving source is the first claim's.
	if !strings.Contains(n.Source, "B") {
		t.Errorf("source = %q", n.Source)
	}
}

// Nodes are processed strictly in submission order.
func TestCoordinatorSequentialOrder(t *testing.T) {
	primary := &stubBackend{name: "primary", svg: "<svg/>"}
	c := newTestCoordinator(t, Config{}, primary)

	c.Submit("d1", "flowchart TD\nA -->|first| B")
	c.Submit("d2", "flowchart TD\nA -->|second| B")
	c.Submit("d3", "flowchart TD\nA -->|third| B")
	c.Wait()

	primary.mu.Lock()
	defer primary.mu.Unlock()
	if len(primary.calls) != 3 {
		t.Fatalf("calls = %d", len(primary.calls))
	}
	for i, want := range []string{"first", "second", "third"} {
		if !strings.Contains(primary.calls[i], want) {
			t.Errorf("call %d = %q, want %s", i, primary.calls[i], want)
		}
	}
}

func TestCoordinatorRetry(t *testing.T) {
	primary := &stubBackend{name: "primary", err: errors.New("down")}
	c := newTestCoordinator(t, Config{}, primary)

	c.Submit("d1", "flowchart TD\nA -->|1| B")
	c.Wait()
	if n, _ := c.Node("d1"); n.State != StateFailed {
		t.Fatalf("node = %+v", n)
	}

	// Backend recovers.
	primary.mu.Lock()
	primary.err = nil
	primary.svg = "<svg>late</svg>"
	primary.mu.Unlock()

	if !c.Retry("d1") {
		t.Fatal("retry rejected")
	}
	c.Wait()

	n, _ := c.Node("d1")
	if n.State != StateRendered || n.SVG != "<svg>late</svg>" {
		t.Errorf("node after retry = %+v", n)
	}
	if n.Writes != 2 {
		t.Errorf("writes = %d, want 2", n.Writes)
	}

	// Retrying a rendered node is a no-op.
	if c.Retry("d1") {
		t.Error("retry accepted for rendered node")
	}
}

func TestCoordinatorTemplateNotice(t *testing.T) {
	var mu sync.Mutex
	var notices []string
	primary := &stubBackend{name: "primary", svg: "<svg/>"}
	c := newTestCoordinator(t, Config{
		NotifyOnTemplate: true,
		OnNotice: func(msg string) {
			mu.Lock()
			notices = append(notices, msg)
			mu.Unlock()
		},
	}, primary)

	c.Submit("d1", "A --> --> B\nB <--> C\nC -->\nsubgraph core")
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(notices) != 1 || !strings.Contains(notices[0], "template") {
		t.Errorf("notices = %v", notices)
	}

	n, _ := c.Node("d1")
	if !n.Report.Templated {
		t.Errorf("report = %+v", n.Report)
	}
	if got := primary.lastCall(); !strings.HasPrefix(got, "flowchart") {
		t.Errorf("backend did not receive a template: %q", got)
	}
}

func TestCoordinatorNoticeSuppressed(t *testing.T) {
	called := false
	primary := &stubBackend{name: "primary", svg: "<svg/>"}
	c := newTestCoordinator(t, Config{
		NotifyOnTemplate: false,
		OnNotice:         func(string) { called = true },
	}, primary)

	c.Submit("d1", "A --> --> B\nB <--> C\nC -->\nsubgraph core")
	c.Wait()

	if called {
		t.Error("notice fired with NotifyOnTemplate disabled")
	}
}

func TestViewStateScaleComposition(t *testing.T) {
	primary := &stubBackend{name: "primary", svg: "<svg/>"}
	c := newTestCoordinator(t, Config{}, primary)
	c.Submit("d1", "flowchart TD\nA -->|1| B")
	c.Wait()

	c.SetBaseScale("d1", 0.5)
	c.Zoom("d1", 2) // 1 + 2*0.25 = 1.5
	n, _ := c.Node("d1")
	if got := n.View.Scale(); got != 0.75 {
		t.Errorf("scale = %v, want 0.75", got)
	}

	// Zooming far out clamps at the floor.
	c.Zoom("d1", -100)
	n, _ = c.Node("d1")
	if n.View.UserZoom != MinZoom {
		t.Errorf("zoom = %v, want %v", n.View.UserZoom, MinZoom)
	}
	if n.View.Scale() != clamp(0.5*MinZoom, MinScale, MaxScale) {
		t.Errorf("scale = %v", n.View.Scale())
	}

	c.ResetZoom("d1")
	n, _ = c.Node("d1")
	if n.View.UserZoom != 1 || n.View.PanX != 0 {
		t.Errorf("view after reset = %+v", n.View)
	}
}

func TestOverlayLifecycle(t *testing.T) {
	primary := &stubBackend{name: "primary", svg: "<svg/>"}
	c := newTestCoordinator(t, Config{}, primary)
	c.Submit("d1", "flowchart TD\nA -->|1| B")
	c.Wait()

	c.Expand("d1")
	c.Wait()
	c.Pan("d1", 10, -5)
	n, _ := c.Node("d1")
	if !n.View.Expanded || n.View.PanX != 10 || n.View.PanY != -5 {
		t.Fatalf("view = %+v", n.View)
	}

	c.CloseOverlay("d1")
	c.Wait()
	n, _ = c.Node("d1")
	if n.View.Expanded || n.View.PanX != 0 || n.View.PanY != 0 {
		t.Errorf("view after close = %+v", n.View)
	}
}

// Expanding re-requests the render at the overlay target scale; the
// overlay never shows the inline vector.
func TestExpandRerenders(t *testing.T) {
	primary := &stubBackend{name: "primary", svg: "<svg>big</svg>"}
	c := newTestCoordinator(t, Config{}, primary)
	c.Submit("d1", "flowchart TD\nA -->|1| B")
	c.Wait()

	c.Expand("d1")
	c.Wait()

	n, _ := c.Node("d1")
	if !n.View.Expanded || n.State != StateRendered {
		t.Fatalf("node = %+v", n)
	}
	if n.Writes != 2 {
		t.Errorf("writes = %d, want 2", n.Writes)
	}
	if got := primary.lastScale(); got != OverlayScale {
		t.Errorf("overlay render scale = %v, want %v", got, OverlayScale)
	}
}

// Closing an overlay triggers one re-render pass of the rendered
// inline nodes at their own composed scales.
func TestCloseOverlayRerendersInline(t *testing.T) {
	primary := &stubBackend{name: "primary", svg: "<svg/>"}
	c := newTestCoordinator(t, Config{}, primary)
	c.Submit("d1", "flowchart TD\nA -->|1| B")
	c.Submit("d2", "flowchart TD\nC -->|1| D")
	c.Wait()

	c.Expand("d1")
	c.Wait()
	c.CloseOverlay("d1")
	c.Wait()

	for _, id := range []string{"d1", "d2"} {
		n, _ := c.Node(id)
		if n.State != StateRendered {
			t.Fatalf("node %s = %+v", id, n)
		}
	}
	// d1: submit, overlay, post-close. d2: submit, post-close.
	n1, _ := c.Node("d1")
	n2, _ := c.Node("d2")
	if n1.Writes != 3 || n2.Writes != 2 {
		t.Errorf("writes d1=%d d2=%d, want 3 and 2", n1.Writes, n2.Writes)
	}
}

// Download always renders afresh from the current source; the cached
// inline result is neither returned nor touched.
func TestDownloadFresh(t *testing.T) {
	primary := &stubBackend{name: "primary", svg: "<svg>v1</svg>"}
	c := newTestCoordinator(t, Config{}, primary)
	c.Submit("d1", "flowchart TD\nA -->|1| B")
	c.Wait()

	primary.mu.Lock()
	primary.svg = "<svg>v2</svg>"
	primary.mu.Unlock()

	got, err := c.Download("d1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "<svg>v2</svg>" {
		t.Errorf("download = %q, want the fresh render", got)
	}

	n, _ := c.Node("d1")
	if n.SVG != "<svg>v1</svg>" || n.Writes != 1 {
		t.Errorf("cached node changed: %+v", n)
	}

	if _, err := c.Download("missing"); err == nil {
		t.Error("download succeeded for unknown id")
	}
}

func TestCleanSVG(t *testing.T) {
	in := `<svg aria-roledescription="flowchart-v2" aria-label="diagram" width="10"><g aria-describedby="x"></g></svg>`
	got := CleanSVG(in)
	if strings.Contains(got, "aria-") {
		t.Errorf("aria attributes survived: %q", got)
	}
	if !strings.Contains(got, `width="10"`) {
		t.Errorf("unrelated attribute removed: %q", got)
	}
	if CleanSVG(got) != got {
		t.Error("CleanSVG not idempotent")
	}
}

func TestIntrinsicWidth(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want float64
		ok   bool
	}{
		{"width attribute", `<svg width="640" height="480"></svg>`, 640, true},
		{"px suffix", `<svg width="320.5px"></svg>`, 320.5, true},
		{"viewBox fallback", `<svg viewBox="0 0 912 400"></svg>`, 912, true},
		{"percent width falls back to viewBox", `<svg width="100%" viewBox="0 0 500 200"></svg>`, 500, true},
		{"xml prolog skipped", "<?xml version=\"1.0\"?>\n<svg width=\"128\"></svg>", 128, true},
		{"no dimensions", `<svg></svg>`, 0, false},
		{"not svg", `<html></html>`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IntrinsicWidth(tt.svg)
			if got != tt.want || ok != tt.ok {
				t.Errorf("IntrinsicWidth = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestValidateSVG(t *testing.T) {
	if _, err := validateSVG("x", "<?xml version=\"1.0\"?>\n<svg/>"); err != nil {
		t.Errorf("xml prolog rejected: %v", err)
	}
	if _, err := validateSVG("x", "<html>error page</html>"); err == nil {
		t.Error("non-svg accepted")
	}
}
