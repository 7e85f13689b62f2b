package diagram

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// RenderState tracks a node through the pipeline.
type RenderState int

const (
	StatePending RenderState = iota
	StateRendering
	StateRendered
	StateFailed
)

func (s RenderState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRendering:
		return "rendering"
	case StateRendered:
		return "rendered"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Zoom and composed-scale bounds. BaseScale fits the diagram to the
// viewport; UserZoom is the interactive factor on top of it.
const (
	MinZoom  = 0.25
	MaxZoom  = 4.0
	MinScale = 0.1
	MaxScale = 8.0
	ZoomStep = 0.25
)

// ViewState is the presentation state of one rendered diagram.
type ViewState struct {
	BaseScale float64
	UserZoom  float64
	PanX      float64
	PanY      float64
	Expanded  bool
}

// Scale is the effective composed scale, clamped.
func (v ViewState) Scale() float64 {
	return clamp(v.BaseScale*v.UserZoom, MinScale, MaxScale)
}

// OverlayScale is the factor applied to the composed view scale when a
// node is rendered for its full-viewport overlay.
const OverlayScale = 2.0

// Node is one diagram block owned by the coordinator.
type Node struct {
	ID       string
	Source   string
	Repaired string
	Report   Report
	State    RenderState
	SVG      string
	Backend  string
	Err      error
	View     ViewState
	Writes   int

	// RenderScale overrides the configured render scale for the next
	// processing attempt. Zero means the configured default.
	RenderScale float64
}

// Config tunes the coordinator.
type Config struct {
	Delay            time.Duration // pause between consecutive nodes
	Options          RenderOptions
	NotifyOnTemplate bool
	OnUpdate         func(Node)
	OnNotice         func(string)
}

// DefaultDelay spaces out remote render calls so a burst of diagrams in
// one answer does not hammer the backend.
const DefaultDelay = 150 * time.Millisecond

// Coordinator owns diagram rendering for a document. Each node id is
// claimed exactly once; claimed nodes are processed strictly in
// submission order by a single worker, with a delay between nodes, and
// each processing attempt writes the node's result exactly once.
// Rendering tries each backend in order and takes the first success.
type Coordinator struct {
	mu       sync.Mutex
	cfg      Config
	backends []Backend
	nodes    map[string]*Node
	claims   map[string]bool
	queue    chan string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	idle   chan struct{} // signaled each time the queue drains
}

// NewCoordinator starts the worker. Callers must Close it.
func NewCoordinator(cfg Config, backends ...Backend) *Coordinator {
	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:      cfg,
		backends: backends,
		nodes:    make(map[string]*Node),
		claims:   make(map[string]bool),
		queue:    make(chan string, 64),
		ctx:      ctx,
		cancel:   cancel,
		idle:     make(chan struct{}, 1),
	}
	c.wg.Add(1)
	go c.worker()
	return c
}

// Submit claims a node and enqueues it. A second submit for the same id
// is rejected: the claim registry guarantees at most one render writes
// each node.
func (c *Coordinator) Submit(id, source string) bool {
	c.mu.Lock()
	if c.claims[id] {
		c.mu.Unlock()
		return false
	}
	c.claims[id] = true
	c.nodes[id] = &Node{
		ID:     id,
		Source: source,
		State:  StatePending,
		View:   ViewState{BaseScale: 1, UserZoom: 1},
	}
	c.mu.Unlock()

	select {
	case c.queue <- id:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// Retry re-enqueues a failed node. The claim stays held; only the
// render result is replaced.
func (c *Coordinator) Retry(id string) bool {
	return c.requeue(id, 0, StateFailed)
}

// requeue re-enters a settled node at the front of the pipeline with a
// target render scale (zero keeps the configured default). Pending and
// in-flight nodes are left alone.
func (c *Coordinator) requeue(id string, scale float64, from ...RenderState) bool {
	c.mu.Lock()
	n, ok := c.nodes[id]
	if !ok || !stateIn(n.State, from) {
		c.mu.Unlock()
		return false
	}
	n.State = StatePending
	n.Err = nil
	n.RenderScale = scale
	c.mu.Unlock()

	select {
	case c.queue <- id:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func stateIn(s RenderState, states []RenderState) bool {
	for _, want := range states {
		if s == want {
			return true
		}
	}
	return false
}

// Node returns a snapshot of the node's current state.
func (c *Coordinator) Node(id string) (Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Wait blocks until every submitted node has been processed.
func (c *Coordinator) Wait() {
	for {
		c.mu.Lock()
		pending := false
		for _, n := range c.nodes {
			if n.State == StatePending || n.State == StateRendering {
				pending = true
				break
			}
		}
		c.mu.Unlock()
		if !pending {
			return
		}
		select {
		case <-c.idle:
		case <-c.ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Close stops the worker. In-flight renders are canceled.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Coordinator) worker() {
	defer c.wg.Done()
	first := true
	for {
		select {
		case <-c.ctx.Done():
			return
		case id := <-c.queue:
			if !first {
				select {
				case <-time.After(c.cfg.Delay):
				case <-c.ctx.Done():
					return
				}
			}
			first = false
			c.process(id)
			select {
			case c.idle <- struct{}{}:
			default:
			}
		}
	}
}

func (c *Coordinator) process(id string) {
	c.mu.Lock()
	n, ok := c.nodes[id]
	if !ok || n.State != StatePending {
		c.mu.Unlock()
		return
	}
	n.State = StateRendering
	source := n.Source
	opts := c.cfg.Options
	if n.RenderScale > 0 {
		opts.Scale = n.RenderScale
	}
	c.mu.Unlock()
	c.notifyUpdate(id)

	repaired, report := Repair(source)
	if report.Templated && c.cfg.NotifyOnTemplate && c.cfg.OnNotice != nil {
		c.cfg.OnNotice(fmt.Sprintf("diagram %s could not be repaired; showing a %s template", id, report.Template))
	}

	svg, backend, err := c.renderTiered(repaired, opts)

	// Exactly one write per processing attempt.
	c.mu.Lock()
	n.Repaired = repaired
	n.Report = report
	n.Writes++
	if err != nil {
		n.State = StateFailed
		n.Err = err
	} else {
		n.State = StateRendered
		n.SVG = CleanSVG(svg)
		n.Backend = backend
		n.Err = nil
	}
	c.mu.Unlock()
	c.notifyUpdate(id)
}

// renderTiered tries each backend in order, returning the first
// success. Later tiers are never contacted once one succeeds.
func (c *Coordinator) renderTiered(source string, opts RenderOptions) (svg, backend string, err error) {
	var errs []error
	for _, b := range c.backends {
		svg, rerr := b.Render(c.ctx, source, opts)
		if rerr == nil {
			return svg, b.Name(), nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), rerr))
		if c.ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return "", "", fmt.Errorf("no render backends configured")
	}
	return "", "", fmt.Errorf("all backends failed: %v", errs)
}

func (c *Coordinator) notifyUpdate(id string) {
	if c.cfg.OnUpdate == nil {
		return
	}
	if n, ok := c.Node(id); ok {
		c.cfg.OnUpdate(n)
	}
}

// SetBaseScale records the auto-fit scale computed from the viewport.
// The user zoom factor is preserved across refits.
func (c *Coordinator) SetBaseScale(id string, scale float64) {
	c.mutateView(id, func(v *ViewState) {
		v.BaseScale = clamp(scale, MinScale, MaxScale)
	})
}

// Zoom adjusts the user zoom by steps (positive in, negative out).
func (c *Coordinator) Zoom(id string, steps int) {
	c.mutateView(id, func(v *ViewState) {
		v.UserZoom = clamp(v.UserZoom+float64(steps)*ZoomStep, MinZoom, MaxZoom)
	})
}

// ResetZoom restores the unzoomed, unpanned view.
func (c *Coordinator) ResetZoom(id string) {
	c.mutateView(id, func(v *ViewState) {
		v.UserZoom = 1
		v.PanX, v.PanY = 0, 0
	})
}

// Pan shifts the view. Only meaningful while zoomed or expanded.
func (c *Coordinator) Pan(id string, dx, dy float64) {
	c.mutateView(id, func(v *ViewState) {
		v.PanX += dx
		v.PanY += dy
	})
}

// Expand opens the node's overlay view and re-requests a render at the
// overlay target size; the overlay never reuses the inline vector,
// since the two contexts need different target dimensions.
func (c *Coordinator) Expand(id string) {
	var scale float64
	c.mutateView(id, func(v *ViewState) {
		v.Expanded = true
		scale = clamp(v.Scale()*OverlayScale, MinScale, MaxScale)
	})
	c.requeue(id, scale, StateRendered, StateFailed)
}

// CloseOverlay collapses the overlay and resets pan, keeping zoom. All
// non-overlay rendered nodes then get a one-time re-render pass so the
// inline views reflect the latest repaired source.
func (c *Coordinator) CloseOverlay(id string) {
	c.mutateView(id, func(v *ViewState) {
		v.Expanded = false
		v.PanX, v.PanY = 0, 0
	})

	c.mu.Lock()
	type refit struct {
		id    string
		scale float64
	}
	var inline []refit
	for nid, n := range c.nodes {
		if n.State == StateRendered && !n.View.Expanded {
			inline = append(inline, refit{nid, n.View.Scale()})
		}
	}
	c.mu.Unlock()

	sort.Slice(inline, func(i, j int) bool { return inline[i].id < inline[j].id })
	for _, r := range inline {
		c.requeue(r.id, r.scale, StateRendered)
	}
}

// Download performs a fresh repair and render of the node's current
// source so the exported file matches it even when the inline view is
// stale. The node's cached result and state are left untouched.
func (c *Coordinator) Download(id string) (string, error) {
	c.mu.Lock()
	n, ok := c.nodes[id]
	if !ok {
		c.mu.Unlock()
		return "", fmt.Errorf("unknown diagram %q", id)
	}
	source := n.Source
	opts := c.cfg.Options
	if n.RenderScale > 0 {
		opts.Scale = n.RenderScale
	}
	c.mu.Unlock()

	repaired, _ := Repair(source)
	svg, _, err := c.renderTiered(repaired, opts)
	if err != nil {
		return "", err
	}
	return CleanSVG(svg), nil
}

func (c *Coordinator) mutateView(id string, f func(*ViewState)) {
	c.mu.Lock()
	n, ok := c.nodes[id]
	if ok {
		f(&n.View)
	}
	c.mu.Unlock()
	if ok {
		c.notifyUpdate(id)
	}
}

// SVGFor returns the cleaned markup of a rendered node, for export and
// download.
func (c *Coordinator) SVGFor(id string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id]
	if !ok {
		return "", fmt.Errorf("unknown diagram %q", id)
	}
	if n.State != StateRendered {
		return "", fmt.Errorf("diagram %q is %s", id, n.State)
	}
	return n.SVG, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
