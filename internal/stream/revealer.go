// Package stream implements the token-by-token reveal of an arriving
// answer. While revealing, only a lightweight formatter runs over the
// revealed prefix; the full segmenter runs exactly once, on settle.
package stream

import (
	"regexp"
	"sync"

	"github.com/prepterm/prepterm/internal/block"
)

// Phase is the revealer's lifecycle state.
type Phase int

const (
	PhaseRevealing Phase = iota
	PhaseSettled
)

// tokenRe matches one word-boundary token (word plus trailing space).
var tokenRe = regexp.MustCompile(`^\S+\s*|^\s+`)

// OpenCode is an in-progress, unterminated fenced block at the tail of
// the revealed prefix. It is never emitted as a closed code block.
type OpenCode struct {
	Lang   string
	Source string
}

// Frame is one best-effort view of the revealed prefix.
type Frame struct {
	Blocks []block.Block
	Open   *OpenCode // non-nil while a fence is unterminated
	Done   bool      // true once settled
}

// Revealer reveals a target text one token at a time. The target may be
// known in advance (history replay with simulated typing) or grown
// incrementally while revealing (live generation). A Revealer is safe
// for use from multiple goroutines.
type Revealer struct {
	mu       sync.Mutex
	full     string
	off      int // bytes of full revealed so far
	finished bool
	phase    Phase
	settled  []block.Block
	gen      int
}

// New creates a revealer for a target text that is fully known.
func New(full string) *Revealer {
	return &Revealer{full: full, finished: true}
}

// NewLive creates a revealer whose target will arrive via Append.
func NewLive() *Revealer {
	return &Revealer{}
}

// Append grows the target text. Appending never restarts the reveal;
// already-revealed content stays revealed.
func (r *Revealer) Append(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseSettled {
		return
	}
	r.full += text
}

// Finish marks the target as complete; once every token is revealed the
// revealer settles.
func (r *Revealer) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
}

// Replace supersedes the current target with a new one. The reveal
// restarts from empty and any frame computed for the old target is
// invalidated (see Generation).
func (r *Revealer) Replace(full string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.full = full
	r.off = 0
	r.finished = true
	r.phase = PhaseRevealing
	r.settled = nil
	r.gen++
}

// Generation identifies the current target; it increments on Replace so
// in-flight timers for a superseded target can detect staleness.
func (r *Revealer) Generation() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// Phase returns the current lifecycle phase.
func (r *Revealer) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Revealed returns the currently revealed prefix.
func (r *Revealer) Revealed() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.full[:r.off]
}

// Step reveals the next token and returns the resulting frame. Once the
// target is fully revealed and finished, Step settles: the full
// segmenter runs exactly once and subsequent frames carry the settled
// blocks with Done set.
func (r *Revealer) Step() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseSettled {
		return Frame{Blocks: r.settled, Done: true}
	}

	if r.off < len(r.full) {
		if m := tokenRe.FindString(r.full[r.off:]); m != "" {
			r.off += len(m)
		} else {
			r.off = len(r.full)
		}
	}

	if r.off >= len(r.full) && r.finished {
		r.settle()
		return Frame{Blocks: r.settled, Done: true}
	}

	return renderPrefix(r.full[:r.off])
}

// Settle skips the reveal entirely and jumps to the settled state. Used
// for non-streaming replay of complete answers.
func (r *Revealer) Settle() []block.Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.off = len(r.full)
	r.finished = true
	if r.phase != PhaseSettled {
		r.settle()
	}
	return r.settled
}

// settle runs the full segmenter once. Caller holds the lock.
func (r *Revealer) settle() {
	r.phase = PhaseSettled
	r.settled = block.Segment(r.full)
}
