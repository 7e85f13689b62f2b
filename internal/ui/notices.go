package ui

import (
	"fmt"
	"io"
	"sync"
)

// Notices collects user-facing messages from background work (diagram
// templates, failed copies) and flushes them after the answer so they
// never interleave with the streamed output.
type Notices struct {
	mu   sync.Mutex
	msgs []string
}

func (n *Notices) Add(msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

// Drain returns the pending messages and clears the list.
func (n *Notices) Drain() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	msgs := n.msgs
	n.msgs = nil
	return msgs
}

// Flush writes pending notices to w, styled as warnings.
func (n *Notices) Flush(w io.Writer, styles *Styles) {
	msgs := n.Drain()
	if len(msgs) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, m := range msgs {
		fmt.Fprintln(w, styles.Warning.Render("! "+m))
	}
}
