package stream

import (
	"sync"
	"time"
)

// DefaultInterval is the reveal cadence when none is configured.
const DefaultInterval = 30 * time.Millisecond

// Driver runs a revealer on a fixed-interval timer, delivering one
// frame per tick to the callback. Starting a new revealer cancels the
// in-flight loop for the previous one before the new loop begins, so a
// stale timer can never deliver frames for superseded content.
type Driver struct {
	mu       sync.Mutex
	interval time.Duration
	onFrame  func(Frame)
	stop     chan struct{}
	done     chan struct{}
}

// NewDriver creates a driver with the given cadence. A zero interval
// falls back to DefaultInterval.
func NewDriver(interval time.Duration, onFrame func(Frame)) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Driver{interval: interval, onFrame: onFrame}
}

// Start begins revealing rev. Any previous reveal loop is stopped and
// fully drained first.
func (d *Driver) Start(rev *Revealer) {
	d.Stop()

	d.mu.Lock()
	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop = stop
	d.done = done
	d.mu.Unlock()

	go d.loop(rev, stop, done)
}

// Stop cancels the in-flight reveal loop, if any, and waits for it to
// exit. Safe to call repeatedly.
func (d *Driver) Stop() {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// Wait blocks until the current reveal loop exits (settled or stopped).
func (d *Driver) Wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (d *Driver) loop(rev *Revealer, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	gen := rev.Generation()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if rev.Generation() != gen {
				// Target was replaced under us; this loop is stale.
				return
			}
			frame := rev.Step()
			if d.onFrame != nil {
				d.onFrame(frame)
			}
			if frame.Done {
				return
			}
		}
	}
}
