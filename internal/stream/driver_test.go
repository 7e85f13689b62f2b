package stream

import (
	"sync"
	"testing"
	"time"
)

func TestDriverDeliversFramesUntilSettled(t *testing.T) {
	var mu sync.Mutex
	var frames []Frame
	d := NewDriver(time.Millisecond, func(f Frame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
	})

	d.Start(New("one two three."))
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(frames) == 0 {
		t.Fatal("no frames delivered")
	}
	last := frames[len(frames)-1]
	if !last.Done {
		t.Errorf("last frame not done: %+v", last)
	}
	for _, f := range frames[:len(frames)-1] {
		if f.Done {
			t.Error("done frame delivered before the end")
		}
	}
}

func TestDriverStopCancelsLoop(t *testing.T) {
	var mu sync.Mutex
	count := 0
	d := NewDriver(time.Millisecond, func(Frame) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	r := NewLive()
	r.Append("endless text that never finishes because Finish is not called. ")
	d.Start(r)
	time.Sleep(10 * time.Millisecond)
	d.Stop()

	mu.Lock()
	after := count
	mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != after {
		t.Errorf("frames still delivered after Stop: %d -> %d", after, count)
	}
}

// A superseding target cancels the previous loop: no frame for the old
// generation arrives after the new reveal starts.
func TestDriverSupersede(t *testing.T) {
	var mu sync.Mutex
	var frames []Frame
	d := NewDriver(time.Millisecond, func(f Frame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
	})

	old := NewLive()
	old.Append("old answer that keeps going and going. ")
	d.Start(old)
	time.Sleep(5 * time.Millisecond)

	d.Start(New("new."))
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(frames) == 0 || !frames[len(frames)-1].Done {
		t.Fatal("new reveal did not settle")
	}
}
