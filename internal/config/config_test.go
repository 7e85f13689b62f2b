package config

import (
	"testing"
	"time"
)

func TestApplyOverrides(t *testing.T) {
	cfg := &Config{
		Stream:  StreamConfig{IntervalMs: 30},
		Diagram: DiagramConfig{Backends: []string{"kroki", "mmdc", "ink"}},
	}

	cfg.ApplyOverrides(10, []string{"ink"})
	if cfg.Stream.IntervalMs != 10 {
		t.Fatalf("interval=%d, want 10", cfg.Stream.IntervalMs)
	}
	if len(cfg.Diagram.Backends) != 1 || cfg.Diagram.Backends[0] != "ink" {
		t.Fatalf("backends=%v, want [ink]", cfg.Diagram.Backends)
	}

	cfg.ApplyOverrides(0, nil)
	if cfg.Stream.IntervalMs != 10 {
		t.Fatalf("interval changed unexpectedly: %d", cfg.Stream.IntervalMs)
	}
	if len(cfg.Diagram.Backends) != 1 {
		t.Fatalf("backends changed unexpectedly: %v", cfg.Diagram.Backends)
	}
}

func TestDurationDefaults(t *testing.T) {
	var s StreamConfig
	if s.Interval() != 30*time.Millisecond {
		t.Errorf("interval=%v", s.Interval())
	}
	s.IntervalMs = 5
	if s.Interval() != 5*time.Millisecond {
		t.Errorf("interval=%v", s.Interval())
	}

	var d DiagramConfig
	if d.Delay() != 150*time.Millisecond {
		t.Errorf("delay=%v", d.Delay())
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("PREPTERM_TEST_URL", "https://kroki.internal")
	if got := expandEnv("${PREPTERM_TEST_URL}"); got != "https://kroki.internal" {
		t.Errorf("expandEnv braced = %q", got)
	}
	if got := expandEnv("$PREPTERM_TEST_URL"); got != "https://kroki.internal" {
		t.Errorf("expandEnv bare = %q", got)
	}
	if got := expandEnv("literal"); got != "literal" {
		t.Errorf("expandEnv literal = %q", got)
	}
}
