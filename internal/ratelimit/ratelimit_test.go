package ratelimit

import (
	"testing"
	"time"
)

func TestCheck_AllowsUpToMax(t *testing.T) {
	l := New(5, time.Second)
	st := &State{}
	now := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		if v := l.Check(st, now); v != Allow {
			t.Fatalf("frame %d: got %v, want Allow", i+1, v)
		}
	}
}

func TestCheck_WarnsExactlyOncePerEpisode(t *testing.T) {
	l := New(5, time.Second)
	st := &State{}
	now := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		l.Check(st, now)
	}

	if v := l.Check(st, now); v != Warn {
		t.Fatalf("6th frame: got %v, want Warn", v)
	}
	for i := 0; i < 10; i++ {
		if v := l.Check(st, now); v != Drop {
			t.Fatalf("frame after warn: got %v, want Drop", v)
		}
	}
}

func TestCheck_WindowReset(t *testing.T) {
	l := New(2, time.Second)
	st := &State{}
	now := time.Unix(1000, 0)

	l.Check(st, now)
	l.Check(st, now)
	if v := l.Check(st, now); v != Warn {
		t.Fatalf("got %v, want Warn", v)
	}

	// A full window later the counter starts over.
	later := now.Add(time.Second)
	if v := l.Check(st, later); v != Allow {
		t.Fatalf("after reset: got %v, want Allow", v)
	}
	l.Check(st, later)
	if v := l.Check(st, later); v != Warn {
		t.Fatalf("second episode: got %v, want a fresh Warn", v)
	}
}

func TestCheck_PartialWindowDoesNotReset(t *testing.T) {
	l := New(1, time.Second)
	st := &State{}
	now := time.Unix(1000, 0)

	l.Check(st, now)
	almost := now.Add(999 * time.Millisecond)
	if v := l.Check(st, almost); v != Warn {
		t.Fatalf("inside window: got %v, want Warn", v)
	}
}

func TestCheck_IndependentStates(t *testing.T) {
	l := New(1, time.Second)
	a, b := &State{}, &State{}
	now := time.Unix(1000, 0)

	l.Check(a, now)
	if v := l.Check(a, now); v != Warn {
		t.Fatalf("a: got %v, want Warn", v)
	}
	// b's counter is untouched by a's violations.
	if v := l.Check(b, now); v != Allow {
		t.Fatalf("b: got %v, want Allow", v)
	}
}
