// Package ratelimit implements the per-connection fixed-window frame limiter.
package ratelimit

import "time"

// Verdict is the outcome of checking one inbound frame.
type Verdict int

const (
	// Allow lets the frame through.
	Allow Verdict = iota
	// Warn rejects the frame and tells the caller to notify the peer.
	// It is returned exactly once per violation episode: for the first
	// frame that crosses the threshold within a window.
	Warn
	// Drop rejects the frame silently.
	Drop
)

// State is one connection's window counter. The zero value is ready to
// use; the first check opens the window.
type State struct {
	count       int
	windowStart time.Time
}

// Limiter holds the shared window parameters. Connections each carry
// their own State; the limiter itself is stateless and safe to share.
type Limiter struct {
	maxPerWindow int
	window       time.Duration
}

// New creates a limiter allowing maxPerWindow frames per window.
func New(maxPerWindow int, window time.Duration) *Limiter {
	return &Limiter{maxPerWindow: maxPerWindow, window: window}
}

// Check counts one inbound frame against st and returns the verdict.
// The window resets once now is a full window past its start, so a peer
// that keeps flooding gets a fresh Warn each window.
func (l *Limiter) Check(st *State, now time.Time) Verdict {
	if st.windowStart.IsZero() || now.Sub(st.windowStart) >= l.window {
		st.count = 0
		st.windowStart = now
	}
	st.count++

	switch {
	case st.count <= l.maxPerWindow:
		return Allow
	case st.count == l.maxPerWindow+1:
		return Warn
	default:
		return Drop
	}
}
