//go:build !tinygo

package core

import "github.com/benbjohnson/clock"

// WallClock adapts a benbjohnson/clock.Clock into core.Clock, giving
// the simulation harness and tests a controllable, mockable time
// source instead of reading the real wall clock directly.
type WallClock struct {
	clk clock.Clock
}

// NewWallClock wraps c (clock.New() for real time, clock.NewMock() in
// tests) as a core.Clock.
func NewWallClock(c clock.Clock) *WallClock {
	return &WallClock{clk: c}
}

// Now returns the wrapped clock's current time as microseconds since
// the Unix epoch, truncated to fit the monotonic Micros contract; the
// absolute epoch is irrelevant, only monotonic forward progress is.
func (w *WallClock) Now() Micros {
	return Micros(w.clk.Now().UnixMicro())
}
