//go:build !tinygo

// Package simulator runs a core.System entirely on the host, standing
// in for the two execution contexts spec.md §5 describes (the
// cooperative scheduler loop and the hardware step-timer interrupt)
// with two goroutines instead of a real interrupt controller.
package simulator

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/OpenRover/TriStepperController-Firmware/core"
	"github.com/OpenRover/TriStepperController-Firmware/protocol"
)

// Harness owns one core.System plus the logging and goroutine
// plumbing the !tinygo build needs that the real firmware gets for
// free from hardware (a timer interrupt, a watchdog reset on panic).
type Harness struct {
	System *core.System
	Clock  clock.Clock
	Log    *zap.Logger

	// StepRate is how often the synthetic step ISR runs; the design
	// target is >=10kHz, defaulting to 100kHz here to give the
	// scheduler's 1ms agent tick plenty of headroom between steps.
	StepRate time.Duration
}

// New builds a Harness around a transport and three already-wired
// motors. clk is typically clock.New() for a real-time run or
// clock.NewMock() for a deterministic test. It installs log as the
// sink for core.DebugPrintln's dispatch/REJ/panic trace lines
// (core.SetDebugWriter/SetDebugEnabled are process-wide, matching the
// teacher's own global DebugWriter hook), so on this build every
// DebugPrintln call site routes through zap instead of the tinygo
// build's hand-rolled writer.
func New(transport protocol.ByteTransport, motors [3]*core.Motor, fault core.Pin, clk clock.Clock, log *zap.Logger) *Harness {
	core.SetDebugWriter(func(msg string) { log.Debug(msg) })
	core.SetDebugEnabled(true)

	wall := core.NewWallClock(clk)
	sys := core.NewSystem(wall, transport, motors, fault)
	sys.Start()
	return &Harness{
		System:   sys,
		Clock:    clk,
		Log:      log,
		StepRate: 10 * time.Microsecond,
	}
}

// Run drives the scheduler loop and the synthetic step-ISR ticker as
// two goroutines under one errgroup until ctx is cancelled. If
// core.System.Run ever enters panic mode it recovers and blinks the
// fault indicator forever at its own boundary (spec.md §7) instead of
// returning — that goroutine simply never rejoins, and Run blocks in
// g.Wait() right along with it, the same way a real deployment stays
// latched until a hardware reset rather than recovering.
func (h *Harness) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	g.Go(func() error {
		h.System.Run(stop)
		return nil
	})

	g.Go(func() error {
		ticker := h.Clock.Ticker(h.StepRate)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(stop)
				return ctx.Err()
			case <-ticker.C:
				h.System.ISR.Tick(h.System.Clock.Now())
			}
		}
	})

	err := g.Wait()
	h.Log.Info("simulation stopped",
		zap.Uint64("scheduler_loops", h.System.Scheduler.Loops),
		zap.Duration("scheduler_busy", time.Duration(h.System.Scheduler.Busy)*time.Microsecond),
	)
	return err
}
