package core

import "github.com/OpenRover/TriStepperController-Firmware/protocol"

// perfWindow is the PERF reporting period; ResetPerf is called at the
// end of every window so the next window's utilization is computed
// fresh (spec.md §4.8).
const perfWindow Micros = 10_000_000

// posPeriod is the POS reporting period.
const posPeriod Micros = 16_000

// Telemetry emits the two periodic, correctness-irrelevant status
// frames defined in spec.md §4.8: a utilization log every 10s and a
// position broadcast every 16ms. Text is assembled with the same
// hand-rolled itoa/utoa helpers the device→host trace channel uses,
// not fmt, since this runs on the tinygo build too.
type Telemetry struct {
	link      *protocol.FrameLayer
	scheduler *Scheduler
	agent     *Agent
	motors    [3]*Motor
}

// NewTelemetry binds a Telemetry to the scheduler it reports on, the
// agent whose driver-enable flag gates POS, and the motors it reports
// positions for.
func NewTelemetry(agent *Agent, scheduler *Scheduler, motors [3]*Motor) *Telemetry {
	return &Telemetry{link: agent.Link(), scheduler: scheduler, agent: agent, motors: motors}
}

// RecurrentTasks returns the two Scheduler tasks that drive PERF and
// POS, ready to Add.
func (t *Telemetry) RecurrentTasks() (perf, pos *Task) {
	return NewRecurrentTask(perfWindow, perfWindow, t.PERF), NewRecurrentTask(posPeriod, posPeriod, t.POS)
}

// PERF logs scheduler utilization and tick rate for the window just
// completed, then resets the counters.
func (t *Telemetry) PERF(now Micros) {
	busy := t.scheduler.Busy
	loops := t.scheduler.Loops
	t.scheduler.ResetPerf()

	util := uint32(0)
	if perfWindow > 0 {
		util = uint32(busy) * 100 / uint32(perfWindow)
	}
	hz := uint32(loops) / uint32(perfWindow/1_000_000)

	msg := "PERF util=" + utoa(util) + "% loops/s=" + utoa(hz) + " busy_us=" + utoa(uint32(busy))
	_ = t.link.Send(0, protocol.LOG, protocol.NA, []byte(msg))
}

// POS broadcasts every motor's current step position, iff the global
// driver is enabled (a disabled driver has nothing new to report).
func (t *Telemetry) POS(now Micros) {
	if !t.agent.DriverEnabled() {
		return
	}
	msg := "POS"
	for _, m := range t.motors {
		msg += " m" + itoa(int(m.Addr)) + "=" + itoa64(m.Position)
	}
	_ = t.link.Send(0, protocol.SYN, protocol.NA, []byte(msg))
}
