package core

import (
	"github.com/OpenRover/TriStepperController-Firmware/protocol"
)

// faultBlinkPeriod is how long the fault indicator stays in each
// state while panic mode is latched, matching the original firmware's
// rescue() (four 200ms delay() toggles per loop).
const faultBlinkPeriod Micros = 200_000

// System is the top-level object wiring the agent, the three motors,
// the step ISR, and telemetry onto one Scheduler. There is
// deliberately no package-level singleton here (spec.md §9): a
// caller builds one System per controller instance and threads it
// explicitly, which is what lets the !tinygo build run several in
// one test process.
type System struct {
	Clock     Clock
	Scheduler *Scheduler
	Agent     *Agent
	Motors    [3]*Motor
	ISR       *StepISR
	Telemetry *Telemetry

	fault Pin // blinked forever by blinkForever once panic mode latches
}

// NewSystem builds a System around a transport and three already-
// constructed motors (addr 0..2). It does not start anything; call
// Run.
func NewSystem(clock Clock, transport protocol.ByteTransport, motors [3]*Motor, fault Pin) *System {
	link := protocol.NewFrameLayer(transport)
	agent := NewAgent(link, motors)
	for _, m := range motors {
		m.notifier = agent
	}

	s := &System{
		Clock:     clock,
		Scheduler: NewScheduler(clock),
		Agent:     agent,
		Motors:    motors,
		ISR:       NewStepISR(motors[0], motors[1], motors[2]),
		fault:     fault,
	}
	s.Telemetry = NewTelemetry(agent, s.Scheduler, motors)
	return s
}

// Start registers the agent, telemetry, and connectivity-watcher
// tasks on the Scheduler. The step ISR is not a Scheduler task: on
// the tinygo build it is driven by a hardware timer interrupt calling
// ISR.Tick directly; the !tinygo simulation harness drives it from its
// own high-rate loop. Call once before Run.
func (s *System) Start() {
	now := s.Clock.Now()

	s.Scheduler.Add(NewRecurrentTask(1000, 0, s.Agent.Tick))
	perf, pos := s.Telemetry.RecurrentTasks()
	s.Scheduler.Add(perf)
	s.Scheduler.Add(pos)
	for _, m := range s.Motors {
		s.Scheduler.Add(m.ConnectWatcher())
		m.ArmConnectWatcher(now)
	}
}

// Run drives the Scheduler until stop is closed, recovering exactly
// once at this top-level boundary. A recovered panic enters the
// non-recoverable fault mode spec.md §7 describes: every motor and
// the global driver are forced off, one LOG frame describing the
// fault is sent, and the fault indicator blinks forever — there is no
// path back to frame processing, matching the original firmware's
// rescue() (LOG frame, then blink the fault LED forever).
func (s *System) Run(stop <-chan struct{}) {
	defer s.rescue()
	s.Scheduler.Run(stop)
}

func (s *System) rescue() {
	r := recover()
	if r == nil {
		return
	}
	DebugPrintln("[System] recovered panic, entering fault mode")
	for _, m := range s.Motors {
		m.Disable()
	}
	s.Agent.driverEnabled = false
	s.logPanic(r)
	s.blinkForever()
}

func (s *System) logPanic(r any) {
	msg := panicMessage(r)
	DebugPrintln("[System] " + msg)
	_ = s.Agent.Link().Send(0, protocol.LOG, protocol.NA, []byte(msg))
}

// panicMessage stringifies a recovered panic value without pulling in
// fmt, matching this core's hand-rolled debug-text convention
// (core/strutil.go) so the tinygo build stays fmt-free.
func panicMessage(r any) string {
	switch v := r.(type) {
	case error:
		return "PANIC: " + v.Error()
	case string:
		return "PANIC: " + v
	default:
		return "PANIC: unknown"
	}
}

// blinkForever toggles the fault pin on faultBlinkPeriod boundaries
// forever, busy-waiting on the clock rather than sleeping (there is
// no scheduler left running to hand control back to). With no fault
// pin wired, it still halts here rather than returning.
func (s *System) blinkForever() {
	for {
		if s.fault != nil {
			s.fault.Toggle()
		}
		s.spin(faultBlinkPeriod)
	}
}

func (s *System) spin(d Micros) {
	start := s.Clock.Now()
	for s.Clock.Now()-start < d {
	}
}
