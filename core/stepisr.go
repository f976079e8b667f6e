package core

// StepISR generates step pulses for a fixed set of motors. It is
// driven by a periodic hardware timer interrupt on the tinygo build
// (design target ≥10 kHz, typically 100 kHz) and by a tight goroutine
// loop in the host simulation harness; either way, Tick's body never
// allocates, never blocks, and takes no locks (spec.md §4.5).
type StepISR struct {
	motors []*Motor
}

// NewStepISR builds an ISR driver over the given motors, in axis
// order.
func NewStepISR(motors ...*Motor) *StepISR {
	return &StepISR{motors: motors}
}

// Tick runs one pass over every motor. A motor that is disabled or
// currently locked by the agent is skipped entirely.
func (s *StepISR) Tick(now Micros) {
	for _, m := range s.motors {
		tickMotor(m, now)
	}
}

func tickMotor(m *Motor, now Micros) {
	if !m.Enabled() || m.Locked() {
		return
	}
	if now-m.LastStep < Micros(m.Interval) {
		return
	}
	m.LastStep = now

	switch {
	case m.Steps > 0:
		m.Step.Toggle()
		m.Steps--
		m.Position++
	case m.Steps < 0:
		m.Step.Toggle()
		m.Steps++
		m.Position--
	}
	if m.Steps != 0 {
		return
	}

	// The command that was running (if any) just finished: report its
	// own seq before loading whatever comes next, so Done always names
	// the command that actually completed.
	if m.hasActive {
		if m.Done.Writable() {
			m.Done.Push(m.activeSeq)
		}
		m.hasActive = false
	}

	if !m.Pending.Readable() {
		return
	}

	cmd := m.Pending.Peek()
	m.Steps = cmd.Steps
	m.Interval = cmd.Interval
	m.activeSeq = cmd.Seq
	m.hasActive = true
	m.Pending.Pop()

	desiredDir := m.Steps > 0
	if m.Dir.Read() != desiredDir {
		m.Dir.Write(desiredDir)
	}
}
