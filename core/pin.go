package core

// Pin is the boolean-valued GPIO line abstraction the step ISR and
// the motor object use for STEP, DIR, and DIAG. Implementations own
// their electrical inversion (active-low wiring looks identical to
// callers).
type Pin interface {
	Read() bool
	Write(v bool)
	Toggle()
}

// InvertedPin wraps a Pin so that Read/Write/Toggle observe the
// logical (non-inverted) value while the underlying Pin carries the
// electrical one.
type InvertedPin struct {
	Pin
}

func (p InvertedPin) Read() bool  { return !p.Pin.Read() }
func (p InvertedPin) Write(v bool) { p.Pin.Write(!v) }

// memPin is a software Pin backed by a single bool, used by the
// simulation harness and by tests that don't need real hardware.
type memPin struct {
	state bool
}

// NewMemPin returns a software-only Pin with no hardware behind it.
func NewMemPin() *memPin {
	return &memPin{}
}

func (p *memPin) Read() bool   { return p.state }
func (p *memPin) Write(v bool) { p.state = v }
func (p *memPin) Toggle()      { p.state = !p.state }
