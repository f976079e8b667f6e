//go:build tinygo

package rp2040

import (
	"machine"

	"github.com/OpenRover/TriStepperController-Firmware/core"
)

// GPIOPin adapts a machine.Pin into core.Pin. It is the plain (non-PIO)
// backend used for DIR and the fault indicator (built as outputs by
// NewOutputPin) and for DIAG (built as an input by NewInputPin); the
// STEP line uses PIOStepPin instead for
// lower edge jitter (see steppio.go).
type GPIOPin struct {
	pin machine.Pin
}

var _ core.Pin = GPIOPin{}

// NewOutputPin configures pin as a push-pull output, driven low, and
// returns it as a core.Pin.
func NewOutputPin(pin machine.Pin) GPIOPin {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return GPIOPin{pin: pin}
}

// NewInputPin configures pin as a pulled-up input (DIAG is open-drain
// on the TMC2209) and returns it as a core.Pin; Toggle/Write are no-ops.
func NewInputPin(pin machine.Pin) GPIOPin {
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return GPIOPin{pin: pin}
}

func (p GPIOPin) Read() bool { return p.pin.Get() }

func (p GPIOPin) Write(v bool) { p.pin.Set(v) }

func (p GPIOPin) Toggle() { p.pin.Set(!p.pin.Get()) }
