//go:build tinygo

package rp2040

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"github.com/OpenRover/TriStepperController-Firmware/core"
)

// stepPinProgram pulls one 32-bit word per PIO cycle and drives it
// straight onto the configured OUT pin. It is deliberately not the
// teacher's autonomous pulse-count/delay program (targets/pio's
// original buildStepperProgram): that program free-runs a whole move
// inside the state machine, which would hide every individual pulse
// from the Go side and break the per-toggle step/position/done
// bookkeeping core.StepISR performs (spec.md §4.5, §8's step
// conservation property). Here the state machine only gives the STEP
// edge PIO-grade timing; the ISR still calls Toggle() once per pulse.
func stepPinProgram() []uint16 {
	asm := rp2pio.AssemblerV0{}
	return []uint16{
		asm.Pull(false, true).Encode(),          // 0: pull block
		asm.Out(rp2pio.OutDestPins, 1).Encode(), // 1: out pins, 1
	}
}

const stepPinProgramOrigin = 0

// PIOStepPin is a core.Pin backed by one PIO state machine driving a
// single GPIO. Every Write/Toggle feeds one word through the TX FIFO
// instead of calling machine.Pin directly, so the edge lands with
// single-instruction PIO timing rather than whatever jitter the Go
// scheduler would add — grounded on the teacher's
// targets/pio/stepper_pio.go state-machine setup sequence (claim,
// load program, configure pins, set wrap, enable).
type PIOStepPin struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	pin    machine.Pin
	offset uint8
	state  bool
}

var _ core.Pin = (*PIOStepPin)(nil)

// NewPIOStepPin selects state machine smNum on PIO pioNum (0 or 1) to
// drive pin; Init claims it. Call Init once before using it as a
// Motor's Step pin.
func NewPIOStepPin(pioNum, smNum uint8, pin machine.Pin) *PIOStepPin {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	return &PIOStepPin{pio: pioHW, sm: pioHW.StateMachine(smNum), pin: pin}
}

// Init loads the PIO program, configures the state machine's output
// pin, and enables it. Returns the underlying AddProgram error, if
// any (program space exhausted on this PIO block).
func (p *PIOStepPin) Init() error {
	p.sm.TryClaim()

	program := stepPinProgram()
	offset, err := p.pio.AddProgram(program, stepPinProgramOrigin)
	if err != nil {
		return err
	}
	p.offset = offset

	p.pin.Configure(machine.PinConfig{Mode: p.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(p.pin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1, 0)

	p.sm.Init(offset, cfg)
	p.sm.SetPindirsConsecutive(p.pin, 1, true)
	p.sm.SetPinsConsecutive(p.pin, 1, false)
	p.sm.SetEnabled(true)
	return nil
}

// Read returns the last value written, the same contract every other
// core.Pin implementation gives (this is a write-mostly output pin;
// there is no PIO-side readback).
func (p *PIOStepPin) Read() bool { return p.state }

// Write pushes v onto the pin through the state machine's FIFO,
// busy-waiting only for FIFO space (at most one slot, since the
// program consumes a word every cycle).
func (p *PIOStepPin) Write(v bool) {
	var word uint32
	if v {
		word = 1
	}
	for p.sm.IsTxFIFOFull() {
	}
	p.sm.TxPut(word)
	p.state = v
}

// Toggle flips the pin's last written value.
func (p *PIOStepPin) Toggle() { p.Write(!p.state) }
