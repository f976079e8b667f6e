//go:build tinygo

// Command firmware is the tinygo build entry point for the RP2040
// target: it wires three TMC2209-driven axes and a USB CDC transport
// onto one core.System and runs it forever, the Go analogue of the
// original firmware's main.cpp setup()/pool()/timer() trio.
package main

import (
	"machine"

	"github.com/OpenRover/TriStepperController-Firmware/core"
	"github.com/OpenRover/TriStepperController-Firmware/targets/rp2040"
)

// Board wiring. Pin numbers are compiled-in constants (spec.md
// §1's "board wiring is out of scope" rules out a runtime config
// format; these constants are the adapted equivalent of the original
// firmware's include/board.h Port/Drv tables) for a three-axis RP2040
// carrier board: one shared TMC2209 UART bus, one STEP/DIR/DIAG triple
// per axis, one fault LED.
const (
	pinUARTTx = machine.GPIO0
	pinUARTRx = machine.GPIO1

	pinFaultLED = machine.GPIO25

	pinM0Step, pinM0Dir, pinM0Diag = machine.GPIO2, machine.GPIO3, machine.GPIO4
	pinM1Step, pinM1Dir, pinM1Diag = machine.GPIO5, machine.GPIO6, machine.GPIO7
	pinM2Step, pinM2Dir, pinM2Diag = machine.GPIO8, machine.GPIO9, machine.GPIO10

	tmcAddrM0, tmcAddrM1, tmcAddrM2 = 0, 1, 2
)

func main() {
	machine.UART0.Configure(machine.UARTConfig{TX: pinUARTTx, RX: pinUARTRx, BaudRate: 57600})
	bus := rp2040.NewUARTBus(machine.UART0)

	fault := rp2040.NewOutputPin(pinFaultLED)
	transport := rp2040.InitUSB()

	motors := [3]*core.Motor{
		buildMotor(0, pinM0Step, pinM0Dir, pinM0Diag, bus, tmcAddrM0),
		buildMotor(1, pinM1Step, pinM1Dir, pinM1Diag, bus, tmcAddrM1),
		buildMotor(2, pinM2Step, pinM2Dir, pinM2Diag, bus, tmcAddrM2),
	}

	sys := core.NewSystem(rp2040.HardwareClock{}, transport, motors, fault)
	sys.Start()

	rp2040.StartStepTimer(sys.ISR, rp2040.HardwareClock{})

	stop := make(chan struct{})
	sys.Run(stop)
}

func buildMotor(addr uint8, stepPin, dirPin, diagPin machine.Pin, bus *rp2040.UARTBus, tmcAddr uint8) *core.Motor {
	step := rp2040.NewPIOStepPin(0, addr, stepPin)
	if err := step.Init(); err != nil {
		panic(err)
	}
	dir := rp2040.NewOutputPin(dirPin)
	diag := rp2040.NewInputPin(diagPin)
	driver := core.NewTMC2209(bus, tmcAddr)
	return core.NewMotor(addr, step, dir, diag, driver, nil)
}
