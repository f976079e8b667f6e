//go:build tinygo

package rp2040

import "machine"

// USBTransport adapts machine.Serial (USB CDC-ACM on the RP2040) to
// protocol.ByteTransport and protocol.ConnectionChecker, grounded on
// the teacher's targets/rp2350/usb.go InitUSB/USBAvailable/USBRead/
// USBWrite set, generalized from free functions into a value type.
// This file builds only under tinygo.
type USBTransport struct{}

// InitUSB configures machine.Serial for the CDC-ACM link the agent
// dispatches frames over.
func InitUSB() USBTransport {
	machine.Serial.Configure(machine.UARTConfig{})
	return USBTransport{}
}

func (USBTransport) Available() bool { return machine.Serial.Buffered() > 0 }

func (USBTransport) Read() byte {
	b, _ := machine.Serial.ReadByte()
	return b
}

func (USBTransport) Write(buf []byte) int {
	n, _ := machine.Serial.Write(buf)
	return n
}

// Connected reports DTR: a host-side terminal or driver asserts DTR
// on open, which is the closest CDC-ACM analogue to a physical link
// state (spec.md §4.7's disconnect-detection requirement).
func (USBTransport) Connected() bool { return machine.Serial.DTR() }
