//go:build tinygo

package core

import "runtime/interrupt"

// State mirrors the host build's placeholder type so Motor can hold an
// interrupt.State across a Lock/Unlock pair without a build-tag switch
// in motor.go itself.
type State = interrupt.State

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
