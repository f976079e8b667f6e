//go:build tinygo

package rp2040

import (
	"runtime/volatile"
	"unsafe"

	"github.com/OpenRover/TriStepperController-Firmware/core"
)

// RP2040 Timer peripheral memory map. The RP2040 runs this timer at
// 1MHz free-running from power-on, which is exactly the monotonic
// microsecond clock spec.md §6's `clock` collaborator needs.
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08 // Raw timer high word
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// HardwareClock reads the RP2040's free-running 64-bit microsecond
// timer directly from its memory-mapped registers.
type HardwareClock struct{}

// Now reads the full 64-bit timer, guarding against the high word
// rolling over between the two register reads.
func (HardwareClock) Now() core.Micros {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return core.Micros(uint64(high1)<<32 | uint64(low))
		}
	}
}
