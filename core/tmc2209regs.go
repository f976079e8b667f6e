package core

// TMC2209 Register Definitions
// Based on TMC2209 datasheet Rev. 1.09, Trinamic Motion Control GmbH & Co. KG

// TMC2209 Register Addresses
const (
	tmc2209RegGCONF      = 0x00 // Global configuration flags
	tmc2209RegGSTAT      = 0x01 // Global status flags
	tmc2209RegIFCNT      = 0x02 // Interface transmission counter
	tmc2209RegIOIN       = 0x06 // Reads the state of all input pins
	tmc2209RegIHOLDIRUN  = 0x10 // Driver current control
	tmc2209RegTPOWERDOWN = 0x11 // Delay after standstill
	tmc2209RegTSTEP      = 0x12 // Measured time between two steps (read only)
	tmc2209RegTPWMTHRS   = 0x13 // Upper velocity for StealthChop
	tmc2209RegTCOOLTHRS  = 0x14 // Lower threshold velocity for CoolStep/StallGuard
	tmc2209RegVACTUAL    = 0x22 // Actual motor velocity
	tmc2209RegSGTHRS     = 0x40 // StallGuard4 threshold
	tmc2209RegSGRESULT   = 0x41 // StallGuard4 result (read only)
	tmc2209RegCOOLCONF   = 0x42 // CoolStep configuration
	tmc2209RegMSCNT      = 0x6A // Microstep counter (read only)
	tmc2209RegMSCURACT   = 0x6B // Actual microstep current (read only)
	tmc2209RegCHOPCONF   = 0x6C // Chopper configuration
	tmc2209RegDRVSTATUS  = 0x6F // Driver status flags
	tmc2209RegPWMCONF    = 0x70 // StealthChop PWM configuration
	tmc2209RegPWMSCALE   = 0x71 // PWM scale value (read only)
	tmc2209RegPWMAUTO    = 0x72 // PWM automatic scale (read only)
)

// TMC2209 GCONF bit fields
const (
	tmc2209GconfIScaleAnalog  = 1 << 0
	tmc2209GconfInternalRSens = 1 << 1
	tmc2209GconfEnSpreadCycle = 1 << 2
	tmc2209GconfShaft         = 1 << 3
	tmc2209GconfPDNDisable    = 1 << 6
	tmc2209GconfMStepRegSel   = 1 << 7
	tmc2209GconfMultistepFilt = 1 << 8
)

// TMC2209 CHOPCONF bit fields
const (
	tmc2209ChopconfToffShift   = 0
	tmc2209ChopconfToffMask    = 0x0F << tmc2209ChopconfToffShift
	tmc2209ChopconfTblShift    = 15
	tmc2209ChopconfTblMask     = 0x03 << tmc2209ChopconfTblShift
	tmc2209ChopconfVSense      = 1 << 17
	tmc2209ChopconfMresShift   = 24
	tmc2209ChopconfMresMask    = 0x0F << tmc2209ChopconfMresShift
	tmc2209ChopconfIntpol      = 1 << 28
	tmc2209ChopconfDedge       = 1 << 29
)

// TMC2209 PWMCONF bit fields
const (
	tmc2209PwmconfAutoscale = 1 << 18
	tmc2209PwmconfAutograd  = 1 << 19
)

// TMC2209 IHOLD_IRUN bit fields
const (
	tmc2209IholdShift = 0
	tmc2209IholdMask  = 0x1F << tmc2209IholdShift
	tmc2209IrunShift  = 8
	tmc2209IrunMask   = 0x1F << tmc2209IrunShift
)

// tmc2209MresFromMicrosteps converts a microstep count (1..128, power
// of two) into the CHOPCONF MRES field value: MRES=1 for 128
// microsteps, counting down to MRES=8 for full-step (1 microstep). A
// uint8 count cannot carry 256, so MRES=0 is never produced; a count of
// 0 yields MRES=8.
func tmc2209MresFromMicrosteps(microsteps uint8) uint32 {
	mres := uint32(8)
	for ms := uint32(microsteps); ms > 1; ms >>= 1 {
		mres--
	}
	return mres
}
