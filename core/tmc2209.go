package core

// TMCDriver is the opaque per-motor TMC2209 register-level
// collaborator spec.md §6 requires. It is deliberately narrow: no
// register name is exposed beyond what the motor lifecycle needs.
type TMCDriver interface {
	TestConnection() int
	RMSCurrent(milliAmps uint16)
	Microsteps(steps uint8)
	SGTHRS(threshold uint8)
	Toff(value uint8)
	BlankTime(value uint8)
	EnSpreadCycle(enable bool)
	PWMAutoscale(enable bool)
	TCOOLTHRS(value uint32)
	TPWMTHRS(value uint32)
}

// RegisterBus is the single-register read/write primitive a TMC2209
// sits behind (a UART multi-drop bus addressed by Addr, in the
// hardware target; an in-memory fake in tests/simulation).
type RegisterBus interface {
	ReadRegister(addr uint8, reg uint8) (uint32, error)
	WriteRegister(addr uint8, reg uint8, value uint32) error
}

// tmc2209Driver is the hand-rolled register-level driver for the
// TMC2209, addressed over a shared UART bus. It shadows the
// write-only GCONF/CHOPCONF/PWMCONF registers so that setting one
// field (e.g. toff) does not clobber another (e.g. microsteps) set
// earlier in the same configuration pass.
type tmc2209Driver struct {
	bus  RegisterBus
	addr uint8

	gconf    uint32
	chopconf uint32
	pwmconf  uint32
}

// NewTMC2209 returns a TMCDriver bound to one bus address.
func NewTMC2209(bus RegisterBus, addr uint8) *tmc2209Driver {
	return &tmc2209Driver{
		bus:      bus,
		addr:     addr,
		gconf:    tmc2209GconfPDNDisable | tmc2209GconfMStepRegSel | tmc2209GconfMultistepFilt,
		chopconf: 3 << tmc2209ChopconfTblShift,
	}
}

// TestConnection reads IOIN once and reports 0 when the bus returns a
// reply without error (-1 otherwise), mirroring the tmc_driver
// collaborator's test_connection()->int contract (0 == reachable).
func (d *tmc2209Driver) TestConnection() int {
	if _, err := d.bus.ReadRegister(d.addr, tmc2209RegIOIN); err != nil {
		return -1
	}
	return 0
}

func (d *tmc2209Driver) RMSCurrent(milliAmps uint16) {
	irun, vsense := currentToIRun(milliAmps)
	ihold := irun / 2

	chop := d.chopconf &^ uint32(tmc2209ChopconfVSense)
	if vsense {
		chop |= tmc2209ChopconfVSense
	}
	d.chopconf = chop
	d.writeRegister(tmc2209RegCHOPCONF, d.chopconf)

	ihr := (uint32(irun) << tmc2209IrunShift) | (uint32(ihold) << tmc2209IholdShift)
	d.writeRegister(tmc2209RegIHOLDIRUN, ihr)
}

func (d *tmc2209Driver) Microsteps(steps uint8) {
	mres := tmc2209MresFromMicrosteps(steps)
	d.chopconf = (d.chopconf &^ uint32(tmc2209ChopconfMresMask)) | (mres << tmc2209ChopconfMresShift)
	d.writeRegister(tmc2209RegCHOPCONF, d.chopconf)
}

func (d *tmc2209Driver) SGTHRS(threshold uint8) {
	d.writeRegister(tmc2209RegSGTHRS, uint32(threshold))
}

func (d *tmc2209Driver) Toff(value uint8) {
	d.chopconf = (d.chopconf &^ uint32(tmc2209ChopconfToffMask)) | (uint32(value) & 0x0F)
	d.writeRegister(tmc2209RegCHOPCONF, d.chopconf)
}

func (d *tmc2209Driver) BlankTime(value uint8) {
	d.chopconf = (d.chopconf &^ uint32(tmc2209ChopconfTblMask)) | (uint32(value)&0x03)<<tmc2209ChopconfTblShift
	d.writeRegister(tmc2209RegCHOPCONF, d.chopconf)
}

func (d *tmc2209Driver) EnSpreadCycle(enable bool) {
	if enable {
		d.gconf |= tmc2209GconfEnSpreadCycle
	} else {
		d.gconf &^= uint32(tmc2209GconfEnSpreadCycle)
	}
	d.writeRegister(tmc2209RegGCONF, d.gconf)
}

func (d *tmc2209Driver) PWMAutoscale(enable bool) {
	if enable {
		d.pwmconf |= tmc2209PwmconfAutoscale | tmc2209PwmconfAutograd
	} else {
		d.pwmconf &^= uint32(tmc2209PwmconfAutoscale | tmc2209PwmconfAutograd)
	}
	d.writeRegister(tmc2209RegPWMCONF, d.pwmconf)
}

func (d *tmc2209Driver) TCOOLTHRS(value uint32) {
	d.writeRegister(tmc2209RegTCOOLTHRS, value&0xFFFFF)
}

func (d *tmc2209Driver) TPWMTHRS(value uint32) {
	d.writeRegister(tmc2209RegTPWMTHRS, value&0xFFFFF)
}

func (d *tmc2209Driver) writeRegister(reg uint8, value uint32) {
	_ = d.bus.WriteRegister(d.addr, reg, value)
}

// currentToIRun converts a desired RMS run current in milliamps into
// the IRUN field (0..31) and the VSENSE flag, using the 0.11Ω sense
// resistor and datasheet formula I_rms = (IRUN+1)/32 * V_fs/R_sense /
// sqrt(2), with V_fs = 0.325V (VSENSE=1) chosen once IRUN would
// otherwise saturate at the 0.180V range.
func currentToIRun(milliAmps uint16) (irun uint8, vsense bool) {
	const senseResistor = 0.11
	const sqrt2 = 1.41421356
	tryRange := func(fullScale float64) int {
		irun := int(float64(milliAmps)/1000.0*32.0*sqrt2*senseResistor/fullScale - 1)
		if irun < 0 {
			irun = 0
		}
		if irun > 31 {
			irun = 31
		}
		return irun
	}

	if r := tryRange(0.180); r < 31 {
		return uint8(r), false
	}
	return uint8(tryRange(0.325)), true
}
