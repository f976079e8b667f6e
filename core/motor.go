package core

import (
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/OpenRover/TriStepperController-Firmware/ring"
)

// pendingCapacity and doneCapacity must both be powers of two;
// doneCapacity is fixed at 2x pendingCapacity so a done-push can
// never be dropped (spec.md §9 Open Question #3): the ISR can
// complete at most one command per pending-queue slot drained, and a
// disable() drains done before it drains pending, so done can never
// hold more outstanding entries than pending could have produced.
const (
	pendingCapacity = 256
	doneCapacity    = 2 * pendingCapacity
)

// Command is one queued motion command, carried from the agent to the
// step ISR through Motor.Pending.
type Command struct {
	Seq      uint16
	Steps    int32
	Interval uint32
}

// MotorConfig is the agent-owned configuration snapshot pushed to the
// TMC driver on enable and on every SET MOT_CFG.
type MotorConfig struct {
	MicroSteps       uint8
	StallSensitivity uint8
	RMSCurrentMilliA uint16
}

// MoveNotifier lets Motor report move completion/rejection without
// depending on the wire protocol directly.
type MoveNotifier interface {
	AckMove(seq uint16)
	RejectMove(seq uint16, reason RejectReason)
}

// Motor owns one axis: its configuration, driver handle, GPIO pins,
// and the two ring buffers connecting the agent to the step ISR
// (spec.md §3 "Motor entity", §4.6).
type Motor struct {
	Addr   uint8
	Step   Pin
	Dir    Pin
	Diag   Pin
	Driver TMCDriver

	notifier MoveNotifier

	enabled  atomic.Bool
	lock     atomic.Bool
	irqState State

	// ISR-owned once enabled; the agent touches these only inside
	// Disable, after clearing enabled.
	LastStep Micros
	Steps    int32
	Interval uint32

	// Position is a signed STEP-pin toggle counter the ISR advances on
	// every pulse; read by the POS telemetry task, never written
	// outside the ISR. Two toggles per mechanical step (double-edge
	// stepping, spec.md §4.5), so this is in half-step units.
	Position int64

	// activeSeq/hasActive track the sequence number of the command
	// currently loaded into Steps/Interval, so the ISR can report its
	// own completion to Done once Steps reaches zero, rather than the
	// seq of whatever gets loaded next.
	activeSeq uint16
	hasActive bool

	Pending *ring.Buffer[Command]
	Done    *ring.Buffer[uint16]

	config MotorConfig

	watcher      *Task
	watchBackoff backoff.BackOff
}

// NewMotor constructs a disabled motor bound to its pins and driver.
// notifier may be nil if the caller intends to wire the real Agent in
// afterward (NewSystem does this, breaking the Agent/Motor
// construction cycle); no notifier method is called before that
// happens in the normal startup sequence.
func NewMotor(addr uint8, step, dir, diag Pin, driver TMCDriver, notifier MoveNotifier) *Motor {
	m := &Motor{
		Addr:     addr,
		Step:     step,
		Dir:      dir,
		Diag:     diag,
		Driver:   driver,
		notifier: notifier,
		Pending:  ring.NewBuffer[Command](pendingCapacity),
		Done:     ring.NewBuffer[uint16](doneCapacity),
		config: MotorConfig{
			MicroSteps:       32,
			StallSensitivity: 40,
			RMSCurrentMilliA: 1000,
		},
	}
	m.watchBackoff = backoff.NewExponentialBackOff()
	m.watcher = NewOnceTask(m.tickConnectWatcher)
	return m
}

// Init idempotently resets pin/driver state and leaves the motor
// disabled.
func (m *Motor) Init() {
	m.Step.Write(false)
	m.Dir.Write(false)
	m.Disable()
}

// Enabled reports whether the ISR currently services this motor.
func (m *Motor) Enabled() bool { return m.enabled.Load() }

// Locked reports whether the ISR must currently skip this motor.
func (m *Motor) Locked() bool { return m.lock.Load() }

// Lock temporarily excludes the ISR from touching this motor's
// steps/interval/last_step/pins, so the caller can safely mutate
// them from the agent context. It both masks the hardware step
// interrupt (a no-op on the simulated host build) and sets the
// lock flag the ISR itself checks, so the exclusion holds whichever
// of the two the platform's step loop actually observes.
func (m *Motor) Lock() {
	m.irqState = disableInterrupts()
	m.lock.Store(true)
}

// Unlock re-admits the ISR.
func (m *Motor) Unlock() {
	m.lock.Store(false)
	restoreInterrupts(m.irqState)
}

// Online reports whether the TMC driver answers on the bus.
func (m *Motor) Online() bool {
	return m.Driver.TestConnection() == 0
}

// Enable is a no-op if already enabled; otherwise it pushes the
// config snapshot to the driver, arms toff, seeds last_step, and sets
// enabled last so the ISR never observes a partially-configured
// motor (spec.md §4.6).
func (m *Motor) Enable(now Micros) {
	if m.enabled.Load() {
		return
	}
	m.pushConfig()
	m.Driver.Toff(5)
	m.LastStep = now
	m.enabled.Store(true)
}

// Disable clears enabled first, then drains Done (emitting one ACK
// per entry), drains Pending (emitting one REJ per entry), and zeros
// the ISR-owned fields (spec.md §3 Lifecycle). The drain runs with the
// ISR locked out, since it shares Pending/Done with a concurrently
// running tickMotor otherwise.
func (m *Motor) Disable() {
	m.enabled.Store(false)
	m.Driver.Toff(0)

	m.Lock()
	defer m.Unlock()

	for m.Done.Readable() {
		m.notifier.AckMove(m.Done.Peek())
		m.Done.Pop()
	}
	for m.Pending.Readable() {
		m.notifier.RejectMove(m.Pending.Peek().Seq, ReasonMotorDisabled)
		m.Pending.Pop()
	}

	m.Steps = 0
	m.Interval = 0
	m.hasActive = false
}

// Config returns the current configuration snapshot.
func (m *Motor) Config() MotorConfig { return m.config }

// UpdateConfig replaces the configuration snapshot and, if the motor
// is enabled, immediately repushes it to the driver.
func (m *Motor) UpdateConfig(cfg MotorConfig) {
	m.config = cfg
	if m.enabled.Load() {
		m.pushConfig()
	}
}

func (m *Motor) pushConfig() {
	// Blank time controls step timing; 2 == 1us blanking.
	m.Driver.BlankTime(2)
	m.Driver.RMSCurrent(m.config.RMSCurrentMilliA)
	m.Driver.Microsteps(m.config.MicroSteps)
	m.Driver.EnSpreadCycle(false)
	m.Driver.PWMAutoscale(true)
	// DIAG only pulses in StealthChop mode while TCOOLTHRS >= TSTEP >
	// TPWMTHRS; leave the full 20-bit window open below TCOOLTHRS.
	m.Driver.TCOOLTHRS(0xFFFFF)
	m.Driver.TPWMTHRS(0x00000)
	m.Driver.SGTHRS(m.config.StallSensitivity)
}

// ArmConnectWatcher schedules the first connectivity check. Call once
// after adding ConnectWatcher() to a Scheduler.
func (m *Motor) ArmConnectWatcher(now Micros) {
	m.watcher.Schedule(now)
}

// ConnectWatcher returns the background Once task that retries
// TestConnection with exponential backoff while the motor is
// unreachable, so a caller never busy-waits on online() the way the
// original firmware's wait_online() did. Wire it into a Scheduler at
// startup; it reschedules itself forever.
func (m *Motor) ConnectWatcher() *Task { return m.watcher }

func (m *Motor) tickConnectWatcher(now Micros) {
	if m.Online() {
		m.watchBackoff.Reset()
		m.watcher.Sleep(now, Micros(time.Second.Microseconds()))
		return
	}
	delay := m.watchBackoff.NextBackOff()
	if delay == backoff.Stop {
		delay = time.Minute
	}
	m.watcher.Sleep(now, Micros(delay.Microseconds()))
}
