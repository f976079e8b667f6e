package core

import (
	"github.com/OpenRover/TriStepperController-Firmware/protocol"
)

// Identity is the ACK FW_INFO payload. It is a plain package variable;
// cmd/firmware does not change it, so every build reports this value.
var Identity = "stepper-core/dev"

// Agent is the frame dispatcher: it consumes validated frames off a
// protocol.FrameLayer, enqueues motion work, and emits replies
// (spec.md §4.7). It owns no ring buffers itself — each Motor carries
// its own — and implements MoveNotifier so a Motor's ISR-driven
// completions turn directly into ACK/REJ frames.
type Agent struct {
	link   *protocol.FrameLayer
	motors [3]*Motor

	driverEnabled bool
	seq           uint16 // sequence carried by the frame currently being handled
	now           Micros // clock reading for the Tick pass currently in progress

	connected         bool
	disconnectPending bool   // link.Connected() has read false at least once since the last up reading
	disconnectSince   Micros // when disconnectPending first went true
}

// disconnectGrace is how long transport.Connected() must read false
// continuously before checkTransport treats it as a real disconnect,
// mirroring the original agent.cpp's debounce against a momentary
// available()==false blip (a USB re-enumeration, a framing hiccup)
// rather than acting on a single transient read.
const disconnectGrace Micros = 500_000

// NewAgent binds an Agent to its transport and the three motors it
// dispatches MOT_* commands to, indexed by bus address.
func NewAgent(link *protocol.FrameLayer, motors [3]*Motor) *Agent {
	return &Agent{link: link, motors: motors, connected: true}
}

// AckMove implements MoveNotifier: emits a deferred ACK MOT_MOV for a
// completed command.
func (a *Agent) AckMove(seq uint16) {
	a.send(seq, protocol.ACK, protocol.MotMov, nil)
}

// RejectMove implements MoveNotifier: emits REJ MOT_MOV for a
// command that will never complete.
func (a *Agent) RejectMove(seq uint16, reason RejectReason) {
	a.reject(seq, protocol.MotMov, reason.String())
}

// DriverEnabled reports the global driver-enable flag tracked by the
// last SET/GET SYS_ENA.
func (a *Agent) DriverEnabled() bool { return a.driverEnabled }

// Link returns the frame layer this Agent dispatches on, so the
// telemetry tasks can share it for LOG/SYN emission.
func (a *Agent) Link() *protocol.FrameLayer { return a.link }

// Tick drains every motor's done ring (emitting deferred ACKs) and
// then processes as many inbound frames as the transport currently
// has buffered. It is the Agent's scheduler Recurrent task body; it
// never blocks and never suspends (spec.md §5).
func (a *Agent) Tick(now Micros) {
	a.now = now

	for _, m := range a.motors {
		for m.Done.Readable() {
			a.AckMove(m.Done.Peek())
			m.Done.Pop()
		}
	}

	a.checkTransport()
	if !a.connected {
		return
	}

	for a.link.Recv() {
		frame, ok := a.link.Take()
		if !ok {
			return
		}
		a.dispatch(frame)
	}
}

// checkTransport detects a sustained transport disconnect and, once
// one is confirmed, performs the same shutdown a host SET SYS_ENA
// false would: every motor disabled, driver off (spec.md §4.7). A
// disconnect must hold for disconnectGrace before it is acted on, so a
// single transient Connected()==false read changes nothing.
func (a *Agent) checkTransport() {
	if a.link.Connected() {
		a.disconnectPending = false
		a.connected = true
		return
	}

	if !a.disconnectPending {
		a.disconnectPending = true
		a.disconnectSince = a.now
		return
	}
	if a.now-a.disconnectSince < disconnectGrace {
		return
	}

	if !a.connected {
		return
	}
	a.connected = false
	if !a.driverEnabled {
		return
	}
	for _, m := range a.motors {
		m.Disable()
	}
	a.driverEnabled = false
}

func (a *Agent) dispatch(frame protocol.Frame) {
	a.seq = frame.Header.Sequence
	method, property := frame.Method(), frame.Property()

	DebugPrintln("[Agent] dispatch seq=" + itoa(int(a.seq)) + " method=" + method.String() + " property=" + property.String())

	switch {
	case method == protocol.GET && property == protocol.FwInfo:
		a.send(a.seq, protocol.ACK, protocol.FwInfo, []byte(Identity))

	case method == protocol.GET && property == protocol.SysEna:
		a.send(a.seq, protocol.ACK, protocol.SysEna, protocol.MarshalSysEnable(a.driverEnabled))

	case method == protocol.SET && property == protocol.SysEna:
		a.handleSetSysEna(frame.Payload)

	case method == protocol.GET && property == protocol.MotEna:
		a.handleGetMotEna(frame.Payload)

	case method == protocol.SET && property == protocol.MotEna:
		a.handleSetMotEna(frame.Payload)

	case method == protocol.GET && property == protocol.MotCfg:
		a.handleGetMotCfg(frame.Payload)

	case method == protocol.SET && property == protocol.MotCfg:
		a.handleSetMotCfg(frame.Payload)

	case method == protocol.SET && property == protocol.MotMov:
		a.handleSetMotMov(frame.Payload)

	default:
		a.reject(a.seq, protocol.NA, UnsupportedCommand(method.String(), property.String()))
	}
}

func (a *Agent) handleSetSysEna(payload []byte) {
	enable, err := protocol.UnmarshalSysEnable(payload)
	if err != nil {
		a.reject(a.seq, protocol.SysEna, string(ReasonInvalidPayload))
		return
	}
	if enable {
		a.driverEnabled = true
	} else {
		// Not checking motor.Online here: a master disable must always
		// take effect regardless of bus health.
		for _, m := range a.motors {
			m.Disable()
		}
		a.driverEnabled = false
	}
	a.send(a.seq, protocol.ACK, protocol.SysEna, protocol.MarshalSysEnable(a.driverEnabled))
}

func (a *Agent) motorByID(id uint8) *Motor {
	for _, m := range a.motors {
		if m.Addr == id {
			return m
		}
	}
	return nil
}

func (a *Agent) handleGetMotEna(payload []byte) {
	id, err := protocol.UnmarshalMotorID(payload)
	if err != nil {
		a.reject(a.seq, protocol.MotEna, string(ReasonInvalidPayload))
		return
	}
	m := a.motorByID(id)
	if m == nil {
		a.reject(a.seq, protocol.MotEna, string(ReasonNoSuchMotor))
		return
	}
	a.send(a.seq, protocol.ACK, protocol.MotEna, protocol.MarshalMotorEnable(protocol.MotorEnable{ID: id, Enable: m.Enabled()}))
}

func (a *Agent) handleSetMotEna(payload []byte) {
	req, err := protocol.UnmarshalMotorEnable(payload)
	if err != nil {
		a.reject(a.seq, protocol.MotEna, string(ReasonInvalidPayload))
		return
	}
	m := a.motorByID(req.ID)
	if m == nil {
		a.reject(a.seq, protocol.MotEna, string(ReasonNoSuchMotor))
		return
	}
	if req.Enable != m.Enabled() {
		if !m.Online() {
			a.reject(a.seq, protocol.MotEna, string(ReasonMotorOffline))
			return
		}
		if req.Enable {
			m.Enable(a.now)
		} else {
			m.Disable()
		}
	}
	a.send(a.seq, protocol.ACK, protocol.MotEna, protocol.MarshalMotorEnable(protocol.MotorEnable{ID: req.ID, Enable: m.Enabled()}))
}

func (a *Agent) handleGetMotCfg(payload []byte) {
	id, err := protocol.UnmarshalMotorID(payload)
	if err != nil {
		a.reject(a.seq, protocol.MotCfg, string(ReasonInvalidPayload))
		return
	}
	m := a.motorByID(id)
	if m == nil {
		a.reject(a.seq, protocol.MotCfg, string(ReasonNoSuchMotor))
		return
	}
	a.send(a.seq, protocol.ACK, protocol.MotCfg, protocol.MarshalMotorConfig(toWireConfig(id, m.Config())))
}

func (a *Agent) handleSetMotCfg(payload []byte) {
	cfg, err := protocol.UnmarshalMotorConfig(payload)
	if err != nil {
		a.reject(a.seq, protocol.MotCfg, string(ReasonInvalidPayload))
		return
	}
	m := a.motorByID(cfg.ID)
	if m == nil {
		a.reject(a.seq, protocol.MotCfg, string(ReasonNoSuchMotor))
		return
	}
	if !m.Online() {
		a.reject(a.seq, protocol.MotCfg, string(ReasonMotorOffline))
		return
	}
	m.UpdateConfig(fromWireConfig(cfg))
	a.send(a.seq, protocol.ACK, protocol.MotCfg, protocol.MarshalMotorConfig(toWireConfig(cfg.ID, m.Config())))
}

func (a *Agent) handleSetMotMov(payload []byte) {
	mv, err := protocol.UnmarshalMotorMove(payload)
	if err != nil {
		a.reject(a.seq, protocol.MotMov, string(ReasonInvalidPayload))
		return
	}
	m := a.motorByID(mv.ID)
	if m == nil {
		a.reject(a.seq, protocol.MotMov, string(ReasonNoSuchMotor))
		return
	}
	if !m.Enabled() {
		a.reject(a.seq, protocol.MotMov, string(ReasonMotorDisabled))
		return
	}
	if !m.Pending.Writable() {
		a.reject(a.seq, protocol.MotMov, string(ReasonMotorQueueFull))
		return
	}
	m.Pending.Push(Command{Seq: a.seq, Steps: mv.Steps, Interval: mv.Interval})
	// ACK deferred until the ISR reports completion via Motor.Done.
}

func (a *Agent) send(seq uint16, method protocol.Method, property protocol.Property, payload []byte) {
	_ = a.link.Send(seq, method, property, payload)
}

func (a *Agent) reject(seq uint16, property protocol.Property, reason string) {
	DebugPrintln("[Agent] REJ seq=" + itoa(int(seq)) + " property=" + property.String() + " reason=" + reason)
	a.send(seq, protocol.REJ, property, []byte(reason))
}

func toWireConfig(id uint8, cfg MotorConfig) protocol.MotorConfig {
	return protocol.MotorConfig{ID: id, MicroSteps: cfg.MicroSteps, StallSensitivity: cfg.StallSensitivity, RMSCurrentMilliA: cfg.RMSCurrentMilliA}
}

func fromWireConfig(cfg protocol.MotorConfig) MotorConfig {
	return MotorConfig{MicroSteps: cfg.MicroSteps, StallSensitivity: cfg.StallSensitivity, RMSCurrentMilliA: cfg.RMSCurrentMilliA}
}
