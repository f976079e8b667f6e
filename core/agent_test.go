package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OpenRover/TriStepperController-Firmware/protocol"
)

// loopTransport is an in-memory protocol.ByteTransport: Write appends
// to out, and Available/Read drain whatever was queued into in. It
// also implements protocol.ConnectionChecker so disconnect-handling
// tests can flip connected without a real transport.
type loopTransport struct {
	in        []byte
	out       []byte
	connected bool
}

func newLoopTransport() *loopTransport { return &loopTransport{connected: true} }

func (t *loopTransport) Available() bool { return len(t.in) > 0 }
func (t *loopTransport) Read() byte {
	b := t.in[0]
	t.in = t.in[1:]
	return b
}
func (t *loopTransport) Write(buf []byte) int {
	t.out = append(t.out, buf...)
	return len(buf)
}
func (t *loopTransport) Connected() bool { return t.connected }

// queueFrame encodes a request frame onto the transport's input, the
// way a host would write it onto the wire.
func (t *loopTransport) queueFrame(seq uint16, method protocol.Method, property protocol.Property, payload []byte) {
	var raw [protocol.MaxFrameSize]byte
	n, err := protocol.Marshal(raw[:], seq, method, property, payload)
	if err != nil {
		panic(err)
	}
	var encoded [protocol.MaxEncoded]byte
	encLen, err := protocol.Encode(encoded[:], raw[:n])
	if err != nil {
		panic(err)
	}
	t.in = append(t.in, encoded[:encLen]...)
	t.in = append(t.in, 0)
}

// takeFrames decodes every complete frame currently sitting in out and
// clears it, the way a host-side FrameLayer would consume replies.
func (t *loopTransport) takeFrames() []protocol.Frame {
	var frames []protocol.Frame
	var dec protocol.Decoder
	for _, b := range t.out {
		length, done, err := dec.Feed(b)
		if err != nil || !done {
			continue
		}
		f, err := protocol.Unmarshal(dec.Bytes()[:length])
		if err != nil {
			continue
		}
		frames = append(frames, f)
	}
	t.out = nil
	return frames
}

func newTestAgent() (*Agent, [3]*Motor, *loopTransport) {
	transport := newLoopTransport()
	link := protocol.NewFrameLayer(transport)

	var motors [3]*Motor
	for i := range motors {
		motors[i] = NewMotor(uint8(i), NewMemPin(), NewMemPin(), NewMemPin(), newFakeDriver(), nil)
	}
	agent := NewAgent(link, motors)
	for _, m := range motors {
		m.notifier = agent
	}
	return agent, motors, transport
}

func TestDispatchGetFwInfo(t *testing.T) {
	agent, _, transport := newTestAgent()
	transport.queueFrame(1, protocol.GET, protocol.FwInfo, nil)

	agent.Tick(0)

	frames := transport.takeFrames()
	require.Len(t, frames, 1)
	require.Equal(t, protocol.ACK, frames[0].Method())
	require.Equal(t, protocol.FwInfo, frames[0].Property())
	require.Equal(t, Identity, string(frames[0].Payload))
}

func TestDispatchUnsupportedPropertyIsRejected(t *testing.T) {
	agent, _, transport := newTestAgent()
	transport.queueFrame(7, protocol.GET, protocol.MotHome, nil)

	agent.Tick(0)

	frames := transport.takeFrames()
	require.Len(t, frames, 1)
	require.Equal(t, protocol.REJ, frames[0].Method())
	require.Equal(t, protocol.NA, frames[0].Property())
	require.Equal(t, uint16(7), frames[0].Header.Sequence)
}

func TestSetSysEnaFalseDisablesEveryMotor(t *testing.T) {
	agent, motors, transport := newTestAgent()
	for _, m := range motors {
		m.Enable(0)
	}
	agent.driverEnabled = true

	transport.queueFrame(2, protocol.SET, protocol.SysEna, protocol.MarshalSysEnable(false))
	agent.Tick(0)

	for _, m := range motors {
		require.False(t, m.Enabled())
	}
	require.False(t, agent.DriverEnabled())

	frames := transport.takeFrames()
	require.Len(t, frames, 1)
	require.Equal(t, protocol.ACK, frames[0].Method())
	require.Equal(t, protocol.SysEna, frames[0].Property())
}

func TestSetMotMovRejectsWhenMotorDisabled(t *testing.T) {
	agent, _, transport := newTestAgent()
	transport.queueFrame(3, protocol.SET, protocol.MotMov, protocol.MarshalMotorMove(protocol.MotorMove{ID: 0, Steps: 10, Interval: 10}))

	agent.Tick(0)

	frames := transport.takeFrames()
	require.Len(t, frames, 1)
	require.Equal(t, protocol.REJ, frames[0].Method())
	require.Equal(t, protocol.MotMov, frames[0].Property())
	require.Equal(t, string(ReasonMotorDisabled), string(frames[0].Payload))
}

func TestSetMotMovRejectsOnNoSuchMotor(t *testing.T) {
	agent, _, transport := newTestAgent()
	transport.queueFrame(4, protocol.SET, protocol.MotMov, protocol.MarshalMotorMove(protocol.MotorMove{ID: 9, Steps: 10, Interval: 10}))

	agent.Tick(0)

	frames := transport.takeFrames()
	require.Len(t, frames, 1)
	require.Equal(t, protocol.REJ, frames[0].Method())
	require.Equal(t, string(ReasonNoSuchMotor), string(frames[0].Payload))
}

// TestSetMotMovRejectsOnQueueFullAtExactBoundary exercises spec.md §8
// scenario 4 literally: all 256 declared pending slots accept a push,
// and only the 257th is rejected.
func TestSetMotMovRejectsOnQueueFullAtExactBoundary(t *testing.T) {
	agent, motors, transport := newTestAgent()
	motors[0].Enable(0)

	for i := 0; i < pendingCapacity; i++ {
		require.True(t, motors[0].Pending.Writable(), "slot %d should still be writable", i)
		motors[0].Pending.Push(Command{Seq: uint16(i), Steps: 1, Interval: 10})
	}
	require.False(t, motors[0].Pending.Writable(), "all %d declared slots should now be full", pendingCapacity)

	transport.queueFrame(9, protocol.SET, protocol.MotMov, protocol.MarshalMotorMove(protocol.MotorMove{ID: 0, Steps: 10, Interval: 10}))
	agent.Tick(0)

	frames := transport.takeFrames()
	require.Len(t, frames, 1)
	require.Equal(t, protocol.REJ, frames[0].Method())
	require.Equal(t, string(ReasonMotorQueueFull), string(frames[0].Payload))
}

// TestMotMovAckIsDeferredUntilIsrCompletion checks that the ACK for a
// queued move only appears once the step ISR has drained the command
// into the motor's Done ring and a subsequent Tick drains that ring,
// not at enqueue time.
func TestMotMovAckIsDeferredUntilIsrCompletion(t *testing.T) {
	agent, motors, transport := newTestAgent()
	motors[0].Enable(0)

	transport.queueFrame(5, protocol.SET, protocol.MotMov, protocol.MarshalMotorMove(protocol.MotorMove{ID: 0, Steps: 3, Interval: 10}))
	agent.Tick(0)
	require.Empty(t, transport.takeFrames(), "no ACK before the ISR has run")

	isr := NewStepISR(motors[0])
	now := Micros(0)
	for i := 0; i < 10; i++ {
		now += 10
		isr.Tick(now)
	}

	agent.Tick(now)
	frames := transport.takeFrames()
	require.Len(t, frames, 1)
	require.Equal(t, protocol.ACK, frames[0].Method())
	require.Equal(t, protocol.MotMov, frames[0].Property())
	require.Equal(t, uint16(5), frames[0].Header.Sequence)
}

func TestTransientDisconnectDoesNotForceShutdown(t *testing.T) {
	agent, motors, transport := newTestAgent()
	for _, m := range motors {
		m.Enable(0)
	}
	agent.driverEnabled = true
	agent.connected = true

	transport.connected = false
	agent.Tick(0)
	transport.connected = true
	agent.Tick(1)

	for _, m := range motors {
		require.True(t, m.Enabled(), "a single transient disconnected read must not trip shutdown")
	}
	require.True(t, agent.DriverEnabled())
}

func TestSustainedDisconnectForcesShutdown(t *testing.T) {
	agent, motors, transport := newTestAgent()
	for _, m := range motors {
		m.Enable(0)
	}
	agent.driverEnabled = true
	agent.connected = true

	transport.connected = false
	agent.Tick(0)
	for _, m := range motors {
		require.True(t, m.Enabled(), "disconnect must debounce for disconnectGrace before acting")
	}

	agent.Tick(disconnectGrace + 1)

	for _, m := range motors {
		require.False(t, m.Enabled())
	}
	require.False(t, agent.DriverEnabled())
}

func TestReconnectDoesNotReenableAnything(t *testing.T) {
	agent, motors, transport := newTestAgent()
	transport.connected = false

	agent.Tick(0)
	agent.Tick(disconnectGrace + 1)
	transport.connected = true
	agent.Tick(disconnectGrace + 2)

	for _, m := range motors {
		require.False(t, m.Enabled())
	}
}
