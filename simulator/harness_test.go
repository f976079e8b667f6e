package simulator

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OpenRover/TriStepperController-Firmware/core"
)

type noopDriver struct{}

func (noopDriver) TestConnection() int { return 0 }
func (noopDriver) RMSCurrent(uint16)   {}
func (noopDriver) Microsteps(uint8)    {}
func (noopDriver) SGTHRS(uint8)        {}
func (noopDriver) Toff(uint8)          {}
func (noopDriver) BlankTime(uint8)     {}
func (noopDriver) EnSpreadCycle(bool)  {}
func (noopDriver) PWMAutoscale(bool)   {}
func (noopDriver) TCOOLTHRS(uint32)    {}
func (noopDriver) TPWMTHRS(uint32)     {}

// noopTransport accepts writes and never has anything available to
// read, good enough for a harness that is only being checked for
// clean startup/shutdown.
type noopTransport struct{}

func (noopTransport) Available() bool      { return false }
func (noopTransport) Read() byte           { return 0 }
func (noopTransport) Write(buf []byte) int { return len(buf) }

func newTestMotors() [3]*core.Motor {
	var motors [3]*core.Motor
	for i := range motors {
		motors[i] = core.NewMotor(uint8(i), core.NewMemPin(), core.NewMemPin(), core.NewMemPin(), noopDriver{}, nil)
	}
	return motors
}

func TestHarnessStopsCleanlyOnContextCancel(t *testing.T) {
	mock := clock.NewMock()
	h := New(noopTransport{}, newTestMotors(), nil, mock, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHarnessWiresSystemComponents(t *testing.T) {
	mock := clock.NewMock()
	h := New(noopTransport{}, newTestMotors(), nil, mock, zap.NewNop())

	// New() builds and starts the System; its motors, agent, step ISR
	// and telemetry should all be present.
	require.GreaterOrEqual(t, len(h.System.Motors), 3)
	require.NotNil(t, h.System.Agent)
	require.NotNil(t, h.System.ISR)
	require.NotNil(t, h.System.Telemetry)
}
