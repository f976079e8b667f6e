package protocol

import (
	"encoding/binary"
	"errors"
)

// ErrInvalidPayload is returned when a payload's length doesn't match
// the shape required by its property.
var ErrInvalidPayload = errors.New("protocol: invalid payload")

const (
	// MotorConfigSize is the wire size of a MotorConfig payload.
	MotorConfigSize = 5
	// MotorMoveSize is the wire size of a MotorMove payload.
	MotorMoveSize = 9
	// MotorEnableSize is the wire size of a MotorEnable payload.
	MotorEnableSize = 2
	// MotorIDSize is the wire size of a bare motor-id GET request.
	MotorIDSize = 1
	// SysEnableSize is the wire size of a SysEnable payload.
	SysEnableSize = 1
)

// MotorConfig mirrors the MOT_CFG payload: {id, micro_steps, stall
// sensitivity, rms_current (mA)}.
type MotorConfig struct {
	ID               uint8
	MicroSteps       uint8
	StallSensitivity uint8
	RMSCurrentMilliA uint16
}

// MarshalMotorConfig encodes a MotorConfig into a 5-byte payload.
func MarshalMotorConfig(c MotorConfig) []byte {
	b := make([]byte, MotorConfigSize)
	b[0] = c.ID
	b[1] = c.MicroSteps
	b[2] = c.StallSensitivity
	binary.LittleEndian.PutUint16(b[3:5], c.RMSCurrentMilliA)
	return b
}

// UnmarshalMotorConfig decodes a MotorConfig payload.
func UnmarshalMotorConfig(b []byte) (MotorConfig, error) {
	if len(b) != MotorConfigSize {
		return MotorConfig{}, ErrInvalidPayload
	}
	return MotorConfig{
		ID:               b[0],
		MicroSteps:       b[1],
		StallSensitivity: b[2],
		RMSCurrentMilliA: binary.LittleEndian.Uint16(b[3:5]),
	}, nil
}

// MotorMove mirrors the MOT_MOV payload: {id, steps (signed), interval
// in microseconds}.
type MotorMove struct {
	ID       uint8
	Steps    int32
	Interval uint32
}

// MarshalMotorMove encodes a MotorMove into a 9-byte payload.
func MarshalMotorMove(m MotorMove) []byte {
	b := make([]byte, MotorMoveSize)
	b[0] = m.ID
	binary.LittleEndian.PutUint32(b[1:5], uint32(m.Steps))
	binary.LittleEndian.PutUint32(b[5:9], m.Interval)
	return b
}

// UnmarshalMotorMove decodes a MotorMove payload.
func UnmarshalMotorMove(b []byte) (MotorMove, error) {
	if len(b) != MotorMoveSize {
		return MotorMove{}, ErrInvalidPayload
	}
	return MotorMove{
		ID:       b[0],
		Steps:    int32(binary.LittleEndian.Uint32(b[1:5])),
		Interval: binary.LittleEndian.Uint32(b[5:9]),
	}, nil
}

// MotorEnable mirrors the MOT_ENA SET payload: {id, enable}.
type MotorEnable struct {
	ID     uint8
	Enable bool
}

// MarshalMotorEnable encodes a MotorEnable into a 2-byte payload.
func MarshalMotorEnable(e MotorEnable) []byte {
	b := make([]byte, MotorEnableSize)
	b[0] = e.ID
	if e.Enable {
		b[1] = 1
	}
	return b
}

// UnmarshalMotorEnable decodes a MotorEnable payload.
func UnmarshalMotorEnable(b []byte) (MotorEnable, error) {
	if len(b) != MotorEnableSize {
		return MotorEnable{}, ErrInvalidPayload
	}
	return MotorEnable{ID: b[0], Enable: b[1] != 0}, nil
}

// MarshalMotorID encodes a bare motor-id payload, used by GET
// requests that address a single motor (MOT_ENA, MOT_CFG).
func MarshalMotorID(id uint8) []byte {
	return []byte{id}
}

// UnmarshalMotorID decodes a bare motor-id payload.
func UnmarshalMotorID(b []byte) (uint8, error) {
	if len(b) != MotorIDSize {
		return 0, ErrInvalidPayload
	}
	return b[0], nil
}

// MarshalSysEnable encodes the SYS_ENA payload: {enable}.
func MarshalSysEnable(enable bool) []byte {
	if enable {
		return []byte{1}
	}
	return []byte{0}
}

// UnmarshalSysEnable decodes the SYS_ENA payload.
func UnmarshalSysEnable(b []byte) (bool, error) {
	if len(b) != SysEnableSize {
		return false, ErrInvalidPayload
	}
	return b[0] != 0, nil
}
