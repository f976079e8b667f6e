//go:build tinygo

package rp2040

import (
	"errors"
	"machine"

	"github.com/OpenRover/TriStepperController-Firmware/core"
)

// TMC UART datagram framing, grounded on the klipper tmc_uart.py port
// (AndySze-klipper's go/pkg/hosth4/tmc_uart.go: sync nibble 0x05,
// register|0x80 for a write, trailing CRC8) and the read-reply shape
// confirmed against a second independent Go TMC2209 UART driver in
// the retrieval pack (master address 0xFF in the reply datagram).
const (
	tmcUARTSync     = 0x05
	tmcUARTReadCmd  = 0x00
	tmcUARTWriteCmd = 0x80
	tmcUARTReplyTo  = 0xFF // master's address as seen in a read reply
)

var errTMCTimeout = errors.New("rp2040: tmc uart read timed out")
var errTMCBadCRC = errors.New("rp2040: tmc uart reply failed crc check")

// UARTBus is a core.RegisterBus over a shared, half-duplex UART line
// multi-dropping up to three TMC2209s by bus address. Every write
// datagram this driver transmits is echoed back on RX by the TMC2209
// itself (PDN_UART is wired as a single electrical node); WriteRegister
// drains that echo before returning so a following ReadRegister never
// mistakes it for the reply.
type UARTBus struct {
	uart *machine.UART
}

var _ core.RegisterBus = (*UARTBus)(nil)

// NewUARTBus wraps an already-configured *machine.UART (57600 8N1,
// the TMC2209's fixed UART rate) as a RegisterBus.
func NewUARTBus(uart *machine.UART) *UARTBus {
	return &UARTBus{uart: uart}
}

func crc8TMC(data []byte) byte {
	crc := byte(0)
	for _, b := range data {
		for i := 0; i < 8; i++ {
			if (crc>>7)^(b>>7) != 0 {
				crc = (crc << 1) ^ 0x07
			} else {
				crc = crc << 1
			}
			b <<= 1
		}
	}
	return crc
}

// WriteRegister sends a write datagram and drains its own echo.
func (b *UARTBus) WriteRegister(addr uint8, reg uint8, value uint32) error {
	msg := [8]byte{
		tmcUARTSync,
		addr,
		reg | tmcUARTWriteCmd,
		byte(value >> 24),
		byte(value >> 16),
		byte(value >> 8),
		byte(value),
	}
	msg[7] = crc8TMC(msg[:7])

	b.uart.Write(msg[:])
	return b.drain(len(msg))
}

// ReadRegister sends a 4-byte read request and parses the 8-byte
// reply datagram.
func (b *UARTBus) ReadRegister(addr uint8, reg uint8) (uint32, error) {
	req := [4]byte{tmcUARTSync, addr, reg | tmcUARTReadCmd}
	req[3] = crc8TMC(req[:3])

	b.uart.Write(req[:])
	if err := b.drain(len(req)); err != nil {
		return 0, err
	}

	var reply [8]byte
	if err := b.readFull(reply[:]); err != nil {
		return 0, err
	}
	if crc8TMC(reply[:7]) != reply[7] {
		return 0, errTMCBadCRC
	}
	value := uint32(reply[3])<<24 | uint32(reply[4])<<16 | uint32(reply[5])<<8 | uint32(reply[6])
	return value, nil
}

// drain discards n bytes of UART TX echo before the real reply (or
// nothing, for a write with no reply datagram) can arrive.
func (b *UARTBus) drain(n int) error {
	var scratch [8]byte
	return b.readFull(scratch[:n])
}

const tmcUARTTimeoutSpins = 1_000_000

func (b *UARTBus) readFull(buf []byte) error {
	for i := range buf {
		spins := 0
		for b.uart.Buffered() == 0 {
			spins++
			if spins > tmcUARTTimeoutSpins {
				return errTMCTimeout
			}
		}
		v, err := b.uart.ReadByte()
		if err != nil {
			return err
		}
		buf[i] = v
	}
	return nil
}
