package protocol

import (
	"bytes"
	"testing"
)

func TestFrameMarshalUnmarshalRoundTrip(t *testing.T) {
	payload := MarshalMotorMove(MotorMove{ID: 0, Steps: 1000, Interval: 200})

	var raw [MaxFrameSize]byte
	n, err := Marshal(raw[:], 42, SET, MotMov, payload)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	f, err := Unmarshal(raw[:n])
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !f.Validate() {
		t.Fatalf("frame failed validation")
	}
	if f.Header.Sequence != 42 {
		t.Fatalf("sequence mismatch: got %d", f.Header.Sequence)
	}
	if f.Method() != SET || f.Property() != MotMov {
		t.Fatalf("method/property mismatch: %v %v", f.Method(), f.Property())
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Fatalf("payload mismatch: got %v want %v", f.Payload, payload)
	}
}

func TestFrameChecksumDetectsCorruption(t *testing.T) {
	payload := MarshalSysEnable(true)
	var raw [MaxFrameSize]byte
	n, err := Marshal(raw[:], 1, SET, SysEna, payload)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	for i := 0; i < n; i++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), raw[:n]...)
			corrupted[i] ^= 1 << bit

			f, err := Unmarshal(corrupted)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if f.Validate() {
				t.Fatalf("byte %d bit %d: corruption went undetected", i, bit)
			}
		}
	}
}

func TestMarshalRejectsOversizedPayload(t *testing.T) {
	payload := make([]byte, MaxPayload+1)
	var raw [MaxFrameSize + 10]byte
	if _, err := Marshal(raw[:], 1, SET, MotMov, payload); err != ErrPayloadTooLarge {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}
