package protocol

import "testing"

// fakeTransport is an in-memory ByteTransport backed by a byte slice,
// for exercising FrameLayer without real hardware.
type fakeTransport struct {
	rx  []byte
	pos int
	tx  []byte
}

func (f *fakeTransport) Available() bool { return f.pos < len(f.rx) }

func (f *fakeTransport) Read() byte {
	b := f.rx[f.pos]
	f.pos++
	return b
}

func (f *fakeTransport) Write(buf []byte) int {
	f.tx = append(f.tx, buf...)
	return len(buf)
}

func encodeFrame(t *testing.T, seq uint16, method Method, property Property, payload []byte) []byte {
	t.Helper()
	var raw [MaxFrameSize]byte
	n, err := Marshal(raw[:], seq, method, property, payload)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var encoded [MaxEncoded]byte
	encLen, err := Encode(encoded[:], raw[:n])
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	wire := append([]byte(nil), encoded[:encLen]...)
	return append(wire, 0)
}

func TestFrameLayerSendProducesDecodableWire(t *testing.T) {
	ft := &fakeTransport{}
	fl := NewFrameLayer(ft)

	payload := MarshalMotorEnable(MotorEnable{ID: 1, Enable: true})
	if err := fl.Send(7, ACK, MotEna, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	rx := &fakeTransport{rx: ft.tx}
	recv := NewFrameLayer(rx)
	if !recv.Recv() {
		t.Fatalf("expected a decoded frame")
	}
	f, ok := recv.Take()
	if !ok {
		t.Fatalf("Take reported no frame")
	}
	if f.Header.Sequence != 7 || f.Method() != ACK || f.Property() != MotEna {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestFrameLayerHoldsOneFrameUntilTaken(t *testing.T) {
	wire := encodeFrame(t, 1, GET, FwInfo, nil)
	wire = append(wire, encodeFrame(t, 2, GET, FwInfo, nil)...)

	ft := &fakeTransport{rx: wire}
	fl := NewFrameLayer(ft)

	if !fl.Recv() {
		t.Fatalf("expected first frame to be held")
	}
	// A second Recv call must not advance past the held frame.
	if !fl.Recv() {
		t.Fatalf("Recv should still report the held frame")
	}
	f, ok := fl.Take()
	if !ok || f.Header.Sequence != 1 {
		t.Fatalf("expected first frame, got %+v ok=%v", f, ok)
	}

	if !fl.Recv() {
		t.Fatalf("expected second frame after taking the first")
	}
	f, ok = fl.Take()
	if !ok || f.Header.Sequence != 2 {
		t.Fatalf("expected second frame, got %+v ok=%v", f, ok)
	}
}

func TestFrameLayerDropsChecksumMismatch(t *testing.T) {
	var raw [MaxFrameSize]byte
	n, err := Marshal(raw[:], 1, SET, SysEna, MarshalSysEnable(true))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	raw[n-1] ^= 0xFF // flip a payload byte, leaving the checksum stale

	var encoded [MaxEncoded]byte
	encLen, err := Encode(encoded[:], raw[:n])
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	wire := append(append([]byte(nil), encoded[:encLen]...), 0)

	ft := &fakeTransport{rx: wire}
	fl := NewFrameLayer(ft)

	var dropped error
	fl.SetDropHandler(func(reason error) { dropped = reason })

	if fl.Recv() {
		t.Fatalf("corrupted frame should not be held")
	}
	if dropped != ErrChecksumMismatch {
		t.Fatalf("expected checksum-mismatch drop, got %v", dropped)
	}
}
