package protocol

// ByteTransport is the serial byte link the frame layer reads and
// writes. Implementations are expected to be non-blocking: Available
// and Read must not suspend the caller waiting for bytes.
type ByteTransport interface {
	Available() bool
	Read() byte
	Write(buf []byte) int
}

// ConnectionChecker is an optional capability a ByteTransport may
// implement to report physical link presence (e.g. USB CDC DTR).
// Transports that don't implement it are treated as always connected.
type ConnectionChecker interface {
	Connected() bool
}

// FrameLayer composes and validates frames over a ByteTransport. recv
// holds at most one decoded, checksum-valid frame at a time; a caller
// must Take it before the next valid frame can be held, per the "never
// overwrite an unconsumed valid frame" requirement.
type FrameLayer struct {
	transport ByteTransport
	decoder   Decoder
	held      *Frame
	onDrop    func(reason error)
}

// NewFrameLayer wraps a ByteTransport with the codec and frame
// validation logic.
func NewFrameLayer(transport ByteTransport) *FrameLayer {
	return &FrameLayer{transport: transport}
}

// SetDropHandler installs a callback invoked whenever Recv silently
// discards a malformed or checksum-invalid frame. Intended for a debug
// LOG line; never required for correctness.
func (fl *FrameLayer) SetDropHandler(fn func(reason error)) {
	fl.onDrop = fn
}

// Send packs, checksums, byte-stuffs, and writes one frame in a single
// call with no suspension point.
func (fl *FrameLayer) Send(seq uint16, method Method, property Property, payload []byte) error {
	var raw [MaxFrameSize]byte
	n, err := Marshal(raw[:], seq, method, property, payload)
	if err != nil {
		return err
	}

	var encoded [MaxEncoded]byte
	encLen, err := Encode(encoded[:], raw[:n])
	if err != nil {
		return err
	}
	encoded[encLen] = 0
	fl.transport.Write(encoded[:encLen+1])
	return nil
}

// Recv pulls whatever bytes are currently available from the
// transport and advances the codec; it does not block. It returns
// true once a checksum-valid frame is ready and held. Malformed
// frames and checksum mismatches are discarded silently (per the
// transport-error policy) after notifying the drop handler, if any.
func (fl *FrameLayer) Recv() bool {
	if fl.held != nil {
		// An unconsumed valid frame occupies the slot; do not decode
		// further until it is taken.
		return true
	}

	for fl.transport.Available() {
		b := fl.transport.Read()
		length, done, err := fl.decoder.Feed(b)
		if err != nil {
			fl.drop(err)
			continue
		}
		if !done {
			continue
		}

		f, err := Unmarshal(fl.decoder.Bytes()[:length])
		if err != nil {
			fl.drop(err)
			continue
		}
		if !f.Validate() {
			fl.drop(ErrChecksumMismatch)
			continue
		}
		fl.held = &f
		return true
	}
	return false
}

// Take returns the currently held frame and clears the slot, or
// reports false if no frame is held.
func (fl *FrameLayer) Take() (Frame, bool) {
	if fl.held == nil {
		return Frame{}, false
	}
	f := *fl.held
	fl.held = nil
	return f, true
}

// Connected reports whether the underlying transport is physically
// attached, consulting ConnectionChecker if the transport implements
// it (spec.md §4.7's disconnect-detection requirement).
func (fl *FrameLayer) Connected() bool {
	if cc, ok := fl.transport.(ConnectionChecker); ok {
		return cc.Connected()
	}
	return true
}

func (fl *FrameLayer) drop(reason error) {
	if fl.onDrop != nil {
		fl.onDrop(reason)
	}
}
