package dsss

// FramerState names a state in the frame-recovery state machine (§4.4).
type FramerState int

const (
	SearchPreamble FramerState = iota
	SearchSync
	ReadHeader
	ReadPayload
)

// BuildOptions names the header fields a sender chooses for one frame.
type BuildOptions struct {
	SequenceNo byte
	FrameType  byte
	LdpcNType  int
}

// Build validates the payload against the selected LDPC variant's
// usable capacity (UserBytes), records the real payload length where
// there's room to (see lengthPrefixBytes), pads the rest to k bits,
// LDPC-encodes to n bits, and prepends the 16-bit header and 12-bit
// preamble+sync-word. Build is stateless: every call is independent.
func Build(payload []byte, opts BuildOptions) ([]HardBit, error) {
	variant := LDPCVariants[opts.LdpcNType]
	raw := variant.K / 8
	usable := UserBytes(opts.LdpcNType)
	if len(payload) > usable {
		return nil, &ErrPayloadTooLarge{Got: len(payload), Max: usable}
	}
	if raw <= lengthPrefixBytes && len(payload) != raw {
		return nil, &ErrPayloadTooLarge{Got: len(payload), Max: raw}
	}

	msg := make([]HardBit, variant.K)
	if raw <= lengthPrefixBytes {
		copy(msg, bytesToBits(payload))
	} else {
		copy(msg, bytesToBits([]byte{byte(len(payload))}))
		copy(msg[8*lengthPrefixBytes:], bytesToBits(payload))
	}

	code := codeForVariant(opts.LdpcNType)
	codeword := code.Encode(msg)

	out := make([]HardBit, 0, len(Preamble)+len(SyncWord)+headerBits+variant.N)
	out = append(out, Preamble...)
	out = append(out, SyncWord...)
	out = append(out, headerBitsOf(FrameHeader{
		FrameType:  opts.FrameType,
		LdpcNType:  byte(opts.LdpcNType),
		SequenceNo: opts.SequenceNo,
	})...)
	out = append(out, codeword...)
	return out, nil
}

// Framer consumes a soft-bit stream and recovers frames. Unlike Build, it
// is fully stateful: SEARCH_PREAMBLE -> SEARCH_SYNC -> READ_HEADER ->
// READ_PAYLOAD(n), looping back to SEARCH_PREAMBLE on every successful
// or failed frame.
type Framer struct {
	state FramerState
	buf   []LLR

	syncScanned int
	curHeader   FrameHeader

	PreambleLLRMin    int
	SyncSearchTimeout int
	MaxIterations     int

	HeaderCRCErrors int
	LDPCFailures    int
}

// NewFramer builds a Framer using the tunables named in cfg.
func NewFramer(cfg Config) *Framer {
	return &Framer{
		PreambleLLRMin:    cfg.PreambleLLRMin,
		SyncSearchTimeout: cfg.SyncSearchTimeout,
		MaxIterations:     cfg.MaxIterations,
	}
}

// Reset returns the framer to SEARCH_PREAMBLE and discards any partially
// accumulated bits, without resetting its cumulative statistics.
func (f *Framer) Reset() {
	f.state = SearchPreamble
	f.buf = nil
	f.syncScanned = 0
}

// Process consumes newly available soft bits and returns every frame
// completed during this call, in arrival order. It never blocks: each
// state consumes as many bits as it needs as soon as they're available,
// so the internal buffer never holds more than one state's worth of
// pending work (at most n_max + 28 bits, per §4.4's back-pressure note).
func (f *Framer) Process(bits []LLR) []Frame {
	f.buf = append(f.buf, bits...)

	var frames []Frame
	for {
		switch f.state {
		case SearchPreamble:
			if len(f.buf) < len(Preamble) {
				return frames
			}
			if allStrongZero(f.buf[:len(Preamble)], f.PreambleLLRMin) {
				f.buf = f.buf[len(Preamble):]
				f.state = SearchSync
				f.syncScanned = 0
			} else {
				f.buf = f.buf[1:]
			}

		case SearchSync:
			if len(f.buf) < len(SyncWord) {
				return frames
			}
			hard := hardBitsFrom(f.buf[:len(SyncWord)])
			if hammingDistance(hard, SyncWord) <= 1 {
				f.buf = f.buf[len(SyncWord):]
				f.state = ReadHeader
			} else {
				f.buf = f.buf[1:]
				f.syncScanned++
				if f.syncScanned >= f.SyncSearchTimeout {
					f.state = SearchPreamble
				}
			}

		case ReadHeader:
			if len(f.buf) < headerBits {
				return frames
			}
			hard := hardBitsFrom(f.buf[:headerBits])
			f.buf = f.buf[headerBits:]
			header, ok := parseHeaderBits(hard)
			if !ok {
				f.HeaderCRCErrors++
				f.state = SearchPreamble
				continue
			}
			f.curHeader = header
			f.state = ReadPayload

		case ReadPayload:
			variant := LDPCVariants[f.curHeader.LdpcNType]
			if len(f.buf) < variant.N {
				return frames
			}
			payloadLLR := append([]LLR(nil), f.buf[:variant.N]...)
			f.buf = f.buf[variant.N:]
			f.state = SearchPreamble

			result := codeForVariant(int(f.curHeader.LdpcNType)).Decode(payloadLLR, f.MaxIterations)
			if !result.Converged {
				f.LDPCFailures++
				continue
			}
			frames = append(frames, Frame{
				Header:  f.curHeader,
				Payload: trimToPayloadLength(result.Message, variant),
			})
		}
	}
}

// trimToPayloadLength recovers the real payload from a decoded LDPC
// message, undoing Build's length-prefix convention: variants with no
// spare capacity for a prefix (raw capacity <= lengthPrefixBytes) are
// always exactly their raw byte count; every other variant's first
// lengthPrefixBytes record how many of the following bytes are real
// data.
func trimToPayloadLength(msg []HardBit, variant ldpcVariant) []byte {
	raw := variant.K / 8
	all := bitsToBytes(msg)
	if raw <= lengthPrefixBytes {
		return all
	}
	length := int(all[0])
	if length > raw-lengthPrefixBytes {
		length = raw - lengthPrefixBytes
	}
	return all[lengthPrefixBytes : lengthPrefixBytes+length]
}

func allStrongZero(llrs []LLR, minMagnitude int) bool {
	for _, l := range llrs {
		if l.Bit() != 0 || l.Abs() <= minMagnitude {
			return false
		}
	}
	return true
}

func hardBitsFrom(llrs []LLR) []HardBit {
	out := make([]HardBit, len(llrs))
	for i, l := range llrs {
		out[i] = l.Bit()
	}
	return out
}

func hammingDistance(a, b []HardBit) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	d := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}
