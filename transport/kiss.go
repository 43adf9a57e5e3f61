// Package transport exposes the acoustic modem as a virtual KISS TNC:
// a pseudo-terminal that speaks the same framed-byte protocol
// kissattach and similar client applications already understand. It is
// grounded on kiss.go/kiss_frame.go in the repo it is taken from, carried
// over from an AX.25-framed link to a dsss.Frame-framed one.
package transport

import "bytes"

const (
	fend  = 0xC0
	fesc  = 0xDB
	tfend = 0xDC
	tfesc = 0xDD
)

// KISSCmdDataFrame is the only command byte this TNC emits or accepts;
// port/channel is always 0 (a single acoustic channel), so the command
// byte that follows every opening FEND is 0x00.
const KISSCmdDataFrame = 0x00

// Encapsulate wraps payload in FEND delimiters with the port/command
// byte prepended, escaping any FEND/FESC bytes that appear in the data
// itself, the same way kiss_encapsulate does.
func Encapsulate(payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(fend)
	buf.WriteByte(KISSCmdDataFrame)
	for _, b := range payload {
		switch b {
		case fend:
			buf.WriteByte(fesc)
			buf.WriteByte(tfend)
		case fesc:
			buf.WriteByte(fesc)
			buf.WriteByte(tfesc)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(fend)
	return buf.Bytes()
}

// Decoder accumulates bytes from a KISS client one at a time (or from a
// bufio.Reader's Read result, split byte by byte) and reports each
// complete, de-escaped, de-framed payload. A frame starts at a FEND;
// bytes that arrive outside a frame are ignored.
type Decoder struct {
	inFrame bool
	escaped bool
	buf     []byte
}

// Push feeds one byte of client input to the decoder, returning the
// decoded payload (command byte stripped) and true whenever b completes
// a frame. An empty FEND FEND pair is not reported as a frame; a frame
// holding only the command byte is reported with an empty payload.
func (d *Decoder) Push(b byte) ([]byte, bool) {
	switch {
	case b == fend:
		if !d.inFrame {
			d.inFrame = true
			d.buf = d.buf[:0]
			return nil, false
		}
		d.inFrame = false
		frame := d.buf
		d.buf = nil
		if len(frame) == 0 {
			return nil, false
		}
		// First byte is the port/command nybble pair; this TNC only
		// ever emits and accepts data frames on channel 0.
		return frame[1:], true

	case !d.inFrame:
		return nil, false

	case b == fesc:
		d.escaped = true
		return nil, false

	case d.escaped:
		d.escaped = false
		switch b {
		case tfend:
			d.buf = append(d.buf, fend)
		case tfesc:
			d.buf = append(d.buf, fesc)
		default:
			d.buf = append(d.buf, b)
		}
		return nil, false

	default:
		d.buf = append(d.buf, b)
		return nil, false
	}
}
