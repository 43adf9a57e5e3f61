package dsss

import "fmt"

// ErrUnsupportedLength is returned when an M-sequence is requested for a
// length outside {15, 31, 63, 127, 255}.
type ErrUnsupportedLength struct {
	Length int
}

func (e *ErrUnsupportedLength) Error() string {
	return fmt.Sprintf("dsss: unsupported m-sequence length %d", e.Length)
}

// taps holds the Fibonacci-LFSR feedback tap positions (1-indexed from the
// MSB of an n-bit register) for the canonical primitive polynomial used at
// each supported sequence length. Feedback is the XOR of the register bits
// at these positions.
var taps = map[int][]int{
	15:  {4, 1},          // x^4 + x + 1
	31:  {5, 2},          // x^5 + x^2 + 1
	63:  {6, 1},          // x^6 + x + 1
	127: {7, 1},          // x^7 + x + 1
	255: {8, 6, 5, 1},    // x^8 + x^6 + x^5 + x + 1
}

var degreeForLength = map[int]int{15: 4, 31: 5, 63: 6, 127: 7, 255: 8}

// DefaultSeeds are the published default LFSR initial states per sequence
// length (external-interface defaults, §6).
var DefaultSeeds = map[int]uint32{
	15:  0b1000,
	31:  0b10101,
	63:  0b100001,
	127: 0b1000001,
	255: 0b10000001,
}

// SupportedLengths lists the valid M-sequence lengths.
func SupportedLengths() []int { return []int{15, 31, 63, 127, 255} }

// MSequence generates the canonical maximal-length chip sequence of the
// given length from the given non-zero seed, as +1/-1 chips. The sequence
// is a pure function of (length, seed): callers that need a stable
// reference hold onto the returned slice rather than regenerate it on a
// hot path (see ReferenceCache).
func MSequence(length int, seed uint32) ([]Chip, error) {
	n, ok := degreeForLength[length]
	if !ok {
		return nil, &ErrUnsupportedLength{Length: length}
	}
	if seed == 0 {
		seed = DefaultSeeds[length]
	}
	mask := uint32(1)<<n - 1
	state := seed & mask
	if state == 0 {
		state = DefaultSeeds[length] & mask
	}

	out := make([]Chip, length)
	tp := taps[length]
	for i := 0; i < length; i++ {
		// Output bit is the current LSB.
		bit := state & 1
		if bit == 0 {
			out[i] = +1
		} else {
			out[i] = -1
		}

		// Feedback XORs the tapped bits (counted from the MSB, 1-indexed).
		var fb uint32
		for _, t := range tp {
			pos := n - t // 0-indexed bit position from LSB
			fb ^= (state >> uint(pos)) & 1
		}
		state = (state >> 1) | (fb << uint(n-1))
		state &= mask
	}
	return out, nil
}
