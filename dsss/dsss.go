package dsss

import "math"

// Spread maps each hard bit onto one full period of the M-sequence: bit 0
// produces +m[i], bit 1 produces -m[i]. The output has length
// len(bits)*len(m).
func Spread(bits []HardBit, m []Chip) []Chip {
	l := len(m)
	out := make([]Chip, 0, len(bits)*l)
	for _, b := range bits {
		if b == 0 {
			out = append(out, m...)
		} else {
			for _, c := range m {
				out = append(out, -c)
			}
		}
	}
	return out
}

// Despread correlates successive windows of L soft chips against the
// M-sequence reference, emitting one soft bit (LLR) per full window. Any
// trailing chips that don't fill a complete window are returned as
// remainder, for the caller to prepend to the next call's input. The
// streaming demodulator does not use this; it despreads one bit window at
// a time with DespreadOne.
func Despread(chips []SoftChip, m []Chip) (bits []LLR, remainder []SoftChip) {
	l := len(m)
	if l == 0 {
		return nil, chips
	}
	n := len(chips) / l
	bits = make([]LLR, n)
	for w := 0; w < n; w++ {
		var sum float64
		base := w * l
		for i := 0; i < l; i++ {
			sum += chips[base+i] * float64(m[i])
		}
		c := sum / float64(l)
		bits[w] = clampLLR(c * float64(MaxLLR))
	}
	remainder = append(remainder, chips[n*l:]...)
	return bits, remainder
}

// DespreadOne correlates exactly one window of L soft chips (len(chips) ==
// len(m)) against the reference and returns its LLR. Used by the streaming
// demodulator, which already knows it has exactly one bit's worth of
// chips available.
func DespreadOne(chips []SoftChip, m []Chip) LLR {
	var sum float64
	for i, c := range m {
		if i >= len(chips) {
			break
		}
		sum += chips[i] * float64(c)
	}
	l := len(m)
	if l == 0 {
		return 0
	}
	return clampLLR(sum / float64(l) * float64(MaxLLR))
}

// correlationMagnitude is a small helper shared by the synchroniser: the
// normalised cross-correlation magnitude, guarded against division by
// near-zero energy.
func correlationMagnitude(num, energyA, energyB, eps float64) float64 {
	denom := math.Sqrt(energyA)*math.Sqrt(energyB) + eps
	if denom == 0 {
		return 0
	}
	return num / denom
}
