package dsss

import "math"

// DefaultUnwrapEpsilon is the tolerance used to decide whether a
// consecutive phase jump is a genuine +/-2pi discontinuity.
const DefaultUnwrapEpsilon = 1e-6

// UnwrapPhases removes artificial 2*pi jumps from a sequence of wrapped
// phase measurements, the classical cumulative-correction algorithm. A
// jump greater than pi - epsilon is folded back by the nearest multiple of
// 2*pi.
func UnwrapPhases(phases []float64, epsilon float64) []float64 {
	if len(phases) == 0 {
		return nil
	}
	out := make([]float64, len(phases))
	out[0] = phases[0]
	var correction float64
	for i := 1; i < len(phases); i++ {
		delta := phases[i] - phases[i-1]
		for delta > math.Pi-epsilon {
			correction -= 2 * math.Pi
			delta -= 2 * math.Pi
		}
		for delta < -math.Pi+epsilon {
			correction += 2 * math.Pi
			delta += 2 * math.Pi
		}
		out[i] = phases[i] + correction
	}
	return out
}

// WrapPhase reduces an angle to (-pi, pi]. Exported wrapper over the
// internal helper used throughout the package, for callers (e.g. the
// synchroniser, tests) that need the same convention.
func WrapPhase(p float64) float64 { return wrapPhase(p) }
