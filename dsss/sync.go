package dsss

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// AcquireResult reports where the reference was found in a sample
// window, and how confidently.
type AcquireResult struct {
	SampleOffset    int     // at the original (undecimated) rate
	PeakCorrelation float64 // signed: negative means the carrier is inverted
	PeakRatio       float64 // peak / second-largest peak; +Inf if no side lobe
}

// SyncOptions parameterises one acquisition attempt, separate from
// Config so that fine re-sync can relax thresholds without mutating the
// demodulator's persistent configuration.
type SyncOptions struct {
	CorrelationThreshold float64
	PeakToNoiseRatio     float64
	DecimationFactor     int
	MaxOffset            int // search window, in full-rate samples; 0 means "whole window"
	Adaptive             bool
}

const acquisitionEps = 1e-9
const minCorrelationSamples = 5

// Acquire runs the decimated, normalised matched filter over window
// against ref and reports the best offset, if any clears both the
// correlation-magnitude and peak-ratio thresholds (and, adaptively, a
// median+MAD floor). window and ref are at full sample rate; internally
// both are decimated by opts.DecimationFactor before correlation, and the
// winning offset is scaled back up.
func Acquire(window, ref []Sample, opts SyncOptions) (*AcquireResult, bool) {
	if len(window) < len(ref) {
		return nil, false
	}
	d := opts.DecimationFactor
	if d < 1 {
		d = 1
	}

	decWindow := decimate(window, d)
	decRef := decimate(ref, d)
	refLen := len(decRef)
	if refLen == 0 {
		return nil, false
	}

	maxK := len(decWindow) - refLen
	if opts.MaxOffset > 0 {
		if m := opts.MaxOffset / d; m < maxK {
			maxK = m
		}
	}
	if maxK < 0 {
		return nil, false
	}

	refEnergy := energy(decRef)
	correlations := make([]float64, 0, maxK+1)
	signed := make([]float64, 0, maxK+1)

	for k := 0; k <= maxK; k++ {
		seg := decWindow[k : k+refLen]
		var num, segEnergy float64
		for i, r := range decRef {
			num += seg[i] * r
			segEnergy += seg[i] * seg[i]
		}
		c := correlationMagnitude(num, segEnergy, refEnergy, acquisitionEps)
		signed = append(signed, c)
		correlations = append(correlations, math.Abs(c))
	}

	if len(correlations) < minCorrelationSamples {
		return nil, false
	}

	bestIdx, peak, second := peakAndSideLobe(correlations)

	threshold := opts.CorrelationThreshold
	if opts.Adaptive {
		if t := adaptiveThreshold(correlations); t > threshold {
			threshold = t
		}
	}

	peakRatio := math.Inf(1)
	if second > acquisitionEps {
		peakRatio = peak / second
	}

	if peak < threshold || peakRatio < opts.PeakToNoiseRatio {
		return nil, false
	}

	return &AcquireResult{
		SampleOffset:    bestIdx * d,
		PeakCorrelation: signed[bestIdx],
		PeakRatio:       peakRatio,
	}, true
}

// adaptiveThreshold computes median(|c|) + 2.5*sigma, sigma estimated via
// MAD/0.674 (Gaussian-consistent scale estimate), per §4.2's adaptive
// variant. The fixed threshold passed in SyncOptions remains a floor —
// callers take max(fixed, adaptive).
func adaptiveThreshold(correlations []float64) float64 {
	sorted := append([]float64(nil), correlations...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	devs := make([]float64, len(sorted))
	for i, v := range sorted {
		devs[i] = math.Abs(v - median)
	}
	sort.Float64s(devs)
	mad := stat.Quantile(0.5, stat.Empirical, devs, nil)
	sigma := mad / 0.674

	return median + 2.5*sigma
}

func peakAndSideLobe(correlations []float64) (idx int, peak, second float64) {
	peak = -1
	second = -1
	for i, c := range correlations {
		if c > peak {
			second = peak
			peak = c
			idx = i
		} else if c > second {
			second = c
		}
	}
	if second < 0 {
		second = 0
	}
	return idx, peak, second
}

func decimate(s []Sample, d int) []Sample {
	if d <= 1 {
		return s
	}
	out := make([]Sample, 0, len(s)/d+1)
	for i := 0; i < len(s); i += d {
		out = append(out, s[i])
	}
	return out
}

func energy(s []Sample) float64 {
	var e float64
	for _, v := range s {
		e += v * v
	}
	return e
}
