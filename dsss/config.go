package dsss

// Config holds every tunable named in the external-interface control
// surface (spec §6). Zero-value Config is invalid; use DefaultConfig and
// override individual fields, then Validate before use.
type Config struct {
	SequenceLength int    // one of SupportedLengths()
	Seed           uint32 // LFSR initial state; 0 means "use the default for SequenceLength"

	SampleRate      float64 // Hz, e.g. 44100 or 48000
	CarrierFreq     float64 // Hz
	SamplesPerPhase int     // audio samples per chip, >= 4

	CorrelationThreshold float64 // [0,1], acquisition correlation floor
	PeakToNoiseRatio     float64 // >= 1, acquisition peak/side-lobe floor
	DecimationFactor     int     // matched-filter decimation, 2-8

	WeakLLRThreshold     int // 0-127, tracker weak-bit boundary
	MaxConsecutiveWeak   int // tracker patience before dropping to SEARCH
	VerifyIntervalFrames int // bits between VERIFY checks

	PreambleLLRMin   int // |LLR| a preamble bit must exceed to count as strong 0
	SyncSearchTimeout int // bits to search for the sync word before restarting
	MaxIterations     int // LDPC belief-propagation iteration cap
}

// DefaultConfig returns the published external-interface defaults (§6).
func DefaultConfig() Config {
	return Config{
		SequenceLength: 31,
		Seed:           DefaultSeeds[31],

		SampleRate:      44100,
		CarrierFreq:     10000,
		SamplesPerPhase: 23,

		CorrelationThreshold: 0.5,
		PeakToNoiseRatio:     4.0,
		DecimationFactor:     2,

		WeakLLRThreshold:     50,
		MaxConsecutiveWeak:   5,
		VerifyIntervalFrames: 100,

		PreambleLLRMin:    60,
		SyncSearchTimeout: 64,
		MaxIterations:     20,
	}
}

// Validate checks every field named in the external-interface "Config
// recognised options" table and returns the first violation found, typed
// as ErrConfiguration. A valid Config never triggers this.
func (c Config) Validate() error {
	if _, ok := degreeForLength[c.SequenceLength]; !ok {
		return &ErrConfiguration{Field: "sequence_length", Reason: "must be one of 15, 31, 63, 127, 255"}
	}
	if c.SamplesPerPhase < 4 {
		return &ErrConfiguration{Field: "samples_per_phase", Reason: "must be >= 4"}
	}
	if c.SampleRate <= 0 {
		return &ErrConfiguration{Field: "sample_rate", Reason: "must be positive"}
	}
	if c.CarrierFreq <= 0 || c.CarrierFreq >= c.SampleRate/2 {
		return &ErrConfiguration{Field: "carrier_freq", Reason: "must satisfy Nyquist with margin (0 < fc < fs/2)"}
	}
	if c.CorrelationThreshold < 0 || c.CorrelationThreshold > 1 {
		return &ErrConfiguration{Field: "correlation_threshold", Reason: "must be in [0,1]"}
	}
	if c.PeakToNoiseRatio < 1 {
		return &ErrConfiguration{Field: "peak_to_noise_ratio", Reason: "must be >= 1"}
	}
	if c.DecimationFactor < 2 || c.DecimationFactor > 8 {
		return &ErrConfiguration{Field: "decimation_factor", Reason: "must be in [2,8]"}
	}
	if c.WeakLLRThreshold < 0 || c.WeakLLRThreshold > 127 {
		return &ErrConfiguration{Field: "weak_llr_threshold", Reason: "must be in [0,127]"}
	}
	if c.MaxConsecutiveWeak < 1 {
		return &ErrConfiguration{Field: "max_consecutive_weak", Reason: "must be >= 1"}
	}
	if c.VerifyIntervalFrames < 1 {
		return &ErrConfiguration{Field: "verify_interval_frames", Reason: "must be >= 1"}
	}
	return nil
}

// SamplesPerBit is the number of audio samples spanning one information
// bit: sequence length * samples per phase (one phase per chip).
func (c Config) SamplesPerBit() int {
	return c.SequenceLength * c.SamplesPerPhase
}
