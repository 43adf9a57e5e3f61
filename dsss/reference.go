package dsss

// referenceKey identifies a fully-modulated reference signal by the
// parameter tuple it depends on. Deliberately a plain struct, not a
// stringified map key — the source this spec replaces used a
// module-level cache keyed by stringified parameters; per design note
// §9 that becomes an instance-scoped cache rebuilt on Configure.
type referenceKey struct {
	seqLength       int
	seed            uint32
	samplesPerPhase int
	sampleRate      float64
	carrierFreq     float64
}

// ReferenceCache builds and caches the fully-modulated M-sequence
// reference (M-sequence -> DPSK -> carrier) used by the synchroniser's
// matched filter. It belongs to one Demodulator instance; there is no
// process-wide cache.
type ReferenceCache struct {
	key    referenceKey
	m      []Chip
	signal []Sample
	valid  bool
}

// Get returns the cached reference for cfg, building (and caching) it on
// first use or whenever cfg's relevant fields have changed since the last
// call.
func (rc *ReferenceCache) Get(cfg Config) ([]Chip, []Sample, error) {
	k := referenceKey{
		seqLength:       cfg.SequenceLength,
		seed:            cfg.Seed,
		samplesPerPhase: cfg.SamplesPerPhase,
		sampleRate:      cfg.SampleRate,
		carrierFreq:     cfg.CarrierFreq,
	}
	if rc.valid && rc.key == k {
		return rc.m, rc.signal, nil
	}

	m, err := MSequence(cfg.SequenceLength, cfg.Seed)
	if err != nil {
		return nil, nil, err
	}
	phases := ModulateDPSK(m, 0)
	signal := ModulateCarrier(phases, cfg.SamplesPerPhase, cfg.SampleRate, cfg.CarrierFreq, 0)

	rc.key = k
	rc.m = m
	rc.signal = signal
	rc.valid = true
	return m, signal, nil
}

// Invalidate forces the next Get to rebuild the reference, used when
// Configure changes a dependent parameter.
func (rc *ReferenceCache) Invalidate() { rc.valid = false }
