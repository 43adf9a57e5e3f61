package dsss

import (
	"context"
	"sync"
)

// SyncMode names a state of the demodulator's sync state machine (§4.3).
type SyncMode int

const (
	ModeSearch SyncMode = iota
	ModeTrack
	ModeVerify
)

func (m SyncMode) String() string {
	switch m {
	case ModeSearch:
		return "search"
	case ModeTrack:
		return "track"
	case ModeVerify:
		return "verify"
	default:
		return "unknown"
	}
}

// SyncState is the public snapshot returned by Demodulator.SyncState.
type SyncState struct {
	Locked       bool
	Mode         SyncMode
	Correlation  float64
	SampleOffset int
}

const (
	llrHistoryLen      = 10
	maxFailuresBeforeSearch = 10
	searchRateLimitSeconds = 1.0 // §4.3 SEARCH: re-attempt at most once per this much *new sample* time
	fineResyncSearchRange = 1 // multiplier on samples_per_bit, see fineResync
)

// Demodulator owns the sample ring buffer, the cached reference, all sync
// state, and a stateful Framer. It is the "heart of the core" (§4.3):
// add_samples never does DSP; get_available_bits drives the whole
// acquire/track/verify/frame pipeline.
type Demodulator struct {
	mu  sync.Mutex
	cfg Config

	buf []Sample // pending, not-yet-consumed samples

	refCache ReferenceCache
	framer   *Framer
	observer Observer

	mode         SyncMode
	sampleOffset int // index into buf where the current/next bit window starts
	peakSign     float64

	llrHistory      []int
	consecutiveWeak int
	consecutiveFail int
	framesSinceVerify int
	snrDB           float64
	resyncZeroRun   int

	samplesSeen           uint64 // total samples ever appended via AddSamples
	lastSearchAttemptSample uint64

	targetActive bool // a targetBits commitment pins tracking against early SEARCH drop

	stats Stats
}

// NewDemodulator constructs a Demodulator from a validated Config.
func NewDemodulator(cfg Config, observer Observer) (*Demodulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if observer == nil {
		observer = NoOpObserver{}
	}
	d := &Demodulator{cfg: cfg, observer: observer}
	d.framer = NewFramer(cfg)
	return d, nil
}

// Configure validates and applies a new configuration. On error the
// demodulator keeps its prior configuration, per §7.
func (d *Demodulator) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
	d.refCache.Invalidate()
	d.framer = NewFramer(cfg)
	d.mode = ModeSearch
	d.sampleOffset = 0
	d.buf = nil
	return nil
}

// AddSamples appends a finite block of samples to the ring. Pure memory
// move, never fails, never does DSP — the real-time audio callback's
// contract from §4.3.
func (d *Demodulator) AddSamples(block []Sample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf = append(d.buf, block...)
	d.samplesSeen += uint64(len(block))
}

// SyncState reports the current sync snapshot.
func (d *Demodulator) SyncState() SyncState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return SyncState{
		Locked:       d.mode != ModeSearch,
		Mode:         d.mode,
		Correlation:  d.peakSign,
		SampleOffset: d.sampleOffset,
	}
}

// Stats returns a snapshot of the channel-quality counters.
func (d *Demodulator) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Reset clears everything: samples, bits, sync state and the framer.
func (d *Demodulator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked(true)
}

// ClearBuffers clears sample and bit buffers but preserves sync state —
// the fast path after a self-transmission, per §4.3/§5.
func (d *Demodulator) ClearBuffers() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf = nil
	d.sampleOffset = 0
	d.framer.Reset()
}

func (d *Demodulator) resetLocked(clearSync bool) {
	d.buf = nil
	d.sampleOffset = 0
	if clearSync {
		d.mode = ModeSearch
		d.llrHistory = nil
		d.consecutiveWeak = 0
		d.consecutiveFail = 0
		d.framesSinceVerify = 0
		d.resyncZeroRun = 0
		d.peakSign = 0
		d.framer = NewFramer(d.cfg)
		d.stats = Stats{}
		d.lastSearchAttemptSample = 0
	}
}

// GetAvailableBits drives the sync/track/verify state machine until
// either target bits have been emitted, no further progress is possible
// with currently buffered samples, or a soft iteration cap is hit (so a
// real-time caller is never unbounded). A nil target means "drain as
// much as possible this call". The returned bits are drained from the
// internal queue; ctx cancellation releases the caller with
// ErrCancelled — any bits already produced before cancellation are kept
// for the caller (per §5, "bits already buffered are retained").
func (d *Demodulator) GetAvailableBits(ctx context.Context, target *uint32) ([]LLR, error) {
	const maxIterations = 20

	d.mu.Lock()
	d.targetActive = target != nil
	d.mu.Unlock()

	var out []LLR
	for i := 0; i < maxIterations; i++ {
		select {
		case <-ctx.Done():
			return out, ErrCancelled
		default:
		}

		d.mu.Lock()
		bit, emitted, progressed := d.step()
		d.mu.Unlock()

		if emitted {
			out = append(out, bit)
		}
		if target != nil && uint32(len(out)) >= *target {
			return out, nil
		}
		if !progressed {
			return out, nil
		}
	}
	return out, nil
}

// step performs one unit of work in whichever mode the demodulator is
// in. It reports the bit it produced (if emitted is true), and whether
// it made any progress at all — a state transition (e.g. acquiring
// sync, nudging the offset after a demod error) counts as progress even
// when it emits no bit, and keeps GetAvailableBits' loop going. Caller
// holds d.mu.
func (d *Demodulator) step() (bit LLR, emitted, progressed bool) {
	switch d.mode {
	case ModeSearch:
		return d.stepSearch()
	case ModeTrack:
		return d.stepTrack()
	case ModeVerify:
		return d.stepVerify()
	default:
		return 0, false, false
	}
}

func (d *Demodulator) stepSearch() (LLR, bool, bool) {
	m, ref, err := d.refCache.Get(d.cfg)
	if err != nil {
		return 0, false, false
	}
	needed := 2 * len(m) * d.cfg.SamplesPerPhase
	if len(d.buf) < needed {
		return 0, false, false
	}
	rateLimitSamples := uint64(searchRateLimitSeconds * d.cfg.SampleRate)
	if d.lastSearchAttemptSample > 0 && d.samplesSeen-d.lastSearchAttemptSample < rateLimitSamples {
		return 0, false, false
	}
	d.lastSearchAttemptSample = d.samplesSeen

	result, ok := Acquire(d.buf, ref, SyncOptions{
		CorrelationThreshold: d.cfg.CorrelationThreshold,
		PeakToNoiseRatio:     d.cfg.PeakToNoiseRatio,
		DecimationFactor:     d.cfg.DecimationFactor,
		Adaptive:             true,
	})
	if !ok {
		return 0, false, false
	}

	d.sampleOffset = result.SampleOffset
	d.peakSign = result.PeakCorrelation
	d.mode = ModeTrack
	d.llrHistory = nil
	d.consecutiveWeak = 0
	d.consecutiveFail = 0
	d.framesSinceVerify = 0
	d.resyncZeroRun = 0
	d.framer.Reset()

	d.observer.SyncAcquired(SyncState{Locked: true, Mode: ModeTrack, Correlation: result.PeakCorrelation, SampleOffset: result.SampleOffset})
	return 0, false, true
}

func (d *Demodulator) stepTrack() (LLR, bool, bool) {
	m, _, err := d.refCache.Get(d.cfg)
	if err != nil {
		return 0, false, false
	}
	samplesPerBit := d.cfg.SamplesPerBit()
	if len(d.buf)-d.sampleOffset < samplesPerBit {
		return 0, false, false
	}

	window, n0 := d.bitWindow(samplesPerBit)
	bit, ok := d.demodulateBit(window, n0, m)
	if !ok {
		d.consecutiveFail++
		if d.consecutiveFail >= maxFailuresBeforeSearch {
			d.dropToSearch()
			return 0, false, true
		}
		d.sampleOffset += samplesPerBit / 4
		d.compact()
		return 0, false, true
	}
	d.consecutiveFail = 0

	if d.peakSign < 0 {
		bit = -bit
	}

	d.updateLLRHistory(bit.Abs())
	d.updateSNR()

	if bit.Abs() < d.cfg.WeakLLRThreshold {
		d.consecutiveWeak++
	} else {
		d.consecutiveWeak = 0
	}

	avg := d.llrAverage()
	if avg > 80 && bit.Abs() < 30 {
		if !d.fineResync(m) {
			d.dropToSearch()
			return 0, false, true
		}
	}

	if bit == 0 {
		d.resyncZeroRun++
	} else {
		d.resyncZeroRun = 0
	}

	d.sampleOffset += samplesPerBit
	d.compact()
	d.stats.BitsEmitted++
	d.framesSinceVerify++

	if d.consecutiveWeak >= d.cfg.MaxConsecutiveWeak && !d.targetActive {
		d.dropToSearch()
		return bit, true, true
	}

	if d.framesSinceVerify >= d.cfg.VerifyIntervalFrames {
		d.mode = ModeVerify
	}

	d.deliverBit(bit)
	return bit, true, true
}

func (d *Demodulator) stepVerify() (LLR, bool, bool) {
	d.framesSinceVerify = 0
	if d.llrAverage() < float64(d.cfg.WeakLLRThreshold) {
		d.dropToSearch()
		return 0, false, true
	}
	d.mode = ModeTrack
	return d.stepTrack()
}

// bitWindow returns the samples needed to recover one bit's L
// chip-aligned soft chips, plus the index (n0) of its first sample
// within the current, compacted sample buffer. DemodulateDPSK yields a phase difference per adjacent
// phase pair, so chip 0 of a bit is only recoverable from the phase
// difference against the *previous* bit's last chip boundary — the
// window therefore starts one samplesPerPhase block before
// sampleOffset, giving L+1 phases for L aligned chips (§4.3 step 1).
// Missing history (the very first tracked bit) is zero-padded; since
// DemodulateCarrier reduces a zero window to atan2(0,0)=0, this
// reproduces the transmitter's own initialPhase=0 convention at the
// start of a transmission, so no special case is needed.
func (d *Demodulator) bitWindow(samplesPerBit int) ([]Sample, int) {
	lookback := d.cfg.SamplesPerPhase
	start := d.sampleOffset - lookback
	window := make([]Sample, lookback+samplesPerBit)
	if start < 0 {
		copy(window[-start:], d.buf[:d.sampleOffset+samplesPerBit])
	} else {
		copy(window, d.buf[start:d.sampleOffset+samplesPerBit])
	}
	return window, start
}

// demodulateBit carrier-demodulates one bit's extended window (L+1
// chip boundaries), DPSK-demodulates the resulting phases into L
// chip-aligned soft chips, and despreads to a single soft bit. n0 is
// the buffer-relative index of window[0] and may be negative near the
// start of the buffer; DemodulateCarrier's internal sin/cos are
// periodic in n0 so that's safe.
func (d *Demodulator) demodulateBit(window []Sample, n0 int, m []Chip) (LLR, bool) {
	phases := DemodulateCarrier(window, d.cfg.SamplesPerPhase, d.cfg.SampleRate, d.cfg.CarrierFreq, n0)
	if len(phases) != len(m)+1 {
		return 0, false
	}
	chips := DemodulateDPSK(phases)
	if len(chips) != len(m) {
		return 0, false
	}
	bit := DespreadOne(chips, m)
	return bit, true
}

// fineResync searches only within a small window around the current
// sample offset, with relaxed thresholds, per §4.3's "Fine re-sync".
func (d *Demodulator) fineResync(m []Chip) bool {
	samplesPerBit := d.cfg.SamplesPerBit()
	searchRange := fineResyncSearchRange * samplesPerBit
	lo := d.sampleOffset - searchRange
	if lo < 0 {
		lo = 0
	}
	hi := d.sampleOffset + searchRange + len(m)*d.cfg.SamplesPerPhase
	if hi > len(d.buf) {
		hi = len(d.buf)
	}
	if hi <= lo {
		return false
	}

	_, ref, err := d.refCache.Get(d.cfg)
	if err != nil {
		return false
	}
	sub := d.buf[lo:hi]
	result, ok := Acquire(sub, ref, SyncOptions{
		CorrelationThreshold: 0.3,
		PeakToNoiseRatio:     2.0,
		DecimationFactor:     d.cfg.DecimationFactor,
	})
	if !ok {
		return false
	}

	d.sampleOffset = lo + result.SampleOffset
	d.peakSign = result.PeakCorrelation
	d.consecutiveWeak = 0
	d.llrHistory = nil
	return true
}

func (d *Demodulator) dropToSearch() {
	d.mode = ModeSearch
	d.stats.SyncLosses++
	d.observer.SyncLost()
}

func (d *Demodulator) updateLLRHistory(abs int) {
	d.llrHistory = append(d.llrHistory, abs)
	if len(d.llrHistory) > llrHistoryLen {
		d.llrHistory = d.llrHistory[1:]
	}
}

func (d *Demodulator) llrAverage() float64 {
	if len(d.llrHistory) == 0 {
		return 0
	}
	var sum int
	for _, v := range d.llrHistory {
		sum += v
	}
	return float64(sum) / float64(len(d.llrHistory))
}

// updateSNR linearly maps the acquisition peak correlation magnitude
// from [0.3, 1.0] into [0, 20] dB, per §4.3 step 3.
func (d *Demodulator) updateSNR() {
	mag := d.peakSign
	if mag < 0 {
		mag = -mag
	}
	const lo, hi = 0.3, 1.0
	t := (mag - lo) / (hi - lo)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	d.snrDB = t * 20
}

// deliverBit hands a completed bit to the framer and forwards any
// resulting frames to the observer and statistics.
func (d *Demodulator) deliverBit(bit LLR) {
	frames := d.framer.Process([]LLR{bit})
	d.stats.HeaderCRCErrors = uint64(d.framer.HeaderCRCErrors)
	d.stats.LDPCFailures = uint64(d.framer.LDPCFailures)
	for _, f := range frames {
		d.stats.FramesDecoded++
		d.observer.FrameReceived(f)
	}
	if len(frames) > 0 {
		d.observer.StatsUpdated(d.stats)
	}
}

// compact drops samples already consumed, but keeps one
// samplesPerPhase block of history before sampleOffset — bitWindow
// needs that lookback to recover the next bit's chip-0 phase
// difference. The buffer still can't grow without bound while
// tracking runs for a long time.
func (d *Demodulator) compact() {
	keep := d.cfg.SamplesPerPhase
	if d.sampleOffset <= keep {
		return
	}
	drop := d.sampleOffset - keep
	if drop >= len(d.buf) {
		d.buf = d.buf[:0]
		d.sampleOffset = 0
		return
	}
	d.buf = append(d.buf[:0], d.buf[drop:]...)
	d.sampleOffset -= drop
}
