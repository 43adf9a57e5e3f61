package dsss

import (
	"context"
	"sync"
)

// ModemKind names a physical-layer variant. Design note §9: the source
// this spec replaces used a polymorphic modulator base class; here a
// small sum type plus a single capability interface takes its place. The
// FSK sibling radio is out of scope for this package (an external
// collaborator, not reimplemented) — it would simply register another
// ModemKind and another Modem implementation behind the same interface.
type ModemKind int

const (
	KindDSSSDPSK ModemKind = iota
	KindFSK                // not implemented here; out of scope per spec §1
)

// Modem is the capability a transport (e.g. the XModem sibling) depends
// on: turn bytes into samples, and turn samples back into bytes. Nothing
// above this interface needs to know which physical layer is underneath.
type Modem interface {
	Kind() ModemKind
	Modulate(ctx context.Context, payload []byte, opts BuildOptions) ([]Sample, error)
	ProcessSamples(ctx context.Context, samples []Sample) ([]Frame, error)
}

// DSSSModem implements Modem over the DSSS-DPSK physical layer: Modulate
// calls Build then renders the resulting bits to an audio waveform;
// ProcessSamples feeds samples through a Demodulator and drains whatever
// frames complete.
type DSSSModem struct {
	cfg  Config
	demo *Demodulator
	tap  *frameTap
}

// NewDSSSModem constructs a DSSSModem from a validated Config. observer may
// be nil; FrameReceived notifications reach it in addition to (not instead
// of) the internal tap ProcessSamples drains from.
func NewDSSSModem(cfg Config, observer Observer) (*DSSSModem, error) {
	tap := &frameTap{next: observer}
	demo, err := NewDemodulator(cfg, tap)
	if err != nil {
		return nil, err
	}
	return &DSSSModem{cfg: cfg, demo: demo, tap: tap}, nil
}

// frameTap sits between the Demodulator and a caller-supplied Observer,
// buffering FrameReceived notifications so ProcessSamples can return them
// directly instead of requiring every caller to implement Observer.
type frameTap struct {
	NoOpObserver
	next Observer

	mu     sync.Mutex
	frames []Frame
}

func (t *frameTap) FrameReceived(f Frame) {
	t.mu.Lock()
	t.frames = append(t.frames, f)
	t.mu.Unlock()
	if t.next != nil {
		t.next.FrameReceived(f)
	}
}

func (t *frameTap) SyncAcquired(s SyncState) {
	if t.next != nil {
		t.next.SyncAcquired(s)
	}
}

func (t *frameTap) SyncLost() {
	if t.next != nil {
		t.next.SyncLost()
	}
}

func (t *frameTap) StatsUpdated(s Stats) {
	if t.next != nil {
		t.next.StatsUpdated(s)
	}
}

func (t *frameTap) drain() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.frames) == 0 {
		return nil
	}
	out := t.frames
	t.frames = nil
	return out
}

func (m *DSSSModem) Kind() ModemKind { return KindDSSSDPSK }

// Modulate builds a frame from payload and opts and renders it to
// samples at the configured sample rate, carrier frequency and chip
// rate. ctx cancellation is honoured between frame construction and
// sample rendering (both are fast, CPU-bound steps; this keeps the
// suspension-point contract from §5 even though, in practice, Modulate
// rarely blocks long enough to need it).
func (m *DSSSModem) Modulate(ctx context.Context, payload []byte, opts BuildOptions) ([]Sample, error) {
	select {
	case <-ctx.Done():
		return nil, ErrCancelled
	default:
	}

	bits, err := Build(payload, opts)
	if err != nil {
		return nil, err
	}

	hardBits := make([]HardBit, len(bits))
	copy(hardBits, bits)
	chipSeq, err := MSequence(m.cfg.SequenceLength, m.cfg.Seed)
	if err != nil {
		return nil, err
	}
	chips := Spread(hardBits, chipSeq)
	phases := ModulateDPSK(chips, 0)
	samples := ModulateCarrier(phases, m.cfg.SamplesPerPhase, m.cfg.SampleRate, m.cfg.CarrierFreq, 0)

	select {
	case <-ctx.Done():
		return nil, ErrCancelled
	default:
	}
	return samples, nil
}

// ProcessSamples appends samples to the demodulator and drains any
// frames that complete as a direct result — a convenience wrapper for
// callers (tests, the WAV harness) that don't need the full streaming
// add_samples/get_available_bits split.
func (m *DSSSModem) ProcessSamples(ctx context.Context, samples []Sample) ([]Frame, error) {
	m.demo.AddSamples(samples)

	var target uint32 = 1 << 20 // effectively "drain everything currently available"
	for {
		select {
		case <-ctx.Done():
			return m.tap.drain(), ErrCancelled
		default:
		}
		before := m.demo.Stats()
		_, err := m.demo.GetAvailableBits(ctx, &target)
		if err != nil {
			return m.tap.drain(), err
		}
		after := m.demo.Stats()
		if after == before {
			return m.tap.drain(), nil
		}
	}
}

// Demodulator exposes the underlying streaming demodulator for callers
// that need direct access to add_samples/get_available_bits/sync_state
// (the audio host, primarily).
func (m *DSSSModem) Demodulator() *Demodulator { return m.demo }

// Configure reconfigures the underlying demodulator.
func (m *DSSSModem) Configure(cfg Config) error {
	if err := m.demo.Configure(cfg); err != nil {
		return err
	}
	m.cfg = cfg
	return nil
}
