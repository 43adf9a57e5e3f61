// Package control implements the message-passing control surface in
// front of the dsss physical layer: configure/modulate/demodulate/
// reset/abort requests arrive on channels and are dispatched by a
// single goroutine, the way pkg/network.Server in the repo this
// package is grounded on serialises peer-state mutation behind its own
// receive loop rather than a plain mutex.
//
// Two directions exist, modulate and demodulate, and each accepts at
// most one outstanding request at a time: a second Modulate call while
// one is already in flight is rejected immediately rather than queued,
// matching §5's "single outstanding request per direction" contract.
// Abort cancels whichever requests are currently in flight; Reset
// additionally clears the demodulator's internal state once both
// directions are idle.
package control

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/acoustigo/dsssmodem/dsss"
)

// ErrBusy is returned when a request arrives for a direction that
// already has one in flight.
var ErrBusy = errors.New("control: a request is already in flight on this direction")

// ErrClosed is returned by any request submitted after Close.
var ErrClosed = errors.New("control: controller closed")

type modulateReq struct {
	ctx     context.Context
	payload []byte
	opts    dsss.BuildOptions
	resp    chan modulateResp
}

type modulateResp struct {
	samples []dsss.Sample
	err     error
}

type demodulateReq struct {
	ctx     context.Context
	samples []dsss.Sample
	resp    chan demodulateResp
}

type demodulateResp struct {
	frames []dsss.Frame
	err    error
}

type configureReq struct {
	cfg  dsss.Config
	resp chan error
}

// Controller serialises access to a dsss.DSSSModem behind a request
// queue, so a real-time audio callback and a control-plane goroutine
// (CLI commands, a KISS port, a network listener) can share one modem
// instance without taking a lock themselves.
type Controller struct {
	modem *dsss.DSSSModem
	log   *log.Logger

	modulateBusy   atomic.Bool
	demodulateBusy atomic.Bool

	modulateCh   chan modulateReq
	demodulateCh chan demodulateReq
	configureCh  chan configureReq
	resetCh      chan chan struct{}

	mu          sync.Mutex
	abortFuncs  map[int]context.CancelFunc
	nextAbortID int

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// New builds a Controller around a freshly constructed DSSSModem and
// starts its dispatch loop. The caller's Observer (may be nil) receives
// notifications in addition to whatever frames Demodulate returns
// directly.
func New(cfg dsss.Config, observer dsss.Observer, logger *log.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	modem, err := dsss.NewDSSSModem(cfg, observer)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	c := &Controller{
		modem:        modem,
		log:          logger.WithPrefix("control"),
		modulateCh:   make(chan modulateReq),
		demodulateCh: make(chan demodulateReq),
		configureCh:  make(chan configureReq),
		resetCh:      make(chan chan struct{}),
		abortFuncs:   make(map[int]context.CancelFunc),
		closed:       make(chan struct{}),
		done:         make(chan struct{}),
	}
	go c.run()
	return c, nil
}

// run is the single dispatch goroutine. It never blocks on the request
// bodies themselves (Modulate/ProcessSamples are CPU-bound and return
// promptly); it exists to serialise Configure/Reset against in-flight
// work rather than to offload long I/O.
func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case <-c.closed:
			return

		case req := <-c.modulateCh:
			id, ctx := c.registerAbort(req.ctx)
			samples, err := c.modem.Modulate(ctx, req.payload, req.opts)
			c.unregisterAbort(id)
			c.modulateBusy.Store(false)
			req.resp <- modulateResp{samples: samples, err: err}

		case req := <-c.demodulateCh:
			id, ctx := c.registerAbort(req.ctx)
			frames, err := c.modem.ProcessSamples(ctx, req.samples)
			c.unregisterAbort(id)
			c.demodulateBusy.Store(false)
			req.resp <- demodulateResp{frames: frames, err: err}

		case req := <-c.configureCh:
			req.resp <- c.modem.Configure(req.cfg)

		case done := <-c.resetCh:
			c.modem.Demodulator().Reset()
			close(done)
		}
	}
}

func (c *Controller) registerAbort(parent context.Context) (int, context.Context) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	c.mu.Lock()
	id := c.nextAbortID
	c.nextAbortID++
	c.abortFuncs[id] = cancel
	c.mu.Unlock()
	return id, ctx
}

func (c *Controller) unregisterAbort(id int) {
	c.mu.Lock()
	delete(c.abortFuncs, id)
	c.mu.Unlock()
}

// Modulate renders payload to samples using opts, rejecting the call
// with ErrBusy if a Modulate request is already in flight.
func (c *Controller) Modulate(ctx context.Context, payload []byte, opts dsss.BuildOptions) ([]dsss.Sample, error) {
	select {
	case <-c.closed:
		return nil, ErrClosed
	default:
	}
	if !c.modulateBusy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	resp := make(chan modulateResp, 1)
	select {
	case c.modulateCh <- modulateReq{ctx: ctx, payload: payload, opts: opts, resp: resp}:
	case <-c.closed:
		c.modulateBusy.Store(false)
		return nil, ErrClosed
	}
	r := <-resp
	return r.samples, r.err
}

// Demodulate feeds samples through the physical layer and returns any
// frames that complete as a direct result, rejecting the call with
// ErrBusy if a Demodulate request is already in flight.
//
// This is a convenience entry point for callers driving the modem
// request/response style rather than the raw streaming
// AddSamples/GetAvailableBits pair on Demodulator. The real-time audio
// host bypasses the request queue entirely, since its callback cannot
// block waiting on a channel round-trip; it only calls AddSamples and
// does not drive GetAvailableBits itself.
func (c *Controller) Demodulate(ctx context.Context, samples []dsss.Sample) ([]dsss.Frame, error) {
	select {
	case <-c.closed:
		return nil, ErrClosed
	default:
	}
	if !c.demodulateBusy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	resp := make(chan demodulateResp, 1)
	select {
	case c.demodulateCh <- demodulateReq{ctx: ctx, samples: samples, resp: resp}:
	case <-c.closed:
		c.demodulateBusy.Store(false)
		return nil, ErrClosed
	}
	r := <-resp
	return r.frames, r.err
}

// Configure reconfigures the underlying modem. It is serialised with
// in-flight Modulate/Demodulate dispatch but does not wait for them to
// finish — callers that need a clean reconfiguration point should Abort
// first.
func (c *Controller) Configure(cfg dsss.Config) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	resp := make(chan error, 1)
	select {
	case c.configureCh <- configureReq{cfg: cfg, resp: resp}:
	case <-c.closed:
		return ErrClosed
	}
	return <-resp
}

// Reset returns the demodulator to SEARCH, discards its buffered
// samples and soft bits, and zeroes its cumulative Stats. It blocks
// until the dispatch loop has processed it, so a Reset that returns has
// taken effect before the next Modulate/Demodulate is accepted.
func (c *Controller) Reset() error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	done := make(chan struct{})
	select {
	case c.resetCh <- done:
	case <-c.closed:
		return ErrClosed
	}
	<-done
	return nil
}

// Abort cancels every request currently in flight on either direction.
// Their Modulate/Demodulate calls return dsss.ErrCancelled as soon as
// the underlying operation reaches its next suspension point.
func (c *Controller) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cancel := range c.abortFuncs {
		cancel()
		delete(c.abortFuncs, id)
	}
}

// Modem exposes the underlying modem for components that need direct,
// unserialised access — the real-time audio host's AddSamples path, in
// particular, which cannot afford a channel round-trip per callback.
func (c *Controller) Modem() *dsss.DSSSModem { return c.modem }

// Close stops the dispatch loop. Any request already queued when Close
// is called may either complete or receive ErrClosed; new requests
// always receive ErrClosed.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.Abort()
		close(c.closed)
	})
	<-c.done
	c.log.Debug("controller closed")
	return nil
}
