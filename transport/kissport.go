package transport

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"

	"github.com/acoustigo/dsssmodem/control"
	"github.com/acoustigo/dsssmodem/dsss"
)

// KISSPort is a pseudo-terminal that speaks KISS framing over the
// Controller's modulate/demodulate pair: bytes written by a client
// become transmitted frames, and decoded received frames become bytes
// the client reads. Grounded on kisspt_init/kisspt_listen_thread's
// split between an open step and a listening goroutine.
type KISSPort struct {
	master *os.File
	slave  *os.File
	ctl    *control.Controller
	tx     Transmitter
	log    *log.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// Transmitter sends already-modulated samples out over the air (or into
// a file, for the offline harness). audio.Host satisfies this.
type Transmitter interface {
	Transmit(ctx context.Context, samples []dsss.Sample) error
}

// Open creates a pseudo-terminal, symlinks it at linkPath if non-empty
// (so a client's configuration doesn't need to change when the PTS name
// does, per the original's /tmp/kisstnc convention), and starts one
// goroutine that reads client frames and modulates them. tx may be nil, in which case
// modulated samples are discarded (useful for tests that only exercise
// framing).
func Open(ctl *control.Controller, tx Transmitter, linkPath string, logger *log.Logger) (*KISSPort, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("transport.kiss")

	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("transport: creating pseudo terminal: %w", err)
	}

	if linkPath != "" {
		os.Remove(linkPath)
		if err := os.Symlink(slave.Name(), linkPath); err != nil {
			logger.Warn("failed to create symlink", "link", linkPath, "target", slave.Name(), "error", err)
		} else {
			logger.Info("virtual KISS TNC available", "link", linkPath, "pts", slave.Name())
		}
	} else {
		logger.Info("virtual KISS TNC available", "pts", slave.Name())
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &KISSPort{
		master: master,
		slave:  slave,
		ctl:    ctl,
		tx:     tx,
		log:    logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go p.listen(ctx)
	return p, nil
}

// Name returns the pseudo-terminal slave's device path, e.g.
// /dev/pts/4.
func (p *KISSPort) Name() string { return p.slave.Name() }

// listen reads bytes from the client, decodes complete KISS frames, and
// hands each one's payload to the Controller as a Modulate request.
// It handles only this direction: received frames reach the client
// through DeliverFrame, which the caller invokes from its own Observer.
func (p *KISSPort) listen(ctx context.Context) {
	defer close(p.done)
	var dec Decoder
	reader := bufio.NewReader(p.master)

	for {
		b, err := reader.ReadByte()
		if err != nil {
			if ctx.Err() == nil {
				p.log.Error("read from client failed, closing", "error", err)
			}
			return
		}
		payload, complete := dec.Push(b)
		if !complete {
			continue
		}
		samples, err := p.ctl.Modulate(ctx, payload, dsss.BuildOptions{LdpcNType: ldpcVariantFor(len(payload))})
		if err != nil {
			p.log.Warn("modulate failed", "error", err)
			continue
		}
		if p.tx == nil {
			continue
		}
		if err := p.tx.Transmit(ctx, samples); err != nil {
			p.log.Warn("transmit failed", "error", err)
		}
	}
}

// ldpcVariantFor picks the smallest LDPC variant whose usable payload
// capacity (dsss.UserBytes — the raw LDPC capacity minus whatever
// length-prefix overhead Build reserves) fits payloadLen bytes, falling
// back to the largest if the payload exceeds even that — Modulate will
// then reject it with ErrPayloadTooLarge, which is surfaced to the
// caller rather than silently truncating client data.
func ldpcVariantFor(payloadLen int) int {
	for i := range dsss.LDPCVariants {
		if payloadLen <= dsss.UserBytes(i) {
			return i
		}
	}
	return len(dsss.LDPCVariants) - 1
}

// DeliverFrame writes a received frame's payload to the client as a
// KISS-encapsulated data frame.
func (p *KISSPort) DeliverFrame(f dsss.Frame) error {
	_, err := p.master.Write(Encapsulate(f.Payload))
	return err
}

// Close stops the listen goroutine and closes both ends of the
// pseudo-terminal.
func (p *KISSPort) Close() error {
	p.cancel()
	p.master.Close()
	<-p.done
	return p.slave.Close()
}
