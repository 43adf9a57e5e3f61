package audio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// PTT keys a push-to-talk line around a transmission. It plays the role
// ptt_set_real's GPIOD branch plays in the repo this is grounded on:
// drive a GPIO line high for transmit, low for receive, with an
// optional inversion for keying circuits wired the other way around.
type PTT struct {
	line   gpioLine
	invert bool
}

// gpioLine is the subset of *gpiocdev.Line PTT depends on, so tests can
// substitute a recording fake without a real GPIO chip.
type gpioLine interface {
	SetValue(int) error
	Close() error
}

// NewPTT requests chipName/lineOffset as an output line (initially
// de-asserted) for PTT keying. invert reverses the driven level: some
// keying interfaces pull the PTT transistor's base low to transmit.
func NewPTT(chipName string, lineOffset int, invert bool) (*PTT, error) {
	initial := 0
	if invert {
		initial = 1
	}
	line, err := gpiocdev.RequestLine(chipName, lineOffset,
		gpiocdev.AsOutput(initial),
		gpiocdev.WithConsumer("acoustimodem-ptt"))
	if err != nil {
		return nil, fmt.Errorf("audio: requesting PTT line %s:%d: %w", chipName, lineOffset, err)
	}
	return &PTT{line: line, invert: invert}, nil
}

// Set drives the PTT line for transmit (active=true) or receive
// (active=false), honouring invert the same way ptt_set_real treats its
// ptt_invert flag: "more positive output corresponds to 1 unless
// invert is set."
func (p *PTT) Set(active bool) error {
	level := 0
	if active {
		level = 1
	}
	if p.invert {
		level = 1 - level
	}
	return p.line.SetValue(level)
}

// Close releases the GPIO line, leaving it de-asserted.
func (p *PTT) Close() error {
	setErr := p.Set(false)
	if err := p.line.Close(); err != nil {
		return err
	}
	return setErr
}
