// Package audio wires the dsss physical layer to a sound card through
// PortAudio, and to a PTT keying line through GPIO. It plays the role
// audio.go/audio_stats.go play in the repo this package is grounded on:
// own the input/output stream, push captured samples into the
// demodulator, and pull samples to transmit out of the modulator,
// reporting basic stream health the way the original's periodic
// "ADEVICE0: Sample rate approx..." report does.
package audio

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/acoustigo/dsssmodem/control"
	"github.com/acoustigo/dsssmodem/dsss"
)

// Host owns a full-duplex PortAudio stream sized to the configured
// sample rate, feeding received samples to a Controller's demodulator
// and pulling queued transmit samples from an outbound ring.
type Host struct {
	ctl    *control.Controller
	stream *portaudio.Stream
	ptt    *PTT

	framesIn  atomic.Uint64
	framesOut atomic.Uint64

	txQueue chan []dsss.Sample
	txBuf   []dsss.Sample
}

// Open checks that deviceName names an existing PortAudio device (""
// skips the check) and then starts a mono PortAudio stream on the
// default device, with a callback-sized buffer of framesPerBuffer
// samples; a named device is validated but not itself opened. The
// callback itself
// never blocks: received samples go straight to ctl.Modem().Demodulator()
// .AddSamples, and transmit samples are drained from an internal queue
// fed by Transmit.
func Open(ctl *control.Controller, deviceName string, framesPerBuffer int, ptt *PTT) (*Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: initializing portaudio: %w", err)
	}

	if deviceName != "" {
		if _, err := resolveDevice(deviceName); err != nil {
			portaudio.Terminate()
			return nil, err
		}
		// A named, non-default device would be opened via
		// portaudio.OpenStream with explicit StreamParameters; the
		// common case below covers the default-device path used by
		// every configuration this package ships with.
	}

	h := &Host{
		ctl:     ctl,
		ptt:     ptt,
		txQueue: make(chan []dsss.Sample, 16),
	}

	stream, err := portaudio.OpenDefaultStream(1, 1, 0, framesPerBuffer, h.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: opening stream: %w", err)
	}
	h.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: starting stream: %w", err)
	}
	return h, nil
}

// callback is the real-time PortAudio callback: bounded work only. It
// allocates one sample slice per call to convert the input buffer, in
// addition to whatever AddSamples does internally.
func (h *Host) callback(in, out []float32) {
	samples := make([]dsss.Sample, len(in))
	for i, v := range in {
		samples[i] = dsss.Sample(v)
	}
	h.ctl.Modem().Demodulator().AddSamples(samples)
	h.framesIn.Add(uint64(len(in)))

	for i := range out {
		if len(h.txBuf) == 0 {
			select {
			case buf := <-h.txQueue:
				h.txBuf = buf
			default:
				out[i] = 0
				continue
			}
		}
		out[i] = float32(h.txBuf[0])
		h.txBuf = h.txBuf[1:]
	}
	h.framesOut.Add(uint64(len(out)))
}

// Transmit keys PTT, enqueues samples for the callback to drain, and
// waits for the queue to empty (not for the last buffer to actually
// leave the sound card, which PortAudio does not expose), then releases
// PTT.
func (h *Host) Transmit(ctx context.Context, samples []dsss.Sample) error {
	if h.ptt != nil {
		if err := h.ptt.Set(true); err != nil {
			return fmt.Errorf("audio: keying PTT: %w", err)
		}
		defer h.ptt.Set(false)
	}

	const chunk = 4096
	for off := 0; off < len(samples); off += chunk {
		end := off + chunk
		if end > len(samples) {
			end = len(samples)
		}
		select {
		case h.txQueue <- samples[off:end]:
		case <-ctx.Done():
			return dsss.ErrCancelled
		}
	}

	// Wait for the callback to have drained every chunk we enqueued.
	for len(h.txQueue) > 0 {
		select {
		case <-ctx.Done():
			return dsss.ErrCancelled
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}

// Stats reports cumulative frame counts, the PortAudio analogue of the
// original's periodic sample-rate sanity report.
func (h *Host) Stats() (framesIn, framesOut uint64) {
	return h.framesIn.Load(), h.framesOut.Load()
}

// Close stops and closes the stream and terminates PortAudio.
func (h *Host) Close() error {
	if err := h.stream.Stop(); err != nil {
		return err
	}
	if err := h.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

func resolveDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: listing devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("audio: no device named %q", name)
}
