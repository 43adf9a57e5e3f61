// Command wavtool is an offline harness for the acoustic modem: it
// modulates a payload straight to a WAV file, or demodulates a WAV file
// back to the frames it finds, without needing a sound card. It plays
// the role atest.go/gen_packets.go play in the repo this is grounded
// on — exercising the DSP chain against recorded audio instead of a
// live capture.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/pflag"

	"github.com/acoustigo/dsssmodem/dsss"
)

func main() {
	mode := pflag.StringP("mode", "m", "", "mode: modulate or demodulate")
	in := pflag.StringP("in", "i", "", "input path (payload bytes for modulate, WAV file for demodulate)")
	out := pflag.StringP("out", "o", "", "output path (WAV file for modulate, decoded payload bytes for demodulate)")
	sequenceLength := pflag.IntP("sequence-length", "n", 31, "chip sequence length")
	ldpcVariant := pflag.IntP("ldpc-variant", "l", 0, "LDPC variant index (0-3)")
	pflag.Parse()

	if *mode != "modulate" && *mode != "demodulate" {
		fmt.Fprintln(os.Stderr, "wavtool: -mode must be \"modulate\" or \"demodulate\"")
		os.Exit(2)
	}

	cfg := dsss.DefaultConfig()
	cfg.SequenceLength = *sequenceLength
	if seed, ok := dsss.DefaultSeeds[*sequenceLength]; ok {
		cfg.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "wavtool:", err)
		os.Exit(1)
	}

	var err error
	switch *mode {
	case "modulate":
		err = runModulate(cfg, *in, *out, *ldpcVariant)
	case "demodulate":
		err = runDemodulate(cfg, *in, *out)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "wavtool:", err)
		os.Exit(1)
	}
}

func runModulate(cfg dsss.Config, inPath, outPath string, ldpcVariant int) error {
	payload, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}

	modem, err := dsss.NewDSSSModem(cfg, nil)
	if err != nil {
		return err
	}

	maxBytes := dsss.UserBytes(ldpcVariant)
	var samples []dsss.Sample
	for off := 0; off < len(payload); off += maxBytes {
		end := off + maxBytes
		if end > len(payload) {
			end = len(payload)
		}
		chunk, err := modem.Modulate(context.Background(), payload[off:end], dsss.BuildOptions{
			SequenceNo: byte((off / maxBytes) % 256),
			LdpcNType:  ldpcVariant,
		})
		if err != nil {
			return fmt.Errorf("modulating chunk at offset %d: %w", off, err)
		}
		samples = append(samples, chunk...)
	}

	return writeWAV(outPath, samples, cfg.SampleRate)
}

func runDemodulate(cfg dsss.Config, inPath, outPath string) error {
	samples, err := readWAV(inPath)
	if err != nil {
		return err
	}

	modem, err := dsss.NewDSSSModem(cfg, nil)
	if err != nil {
		return err
	}

	frames, err := modem.ProcessSamples(context.Background(), samples)
	if err != nil {
		return fmt.Errorf("demodulating: %w", err)
	}

	var payload []byte
	for _, f := range frames {
		payload = append(payload, f.Payload...)
	}
	return os.WriteFile(outPath, payload, 0o644)
}

func writeWAV(path string, samples []dsss.Sample, sampleRate float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, int(sampleRate), 16, 1, 1)
	defer enc.Close()

	ints := make([]int, len(samples))
	for i, s := range samples {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		ints[i] = v
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: int(sampleRate)},
		Data:   ints,
	}
	return enc.Write(buf)
}

func readWAV(path string) ([]dsss.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	floats := buf.AsFloatBuffer()
	samples := make([]dsss.Sample, len(floats.Data))
	for i, v := range floats.Data {
		samples[i] = dsss.Sample(v)
	}
	return samples, nil
}
