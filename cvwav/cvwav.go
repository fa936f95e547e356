// Package cvwav renders sequencer output to audio files and samples audio
// files back into step values.
package cvwav

import (
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"go-stepsampler/debug"
	"go-stepsampler/sequencer"
)

const (
	DefaultSampleRate  = 48000
	DefaultGateSamples = 4800 // 100ms per gate at the default rate

	bitDepth  = 16
	pcmFormat = 1
)

// RenderOptions controls Render
type RenderOptions struct {
	SampleRate  int
	GateSamples int // samples held per gate
	Gates       int
}

func (o *RenderOptions) defaults() {
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.GateSamples <= 0 {
		o.GateSamples = DefaultGateSamples
	}
	if o.Gates <= 0 {
		o.Gates = sequencer.NumSteps
	}
}

// Render plays the current pattern of st for opts.Gates gates, starting from
// its playhead, and writes the stepped DAC output as mono 16-bit PCM.
// st is a copy; the caller's state is not advanced.
func Render(w io.WriteSeeker, st sequencer.State, opts RenderOptions) error {
	opts.defaults()

	data := make([]int, 0, opts.Gates*opts.GateSamples)
	for g := 0; g < opts.Gates; g++ {
		st.AdvanceStep()
		v := ToPCM(st.CurrentStep().Value)
		for i := 0; i < opts.GateSamples; i++ {
			data = append(data, v)
		}
	}

	enc := wav.NewEncoder(w, opts.SampleRate, bitDepth, 1, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: opts.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}

	debug.Log("cvwav", "rendered %d gates, %d samples", opts.Gates, len(data))
	return nil
}

// ToPCM maps a 10-bit step value onto the signed 16-bit range
func ToPCM(v uint16) int {
	if v > sequencer.MaxValue {
		v = sequencer.MaxValue
	}
	return int(v)<<6 - 1<<15
}

// FromPCM maps a signed sample of the given bit depth onto 0..1023
func FromPCM(x int, depth int) uint16 {
	full := 1 << (depth - 1)
	v := (x + full) * (sequencer.MaxValue + 1) / (2 * full)
	return uint16(min(max(v, 0), sequencer.MaxValue))
}

// Import decodes a .wav or .mp3 file, splits its first channel into one
// equal slice per step and returns the mean of each slice as a step value.
func Import(r io.ReadSeeker, name string) ([sequencer.NumSteps]uint16, error) {
	var out [sequencer.NumSteps]uint16

	var data []int
	var depth int
	var err error

	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		data, depth, err = decodeWAV(r)
	case ".mp3":
		data, depth, err = decodeMP3(r)
	default:
		return out, fmt.Errorf("%s: unsupported audio format", name)
	}
	if err != nil {
		return out, err
	}

	if len(data) < sequencer.NumSteps {
		return out, fmt.Errorf("%s: %d samples, need at least %d", name, len(data), sequencer.NumSteps)
	}

	seg := len(data) / sequencer.NumSteps
	for i := range out {
		sum := 0
		for _, x := range data[i*seg : (i+1)*seg] {
			sum += x
		}
		out[i] = FromPCM(sum/seg, depth)
	}

	debug.Log("cvwav", "imported %s: %d samples at %d bits", name, len(data), depth)
	return out, nil
}

func decodeWAV(r io.ReadSeeker) ([]int, int, error) {
	dec := wav.NewDecoder(r)
	if dec == nil {
		return nil, 0, fmt.Errorf("wav: error decoding")
	}
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("wav: not a valid wav file")
	}

	// load all data at once
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wav: %w", err)
	}

	// first channel only
	chans := int(dec.NumChans)
	if chans < 1 {
		chans = 1
	}
	data := make([]int, 0, len(buf.Data)/chans)
	for i := 0; i < len(buf.Data); i += chans {
		data = append(data, buf.Data[i])
	}
	return data, int(dec.BitDepth), nil
}

// decodeMP3 returns the left channel. go-mp3 always yields 16-bit little
// endian stereo, four bytes per frame.
func decodeMP3(r io.Reader) ([]int, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3: %w", err)
	}

	data := make([]int, 0, len(raw)/4)
	for i := 0; i+1 < len(raw); i += 4 {
		data = append(data, int(int16(binary.LittleEndian.Uint16(raw[i:]))))
	}
	return data, 16, nil
}
