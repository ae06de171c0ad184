package leebee

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned when a wave file is not mono 16-bit PCM.
var ErrUnsupportedFormat = errors.New("unsupported wave format")

const wavFormatPCM = 1

// DecodeSample reads a mono, 16-bit PCM wave file and returns its samples
// scaled to [-1, 1]. Any other format is rejected with an error wrapping
// ErrUnsupportedFormat.
func DecodeSample(r io.ReadSeeker) ([]float32, error) {
	d := wav.NewDecoder(r)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("could not read wave header: %w", err)
	}
	if d.NumChans == 0 {
		return nil, fmt.Errorf("%w: no fmt chunk", ErrUnsupportedFormat)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: audio format %d, want PCM", ErrUnsupportedFormat, d.WavAudioFormat)
	}
	if d.NumChans != 1 {
		return nil, fmt.Errorf("%w: %d channels, want 1", ErrUnsupportedFormat, d.NumChans)
	}
	if d.BitDepth != 16 {
		return nil, fmt.Errorf("%w: %d bits per sample, want 16", ErrUnsupportedFormat, d.BitDepth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not read wave data: %w", err)
	}
	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(float64(s) / math.MaxInt16)
	}
	return samples, nil
}

// LoadSample opens the wave file at path and decodes it with DecodeSample.
func LoadSample(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open sample: %w", err)
	}
	defer f.Close()
	samples, err := DecodeSample(f)
	if err != nil {
		return nil, fmt.Errorf("could not load sample %v: %w", path, err)
	}
	return samples, nil
}
