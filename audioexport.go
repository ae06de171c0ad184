package leebee

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Render runs p offline for frames frames, at most blockSize frames per call,
// and returns the first numChans channels of the output interleaved. events
// may be nil.
func Render(p Processor, events EventSource, frames, blockSize, numChans int) []float32 {
	if events == nil {
		events = NoEvents{}
	}
	blockSize = max(blockSize, 1)
	ret := make([]float32, 0, frames*numChans)
	for done := 0; done < frames; {
		n := min(blockSize, frames-done)
		out := p.Process(n, events.Events(n))
		events.FinishBlock(n)
		for i := 0; i < n; i++ {
			for c := 0; c < numChans; c++ {
				var v float32
				if c < out.Channels() && i < out.BufferSize() {
					v = out.Channel(c)[i]
				}
				ret = append(ret, v)
			}
		}
		done += n
	}
	return ret
}

// WriteWav writes interleaved samples as a PCM wave file with bitDepth 16 or
// 24. Samples outside [-1, 1] are clipped.
func WriteWav(w io.WriteSeeker, data []float32, numChans, sampleRate, bitDepth int) error {
	var scale float64
	switch bitDepth {
	case 16:
		scale = math.MaxInt16
	case 24:
		scale = 1<<23 - 1
	default:
		return fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, bitDepth)
	}
	ints := make([]int, len(data))
	for i, v := range data {
		ints[i] = int(math.Round(math.Max(-1, math.Min(1, float64(v))) * scale))
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, numChans, wavFormatPCM)
	buf := &audio.IntBuffer{
		Data:           ints,
		Format:         &audio.Format{NumChannels: numChans, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("WriteWav failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("WriteWav failed: %w", err)
	}
	return nil
}
