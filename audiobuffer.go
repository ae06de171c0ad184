package leebee

import (
	"fmt"

	"github.com/viterin/vek/vek32"
)

// AudioBuffer contains audio data for several channels. The samples are
// stored in a single flat slice that is logically sliced into equally long
// channel segments of BufferSize() frames each.
//
// The buffer owns a scratch slice of the same length, so that MixFrom does
// not need to allocate on the audio thread.
type AudioBuffer struct {
	data       []float32
	scratch    []float32
	channels   int
	bufferSize int
}

// NewAudioBuffer creates a zeroed audio buffer with the given number of
// channels and frames per channel.
func NewAudioBuffer(channels, bufferSize int) *AudioBuffer {
	if channels < 1 {
		channels = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &AudioBuffer{
		data:       make([]float32, channels*bufferSize),
		scratch:    make([]float32, bufferSize),
		channels:   channels,
		bufferSize: bufferSize,
	}
}

// NewStereoAudioBuffer creates a zeroed audio buffer with 2 channels.
func NewStereoAudioBuffer(bufferSize int) *AudioBuffer {
	return NewAudioBuffer(2, bufferSize)
}

// Channels returns the number of channels.
func (b *AudioBuffer) Channels() int { return b.channels }

// BufferSize returns the number of frames in each channel.
func (b *AudioBuffer) BufferSize() int { return b.bufferSize }

// Len returns the total number of samples, i.e. Channels() * BufferSize().
func (b *AudioBuffer) Len() int { return len(b.data) }

// Channel returns the samples of channel i. The returned slice aliases the
// buffer, so writes to it modify the buffer.
func (b *AudioBuffer) Channel(i int) []float32 {
	return b.data[i*b.bufferSize : (i+1)*b.bufferSize : (i+1)*b.bufferSize]
}

// All iterates over the channels in order. The yielded slices alias the
// buffer and can be used both for reading and for writing.
func (b *AudioBuffer) All(yield func(int, []float32) bool) {
	for i := 0; i < b.channels; i++ {
		if !yield(i, b.Channel(i)) {
			return
		}
	}
}

// Reset sets all the samples to 0 in place.
func (b *AudioBuffer) Reset() {
	vek32.Zeros_Into(b.data, len(b.data))
}

// ResetWithBufferSize changes the number of frames per channel and zeroes
// all the samples. Memory is only allocated when the new size does not fit
// into the capacity reserved so far.
func (b *AudioBuffer) ResetWithBufferSize(bufferSize int) {
	if bufferSize < 0 {
		bufferSize = 0
	}
	if bufferSize != b.bufferSize {
		n := bufferSize * b.channels
		if cap(b.data) >= n {
			b.data = b.data[:n]
		} else {
			b.data = make([]float32, n)
		}
		if cap(b.scratch) >= bufferSize {
			b.scratch = b.scratch[:bufferSize]
		} else {
			b.scratch = make([]float32, bufferSize)
		}
		b.bufferSize = bufferSize
	}
	b.Reset()
}

// MixFrom adds the samples of src, multiplied by gain, onto b. Channels are
// paired by index and the number of mixed channels is the smaller of the two
// channel counts; likewise only the common frames are mixed. No clipping is
// performed.
func (b *AudioBuffer) MixFrom(src *AudioBuffer, gain float32) {
	channels := min(b.channels, src.channels)
	frames := min(b.bufferSize, src.bufferSize)
	if frames == 0 {
		return
	}
	tmp := b.scratch[:frames]
	for i := 0; i < channels; i++ {
		vek32.MulNumber_Into(tmp, src.Channel(i)[:frames], gain)
		vek32.Add_Inplace(b.Channel(i)[:frames], tmp)
	}
}

// CopyFirstChannelToAll copies the samples of channel 0 to every other
// channel. Used by mono sources to fan out to stereo outputs.
func (b *AudioBuffer) CopyFirstChannelToAll() {
	src := b.Channel(0)
	for i := 1; i < b.channels; i++ {
		copy(b.Channel(i), src)
	}
}

// Peak returns the largest absolute sample value in channel i, or 0 if the
// buffer is empty.
func (b *AudioBuffer) Peak(i int) float32 {
	c := b.Channel(i)
	if len(c) == 0 {
		return 0
	}
	return max(vek32.Max(c), -vek32.Min(c))
}

func (b *AudioBuffer) String() string {
	return fmt.Sprintf("AudioBuffer{channels: %d, bufferSize: %d}", b.channels, b.bufferSize)
}
