// Package oto is an audio output backend playing a leebee.Processor through
// the system audio device.
package oto

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/minileebee/leebee"
)

type (
	Options struct {
		SampleRate int
		// Latency is the size of the device buffer, as a duration. 0 selects
		// the platform default.
		Latency time.Duration
		// Int16 selects 16-bit integer output instead of 32-bit float.
		Int16 bool
	}

	Context struct {
		ctx  *oto.Context
		opts Options
	}

	// Output is a processor being played. Closing it stops the playback.
	Output struct {
		player *oto.Player
		stream *Stream
	}

	// Stream renders a processor on demand. It implements io.Reader and
	// produces interleaved stereo frames; every Read calls the processor as
	// many times as needed, each time with at most BlockSize frames.
	Stream struct {
		processor leebee.Processor
		events    leebee.EventSource
		blockSize int
		useInt16  bool
		buf       []byte
		pending   []byte
	}
)

const numChannels = 2

// NewContext opens the audio device. It blocks until the device is ready.
func NewContext(opts Options) (*Context, error) {
	format := oto.FormatFloat32LE
	if opts.Int16 {
		format = oto.FormatSignedInt16LE
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   opts.SampleRate,
		ChannelCount: numChannels,
		Format:       format,
		BufferSize:   opts.Latency,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx, opts: opts}, nil
}

// Play starts rendering p on the audio thread of the device, with MIDI input
// from events. blockSize is the largest number of frames p is asked for at
// once.
func (c *Context) Play(p leebee.Processor, events leebee.EventSource, blockSize int) *Output {
	s := NewStream(p, events, blockSize, c.opts.Int16)
	player := c.ctx.NewPlayer(s)
	player.Play()
	return &Output{player: player, stream: s}
}

// Close stops the playback.
func (o *Output) Close() error {
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

// Err returns the error of the player, if any.
func (o *Output) Err() error {
	return o.player.Err()
}

func NewStream(p leebee.Processor, events leebee.EventSource, blockSize int, useInt16 bool) *Stream {
	if events == nil {
		events = leebee.NoEvents{}
	}
	if blockSize < 1 {
		blockSize = 1
	}
	return &Stream{
		processor: p,
		events:    events,
		blockSize: blockSize,
		useInt16:  useInt16,
		buf:       make([]byte, 0, blockSize*numChannels*4),
	}
}

// BlockSize returns the largest number of frames rendered at once.
func (s *Stream) BlockSize() int { return s.blockSize }

func (s *Stream) frameBytes() int {
	if s.useInt16 {
		return numChannels * 2
	}
	return numChannels * 4
}

// Read fills b completely with rendered audio. It never fails.
func (s *Stream) Read(b []byte) (int, error) {
	n := 0
	for n < len(b) {
		if len(s.pending) == 0 {
			remaining := (len(b) - n + s.frameBytes() - 1) / s.frameBytes()
			s.render(min(s.blockSize, remaining))
			if len(s.pending) == 0 {
				clear(b[n:])
				return len(b), nil
			}
		}
		c := copy(b[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *Stream) render(frames int) {
	out := s.processor.Process(frames, s.events.Events(frames))
	s.events.FinishBlock(frames)
	if s.useInt16 {
		s.buf = Append16BitLE(s.buf[:0], out, frames)
	} else {
		s.buf = AppendFloat32LE(s.buf[:0], out, frames)
	}
	s.pending = s.buf
}
