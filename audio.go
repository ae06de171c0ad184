package leebee

import "iter"

type (
	// Processor renders one callback worth of audio. It is called by an audio
	// backend once per buffer with the number of frames to render and the
	// MIDI events received during that buffer, as (frame offset, raw bytes)
	// pairs in frame order. The returned buffer is owned by the processor and
	// is valid until the next call.
	Processor interface {
		Process(samples int, events iter.Seq2[uint32, []byte]) *AudioBuffer
	}

	// EventSource delivers the MIDI input of a backend block by block.
	// Events(samples) returns the events falling into the next block of
	// samples frames; FinishBlock is called after the block was rendered.
	EventSource interface {
		Events(samples int) iter.Seq2[uint32, []byte]
		FinishBlock(samples int)
	}

	// NoEvents is an EventSource that never produces events.
	NoEvents struct{}
)

func (NoEvents) Events(int) iter.Seq2[uint32, []byte] { return emptyEvents }
func (NoEvents) FinishBlock(int)                      {}

func emptyEvents(func(uint32, []byte) bool) {}
