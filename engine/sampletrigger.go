package engine

import "github.com/minileebee/leebee"

// SampleTrigger plays a mono waveform from the start every time it receives
// a note-on. The waveform is shared between clones and never modified, so it
// can be handed from the control plane to the audio thread freely.
type SampleTrigger struct {
	sample  []float32
	pos     int
	playing bool
}

func NewSampleTrigger(sample []float32) *SampleTrigger {
	return &SampleTrigger{sample: sample}
}

// Clone returns a stopped trigger sharing the waveform of t.
func (t *SampleTrigger) Clone() *SampleTrigger {
	return &SampleTrigger{sample: t.sample}
}

// Len returns the length of the waveform in frames.
func (t *SampleTrigger) Len() int { return len(t.sample) }

// Process writes the waveform into channel 0 of out, starting over at every
// note-on with a nonzero velocity, and then copies channel 0 to the other
// channels. Frames where nothing plays are left as they are.
func (t *SampleTrigger) Process(samples int, events *leebee.EventSequence, _, out *leebee.AudioBuffer) error {
	dst := out.Channel(0)
	n := min(samples, len(dst))
	next, numEvents := 0, 0
	if events != nil {
		numEvents = events.Len()
	}
	var ch, key, vel uint8
	for frame := 0; frame < n; frame++ {
		for ; next < numEvents && events.At(next).Frame <= uint32(frame); next++ {
			if events.At(next).Message().GetNoteOn(&ch, &key, &vel) && vel > 0 {
				t.Start()
			}
		}
		if !t.playing {
			continue
		}
		if t.pos >= len(t.sample) {
			t.playing = false
			continue
		}
		dst[frame] = t.sample[t.pos]
		t.pos++
	}
	out.CopyFirstChannelToAll()
	return nil
}

// IsActive reports whether the trigger is playing.
func (t *SampleTrigger) IsActive() bool { return t.playing }

// Start rewinds the trigger to the beginning of the waveform.
func (t *SampleTrigger) Start() {
	t.pos = 0
	t.playing = true
}

func (*SampleTrigger) isPluginInstance() {}
