package builtin

import (
	"math"

	"github.com/minileebee/leebee"
	"github.com/minileebee/leebee/engine"
)

const (
	numVoices   = 16
	releaseTime = 0.01 // seconds
	voiceGain   = 0.25
)

type (
	// Sine is a polyphonic sine wave instrument. Note-ons start a voice, the
	// oldest one if all are busy; note-offs fade the voice out over a few
	// milliseconds.
	Sine struct {
		sampleRate float64
		release    float32 // envelope decrement per frame
		voices     [numVoices]sineVoice
		age        int
	}

	sineVoice struct {
		key      uint8
		phase    float64
		step     float64
		level    float32
		envelope float32
		held     bool
		age      int
	}
)

func NewSine(sampleRate float64) *Sine {
	return &Sine{
		sampleRate: sampleRate,
		release:    float32(1 / (releaseTime * sampleRate)),
	}
}

func (s *Sine) PortCounts() engine.PortCounts {
	return engine.PortCounts{AudioOutputs: 2, EventInputs: 1}
}

func (s *Sine) Run(samples int, events *leebee.EventSequence, _, outputs [][]float32) error {
	if len(outputs) == 0 {
		return nil
	}
	left := outputs[0]
	n := min(samples, len(left))
	next := 0
	for frame := 0; frame < n; frame++ {
		for ; next < events.Len() && events.At(next).Frame <= uint32(frame); next++ {
			s.handle(events.At(next))
		}
		var sum float32
		for i := range s.voices {
			v := &s.voices[i]
			if v.envelope <= 0 {
				continue
			}
			sum += float32(math.Sin(2*math.Pi*v.phase)) * v.level * v.envelope
			v.phase += v.step
			if v.phase >= 1 {
				v.phase -= 1
			}
			if !v.held {
				v.envelope -= s.release
			}
		}
		left[frame] = sum
	}
	for _, out := range outputs[1:] {
		copy(out[:n], left[:n])
	}
	for ; next < events.Len(); next++ {
		s.handle(events.At(next))
	}
	return nil
}

func (s *Sine) handle(e *leebee.Event) {
	var ch, key, vel uint8
	msg := e.Message()
	switch {
	case msg.GetNoteOn(&ch, &key, &vel) && vel > 0:
		v := s.allocate()
		s.age++
		*v = sineVoice{
			key:      key,
			step:     noteFrequency(key) / s.sampleRate,
			level:    voiceGain * float32(vel) / 127,
			envelope: 1,
			held:     true,
			age:      s.age,
		}
	case msg.GetNoteOn(&ch, &key, &vel), msg.GetNoteOff(&ch, &key, &vel):
		for i := range s.voices {
			if s.voices[i].key == key && s.voices[i].held {
				s.voices[i].held = false
			}
		}
	}
}

func (s *Sine) allocate() *sineVoice {
	oldest := &s.voices[0]
	for i := range s.voices {
		v := &s.voices[i]
		if v.envelope <= 0 {
			return v
		}
		if v.age < oldest.age {
			oldest = v
		}
	}
	return oldest
}

func noteFrequency(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}
