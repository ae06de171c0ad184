package engine

import (
	"math"

	"github.com/minileebee/leebee"
	"gitlab.com/gomidi/midi/v2"
)

const (
	DefaultBPM      = 120
	BeatsPerMeasure = 4
	// ClickNote is the note (A0) the metronome sends to its click sampler.
	ClickNote = 21

	clickDuration  = 0.02
	clickFrequency = 1000
	clickAmplitude = 0.5
)

var clickEvent = midi.NoteOn(0, ClickNote, 127)

type (
	// SampleTimeInfo is a musical position. Beat is in [0, BeatsPerMeasure)
	// and SubBeat, the fraction of the current beat, in [0, 1).
	SampleTimeInfo struct {
		Measure int16
		Beat    int16
		SubBeat float64
	}

	// TimeInfoStep is the position before and after one frame.
	TimeInfoStep struct {
		Prev, Next SampleTimeInfo
	}

	// Metronome keeps the musical time and plays a click on every beat. The
	// time is a phase accumulator advanced by bpm/60/sampleRate beats per
	// frame. The click is rendered by a sample trigger on an internal track,
	// fed with a synthetic note-on whenever a beat starts.
	Metronome struct {
		track          *Track
		events         *leebee.EventSequence
		steps          []TimeInfoStep
		time           SampleTimeInfo
		sampleRate     float64
		bpm            float64
		volume         float32
		beatsPerSample float64
		started        bool // the first frame is at position zero
	}
)

// DefaultClick returns a 20 ms 1 kHz sine burst with a linear decay.
func DefaultClick(sampleRate float64) []float32 {
	n := int(sampleRate * clickDuration)
	click := make([]float32, n)
	for i := range click {
		decay := 1 - float64(i)/float64(n)
		click[i] = float32(clickAmplitude * decay * math.Sin(2*math.Pi*clickFrequency*float64(i)/sampleRate))
	}
	return click
}

// NewMetronome creates a silent metronome at DefaultBPM playing DefaultClick.
func NewMetronome(sampleRate float64, bufferSize int) *Metronome {
	return NewMetronomeWithClick(sampleRate, bufferSize, DefaultClick(sampleRate))
}

// NewMetronomeWithClick creates a silent metronome at DefaultBPM playing the
// given mono waveform on every beat.
func NewMetronomeWithClick(sampleRate float64, bufferSize int, click []float32) *Metronome {
	track := NewTrack(MetronomeTrackID, bufferSize)
	track.Properties.Volume = 0
	track.PushPlugin(NewSampleTrigger(click))
	m := &Metronome{
		track:  track,
		events: leebee.NewEventSequence(0),
		steps:  make([]TimeInfoStep, 0, bufferSize),
	}
	m.SetProperties(sampleRate, 0, DefaultBPM)
	return m
}

// SetProperties changes the sample rate, volume and tempo. The new rate of
// the phase accumulator takes effect from the next frame; the current
// position is kept. Non-positive sample rates and tempos are ignored.
func (m *Metronome) SetProperties(sampleRate float64, volume float32, bpm float64) {
	if sampleRate > 0 {
		m.sampleRate = sampleRate
	}
	if bpm > 0 {
		m.bpm = bpm
	}
	m.volume = volume
	m.track.Properties.Volume = volume
	if m.sampleRate > 0 {
		m.beatsPerSample = m.bpm / 60 / m.sampleRate
	}
}

func (m *Metronome) Volume() float32 { return m.volume }

func (m *Metronome) BPM() float64 { return m.bpm }

func (m *Metronome) SampleRate() float64 { return m.sampleRate }

// BeatsPerSample returns how far one frame advances the position, in beats.
func (m *Metronome) BeatsPerSample() float64 { return m.beatsPerSample }

// CurrentTimeInfo returns the position of the last processed frame, or zero
// before the first Process.
func (m *Metronome) CurrentTimeInfo() SampleTimeInfo { return m.time }

// Process advances the time by samples frames and renders the clicks. It
// returns the click audio, not yet scaled by the volume, and the position
// before and after each frame. Both are owned by the metronome and valid
// until the next call.
func (m *Metronome) Process(samples int) (*leebee.AudioBuffer, []TimeInfoStep) {
	m.events.Clear()
	if cap(m.steps) < samples {
		m.steps = make([]TimeInfoStep, samples)
	}
	m.steps = m.steps[:samples]
	for i := range m.steps {
		prev := m.time
		if m.started {
			m.time.SubBeat += m.beatsPerSample
		}
		m.started = true
		if m.time.SubBeat >= 1 {
			m.time.SubBeat -= 1
			m.time.Beat++
			m.events.Push(uint32(i), clickEvent)
		}
		if m.time.Beat >= BeatsPerMeasure {
			m.time.Beat = 0
			m.time.Measure++
		}
		m.steps[i] = TimeInfoStep{Prev: prev, Next: m.time}
	}
	return m.track.Process(samples, m.events), m.steps
}
