package engine

import (
	"fmt"
	"iter"
	"slices"

	"github.com/minileebee/leebee"
)

// Processor is the audio engine, run on the audio thread of a backend. Once
// per callback it applies the commands received through its Broker, renders
// the metronome and every enabled track, and mixes them into a stereo
// buffer. It publishes the musical time and any alerts back through the
// Broker, never blocking.
//
// Apart from construction, all methods must be called from the audio
// thread.
type Processor struct {
	sampleRate float64
	bufferSize int

	broker    *Broker
	tracks    []*Track
	metronome *Metronome
	sound     *SampleTrigger // one-shot sound mixed directly into the output

	mix      *leebee.AudioBuffer
	events   *leebee.EventSequence // MIDI input of the current callback
	noEvents *leebee.EventSequence // given to tracks that are not armed
}

var _ leebee.Processor = (*Processor)(nil)

// NewProcessor creates a processor and the broker used to control it. The
// buffers are reserved for bufferSize frames; larger callbacks work but
// allocate once when first seen.
func NewProcessor(sampleRate float64, bufferSize int) (*Processor, *Broker) {
	broker := NewBroker()
	p := &Processor{
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		broker:     broker,
		tracks:     make([]*Track, 0, 16),
		metronome:  NewMetronome(sampleRate, bufferSize),
		mix:        leebee.NewStereoAudioBuffer(bufferSize),
		events:     leebee.NewEventSequence(0),
		noEvents:   leebee.NewEventSequence(1),
	}
	return p, broker
}

// Process renders one callback of samples frames. events are the MIDI
// messages received during the callback, with frame offsets relative to its
// start. The returned buffer is owned by the processor and valid until the
// next call.
func (p *Processor) Process(samples int, events iter.Seq2[uint32, []byte]) *leebee.AudioBuffer {
	p.drainCommands()
	p.mix.ResetWithBufferSize(samples)
	if p.sound != nil {
		p.sound.Process(samples, nil, nil, p.mix)
		if !p.sound.IsActive() {
			p.sound = nil
		}
	}
	click, _ := p.metronome.Process(samples)
	p.mix.MixFrom(click, p.metronome.Volume())
	p.events.Fill(events)
	for _, t := range p.tracks {
		if t.Properties.Disabled {
			continue
		}
		ev := p.noEvents
		if t.Properties.Armed {
			ev = p.events
		}
		p.mix.MixFrom(t.Process(samples, ev), t.Properties.Volume)
		if t.Properties.Disabled {
			p.alert(Alert{Kind: AlertPluginRun, TrackID: t.id, Index: t.failed, Err: t.err})
		}
	}
	TrySend(p.broker.ToControl, Notification{
		Kind:     NotifyTimeInfo,
		TimeInfo: p.metronome.CurrentTimeInfo(),
		Peaks:    [2]float32{p.mix.Peak(0), p.mix.Peak(1)},
	})
	return p.mix
}

// SyncTempo sets the metronome tempo from the backend, e.g. the tempo of a
// plugin host. It does nothing if the tempo did not change.
func (p *Processor) SyncTempo(bpm float64) {
	if bpm > 0 && bpm != p.metronome.BPM() {
		p.metronome.SetProperties(p.sampleRate, p.metronome.Volume(), bpm)
	}
}

func (p *Processor) SampleRate() float64 { return p.sampleRate }

func (p *Processor) BufferSize() int { return p.bufferSize }

func (p *Processor) Metronome() *Metronome { return p.metronome }

func (p *Processor) NumTracks() int { return len(p.tracks) }

// Track returns the track with the given id.
func (p *Processor) Track(id int) (*Track, bool) {
	if i := p.trackIndex(id); i >= 0 {
		return p.tracks[i], true
	}
	return nil, false
}

func (p *Processor) drainCommands() {
	for {
		select {
		case c := <-p.broker.ToEngine:
			p.apply(c)
		default:
			return
		}
	}
}

func (p *Processor) apply(c Command) {
	defer func() {
		if r := recover(); r != nil {
			p.alert(Alert{Kind: AlertCommandPanic, Err: fmt.Errorf("%w: %T: %v", ErrCommandPanic, c, r)})
		}
	}()
	switch c := c.(type) {
	case AddTrack:
		if c.Track == nil {
			return
		}
		if p.trackIndex(c.Track.id) >= 0 {
			p.alert(Alert{Kind: AlertDuplicateTrack, TrackID: c.Track.id})
			return
		}
		p.tracks = append(p.tracks, c.Track)
	case DeleteTrack:
		i := p.trackIndex(c.ID)
		if i < 0 {
			p.alert(Alert{Kind: AlertUnknownTrack, TrackID: c.ID})
			return
		}
		p.tracks = slices.Delete(p.tracks, i, i+1)
	case AddPlugin:
		t, ok := p.Track(c.TrackID)
		if !ok {
			p.alert(Alert{Kind: AlertUnknownTrack, TrackID: c.TrackID})
			return
		}
		if c.Plugin != nil {
			t.PushPlugin(c.Plugin)
		}
	case DeletePlugin:
		t, ok := p.Track(c.TrackID)
		if !ok {
			p.alert(Alert{Kind: AlertUnknownTrack, TrackID: c.TrackID})
			return
		}
		if _, ok := t.RemovePlugin(c.Index); !ok {
			p.alert(Alert{Kind: AlertUnknownPlugin, TrackID: c.TrackID, Index: c.Index})
		}
	case SetMetronome:
		p.metronome.SetProperties(p.sampleRate, c.Volume, c.BPM)
	case ArmTrack:
		if c.ID != NoTrack && p.trackIndex(c.ID) < 0 {
			p.alert(Alert{Kind: AlertUnknownTrack, TrackID: c.ID})
			return
		}
		for _, t := range p.tracks {
			t.Properties.Armed = t.id == c.ID
		}
	case PlaySound:
		p.sound = c.Trigger
		if p.sound != nil {
			p.sound.Start()
		}
	}
}

func (p *Processor) trackIndex(id int) int {
	return slices.IndexFunc(p.tracks, func(t *Track) bool { return t.id == id })
}

func (p *Processor) alert(a Alert) {
	TrySend(p.broker.ToControl, Notification{Kind: NotifyAlert, Alert: a})
}
