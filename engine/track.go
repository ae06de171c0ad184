package engine

import "github.com/minileebee/leebee"

const (
	// MetronomeTrackID is the id of the metronome's internal track. It is
	// never used for user tracks.
	MetronomeTrackID = -1
	// DefaultTrackVolume is the volume a new track is mixed at.
	DefaultTrackVolume = 0.5

	defaultPluginCapacity = 16
)

type (
	// Track is a chain of plugins rendering into a stereo buffer. Once sent
	// to the Processor, a track is owned by the audio thread.
	Track struct {
		Properties TrackProperties

		id      int
		plugins []PluginInstance
		in, out *leebee.AudioBuffer
		err     error
		failed  int
	}

	TrackProperties struct {
		Disabled bool    // set when a plugin failed; a disabled track is not processed
		Volume   float32 // gain applied when mixing the track output
		Armed    bool    // only the armed track receives MIDI input
	}
)

// NewTrack creates an empty, enabled track with the default volume. The
// buffers are reserved for bufferSize frames.
func NewTrack(id int, bufferSize int) *Track {
	return &Track{
		Properties: TrackProperties{Volume: DefaultTrackVolume},
		id:         id,
		plugins:    make([]PluginInstance, 0, defaultPluginCapacity),
		in:         leebee.NewStereoAudioBuffer(bufferSize),
		out:        leebee.NewStereoAudioBuffer(bufferSize),
		failed:     -1,
	}
}

func (t *Track) ID() int { return t.id }

func (t *Track) NumPlugins() int { return len(t.plugins) }

// Plugin returns the plugin at index i.
func (t *Track) Plugin(i int) PluginInstance { return t.plugins[i] }

// PushPlugin appends p to the end of the chain.
func (t *Track) PushPlugin(p PluginInstance) {
	t.plugins = append(t.plugins, p)
}

// RemovePlugin removes and returns the plugin at index. ok is false if the
// index is out of range.
func (t *Track) RemovePlugin(index int) (p PluginInstance, ok bool) {
	if index < 0 || index >= len(t.plugins) {
		return nil, false
	}
	p = t.plugins[index]
	copy(t.plugins[index:], t.plugins[index+1:])
	t.plugins[len(t.plugins)-1] = nil
	t.plugins = t.plugins[:len(t.plugins)-1]
	return p, true
}

// Err returns the error of the plugin that disabled the track, or nil.
func (t *Track) Err() error { return t.err }

// FailedPlugin returns the index of the plugin that disabled the track, or
// -1.
func (t *Track) FailedPlugin() int { return t.failed }

// Process runs the plugin chain for samples frames. Each plugin reads the
// output of the previous one; the first one reads silence. If a plugin
// fails, the track is disabled and the rest of the chain is skipped; the
// returned buffer then holds whatever the failing plugin wrote. The returned
// buffer is owned by the track and valid until the next call.
func (t *Track) Process(samples int, events *leebee.EventSequence) *leebee.AudioBuffer {
	t.in.ResetWithBufferSize(samples)
	t.out.ResetWithBufferSize(samples)
	for i, p := range t.plugins {
		t.in, t.out = t.out, t.in
		t.out.Reset()
		if err := p.Process(samples, events, t.in, t.out); err != nil {
			t.Properties.Disabled = true
			t.err = err
			t.failed = i
			break
		}
	}
	return t.out
}
