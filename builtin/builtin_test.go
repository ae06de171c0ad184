package builtin_test

import (
	"errors"
	"testing"

	"github.com/minileebee/leebee"
	"github.com/minileebee/leebee/builtin"
	"github.com/minileebee/leebee/engine"
	"gitlab.com/gomidi/midi/v2"
)

func TestRuntimePlugins(t *testing.T) {
	r := builtin.NewRuntime()
	for _, d := range r.Plugins() {
		h, err := r.Instantiate(d.ID, 48000, 64)
		if err != nil {
			t.Errorf("Instantiate(%v) failed: %v", d.ID, err)
			continue
		}
		ports := h.PortCounts()
		if ports.AudioOutputs != 2 {
			t.Errorf("%v has %d outputs, want 2", d.ID, ports.AudioOutputs)
		}
		if (d.Class == engine.Instrument) != (ports.EventInputs > 0) {
			t.Errorf("%v is an %v with %d event inputs", d.ID, d.Class, ports.EventInputs)
		}
	}
	if _, err := r.Instantiate("builtin:theremin", 48000, 64); !errors.Is(err, builtin.ErrUnknownPlugin) {
		t.Errorf("Instantiate(unknown) error = %v, want ErrUnknownPlugin", err)
	}
}

func TestGainScalesInput(t *testing.T) {
	track := engine.NewTrack(1, 4)
	track.PushPlugin(engine.NewSampleTrigger([]float32{1, 1, 1, 1}))
	h, err := builtin.NewRuntime().Instantiate(builtin.GainID, 48000, 4)
	if err != nil {
		t.Fatal(err)
	}
	track.PushPlugin(engine.NewHostedPlugin(h))
	events := leebee.NewEventSequence(1)
	events.Push(0, midi.NoteOn(0, 60, 100))
	out := track.Process(4, events)
	for c, ch := range out.All {
		for i, v := range ch {
			if v != builtin.DefaultGain {
				t.Fatalf("channel %d frame %d = %v, want %v", c, i, v, builtin.DefaultGain)
			}
		}
	}
}

func TestSinePlaysAndReleases(t *testing.T) {
	const rate = 48000
	s := builtin.NewSine(rate)
	left, right := make([]float32, 256), make([]float32, 256)
	events := leebee.NewEventSequence(4)
	events.Push(10, midi.NoteOn(0, 69, 127))
	if err := s.Run(256, events, nil, [][]float32{left, right}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i <= 10; i++ {
		if left[i] != 0 {
			t.Fatalf("frame %d = %v before the note started", i, left[i])
		}
	}
	var peak float32
	for i := range left {
		peak = max(peak, left[i], -left[i])
		if left[i] != right[i] {
			t.Fatalf("frame %d: left %v != right %v", i, left[i], right[i])
		}
	}
	if peak < 0.2 || peak > 0.25 {
		t.Errorf("peak = %v, want about 0.25", peak)
	}
	events.Clear()
	events.Push(0, midi.NoteOff(0, 69))
	block := make([]float32, rate/50)
	s.Run(len(block), events, nil, [][]float32{block})
	events.Clear()
	s.Run(len(block), events, nil, [][]float32{block})
	for i, v := range block {
		if v != 0 {
			t.Fatalf("frame %d = %v after the release", i, v)
		}
	}
}
