package session_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/minileebee/leebee/builtin"
	"github.com/minileebee/leebee/engine"
	"github.com/minileebee/leebee/session"
)

func newSession(t *testing.T) (*session.State, *engine.Processor) {
	t.Helper()
	p, b := engine.NewProcessor(48000, 64)
	return session.New(b, builtin.NewRuntime(), p.SampleRate(), p.BufferSize()), p
}

func writeWav(t *testing.T, name string, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, 48000, 16, 1, 1)
	err = enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: 48000},
		SourceBitDepth: 16,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := session.DefaultConfig()
	if c.SampleRate != 48000 || c.BufferSize != 512 || c.OutputLatency != 50*time.Millisecond {
		t.Errorf("DefaultConfig() = %+v", c)
	}
	if c.Metronome.BPM != 120 || c.Metronome.Volume != 0 {
		t.Errorf("default metronome = %+v, want 120 bpm at volume 0", c.Metronome)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestParseConfig(t *testing.T) {
	c, err := session.ParseConfig([]byte(`
buffer_size: 256
metronome:
  bpm: 95
tracks:
  - name: drums
    plugins: ["builtin:sine", "builtin:gain"]
    volume: 0.8
    armed: true
  - {}
`))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if c.BufferSize != 256 || c.SampleRate != 48000 {
		t.Errorf("buffer size %d at %d Hz, want 256 at the default rate", c.BufferSize, c.SampleRate)
	}
	if c.Metronome.BPM != 95 || c.Metronome.Volume != 0 {
		t.Errorf("metronome = %+v", c.Metronome)
	}
	if len(c.Tracks) != 2 || c.Tracks[0].Volume == nil || *c.Tracks[0].Volume != 0.8 || c.Tracks[1].Volume != nil {
		t.Errorf("tracks = %+v", c.Tracks)
	}
}

func TestParseConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name, yaml, field string
	}{
		{"zero rate", "sample_rate: 0", "sample_rate"},
		{"negative buffer", "buffer_size: -1", "buffer_size"},
		{"bad tempo", "metronome: {bpm: 0}", "metronome.bpm"},
		{"bad level", "log_level: chatty", "log_level"},
		{"two armed", "tracks: [{armed: true}, {armed: true}]", "tracks"},
		{"unknown field", "sample_rat: 44100", "sample_rat"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := session.ParseConfig([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.field) {
				t.Errorf("ParseConfig(%q) error = %v, want one naming %v", tc.yaml, err, tc.field)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("log_level: debug\nmidi_input: Launchkey\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := session.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if l, _ := session.ParseLevel(c.LogLevel); l != slog.LevelDebug || c.MIDIInput != "Launchkey" {
		t.Errorf("config = %+v", c)
	}
	if _, err := session.LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestTrackLifecycle(t *testing.T) {
	s, p := newSession(t)
	first, err := s.CreateTrack("")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := s.CreateTrack("bass")
	if first != 1 || second != 2 {
		t.Fatalf("track ids %d, %d, want 1, 2", first, second)
	}
	if err := s.AddPluginToTrack(second, builtin.SineID); err != nil {
		t.Fatalf("AddPluginToTrack failed: %v", err)
	}
	if err := s.SetArmed(second); err != nil {
		t.Fatal(err)
	}
	p.Process(64, nil)
	if p.NumTracks() != 2 {
		t.Fatalf("processor has %d tracks, want 2", p.NumTracks())
	}
	if track, _ := p.Track(second); !track.Properties.Armed || track.NumPlugins() != 1 {
		t.Errorf("track %d armed %v with %d plugins", second, track.Properties.Armed, track.NumPlugins())
	}
	tracks := s.Tracks()
	if tracks[0].Name != "Track 1" || tracks[1].Name != "bass" || !tracks[1].Armed {
		t.Errorf("mirror = %+v", tracks)
	}
	err = s.DeleteTracks(first, 42)
	if !errors.Is(err, session.ErrUnknownTrack) {
		t.Errorf("DeleteTracks error = %v, want ErrUnknownTrack for 42", err)
	}
	p.Process(64, nil)
	if p.NumTracks() != 1 || len(s.Tracks()) != 1 {
		t.Errorf("after deletion: %d tracks in the processor, %d in the mirror", p.NumTracks(), len(s.Tracks()))
	}
	if third, _ := s.CreateTrack(""); third != 3 {
		t.Errorf("ids are reused: got %d, want 3", third)
	}
}

func TestValidation(t *testing.T) {
	s, _ := newSession(t)
	id, _ := s.CreateTrack("")
	if err := s.AddPluginToTrack(7, builtin.GainID); !errors.Is(err, session.ErrUnknownTrack) {
		t.Errorf("AddPluginToTrack(unknown track) = %v", err)
	}
	if err := s.AddPluginToTrack(id, "builtin:nope"); !errors.Is(err, session.ErrUnknownPlugin) {
		t.Errorf("AddPluginToTrack(unknown plugin) = %v", err)
	}
	if err := s.RemovePluginFromTrack(id, 0); !errors.Is(err, session.ErrPluginIndex) {
		t.Errorf("RemovePluginFromTrack(empty track) = %v", err)
	}
	if err := s.SetArmed(9); !errors.Is(err, session.ErrUnknownTrack) {
		t.Errorf("SetArmed(unknown) = %v", err)
	}
	if err := s.SetMetronome(session.Metronome{BPM: -3}); err == nil {
		t.Error("SetMetronome accepted a negative tempo")
	}
	if err := s.AddPluginToTrack(id, session.SamplePrefix+"/no/such.wav"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("AddPluginToTrack(missing sample) = %v", err)
	}
}

func TestSamplePlugins(t *testing.T) {
	s, p := newSession(t)
	path := writeWav(t, "snare_drum.wav", []int{32767, 0, -32767})
	if err := s.RegisterSample(path); err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, info := range s.Plugins() {
		if info.ID == session.SamplePrefix+path {
			found = true
			if info.Name != "Snare Drum" {
				t.Errorf("sample name = %q, want %q", info.Name, "Snare Drum")
			}
		}
	}
	if !found {
		t.Fatalf("sample missing from %+v", s.Plugins())
	}
	id, _ := s.CreateTrack("snare")
	if err := s.AddPluginToTrack(id, session.SamplePrefix+path); err != nil {
		t.Fatal(err)
	}
	s.SetArmed(id)
	out := p.Process(64, func(yield func(uint32, []byte) bool) {
		yield(0, []byte{0x90, 38, 100})
	})
	if got := out.Channel(0)[0]; got != engine.DefaultTrackVolume {
		t.Errorf("first frame = %v, want %v", got, engine.DefaultTrackVolume)
	}
}

func TestOKSound(t *testing.T) {
	s, p := newSession(t)
	s.SetOKSound([]float32{0.5})
	if _, err := s.CreateTrack(""); err != nil {
		t.Fatal(err)
	}
	if out := p.Process(64, nil); out.Channel(0)[0] != 0.5 {
		t.Errorf("confirmation sound not played, first frame %v", out.Channel(0)[0])
	}
}

func TestApplyConfig(t *testing.T) {
	s, p := newSession(t)
	c, err := session.ParseConfig([]byte(`
metronome: {bpm: 100, volume: 0.3}
tracks:
  - {name: lead, plugins: ["builtin:sine"], armed: true}
  - {plugins: ["builtin:sine", "builtin:gain"], volume: 1}
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(c); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	p.Process(64, nil)
	if m := p.Metronome(); m.BPM() != 100 || m.Volume() != 0.3 {
		t.Errorf("metronome at %v bpm, volume %v", m.BPM(), m.Volume())
	}
	second, _ := p.Track(2)
	if p.NumTracks() != 2 || second.NumPlugins() != 2 || second.Properties.Volume != 1 {
		t.Fatalf("processor tracks not set up from the config")
	}
	if s.Armed() != 1 {
		t.Errorf("armed track = %d, want 1", s.Armed())
	}
}

func TestPumpUpdatesTimeInfo(t *testing.T) {
	s, p := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Pump(ctx)
		close(done)
	}()
	p.Process(64, nil)
	p.Process(64, nil)
	deadline := time.Now().Add(time.Second)
	for s.TimeInfo().SubBeat == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	if s.TimeInfo().SubBeat == 0 {
		t.Error("time info was not updated")
	}
}

func TestHandleAlertDisablesTrack(t *testing.T) {
	s, _ := newSession(t)
	var buf bytes.Buffer
	s.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	id, _ := s.CreateTrack("")
	s.Handle(engine.Notification{Kind: engine.NotifyAlert, Alert: engine.Alert{
		Kind: engine.AlertPluginRun, TrackID: id, Err: errors.New("boom"),
	}})
	if !s.Tracks()[0].Disabled {
		t.Error("track not marked disabled")
	}
	if out := buf.String(); !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "boom") {
		t.Errorf("log = %q, want an error mentioning the cause", out)
	}
}

func TestReport(t *testing.T) {
	s, _ := newSession(t)
	var buf bytes.Buffer
	if err := s.Report(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no tracks") || !strings.Contains(buf.String(), "120.0 bpm") {
		t.Errorf("empty report = %q", buf.String())
	}
	id, _ := s.CreateTrack("a rather long track name that gets cut")
	s.AddPluginToTrack(id, builtin.GainID)
	s.SetArmed(id)
	buf.Reset()
	if err := s.Report(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"*  1", "a rather long track name", "[builtin:gain]", "position 1.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("report %q does not contain %q", out, want)
		}
	}
	if strings.Contains(out, "gets cut") {
		t.Errorf("long name not truncated in %q", out)
	}
}
