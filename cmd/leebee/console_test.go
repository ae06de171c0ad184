package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/minileebee/leebee"
	"github.com/minileebee/leebee/builtin"
	"github.com/minileebee/leebee/engine"
	"github.com/minileebee/leebee/session"
	"gitlab.com/gomidi/midi/v2"
)

func newTestConsole(keys *leebee.EventQueue) (*console, *bytes.Buffer) {
	_, broker := engine.NewProcessor(48000, 512)
	state := session.New(broker, builtin.NewRuntime(), 48000, 512)
	var out bytes.Buffer
	return newConsole(state, &out, keys), &out
}

func TestConsoleRun(t *testing.T) {
	c, out := newTestConsole(nil)
	in := strings.NewReader("add-track Lead Synth\nadd-plugin 1 builtin:sine\n\narm 1\nbogus\nquit\nadd-track never\n")
	if err := c.run(in); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	tracks := c.state.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(tracks))
	}
	if tracks[0].Name != "Lead Synth" || !tracks[0].Armed || len(tracks[0].Plugins) != 1 {
		t.Errorf("track = %+v, want armed Lead Synth with one plugin", tracks[0])
	}
	if !strings.Contains(out.String(), "created track 1") {
		t.Errorf("output %q does not confirm the track", out.String())
	}
	if !strings.Contains(out.String(), `error: unknown command "bogus"`) {
		t.Errorf("output %q does not report the unknown command", out.String())
	}
}

func TestConsoleErrors(t *testing.T) {
	c, _ := newTestConsole(nil)
	for _, line := range []string{
		"arm",
		"arm x",
		"arm 5",
		"delete-track 1 2",
		"add-plugin 1 builtin:gain",
		"metronome fast",
		"metronome 120 loud",
		"metronome -1",
		"remove-plugin 1",
		"note 60",
	} {
		t.Run(line, func(t *testing.T) {
			quit, err := c.exec(line)
			if err == nil {
				t.Error("expected an error")
			}
			if quit {
				t.Error("console quit")
			}
		})
	}
}

func TestConsoleMetronome(t *testing.T) {
	c, _ := newTestConsole(nil)
	if _, err := c.exec("metronome 90 0.5"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.exec("metronome 100"); err != nil {
		t.Fatal(err)
	}
	if m := c.state.Metronome(); m.BPM != 100 || m.Volume != 0.5 {
		t.Errorf("metronome = %+v, want 100 bpm at volume 0.5", m)
	}
}

func TestConsoleListings(t *testing.T) {
	c, out := newTestConsole(nil)
	for _, line := range []string{"help", "plugins", "status"} {
		if _, err := c.exec(line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	for _, want := range []string{"add-plugin track plugin", "builtin:gain", "Sine Synth", "no tracks"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, out.String())
		}
	}
}

func TestConsoleNote(t *testing.T) {
	keys := leebee.NewEventQueue(1000)
	c, _ := newTestConsole(keys)
	if _, err := c.exec("note 60 90 200"); err != nil {
		t.Fatal(err)
	}
	var got []uint32
	for frame, data := range keys.Events(64) {
		var ch, key, vel uint8
		if !midi.Message(data).GetNoteOn(&ch, &key, &vel) || key != 60 || vel != 90 {
			t.Errorf("unexpected message % X", data)
		}
		got = append(got, frame)
	}
	keys.FinishBlock(64)
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("note on at frames %v, want [0]", got)
	}
	for _, line := range []string{"note 128", "note 60 0", "note 60 100 -5"} {
		if _, err := c.exec(line); err == nil {
			t.Errorf("%s: expected an error", line)
		}
	}
}
