package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/minileebee/leebee"
	"github.com/minileebee/leebee/session"
	"gitlab.com/gomidi/midi/v2"
)

const defaultNoteLength = 250 * time.Millisecond

var errNoKeyboard = errors.New("notes cannot be played while a MIDI input is open")

type (
	// console is the line based user interface of the control plane.
	console struct {
		state *session.State
		out   io.Writer
		// keys receives the notes played from the console; nil when a MIDI
		// input feeds the audio thread instead.
		keys  *leebee.EventQueue
		start time.Time
	}

	command struct {
		args string
		help string
		min  int // minimum number of arguments
		run  func(c *console, args []string) error
	}
)

var commands map[string]command

func init() {
	commands = map[string]command{
		"help": {help: "list the commands", run: (*console).help},
		"status": {help: "show tempo, output level and tracks", run: func(c *console, args []string) error {
			return c.state.Report(c.out)
		}},
		"plugins": {help: "list the plugins that can be added to tracks", run: (*console).plugins},
		"add-track": {args: "[name]", help: "create a track", run: func(c *console, args []string) error {
			id, err := c.state.CreateTrack(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "created track %d\n", id)
			return nil
		}},
		"delete-track": {args: "id...", help: "delete tracks", min: 1, run: func(c *console, args []string) error {
			ids, err := parseInts(args)
			if err != nil {
				return err
			}
			return c.state.DeleteTracks(ids...)
		}},
		"add-plugin": {args: "track plugin", help: "append a plugin to the chain of a track", min: 2, run: func(c *console, args []string) error {
			id, err := parseInt(args[0])
			if err != nil {
				return err
			}
			return c.state.AddPluginToTrack(id, strings.Join(args[1:], " "))
		}},
		"remove-plugin": {args: "track index", help: "remove a plugin from the chain of a track", min: 2, run: func(c *console, args []string) error {
			ids, err := parseInts(args[:2])
			if err != nil {
				return err
			}
			return c.state.RemovePluginFromTrack(ids[0], ids[1])
		}},
		"arm": {args: "track", help: "send the MIDI input to a track", min: 1, run: func(c *console, args []string) error {
			id, err := parseInt(args[0])
			if err != nil {
				return err
			}
			return c.state.SetArmed(id)
		}},
		"disarm": {help: "send the MIDI input nowhere", run: func(c *console, args []string) error {
			return c.state.Disarm()
		}},
		"metronome": {args: "bpm [volume]", help: "set the tempo and volume of the metronome", min: 1, run: (*console).metronome},
		"sample": {args: "file", help: "offer a wave file as a plugin", min: 1, run: func(c *console, args []string) error {
			path := strings.Join(args, " ")
			if err := c.state.RegisterSample(path); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "added plugin %s%s\n", session.SamplePrefix, path)
			return nil
		}},
		"note": {args: "key [velocity [ms]]", help: "play a note on the armed track", min: 1, run: (*console).note},
		"quit": {help: "exit"},
	}
}

func newConsole(state *session.State, out io.Writer, keys *leebee.EventQueue) *console {
	return &console{state: state, out: out, keys: keys, start: time.Now()}
}

// run executes the lines of in until it ends or the quit command. Errors of
// the commands are printed and do not stop the console.
func (c *console) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(c.out, "> ")
	for scanner.Scan() {
		quit, err := c.exec(scanner.Text())
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
		fmt.Fprint(c.out, "> ")
	}
	return scanner.Err()
}

func (c *console) exec(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name, args := fields[0], fields[1:]
	if name == "exit" {
		name = "quit"
	}
	cmd, ok := commands[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q, try help", name)
	}
	if cmd.run == nil {
		return true, nil
	}
	if len(args) < cmd.min {
		return false, fmt.Errorf("usage: %s %s", name, cmd.args)
	}
	return false, cmd.run(c, args)
}

func (c *console) help(args []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(c.out, "  %-32s %s\n", strings.TrimSpace(name+" "+cmd.args), cmd.help)
	}
	return nil
}

func (c *console) plugins(args []string) error {
	for _, p := range c.state.Plugins() {
		fmt.Fprintf(c.out, "  %-24s %-24s %v\n", p.ID, p.Name, p.Class)
	}
	return nil
}

func (c *console) metronome(args []string) error {
	m := c.state.Metronome()
	bpm, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid tempo %q", args[0])
	}
	m.BPM = bpm
	if len(args) > 1 {
		volume, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return fmt.Errorf("invalid volume %q", args[1])
		}
		m.Volume = float32(volume)
	}
	return c.state.SetMetronome(m)
}

func (c *console) note(args []string) error {
	if c.keys == nil {
		return errNoKeyboard
	}
	values := []int{0, 100, int(defaultNoteLength / time.Millisecond)}
	for i, arg := range args[:min(len(args), len(values))] {
		v, err := parseInt(arg)
		if err != nil {
			return err
		}
		values[i] = v
	}
	key, velocity, length := values[0], values[1], time.Duration(values[2])*time.Millisecond
	if key < 0 || key > 127 || velocity < 1 || velocity > 127 || length < 0 {
		return fmt.Errorf("invalid note %v", args)
	}
	now := time.Since(c.start)
	if !c.keys.Push(now, midi.NoteOn(0, uint8(key), uint8(velocity))) ||
		!c.keys.Push(now+length, midi.NoteOff(0, uint8(key))) {
		return errors.New("note dropped, too many notes pending")
	}
	return nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func parseInts(args []string) ([]int, error) {
	ret := make([]int, len(args))
	for i, arg := range args {
		v, err := parseInt(arg)
		if err != nil {
			return nil, err
		}
		ret[i] = v
	}
	return ret, nil
}
