package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/minileebee/leebee"
	"github.com/minileebee/leebee/builtin"
	"github.com/minileebee/leebee/cmd"
	"github.com/minileebee/leebee/engine"
	"github.com/minileebee/leebee/oto"
	"github.com/minileebee/leebee/session"
	"github.com/minileebee/leebee/version"
)

var configFile = flag.String("config", "", "read the configuration from `file` instead of the user config directory")
var midiInput = flag.String("midi-input", "", "connect MIDI input to matching device name prefix, * for the first device")
var logLevel = flag.String("log-level", "", "log `level`: debug, info, warn or error")
var int16Output = flag.Bool("int16", false, "output 16-bit integer audio instead of 32-bit float")
var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")
var renderFile = flag.String("render", "", "render the session offline to a wave `file` instead of playing it")
var renderDuration = flag.Duration("duration", 10*time.Second, "length of the offline render")
var versionFlag = flag.Bool("v", false, "print version and exit")

func main() {
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}
	config, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if isFlagPassed("midi-input") {
		config.MIDIInput = *midiInput
	}
	if isFlagPassed("log-level") {
		config.LogLevel = *logLevel
	}
	level, err := session.ParseLevel(config.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
		}()
	}

	processor, state := newSession(config, logger)
	if config.OKSound != "" {
		if sample, err := leebee.LoadSample(config.OKSound); err != nil {
			logger.Warn("could not load ok sound", "file", config.OKSound, "err", err)
		} else {
			state.SetOKSound(sample)
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go state.Pump(ctx)
	if err := state.Apply(config); err != nil {
		logger.Error("could not set up session", "err", err)
		os.Exit(1)
	}

	if *renderFile != "" {
		if err := render(processor, config, *renderFile, *renderDuration); err != nil {
			logger.Error("render failed", "err", err)
			os.Exit(1)
		}
		logger.Info("rendered", "file", *renderFile, "duration", *renderDuration)
		return
	}

	var events leebee.EventSource
	var keys *leebee.EventQueue
	midiContext := cmd.NewMidiContext(config.SampleRate)
	defer midiContext.Close()
	name, err := midiContext.TryToOpenBy(config.MIDIInput, config.MIDIInput == "*")
	switch {
	case err != nil:
		logger.Warn("could not open MIDI input", "prefix", config.MIDIInput, "err", err)
	case name != "":
		logger.Info("MIDI input opened", "device", name)
		events = midiContext
	}
	if events == nil {
		keys = leebee.NewEventQueue(config.SampleRate)
		events = keys
	}

	audioContext, err := oto.NewContext(oto.Options{
		SampleRate: config.SampleRate,
		Latency:    config.OutputLatency,
		Int16:      *int16Output,
	})
	if err != nil {
		logger.Error("could not open audio output", "err", err)
		os.Exit(1)
	}
	output := audioContext.Play(processor, events, config.BufferSize)
	logger.Info("audio running", "version", version.String(), "sample_rate", config.SampleRate, "buffer_size", config.BufferSize)

	done := make(chan error, 1)
	go func() {
		done <- newConsole(state, os.Stdout, keys).run(os.Stdin)
	}()
	select {
	case err := <-done:
		if err != nil {
			logger.Error("console failed", "err", err)
		}
	case <-ctx.Done():
	}
	if err := output.Err(); err != nil {
		logger.Error("audio output failed", "err", err)
	}
	output.Close()
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal("could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}

// newSession creates the processor of config and its control plane, with a
// plugin runtime of their own.
func newSession(config session.Config, logger *slog.Logger) (*engine.Processor, *session.State) {
	// the backend may ask for more frames than configured; leave headroom
	processor, broker := engine.NewProcessor(float64(config.SampleRate), 4*config.BufferSize)
	state := session.New(broker, builtin.NewRuntime(), float64(config.SampleRate), processor.BufferSize())
	state.SetLogger(logger)
	return processor, state
}

// loadConfig reads the file given with -config, or the file in the user
// config directory if there is one, or returns the defaults.
func loadConfig() (session.Config, error) {
	if isFlagPassed("config") {
		return session.LoadConfig(*configFile)
	}
	path, err := session.DefaultConfigPath()
	if err != nil {
		return session.DefaultConfig(), nil
	}
	config, err := session.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return session.DefaultConfig(), nil
	}
	return config, err
}

func render(p *engine.Processor, config session.Config, path string, duration time.Duration) error {
	frames := int(duration.Seconds() * float64(config.SampleRate))
	data := leebee.Render(p, nil, frames, config.BufferSize, 2)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := leebee.WriteWav(f, data, 2, config.SampleRate, 16); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
