package engine

import (
	"errors"

	"github.com/minileebee/leebee"
)

// ErrPluginPanic is wrapped in the PluginRunError returned when a hosted
// plugin panics.
var ErrPluginPanic = errors.New("plugin panicked")

type (
	// PluginInstance is one processing stage of a track chain. The set of
	// instances is closed: SampleTrigger for the built-in sampler and
	// HostedPlugin for everything provided by a PluginRuntime.
	//
	// Process renders samples frames into out, reading in and the events
	// addressed to the track. Both buffers have exactly samples frames and
	// out is zeroed by the caller.
	PluginInstance interface {
		Process(samples int, events *leebee.EventSequence, in, out *leebee.AudioBuffer) error
		IsActive() bool
		Start()
		isPluginInstance()
	}

	// PluginRunError is the error a failing plugin reports to its track.
	PluginRunError struct {
		Err error
	}

	PluginClass int

	// PluginDescriptor describes a plugin a runtime can instantiate.
	PluginDescriptor struct {
		ID    string
		Name  string
		Class PluginClass
	}

	// PortCounts are the numbers of ports of a plugin instance. They are
	// fixed for the lifetime of the instance.
	PortCounts struct {
		AudioInputs  int
		AudioOutputs int
		EventInputs  int
	}

	// PluginRuntime is the hosting runtime that knows how to discover and
	// instantiate plugins. It lives as long as the session and is only used
	// on the control plane.
	PluginRuntime interface {
		Plugins() []PluginDescriptor
		Instantiate(id string, sampleRate float64, bufferSize int) (PluginHandle, error)
	}

	// PluginHandle is a live plugin instance inside a runtime. Run is called
	// on the audio thread; inputs and outputs hold one slice per connected
	// audio port, each exactly samples frames long.
	PluginHandle interface {
		PortCounts() PortCounts
		Run(samples int, events *leebee.EventSequence, inputs, outputs [][]float32) error
	}
)

const (
	Instrument PluginClass = iota
	Effect
)

func (c PluginClass) String() string {
	if c == Effect {
		return "effect"
	}
	return "instrument"
}

func (e *PluginRunError) Error() string {
	return "plugin run failed: " + e.Err.Error()
}

func (e *PluginRunError) Unwrap() error {
	return e.Err
}
