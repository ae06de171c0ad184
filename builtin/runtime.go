// Package builtin is an in-process plugin hosting runtime with a couple of
// simple plugins, so that the engine can be used without an external plugin
// host.
package builtin

import (
	"errors"
	"fmt"

	"github.com/minileebee/leebee/engine"
)

const (
	GainID = "builtin:gain"
	SineID = "builtin:sine"

	// DefaultGain is the level of the gain effect, about -6 dB.
	DefaultGain = 0.5
)

var ErrUnknownPlugin = errors.New("unknown plugin")

// Runtime hosts the built-in plugins. The zero value is ready to use.
type Runtime struct {
	// Gain is the level the gain effect is instantiated with. 0 selects
	// DefaultGain.
	Gain float32
}

var _ engine.PluginRuntime = (*Runtime)(nil)

func NewRuntime() *Runtime {
	return &Runtime{Gain: DefaultGain}
}

func (r *Runtime) Plugins() []engine.PluginDescriptor {
	return []engine.PluginDescriptor{
		{ID: GainID, Name: "gain", Class: engine.Effect},
		{ID: SineID, Name: "sine synth", Class: engine.Instrument},
	}
}

func (r *Runtime) Instantiate(id string, sampleRate float64, bufferSize int) (engine.PluginHandle, error) {
	switch id {
	case GainID:
		level := r.Gain
		if level == 0 {
			level = DefaultGain
		}
		return &Gain{Level: level}, nil
	case SineID:
		if sampleRate <= 0 {
			return nil, fmt.Errorf("could not instantiate %v: invalid sample rate %v", id, sampleRate)
		}
		return NewSine(sampleRate), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownPlugin, id)
}
