package engine

import (
	"fmt"

	"github.com/minileebee/leebee"
)

// HostedPlugin is a plugin instance living inside a PluginRuntime. It wires
// the track buffers to the ports of the instance; the slice headers passed
// to the runtime are reserved up front, so processing does not allocate.
type HostedPlugin struct {
	handle   PluginHandle
	ports    PortCounts
	inputs   [][]float32
	outputs  [][]float32
	noEvents *leebee.EventSequence
}

func NewHostedPlugin(handle PluginHandle) *HostedPlugin {
	ports := handle.PortCounts()
	return &HostedPlugin{
		handle:   handle,
		ports:    ports,
		inputs:   make([][]float32, 0, max(ports.AudioInputs, 0)),
		outputs:  make([][]float32, 0, max(ports.AudioOutputs, 0)),
		noEvents: leebee.NewEventSequence(1),
	}
}

// Handle returns the runtime handle of the instance.
func (p *HostedPlugin) Handle() PluginHandle { return p.handle }

// Process runs the instance once. Errors and panics of the runtime are
// returned as *PluginRunError.
func (p *HostedPlugin) Process(samples int, events *leebee.EventSequence, in, out *leebee.AudioBuffer) (err error) {
	p.inputs = p.inputs[:0]
	for i := 0; i < min(p.ports.AudioInputs, in.Channels()); i++ {
		p.inputs = append(p.inputs, in.Channel(i))
	}
	p.outputs = p.outputs[:0]
	for i := 0; i < min(p.ports.AudioOutputs, out.Channels()); i++ {
		p.outputs = append(p.outputs, out.Channel(i))
	}
	ev := p.noEvents
	if p.ports.EventInputs > 0 && events != nil {
		ev = events
	}
	defer func() {
		if r := recover(); r != nil {
			err = &PluginRunError{Err: fmt.Errorf("%w: %v", ErrPluginPanic, r)}
		}
	}()
	if err = p.handle.Run(samples, ev, p.inputs, p.outputs); err != nil {
		return &PluginRunError{Err: err}
	}
	return nil
}

// IsActive is always true: hosted plugins process every callback.
func (p *HostedPlugin) IsActive() bool { return true }

func (p *HostedPlugin) Start() {}

func (*HostedPlugin) isPluginInstance() {}
