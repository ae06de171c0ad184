package builtin

import (
	"github.com/minileebee/leebee"
	"github.com/minileebee/leebee/engine"
	"github.com/viterin/vek/vek32"
)

// Gain is a stereo effect multiplying its input by a constant level.
type Gain struct {
	Level float32
}

func (g *Gain) PortCounts() engine.PortCounts {
	return engine.PortCounts{AudioInputs: 2, AudioOutputs: 2}
}

func (g *Gain) Run(samples int, _ *leebee.EventSequence, inputs, outputs [][]float32) error {
	for i, out := range outputs {
		out = out[:min(samples, len(out))]
		if i >= len(inputs) {
			vek32.Zeros_Into(out, len(out))
			continue
		}
		vek32.MulNumber_Into(out, inputs[i][:len(out)], g.Level)
	}
	return nil
}
