//go:build cgo

package cmd

import (
	"github.com/minileebee/leebee/gomidi"
)

func NewMidiContext(sampleRate int) MIDIContext {
	return gomidi.NewContext(sampleRate)
}
