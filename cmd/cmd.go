// Package cmd has the pieces shared by the leebee applications.
package cmd

import (
	"errors"

	"github.com/minileebee/leebee"
)

type (
	// MIDIContext is a MIDI input that can be opened by device name and
	// feeds the audio thread.
	MIDIContext interface {
		leebee.EventSource
		// TryToOpenBy opens the first device whose name starts with
		// namePrefix, or the first device if takeFirst is set, and returns
		// its name.
		TryToOpenBy(namePrefix string, takeFirst bool) (string, error)
		Close()
	}

	// NullMIDIContext is the MIDIContext of builds without MIDI support.
	NullMIDIContext struct {
		leebee.NoEvents
	}
)

func (NullMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) (string, error) {
	if namePrefix == "" && !takeFirst {
		return "", nil
	}
	return "", errors.New("MIDI input is not supported by this build")
}

func (NullMIDIContext) Close() {}
