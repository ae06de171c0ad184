//go:build !cgo

package cmd

func NewMidiContext(sampleRate int) MIDIContext {
	// with no cgo, we cannot use MIDI, so return a null context
	return NullMIDIContext{}
}
