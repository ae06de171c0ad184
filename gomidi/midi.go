// Package gomidi is a MIDI input backend on the rtmidi driver. It needs cgo.
package gomidi

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/minileebee/leebee"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// RTMIDIContext delivers the messages of one open input device to the
	// audio thread as a leebee.EventSource.
	RTMIDIContext struct {
		driver             *rtmididrv.Driver
		currentIn          drivers.In
		stop               func()
		inputDevices       []RTMIDIDevice
		devicesInitialized bool
		queue              *leebee.EventQueue
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}
)

var _ leebee.EventSource = (*RTMIDIContext)(nil)

func (m *RTMIDIContext) InputDevices(yield func(RTMIDIDevice) bool) {
	if m.devicesInitialized {
		m.yieldCachedInputDevices(yield)
	} else {
		m.initInputDevices(yield)
	}
}

func (m *RTMIDIContext) yieldCachedInputDevices(yield func(RTMIDIDevice) bool) {
	for _, device := range m.inputDevices {
		if !yield(device) {
			break
		}
	}
}

func (m *RTMIDIContext) initInputDevices(yield func(RTMIDIDevice) bool) {
	if m.driver == nil {
		return
	}
	ins, err := m.driver.Ins()
	if err != nil {
		return
	}
	for i := 0; i < len(ins); i++ {
		device := RTMIDIDevice{context: m, in: ins[i]}
		m.inputDevices = append(m.inputDevices, device)
	}
	m.devicesInitialized = true
	m.yieldCachedInputDevices(yield)
}

// NewContext opens the driver. Message timestamps are converted to frames
// of a stream at sampleRate.
func NewContext(sampleRate int) *RTMIDIContext {
	m := RTMIDIContext{queue: leebee.NewEventQueue(sampleRate)}
	// there's not much we can do if this fails, so just use m.driver = nil to
	// indicate no driver available
	m.driver, _ = rtmididrv.New()
	return &m
}

// Open an input device while closing the currently open if necessary.
func (d RTMIDIDevice) Open() error {
	if d.context.currentIn == d.in {
		return nil
	}
	if d.context.driver == nil {
		return errors.New("no driver available")
	}
	d.context.closeInput()
	if err := d.in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	stop, err := midi.ListenTo(d.in, d.context.HandleMessage)
	if err != nil {
		d.in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	d.context.currentIn = d.in
	d.context.stop = stop
	return nil
}

func (d RTMIDIDevice) String() string {
	return d.in.String()
}

func (c *RTMIDIContext) closeInput() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.HasDeviceOpen() {
		c.currentIn.Close()
	}
	c.currentIn = nil
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.closeInput()
	c.driver.Close()
}

func (c *RTMIDIContext) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

// TryToOpenBy opens the first input whose name starts with namePrefix, or
// the first input at all if takeFirst is set.
func (c *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) (string, error) {
	if namePrefix == "" && !takeFirst {
		return "", nil
	}
	for input := range c.InputDevices {
		if takeFirst || strings.HasPrefix(input.String(), namePrefix) {
			return input.String(), input.Open()
		}
	}
	if takeFirst {
		return "", errors.New("could not find any MIDI input")
	}
	return "", fmt.Errorf("could not find any MIDI input starting with %q", namePrefix)
}

// HandleMessage is the callback of the driver. Messages that do not fit into
// an event (system exclusive) are ignored, and so are messages arriving
// while the queue is full.
func (c *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	c.queue.Push(time.Duration(timestampms)*time.Millisecond, msg)
}

func (c *RTMIDIContext) Events(samples int) iter.Seq2[uint32, []byte] {
	return c.queue.Events(samples)
}

func (c *RTMIDIContext) FinishBlock(samples int) {
	c.queue.FinishBlock(samples)
}
