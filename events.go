package leebee

import (
	"iter"

	"gitlab.com/gomidi/midi/v2"
)

// DefaultEventCapacity is the number of events an EventSequence reserves
// when created with NewEventSequence(0).
const DefaultEventCapacity = 1024

// MaxEventBytes is the longest raw message an Event can hold. Longer messages
// (system exclusive) are not carried by an EventSequence.
const MaxEventBytes = 3

type (
	// Event is a raw MIDI channel message at a frame offset relative to the
	// start of the current buffer.
	Event struct {
		Frame uint32
		Len   uint8
		Data  [MaxEventBytes]byte
	}

	// EventSequence is a fixed-capacity list of events, ordered by arrival.
	// All the storage is reserved when the sequence is created, so pushing
	// and clearing never allocate.
	EventSequence struct {
		events []Event
	}
)

// NewEventSequence creates an empty sequence able to hold capacity events.
// A capacity <= 0 selects DefaultEventCapacity.
func NewEventSequence(capacity int) *EventSequence {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &EventSequence{events: make([]Event, 0, capacity)}
}

// Message returns the raw bytes of the event as a MIDI message. The returned
// slice aliases the event.
func (e *Event) Message() midi.Message {
	return midi.Message(e.Data[:e.Len])
}

// Push appends a raw message at the given frame. It returns false if the
// sequence is full or the message is empty or too long.
func (s *EventSequence) Push(frame uint32, data []byte) bool {
	if len(data) == 0 || len(data) > MaxEventBytes || len(s.events) == cap(s.events) {
		return false
	}
	var e Event
	e.Frame = frame
	e.Len = uint8(copy(e.Data[:], data))
	s.events = append(s.events, e)
	return true
}

// Clear removes all the events while keeping the reserved storage.
func (s *EventSequence) Clear() {
	s.events = s.events[:0]
}

// Len returns the number of events in the sequence.
func (s *EventSequence) Len() int { return len(s.events) }

// Cap returns the maximum number of events the sequence can hold.
func (s *EventSequence) Cap() int { return cap(s.events) }

// At returns a pointer to the i-th event. The pointer is valid until the
// sequence is cleared.
func (s *EventSequence) At(i int) *Event { return &s.events[i] }

// All iterates over the events in arrival order.
func (s *EventSequence) All() iter.Seq2[int, *Event] {
	return func(yield func(int, *Event) bool) {
		for i := range s.events {
			if !yield(i, &s.events[i]) {
				return
			}
		}
	}
}

// Fill clears the sequence and pushes every event of the raw stream. Events
// that do not fit are dropped; the number of dropped events is returned.
func (s *EventSequence) Fill(events iter.Seq2[uint32, []byte]) (dropped int) {
	s.Clear()
	if events == nil {
		return 0
	}
	for frame, data := range events {
		if !s.Push(frame, data) {
			dropped++
		}
	}
	return dropped
}
