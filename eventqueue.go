package leebee

import (
	"iter"
	"math"
	"time"
)

// EventQueueSize is the number of pending messages an EventQueue holds.
// Messages arriving while the queue is full are dropped.
const EventQueueSize = 1024

type (
	// EventQueue is an EventSource fed with timestamped messages from another
	// goroutine, e.g. a MIDI driver callback. The timestamps are mapped onto
	// frames of the audio stream: the first message received defines the
	// origin, and the origin then drifts slowly towards messages played late
	// or received early for the next block, so that late or early blocks do
	// not accumulate timing errors. Messages can be queued ahead of time.
	EventQueue struct {
		sampleRate float64
		in         chan timedEvent

		buf        []timedEvent
		startFrame int64
		startSet   bool
		samples    int
		consumed   int
		late       int64
		yield      iter.Seq2[uint32, []byte]
	}

	timedEvent struct {
		frame int64
		len   uint8
		data  [MaxEventBytes]byte
	}
)

// NewEventQueue creates an empty queue for a stream at sampleRate.
func NewEventQueue(sampleRate int) *EventQueue {
	q := &EventQueue{
		sampleRate: float64(sampleRate),
		in:         make(chan timedEvent, EventQueueSize),
		buf:        make([]timedEvent, 0, EventQueueSize),
	}
	q.yield = q.iterate
	return q
}

// Push queues a raw message received at timestamp, measured from an
// arbitrary but fixed epoch. It never blocks and is safe to call from any
// goroutine. It returns false if the message was dropped, because the queue
// is full or the message is empty or longer than MaxEventBytes.
func (q *EventQueue) Push(timestamp time.Duration, data []byte) bool {
	if len(data) == 0 || len(data) > MaxEventBytes {
		return false
	}
	e := timedEvent{frame: int64(math.Round(timestamp.Seconds() * q.sampleRate))}
	e.len = uint8(copy(e.data[:], data))
	select {
	case q.in <- e:
		return true
	default:
		return false
	}
}

// Events returns the messages falling into the next samples frames. Messages
// that should have been played already are placed at frame 0.
func (q *EventQueue) Events(samples int) iter.Seq2[uint32, []byte] {
F:
	for {
		select {
		case e := <-q.in:
			if len(q.buf) == cap(q.buf) {
				continue
			}
			if !q.startSet {
				q.startFrame = e.frame
				q.startSet = true
			}
			q.buf = append(q.buf, e)
		default:
			break F
		}
	}
	q.samples = samples
	q.consumed = 0
	q.late = 0
	for _, e := range q.buf {
		f := e.frame - q.startFrame
		if f >= int64(samples) {
			break
		}
		q.late = min(q.late, f)
		q.consumed++
	}
	return q.yield
}

func (q *EventQueue) iterate(yield func(uint32, []byte) bool) {
	for i := 0; i < q.consumed; i++ {
		e := &q.buf[i]
		if !yield(uint32(max(e.frame-q.startFrame, 0)), e.data[:e.len]) {
			return
		}
	}
}

// FinishBlock drops the messages of the block and advances the origin by
// samples frames.
func (q *EventQueue) FinishBlock(samples int) {
	q.startFrame += int64(samples)
	n := copy(q.buf, q.buf[q.consumed:])
	q.buf = q.buf[:n]
	q.consumed = 0
	switch {
	case q.late < 0:
		// messages were played too late; move the origin back towards them
		q.startFrame += q.late / 5
	case len(q.buf) > 0 && q.buf[0].frame-q.startFrame < int64(samples):
		// a message is due in the next block but was received early; move
		// the origin forward towards it. Messages scheduled further ahead
		// are left alone.
		q.startFrame -= (q.startFrame - q.buf[0].frame) / 5
	}
	q.late = 0
}
