// Package engine implements the real-time side of the audio engine: tracks
// of plugin chains, the metronome, and the Processor that mixes them once
// per audio callback. The control plane talks to the Processor only through
// the Broker.
package engine

import (
	"errors"
	"time"
)

const (
	// CommandQueueSize is the capacity of the control-to-audio channel.
	CommandQueueSize = 1024
	// NotificationQueueSize is the capacity of the audio-to-control channel.
	NotificationQueueSize = 2048
	// SendTimeout is how long Send waits for room in a full command queue.
	SendTimeout = time.Second
)

// ErrCommandQueueFull is returned by Send when the audio thread has not
// consumed any commands within SendTimeout, e.g. because the backend is
// stalled.
var ErrCommandQueueFull = errors.New("engine command queue is full")

// Broker carries the messages between the control plane and the audio
// thread: commands one way, notifications the other. It is just two
// bounded channels. The audio thread never blocks on either of them: it
// drains ToEngine with a non-blocking select at the start of every callback
// and publishes to ToControl with TrySend, dropping notifications when the
// control plane falls behind.
type Broker struct {
	ToEngine  chan Command
	ToControl chan Notification
}

func NewBroker() *Broker {
	return &Broker{
		ToEngine:  make(chan Command, CommandQueueSize),
		ToControl: make(chan Notification, NotificationQueueSize),
	}
}

// Send queues a command for the audio thread. The command is applied at the
// start of the next callback; there is no acknowledgement. If the queue is
// full, Send waits at most SendTimeout for room before giving up with
// ErrCommandQueueFull.
func (b *Broker) Send(c Command) error {
	if TrySend(b.ToEngine, c) {
		return nil
	}
	timer := time.NewTimer(SendTimeout)
	defer timer.Stop()
	select {
	case b.ToEngine <- c:
		return nil
	case <-timer.C:
		return ErrCommandQueueFull
	}
}

// Notifications returns the receiving end of the audio-to-control channel.
func (b *Broker) Notifications() <-chan Notification {
	return b.ToControl
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
