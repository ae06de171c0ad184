package engine

import (
	"errors"
	"fmt"
)

// ErrCommandPanic is wrapped by the alert published when applying a command
// panicked.
var ErrCommandPanic = errors.New("applying command panicked")

type (
	// Notification is a message from the audio thread to the control plane.
	// The frequent time info is not boxed, so publishing it does not
	// allocate.
	Notification struct {
		Kind     NotificationKind
		TimeInfo SampleTimeInfo
		Peaks    [2]float32 // absolute output peak of the callback, per channel
		Alert    Alert
	}

	NotificationKind int

	// Alert reports something that went wrong on the audio thread. It is
	// formatted only on the control plane.
	Alert struct {
		Kind    AlertKind
		TrackID int
		Index   int // plugin index, for AlertPluginRun and AlertUnknownPlugin
		Err     error
	}

	AlertKind int
)

const (
	NotifyTimeInfo NotificationKind = iota
	NotifyAlert
)

const (
	AlertPluginRun AlertKind = iota
	AlertUnknownTrack
	AlertUnknownPlugin
	AlertDuplicateTrack
	AlertCommandPanic
)

func (k AlertKind) String() string {
	switch k {
	case AlertPluginRun:
		return "PluginRun"
	case AlertUnknownTrack:
		return "UnknownTrack"
	case AlertUnknownPlugin:
		return "UnknownPlugin"
	case AlertDuplicateTrack:
		return "DuplicateTrack"
	case AlertCommandPanic:
		return "CommandPanic"
	}
	return fmt.Sprintf("AlertKind(%d)", int(k))
}

func (a Alert) String() string {
	switch a.Kind {
	case AlertPluginRun:
		return fmt.Sprintf("track %d disabled, plugin %d failed: %v", a.TrackID, a.Index, a.Err)
	case AlertUnknownTrack:
		return fmt.Sprintf("track %d not found", a.TrackID)
	case AlertUnknownPlugin:
		return fmt.Sprintf("plugin %d not found in track %d", a.Index, a.TrackID)
	case AlertDuplicateTrack:
		return fmt.Sprintf("track %d already exists", a.TrackID)
	case AlertCommandPanic:
		return fmt.Sprintf("command dropped: %v", a.Err)
	}
	return a.Kind.String()
}
