package engine

// NoTrack is the track id used by ArmTrack to disarm every track.
const NoTrack = -1

type (
	// Command is a message from the control plane to the audio thread. The
	// set of commands is closed: only the types in this package implement it.
	// Everything a command carries (tracks, plugin instances, triggers) must
	// be fully constructed before sending; from then on it is owned by the
	// audio thread.
	Command interface {
		isCommand()
	}

	// AddTrack appends a track to the end of the track list.
	AddTrack struct {
		Track *Track
	}

	// DeleteTrack removes the track with the given id.
	DeleteTrack struct {
		ID int
	}

	// AddPlugin appends a plugin to the end of a track's chain.
	AddPlugin struct {
		TrackID int
		Plugin  PluginInstance
	}

	// DeletePlugin removes the plugin at Index from a track's chain.
	DeletePlugin struct {
		TrackID int
		Index   int
	}

	// SetMetronome changes the metronome volume and tempo. The tempo takes
	// effect immediately, without ramping.
	SetMetronome struct {
		Volume float32
		BPM    float64
	}

	// ArmTrack arms the track with the given id and disarms all the others.
	// Only the armed track receives MIDI input. NoTrack disarms everything.
	ArmTrack struct {
		ID int
	}

	// PlaySound starts a one-shot sound that is mixed directly into the
	// output, e.g. a confirmation beep. A sound still playing is replaced.
	PlaySound struct {
		Trigger *SampleTrigger
	}
)

func (AddTrack) isCommand()     {}
func (DeleteTrack) isCommand()  {}
func (AddPlugin) isCommand()    {}
func (DeletePlugin) isCommand() {}
func (SetMetronome) isCommand() {}
func (ArmTrack) isCommand()     {}
func (PlaySound) isCommand()    {}
