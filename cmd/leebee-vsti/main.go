//go:build plugin

package main

import (
	"log/slog"
	"os"

	"github.com/minileebee/leebee/builtin"
	"github.com/minileebee/leebee/engine"
	"github.com/minileebee/leebee/session"
	"pipelined.dev/audio/vst2"
)

const (
	pluginID   = 'L'<<24 | 'e'<<16 | 'e'<<8 | 'B'
	pluginName = "leebee"
	// maxFrames is the largest host buffer rendered in one go; larger
	// buffers are split.
	maxFrames = 4096
)

type VSTIProcessContext struct {
	events []vst2.MIDIEvent
	offset int
	frames int
	host   vst2.Host
}

// Events yields the MIDI events of the host falling into the current slice
// of the host buffer.
func (c *VSTIProcessContext) Events(yield func(uint32, []byte) bool) {
	for i := range c.events {
		ev := &c.events[i]
		frame := int(ev.DeltaFrames) - c.offset
		if frame < 0 || frame >= c.frames {
			continue
		}
		if !yield(uint32(frame), ev.Data[:]) {
			return
		}
	}
}

func (c *VSTIProcessContext) BPM() (bpm float64, ok bool) {
	timeInfo := c.host.GetTimeInfo(vst2.TempoValid)
	if timeInfo == nil || timeInfo.Flags&vst2.TempoValid == 0 || timeInfo.Tempo == 0 {
		return 0, false
	}
	return timeInfo.Tempo, true
}

func init() {
	var (
		version = int32(100)
	)
	vst2.PluginAllocator = func(h vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		sampleRate := h.GetSampleRate()
		if sampleRate <= 0 {
			sampleRate = 44100
		}
		processor, broker := engine.NewProcessor(float64(sampleRate), maxFrames)
		state := session.New(broker, builtin.NewRuntime(), float64(sampleRate), maxFrames)
		state.SetLogger(logger)
		id, err := state.CreateTrack("")
		if err == nil {
			err = state.AddPluginToTrack(id, builtin.SineID)
		}
		if err == nil {
			err = state.SetArmed(id)
		}
		if err != nil {
			logger.Error("could not set up the instrument track", "err", err)
		}
		// notifications are only logged; the host shows no user interface
		stop := make(chan struct{})
		go func() {
			for {
				select {
				case n := <-broker.Notifications():
					state.Handle(n)
				case <-stop:
					return
				}
			}
		}()
		context := VSTIProcessContext{host: h}
		return vst2.Plugin{
				UniqueID:       pluginID,
				Version:        version,
				InputChannels:  0,
				OutputChannels: 2,
				Name:           pluginName,
				Vendor:         "minileebee/leebee",
				Category:       vst2.PluginCategorySynth,
				Flags:          vst2.PluginIsSynth,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					if bpm, ok := context.BPM(); ok {
						processor.SyncTempo(bpm)
					}
					left := out.Channel(0)
					right := out.Channel(1)
					for context.offset = 0; context.offset < out.Frames; context.offset += context.frames {
						context.frames = min(out.Frames-context.offset, maxFrames)
						buf := processor.Process(context.frames, context.Events)
						copy(left[context.offset:context.offset+context.frames], buf.Channel(0)[:context.frames])
						copy(right[context.offset:context.offset+context.frames], buf.Channel(1)[:context.frames])
					}
					context.events = context.events[:0] // reset buffer, but keep the allocated memory
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent, vst2.PluginCanReceiveTimeInfo:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					for i := 0; i < ev.NumEvents(); i++ {
						a := ev.Event(i)
						switch v := a.(type) {
						case *vst2.MIDIEvent:
							context.events = append(context.events, *v)
						}
					}
				},
				CloseFunc: func() {
					close(stop)
				},
			}
	}
}

func main() {}
