// Package session is the control plane of the engine. State keeps a mirror
// of what the audio thread is doing, validates user requests against it and
// turns them into engine commands.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/minileebee/leebee"
	"github.com/minileebee/leebee/engine"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SamplePrefix is the prefix of the plugin ids that play a wave file with a
// sample trigger, e.g. "sample:kick.wav".
const SamplePrefix = "sample:"

var (
	ErrUnknownTrack  = errors.New("track not found")
	ErrUnknownPlugin = errors.New("plugin not found")
	ErrPluginIndex   = errors.New("plugin index out of range")
)

type (
	// State is the control plane's view of the engine. The view is updated
	// optimistically when commands are sent and may diverge from the audio
	// thread if a command is rejected there; rejections are reported as
	// alerts by Pump. All methods are safe for concurrent use.
	State struct {
		mu         sync.Mutex
		broker     *engine.Broker
		runtime    engine.PluginRuntime
		sampleRate float64
		bufferSize int
		logger     *slog.Logger
		caser      cases.Caser

		nextID    int
		tracks    []TrackInfo
		armed     int
		metronome Metronome
		timeInfo  engine.SampleTimeInfo
		peaks     [2]float32
		samples   map[string][]float32
		okSound   *engine.SampleTrigger
	}

	TrackInfo struct {
		ID       int
		Name     string
		Volume   float32
		Armed    bool
		Disabled bool
		Plugins  []string // plugin ids, in chain order
	}

	Metronome struct {
		Volume float32
		BPM    float64
	}

	PluginInfo struct {
		ID    string
		Name  string
		Class engine.PluginClass
	}
)

// New creates the control plane for a processor running at the given sample
// rate and buffer size, sending its commands through broker. runtime may be
// nil, in which case only sample plugins are available.
func New(broker *engine.Broker, runtime engine.PluginRuntime, sampleRate float64, bufferSize int) *State {
	return &State{
		broker:     broker,
		runtime:    runtime,
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		logger:     slog.Default(),
		caser:      cases.Title(language.English),
		nextID:     1,
		armed:      engine.NoTrack,
		metronome:  Metronome{BPM: engine.DefaultBPM},
		samples:    map[string][]float32{},
	}
}

// SetLogger sets the logger used for alerts and diagnostics.
func (s *State) SetLogger(l *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

// SetOKSound sets the sound played after every successful change. nil turns
// the confirmation off.
func (s *State) SetOKSound(sample []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sample == nil {
		s.okSound = nil
		return
	}
	s.okSound = engine.NewSampleTrigger(sample)
}

// RegisterSample loads a wave file and offers it as the plugin
// SamplePrefix+path. Loading the same path again is a no-op.
func (s *State) RegisterSample(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.loadSample(path)
	return err
}

// CreateTrack adds an empty track and returns its id. An empty name is
// replaced with "Track <id>".
func (s *State) CreateTrack(name string) (int, error) {
	return s.createTrack(name, engine.DefaultTrackVolume)
}

func (s *State) createTrack(name string, volume float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	if name == "" {
		name = fmt.Sprintf("Track %d", id)
	}
	t := engine.NewTrack(id, s.bufferSize)
	t.Properties.Volume = volume
	if err := s.broker.Send(engine.AddTrack{Track: t}); err != nil {
		return 0, fmt.Errorf("could not create track %q: %w", name, err)
	}
	s.nextID++
	s.tracks = append(s.tracks, TrackInfo{ID: id, Name: name, Volume: volume})
	s.logger.Debug("track created", "track", id, "name", name)
	s.playOK()
	return id, nil
}

// DeleteTracks deletes the tracks with the given ids. Ids that do not exist
// are skipped and reported in the returned error.
func (s *State) DeleteTracks(ids ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	deleted := 0
	for _, id := range ids {
		i := s.trackIndex(id)
		if i < 0 {
			errs = append(errs, fmt.Errorf("%w: %d", ErrUnknownTrack, id))
			continue
		}
		if err := s.broker.Send(engine.DeleteTrack{ID: id}); err != nil {
			errs = append(errs, fmt.Errorf("could not delete track %d: %w", id, err))
			continue
		}
		s.tracks = slices.Delete(s.tracks, i, i+1)
		if s.armed == id {
			s.armed = engine.NoTrack
		}
		deleted++
		s.logger.Debug("track deleted", "track", id)
	}
	if deleted > 0 {
		s.playOK()
	}
	return errors.Join(errs...)
}

// AddPluginToTrack instantiates the plugin with the given id and appends it
// to the chain of a track. Instantiation happens here, on the control
// plane; the audio thread only receives the ready instance.
func (s *State) AddPluginToTrack(trackID int, pluginID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.trackIndex(trackID)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownTrack, trackID)
	}
	p, err := s.instantiate(pluginID)
	if err != nil {
		return err
	}
	if err := s.broker.Send(engine.AddPlugin{TrackID: trackID, Plugin: p}); err != nil {
		return fmt.Errorf("could not add %v to track %d: %w", pluginID, trackID, err)
	}
	s.tracks[i].Plugins = append(s.tracks[i].Plugins, pluginID)
	s.logger.Debug("plugin added", "track", trackID, "plugin", pluginID)
	s.playOK()
	return nil
}

// RemovePluginFromTrack removes the plugin at index from a track's chain.
func (s *State) RemovePluginFromTrack(trackID, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.trackIndex(trackID)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownTrack, trackID)
	}
	if index < 0 || index >= len(s.tracks[i].Plugins) {
		return fmt.Errorf("%w: track %d has %d plugins, got index %d", ErrPluginIndex, trackID, len(s.tracks[i].Plugins), index)
	}
	if err := s.broker.Send(engine.DeletePlugin{TrackID: trackID, Index: index}); err != nil {
		return fmt.Errorf("could not remove plugin %d from track %d: %w", index, trackID, err)
	}
	s.tracks[i].Plugins = slices.Delete(s.tracks[i].Plugins, index, index+1)
	s.playOK()
	return nil
}

// SetArmed arms the track with the given id, disarming all the others.
func (s *State) SetArmed(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trackIndex(id) < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownTrack, id)
	}
	return s.arm(id)
}

// Disarm disarms every track.
func (s *State) Disarm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arm(engine.NoTrack)
}

func (s *State) arm(id int) error {
	if err := s.broker.Send(engine.ArmTrack{ID: id}); err != nil {
		return fmt.Errorf("could not arm track %d: %w", id, err)
	}
	s.armed = id
	for i := range s.tracks {
		s.tracks[i].Armed = s.tracks[i].ID == id
	}
	s.playOK()
	return nil
}

// SetMetronome sets the metronome volume and tempo.
func (s *State) SetMetronome(m Metronome) error {
	if m.BPM <= 0 {
		return fmt.Errorf("invalid tempo %v bpm", m.BPM)
	}
	if m.Volume < 0 {
		return fmt.Errorf("invalid metronome volume %v", m.Volume)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.broker.Send(engine.SetMetronome{Volume: m.Volume, BPM: m.BPM}); err != nil {
		return fmt.Errorf("could not set metronome: %w", err)
	}
	s.metronome = m
	s.playOK()
	return nil
}

// Apply sets up the metronome, samples and tracks of a config.
func (s *State) Apply(c Config) error {
	if err := s.SetMetronome(Metronome{Volume: c.Metronome.Volume, BPM: c.Metronome.BPM}); err != nil {
		return err
	}
	for _, path := range c.Samples {
		if err := s.RegisterSample(path); err != nil {
			return err
		}
	}
	for _, tc := range c.Tracks {
		volume := float32(engine.DefaultTrackVolume)
		if tc.Volume != nil {
			volume = *tc.Volume
		}
		id, err := s.createTrack(tc.Name, volume)
		if err != nil {
			return err
		}
		for _, p := range tc.Plugins {
			if err := s.AddPluginToTrack(id, p); err != nil {
				return fmt.Errorf("track %d: %w", id, err)
			}
		}
		if tc.Armed {
			if err := s.SetArmed(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Plugins lists the plugins of the runtime followed by the registered
// samples.
func (s *State) Plugins() []PluginInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret []PluginInfo
	if s.runtime != nil {
		for _, d := range s.runtime.Plugins() {
			ret = append(ret, PluginInfo{ID: d.ID, Name: s.caser.String(d.Name), Class: d.Class})
		}
	}
	paths := make([]string, 0, len(s.samples))
	for path := range s.samples {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	for _, path := range paths {
		ret = append(ret, PluginInfo{ID: SamplePrefix + path, Name: s.sampleName(path), Class: engine.Instrument})
	}
	return ret
}

// Tracks returns a copy of the mirrored tracks.
func (s *State) Tracks() []TrackInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]TrackInfo, len(s.tracks))
	for i, t := range s.tracks {
		t.Plugins = slices.Clone(t.Plugins)
		ret[i] = t
	}
	return ret
}

// Armed returns the id of the armed track, or engine.NoTrack.
func (s *State) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

func (s *State) Metronome() Metronome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metronome
}

// TimeInfo returns the musical position last reported by the audio thread.
func (s *State) TimeInfo() engine.SampleTimeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeInfo
}

// Peaks returns the output peak levels last reported by the audio thread.
func (s *State) Peaks() [2]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peaks
}

func (s *State) instantiate(pluginID string) (engine.PluginInstance, error) {
	if path, ok := strings.CutPrefix(pluginID, SamplePrefix); ok {
		sample, err := s.loadSample(path)
		if err != nil {
			return nil, err
		}
		return engine.NewSampleTrigger(sample), nil
	}
	if s.runtime == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownPlugin, pluginID)
	}
	if !slices.ContainsFunc(s.runtime.Plugins(), func(d engine.PluginDescriptor) bool { return d.ID == pluginID }) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownPlugin, pluginID)
	}
	h, err := s.runtime.Instantiate(pluginID, s.sampleRate, s.bufferSize)
	if err != nil {
		return nil, fmt.Errorf("could not instantiate %v: %w", pluginID, err)
	}
	return engine.NewHostedPlugin(h), nil
}

func (s *State) loadSample(path string) ([]float32, error) {
	if sample, ok := s.samples[path]; ok {
		return sample, nil
	}
	sample, err := leebee.LoadSample(path)
	if err != nil {
		return nil, err
	}
	s.samples[path] = sample
	return sample, nil
}

func (s *State) sampleName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return s.caser.String(name)
}

func (s *State) trackIndex(id int) int {
	return slices.IndexFunc(s.tracks, func(t TrackInfo) bool { return t.ID == id })
}

// playOK sends the confirmation sound, if any. Failing to send it is not
// worth reporting to the caller.
func (s *State) playOK() {
	if s.okSound == nil {
		return
	}
	if !engine.TrySend(s.broker.ToEngine, engine.Command(engine.PlaySound{Trigger: s.okSound.Clone()})) {
		s.logger.Debug("dropped confirmation sound, command queue full")
	}
}
