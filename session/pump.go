package session

import (
	"context"
	"log/slog"

	"github.com/minileebee/leebee/engine"
)

// Pump receives the notifications of the audio thread until ctx is done,
// updating the mirrored time info and logging alerts.
func (s *State) Pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-s.broker.Notifications():
			s.Handle(n)
		}
	}
}

// Handle applies one notification to the state.
func (s *State) Handle(n engine.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch n.Kind {
	case engine.NotifyTimeInfo:
		s.timeInfo = n.TimeInfo
		s.peaks = n.Peaks
	case engine.NotifyAlert:
		a := n.Alert
		level := slog.LevelWarn
		if a.Kind == engine.AlertPluginRun || a.Kind == engine.AlertCommandPanic {
			level = slog.LevelError
		}
		if a.Kind == engine.AlertPluginRun {
			if i := s.trackIndex(a.TrackID); i >= 0 {
				s.tracks[i].Disabled = true
			}
		}
		s.logger.Log(context.Background(), level, a.String(), "alert", a.Kind.String(), "track", a.TrackID)
	}
}
