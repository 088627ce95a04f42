package server

import (
	"context"
	"time"
)

// StartSweep runs the global safety net: every interval it force-fires any
// elapsed phase deadline, so a room makes progress even if its own timer was
// lost. Individual rooms still guard against stale fires by phase.
func (s *Server) StartSweep(ctx context.Context) {
	interval := time.Duration(s.cfg.SweepIntervalSeconds) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepExpiredPhases(timeNowUTC())
			}
		}
	}()
}

func (s *Server) sweepExpiredPhases(now time.Time) {
	for _, roomID := range s.store.ListRoomIDs() {
		var state, phase string
		var deadline time.Time
		ok := s.store.ViewGame(roomID, func(game *Game) {
			state = game.State
			phase = game.Phase
			deadline = game.PhaseDeadline
		})
		if !ok {
			continue
		}
		if state != stateInProgress || deadline.IsZero() || now.Before(deadline) {
			continue
		}
		s.phaseDeadlineElapsed(roomID, phase)
	}
}
