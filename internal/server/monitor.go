package server

import (
	"log"
	"time"
)

func (s *Server) monitorInterval() time.Duration {
	return time.Duration(s.cfg.MonitorIntervalSeconds) * time.Second
}

func (s *Server) scheduleMonitor(roomID string) {
	s.tasks.Schedule(roomID, taskMonitor, s.monitorInterval(), func() {
		s.monitorRoom(roomID)
	})
}

// monitorRoom is the per-room liveness check. It terminates the room when
// nobody is left alive, the session cap is exceeded, or nothing has happened
// past the stuck threshold; otherwise it reschedules itself.
func (s *Server) monitorRoom(roomID string) {
	now := timeNowUTC()
	var state string
	var createdAt, lastActivity time.Time
	alive := 0
	ok := s.store.ViewGame(roomID, func(game *Game) {
		state = game.State
		createdAt = game.CreatedAt
		lastActivity = game.LastActivityAt
		alive = len(alivePlayers(game))
	})
	if !ok || state == stateEnded {
		return
	}

	reason := ""
	switch {
	case state == stateInProgress && alive == 0:
		reason = "no players remain alive"
	case now.Sub(createdAt) > time.Duration(s.cfg.SessionCapMinutes)*time.Minute:
		reason = "session time limit reached"
	case state == stateInProgress && now.Sub(lastActivity) > time.Duration(s.cfg.StuckThresholdMinutes)*time.Minute:
		reason = "session stalled"
	}
	if reason != "" {
		s.terminate(roomID, reason)
		return
	}
	s.scheduleMonitor(roomID)
}

// terminate is the single convergence point for the monitor and the admin
// path: mark the room ended, cancel every task it owns, notify once.
func (s *Server) terminate(roomID, reason string) error {
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State == stateEnded {
			return wrongPhaseError("game already ended")
		}
		endGameLocked(game, "", reason)
		return nil
	})
	if err != nil {
		return err
	}
	s.tasks.CancelAll(roomID)
	s.persistGameState(game.ID)
	s.persistRoomEvent(game.ID, "room_terminated", EventPayload{Reason: reason})
	log.Printf("room terminated room_id=%s reason=%s", game.ID, reason)
	s.broadcastModerator(roomID, "The session has been terminated: "+reason+".")
	s.broadcastGameUpdate(roomID)
	return nil
}
