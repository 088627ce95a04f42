package server

import (
	"log"
	"time"
)

func currentSpeakerID(game *Game) int {
	if game.Phase != phaseSpeech {
		return 0
	}
	if game.CurrentTurnIndex < 0 || game.CurrentTurnIndex >= len(game.TurnOrder) {
		return 0
	}
	return game.TurnOrder[game.CurrentTurnIndex]
}

// advanceTurnLocked moves to the next speaker, opening the liar vote after
// the last one. Returns true when voting opened.
func advanceTurnLocked(game *Game, now time.Time, hintWindow, voteWindow time.Duration) bool {
	game.CurrentTurnIndex++
	if game.CurrentTurnIndex >= len(game.TurnOrder) {
		beginVotingLocked(game, now, voteWindow)
		return true
	}
	game.PhaseDeadline = now.Add(hintWindow)
	return false
}

func (s *Server) submitHint(roomID string, playerID int, text string) error {
	now := timeNowUTC()
	votingOpened := false
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress {
			return wrongPhaseError("game is not in progress")
		}
		if game.Phase != phaseSpeech {
			return wrongPhaseError("hints not accepted in this phase")
		}
		player, ok := findPlayer(game, playerID)
		if !ok {
			return notFoundError("player not found")
		}
		if player.State == playerGaveHint {
			return alreadySubmittedError("hint already submitted")
		}
		if currentSpeakerID(game) != playerID {
			return wrongActorError("not your turn")
		}
		if !game.PhaseDeadline.IsZero() && now.After(game.PhaseDeadline) {
			return windowClosedError("hint window closed")
		}
		player.Hint = text
		player.State = playerGaveHint
		votingOpened = advanceTurnLocked(game, now, s.hintDuration(), s.voteDuration())
		return nil
	})
	if err != nil {
		return err
	}
	s.persistRoomEvent(game.ID, "hint_submitted", EventPayload{PlayerID: playerID, Hint: text})
	log.Printf("hint submitted room_id=%s player_id=%d", game.ID, playerID)
	if votingOpened {
		s.persistRoomEvent(game.ID, "voting_started", EventPayload{Phase: phaseVotingForLiar})
		s.broadcastModerator(roomID, "All hints are in. Vote for the liar.")
	}
	s.broadcastGameUpdate(roomID)
	s.syncPhaseTask(roomID)
	return nil
}

// forceAdvanceTurn is the timeout path: the current speaker's hint stays
// empty and the turn moves on.
func (s *Server) forceAdvanceTurn(roomID string) {
	now := timeNowUTC()
	votingOpened := false
	skippedID := 0
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress || game.Phase != phaseSpeech {
			return wrongPhaseError("phase changed")
		}
		if game.PhaseDeadline.IsZero() || now.Before(game.PhaseDeadline) {
			return preconditionError("deadline not reached")
		}
		speakerID := currentSpeakerID(game)
		if speaker, ok := findPlayer(game, speakerID); ok {
			speaker.Hint = ""
			speaker.State = playerGaveHint
			skippedID = speakerID
		}
		votingOpened = advanceTurnLocked(game, now, s.hintDuration(), s.voteDuration())
		return nil
	})
	if err != nil {
		return
	}
	s.persistRoomEvent(game.ID, "turn_skipped", EventPayload{PlayerID: skippedID, Reason: "timeout"})
	log.Printf("turn skipped room_id=%s player_id=%d", game.ID, skippedID)
	if votingOpened {
		s.persistRoomEvent(game.ID, "voting_started", EventPayload{Phase: phaseVotingForLiar})
		s.broadcastModerator(roomID, "All hints are in. Vote for the liar.")
	}
	s.broadcastGameUpdate(roomID)
	s.syncPhaseTask(roomID)
}
