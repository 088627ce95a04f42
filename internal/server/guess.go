package server

import "log"

func (s *Server) submitGuess(roomID string, playerID int, text string) error {
	now := timeNowUTC()
	correct := false
	liarName := ""
	team, reason := "", ""
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress {
			return wrongPhaseError("game is not in progress")
		}
		if game.Phase != phaseGuessingWord || game.Guess == nil {
			return wrongPhaseError("guesses not accepted in this phase")
		}
		guess := game.Guess
		if playerID != guess.LiarID {
			return wrongActorError("only the liar may guess")
		}
		if guess.Submitted {
			return alreadySubmittedError("guess already submitted")
		}
		if now.After(guess.Deadline) {
			return windowClosedError("guess window closed")
		}
		guess.Text = text
		guess.Submitted = true
		guess.Correct = answersMatch(text, game.CitizenTopic)
		correct = guess.Correct
		liarName = playerName(game, playerID)
		if correct {
			team, reason = teamLiars, "the liar guessed the word"
		} else {
			team, reason = teamCitizens, "the liar failed to guess the word"
		}
		endGameLocked(game, team, reason)
		return nil
	})
	if err != nil {
		return err
	}
	s.persistRoomEvent(game.ID, "guess_submitted", EventPayload{PlayerID: playerID, Guess: text, Correct: correct})
	log.Printf("guess submitted room_id=%s player_id=%d correct=%t", game.ID, playerID, correct)
	if correct {
		s.broadcastModerator(roomID, liarName+" guessed the word. The liars win.")
	} else {
		s.broadcastModerator(roomID, liarName+" guessed wrong. The citizens win.")
	}
	s.finishEndedGame(game.ID, team, reason)
	return nil
}

// expireGuess is the deadline path: no submission counts as a wrong guess.
func (s *Server) expireGuess(roomID string) {
	now := timeNowUTC()
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress || game.Phase != phaseGuessingWord {
			return wrongPhaseError("phase changed")
		}
		if game.Guess == nil || game.Guess.Submitted {
			return alreadySubmittedError("guess already submitted")
		}
		if now.Before(game.Guess.Deadline) {
			return preconditionError("deadline not reached")
		}
		endGameLocked(game, teamCitizens, "the liar ran out of time")
		return nil
	})
	if err != nil {
		return
	}
	s.persistRoomEvent(game.ID, "guess_expired", EventPayload{Reason: "timeout"})
	log.Printf("guess window elapsed room_id=%s", game.ID)
	s.broadcastModerator(roomID, "The liar ran out of time. The citizens win.")
	s.finishEndedGame(game.ID, teamCitizens, "the liar ran out of time")
}
