package server

import (
	"log"
	"math/rand"
	"time"
)

type judgmentResult struct {
	Resolved    bool
	Executed    bool
	AccusedID   int
	AccusedName string
	AccusedRole string
	GuessLiarID int
	Outcome     roundOutcome
}

func (s *Server) submitDefense(roomID string, playerID int, text string) error {
	now := timeNowUTC()
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress {
			return wrongPhaseError("game is not in progress")
		}
		if game.Phase != phaseDefending || game.Defense == nil {
			return wrongPhaseError("defense not accepted in this phase")
		}
		if playerID != game.Defense.AccusedID {
			return wrongActorError("only the accused may defend")
		}
		if game.Defense.Submitted {
			return alreadySubmittedError("defense already submitted")
		}
		if now.After(game.Defense.Deadline) {
			return windowClosedError("defense window closed")
		}
		game.Defense.Text = text
		game.Defense.Submitted = true
		game.PhaseDeadline = time.Time{}
		if accused, ok := findPlayer(game, playerID); ok {
			accused.DefenseText = text
			accused.State = playerDefended
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.persistRoomEvent(game.ID, "defense_submitted", EventPayload{PlayerID: playerID})
	log.Printf("defense submitted room_id=%s player_id=%d", game.ID, playerID)
	s.broadcastGameUpdate(roomID)
	s.tasks.Schedule(roomID, taskTransition, s.transitionDelay(), func() {
		s.startFinalVote(roomID)
	})
	return nil
}

// finishDefense is the timeout path: an empty defense is filled in and the
// survival vote still starts.
func (s *Server) finishDefense(roomID string) {
	now := timeNowUTC()
	accusedID := 0
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress || game.Phase != phaseDefending {
			return wrongPhaseError("phase changed")
		}
		if game.Defense == nil || game.Defense.Submitted {
			return alreadySubmittedError("defense already submitted")
		}
		if now.Before(game.Defense.Deadline) {
			return preconditionError("deadline not reached")
		}
		game.Defense.Text = ""
		game.Defense.Submitted = true
		game.PhaseDeadline = time.Time{}
		accusedID = game.Defense.AccusedID
		if accused, ok := findPlayer(game, accusedID); ok {
			accused.DefenseText = ""
			accused.State = playerDefended
		}
		return nil
	})
	if err != nil {
		return
	}
	s.persistRoomEvent(game.ID, "defense_submitted", EventPayload{PlayerID: accusedID, Reason: "timeout"})
	log.Printf("defense window elapsed room_id=%s player_id=%d", game.ID, accusedID)
	s.broadcastGameUpdate(roomID)
	s.tasks.Schedule(roomID, taskTransition, s.transitionDelay(), func() {
		s.startFinalVote(roomID)
	})
}

func (s *Server) startFinalVote(roomID string) {
	now := timeNowUTC()
	accusedID := 0
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress || game.Phase != phaseDefending {
			return wrongPhaseError("phase changed")
		}
		if game.Defense == nil || !game.Defense.Submitted {
			return preconditionError("defense not finished")
		}
		accusedID = game.AccusedID
		startFinalVoteLocked(game, now, s.finalVoteDuration())
		return nil
	})
	if err != nil {
		return
	}
	s.persistRoomEvent(game.ID, "final_vote_started", EventPayload{Phase: phaseVotingForSurvival})
	log.Printf("final vote started room_id=%s accused_id=%d", game.ID, accusedID)
	s.broadcastModerator(roomID, "Execute or spare? Cast your final vote.")
	s.broadcastGameUpdate(roomID)
	s.syncPhaseTask(roomID)
}

func (s *Server) castFinalVote(roomID string, voterID int, execute bool) error {
	now := timeNowUTC()
	var result judgmentResult
	accusedID := 0
	voteRound := 0
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress {
			return wrongPhaseError("game is not in progress")
		}
		if game.Phase != phaseVotingForSurvival || game.FinalVote == nil {
			return wrongPhaseError("final votes not accepted in this phase")
		}
		finalVote := game.FinalVote
		accusedID = finalVote.AccusedID
		if finalVote.Closed {
			return windowClosedError("final voting closed")
		}
		if now.After(finalVote.Deadline) {
			return windowClosedError("final voting closed")
		}
		voter, ok := findPlayer(game, voterID)
		if !ok {
			return notFoundError("player not found")
		}
		if voterID == finalVote.AccusedID {
			return wrongActorError("the accused cannot vote on their own fate")
		}
		if !containsID(finalVote.Eligible, voterID) {
			return wrongActorError("not eligible to vote")
		}
		if _, voted := finalVote.Votes[voterID]; voted {
			return alreadySubmittedError("final vote already submitted")
		}
		finalVote.Votes[voterID] = execute
		value := execute
		voter.FinalVote = &value
		voteRound = game.Round
		if len(finalVote.Votes) >= len(finalVote.Eligible) {
			result = s.resolveJudgmentLocked(game, now)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.persistVote(game.ID, "survival", voteRound, voterID, accusedID, execute)
	log.Printf("final vote submitted room_id=%s player_id=%d execute=%t", game.ID, voterID, execute)
	s.afterJudgment(roomID, result)
	return nil
}

// closeFinalVote is the deadline path. Voters who never answered are filled
// with an unweighted coin flip before tallying.
func (s *Server) closeFinalVote(roomID string) {
	now := timeNowUTC()
	var result judgmentResult
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress || game.Phase != phaseVotingForSurvival {
			return wrongPhaseError("phase changed")
		}
		finalVote := game.FinalVote
		if finalVote == nil || finalVote.Closed {
			return windowClosedError("final voting closed")
		}
		if now.Before(finalVote.Deadline) {
			return preconditionError("deadline not reached")
		}
		for _, voterID := range finalVote.Eligible {
			if _, voted := finalVote.Votes[voterID]; voted {
				continue
			}
			filled := rand.Intn(2) == 0
			finalVote.Votes[voterID] = filled
			if voter, ok := findPlayer(game, voterID); ok {
				value := filled
				voter.FinalVote = &value
			}
		}
		result = s.resolveJudgmentLocked(game, now)
		return nil
	})
	if err != nil {
		return
	}
	log.Printf("final voting closed room_id=%s reason=timeout", game.ID)
	s.afterJudgment(roomID, result)
}

// resolveJudgmentLocked executes the accused iff strictly more votes say
// execute than spare, then routes the game onward.
func (s *Server) resolveJudgmentLocked(game *Game, now time.Time) judgmentResult {
	finalVote := game.FinalVote
	finalVote.Closed = true
	executeCount := 0
	spareCount := 0
	for _, execute := range finalVote.Votes {
		if execute {
			executeCount++
		} else {
			spareCount++
		}
	}
	result := judgmentResult{
		Resolved:  true,
		AccusedID: finalVote.AccusedID,
	}
	accused, ok := findPlayer(game, finalVote.AccusedID)
	if !ok {
		game.FinalVote = nil
		game.AccusedID = 0
		result.Outcome = s.resolveOutcomeLocked(game, now)
		return result
	}
	result.AccusedName = accused.Name
	result.AccusedRole = accused.Role

	if executeCount > spareCount {
		result.Executed = true
		accused.IsAlive = false
		game.FinalVote = nil
		if accused.Role == roleLiar {
			endGameLocked(game, teamCitizens, "the liar was executed")
			result.Outcome = roundOutcome{Ended: true, Team: teamCitizens, Reason: game.WinReason}
			return result
		}
		if liar, found := firstAliveLiar(game); found {
			startGuessLocked(game, liar.ID, now, s.guessDuration())
			result.GuessLiarID = liar.ID
			return result
		}
		endGameLocked(game, teamCitizens, "no liar remains alive")
		result.Outcome = roundOutcome{Ended: true, Team: teamCitizens, Reason: game.WinReason}
		return result
	}

	accused.State = playerDefended
	game.FinalVote = nil
	game.AccusedID = 0
	result.Outcome = s.resolveOutcomeLocked(game, now)
	return result
}

func (s *Server) afterJudgment(roomID string, result judgmentResult) {
	if !result.Resolved {
		s.broadcastGameUpdate(roomID)
		s.syncPhaseTask(roomID)
		return
	}
	s.persistRoomEvent(roomID, "judgment_resolved", EventPayload{
		PlayerID: result.AccusedID,
		Executed: result.Executed,
	})
	if result.Executed {
		log.Printf("player executed room_id=%s player_id=%d role=%s", roomID, result.AccusedID, result.AccusedRole)
		s.broadcastModerator(roomID, result.AccusedName+" has been executed.")
		if result.GuessLiarID != 0 {
			s.persistRoomEvent(roomID, "guess_started", EventPayload{PlayerID: result.GuessLiarID})
			s.broadcastModerator(roomID, result.AccusedName+" was not the liar. The liar may now guess the word.")
			s.notifyPlayer(roomID, result.GuessLiarID, "You may guess the citizens' word now.")
		}
	} else {
		log.Printf("player spared room_id=%s player_id=%d", roomID, result.AccusedID)
		s.broadcastModerator(roomID, result.AccusedName+" survives the vote.")
	}
	s.afterRoundOutcome(roomID, result.Outcome)
	s.broadcastGameUpdate(roomID)
	s.syncPhaseTask(roomID)
}
