package server

import (
	"log"
	"time"
)

type votingOutcome struct {
	Closed    bool
	AccusedID int
	Revote    bool
}

// tallyVotes returns the single top target, or decisive=false on a tie or
// when no votes were cast.
func tallyVotes(voting *VotingRound) (int, bool) {
	counts := make(map[int]int)
	for _, target := range voting.Votes {
		counts[target]++
	}
	maxVotes := 0
	for _, count := range counts {
		if count > maxVotes {
			maxVotes = count
		}
	}
	if maxVotes == 0 {
		return 0, false
	}
	top := 0
	topCount := 0
	for target, count := range counts {
		if count == maxVotes {
			top = target
			topCount++
		}
	}
	if topCount != 1 {
		return 0, false
	}
	return top, true
}

// closeVotingLocked tallies and either records the accusation or clears the
// round for a re-vote. A tie never produces an accusation. The defense phase
// itself opens after the transition delay, not here.
func (s *Server) closeVotingLocked(game *Game) votingOutcome {
	outcome := votingOutcome{Closed: true}
	top, decisive := tallyVotes(game.Voting)
	if !decisive {
		game.Voting = nil
		game.PhaseDeadline = time.Time{}
		outcome.Revote = true
		return outcome
	}
	game.Voting.Closed = true
	game.AccusedID = top
	game.PhaseDeadline = time.Time{}
	outcome.AccusedID = top
	return outcome
}

func (s *Server) castVote(roomID string, voterID, targetID int) error {
	now := timeNowUTC()
	var outcome votingOutcome
	accusedName := ""
	voteRound := 0
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress {
			return wrongPhaseError("game is not in progress")
		}
		if game.Phase != phaseVotingForLiar {
			return wrongPhaseError("votes not accepted in this phase")
		}
		voting := game.Voting
		if voting == nil || voting.Closed {
			return windowClosedError("voting closed")
		}
		if now.After(voting.Deadline) {
			return windowClosedError("voting closed")
		}
		voter, ok := findPlayer(game, voterID)
		if !ok {
			return notFoundError("player not found")
		}
		if !containsID(voting.Eligible, voterID) {
			return wrongActorError("not eligible to vote")
		}
		if voterID == targetID {
			return selfTargetError("cannot vote for yourself")
		}
		target, ok := findPlayer(game, targetID)
		if !ok || !target.IsAlive {
			return preconditionError("invalid vote target")
		}
		if _, voted := voting.Votes[voterID]; voted {
			return alreadySubmittedError("vote already submitted")
		}
		voting.Votes[voterID] = targetID
		voter.VotedFor = targetID
		voter.State = playerVoted
		voteRound = game.Round
		// The all-voted check runs under the same lock as the mutation so
		// the last vote in is the one that closes the round.
		if len(voting.Votes) >= len(voting.Eligible) {
			outcome = s.closeVotingLocked(game)
			accusedName = playerName(game, outcome.AccusedID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.persistVote(game.ID, "liar", voteRound, voterID, targetID, false)
	log.Printf("vote submitted room_id=%s player_id=%d target_id=%d", game.ID, voterID, targetID)
	s.afterVotingClosed(roomID, outcome, accusedName)
	s.broadcastGameUpdate(roomID)
	s.syncPhaseTask(roomID)
	return nil
}

// closeVoting is the deadline path: tally whatever votes exist.
func (s *Server) closeVoting(roomID string) {
	now := timeNowUTC()
	var outcome votingOutcome
	accusedName := ""
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress || game.Phase != phaseVotingForLiar {
			return wrongPhaseError("phase changed")
		}
		voting := game.Voting
		if voting == nil || voting.Closed {
			return windowClosedError("voting closed")
		}
		if now.Before(voting.Deadline) {
			return preconditionError("deadline not reached")
		}
		outcome = s.closeVotingLocked(game)
		accusedName = playerName(game, outcome.AccusedID)
		return nil
	})
	if err != nil {
		return
	}
	log.Printf("voting closed room_id=%s reason=timeout", game.ID)
	s.afterVotingClosed(roomID, outcome, accusedName)
	s.broadcastGameUpdate(roomID)
	s.syncPhaseTask(roomID)
}

func (s *Server) afterVotingClosed(roomID string, outcome votingOutcome, accusedName string) {
	if !outcome.Closed {
		return
	}
	if outcome.Revote {
		s.persistRoomEvent(roomID, "voting_tied", EventPayload{Reason: "no decisive accusation"})
		s.broadcastModerator(roomID, "The vote was inconclusive. A new vote begins shortly.")
		s.tasks.Schedule(roomID, taskTransition, s.transitionDelay(), func() {
			s.restartVoting(roomID)
		})
		return
	}
	s.persistRoomEvent(roomID, "player_accused", EventPayload{PlayerID: outcome.AccusedID})
	s.broadcastModerator(roomID, accusedName+" has been accused. The defense begins shortly.")
	s.tasks.Schedule(roomID, taskTransition, s.transitionDelay(), func() {
		s.startDefense(roomID)
	})
}

// startDefense opens the defense window for the recorded accusation after
// the transition delay.
func (s *Server) startDefense(roomID string) {
	now := timeNowUTC()
	accusedID := 0
	accusedName := ""
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress || game.Phase != phaseVotingForLiar {
			return wrongPhaseError("phase changed")
		}
		if game.Voting == nil || !game.Voting.Closed || game.AccusedID == 0 {
			return preconditionError("no accusation recorded")
		}
		accusedID = game.AccusedID
		accusedName = playerName(game, accusedID)
		startDefenseLocked(game, accusedID, now, s.defenseDuration())
		return nil
	})
	if err != nil {
		return
	}
	s.persistRoomEvent(game.ID, "defense_started", EventPayload{PlayerID: accusedID})
	log.Printf("defense started room_id=%s accused_id=%d", game.ID, accusedID)
	s.broadcastModerator(roomID, accusedName+", defend yourself.")
	s.broadcastGameUpdate(roomID)
	s.syncPhaseTask(roomID)
}

// restartVoting opens a fresh voting round after an inconclusive tally.
func (s *Server) restartVoting(roomID string) {
	now := timeNowUTC()
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateInProgress || game.Phase != phaseVotingForLiar {
			return wrongPhaseError("phase changed")
		}
		if game.Voting != nil {
			return preconditionError("voting already open")
		}
		for i := range game.Players {
			if !game.Players[i].IsAlive {
				continue
			}
			game.Players[i].VotedFor = 0
			game.Players[i].State = playerGaveHint
		}
		beginVotingLocked(game, now, s.voteDuration())
		return nil
	})
	if err != nil {
		return
	}
	s.persistRoomEvent(game.ID, "voting_started", EventPayload{Phase: phaseVotingForLiar})
	log.Printf("voting restarted room_id=%s", game.ID)
	s.broadcastGameUpdate(roomID)
	s.syncPhaseTask(roomID)
}

func containsID(ids []int, id int) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
