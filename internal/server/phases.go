package server

import (
	"math/rand"
	"time"
)

func (s *Server) hintDuration() time.Duration {
	return time.Duration(s.cfg.HintSeconds) * time.Second
}

func (s *Server) voteDuration() time.Duration {
	return time.Duration(s.cfg.VoteSeconds) * time.Second
}

func (s *Server) defenseDuration() time.Duration {
	return time.Duration(s.cfg.DefenseSeconds) * time.Second
}

func (s *Server) finalVoteDuration() time.Duration {
	return time.Duration(s.cfg.FinalVoteSeconds) * time.Second
}

func (s *Server) guessDuration() time.Duration {
	return time.Duration(s.cfg.GuessSeconds) * time.Second
}

func (s *Server) transitionDelay() time.Duration {
	return time.Duration(s.cfg.TransitionDelaySeconds) * time.Second
}

func startRoundLocked(game *Game, now time.Time, hintWindow time.Duration) {
	order := alivePlayers(game)
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	game.TurnOrder = order
	game.CurrentTurnIndex = 0
	game.Phase = phaseSpeech
	game.PhaseDeadline = now.Add(hintWindow)
	game.AccusedID = 0
	game.Voting = nil
	game.Defense = nil
	game.FinalVote = nil
	game.Guess = nil
	for i := range game.Players {
		if !game.Players[i].IsAlive {
			continue
		}
		game.Players[i].State = playerWaitingForHint
		game.Players[i].Hint = ""
		game.Players[i].DefenseText = ""
		game.Players[i].VotedFor = 0
		game.Players[i].FinalVote = nil
	}
}

func beginVotingLocked(game *Game, now time.Time, window time.Duration) {
	game.Phase = phaseVotingForLiar
	game.Voting = &VotingRound{
		Votes:    make(map[int]int),
		Eligible: alivePlayers(game),
		Deadline: now.Add(window),
	}
	game.PhaseDeadline = game.Voting.Deadline
}

func startDefenseLocked(game *Game, accusedID int, now time.Time, window time.Duration) {
	game.Phase = phaseDefending
	game.AccusedID = accusedID
	game.Voting = nil
	game.Defense = &DefenseRecord{
		AccusedID: accusedID,
		Deadline:  now.Add(window),
	}
	game.PhaseDeadline = game.Defense.Deadline
	if accused, ok := findPlayer(game, accusedID); ok {
		accused.State = playerAccused
	}
}

func startFinalVoteLocked(game *Game, now time.Time, window time.Duration) {
	eligible := make([]int, 0)
	for _, id := range alivePlayers(game) {
		if id == game.AccusedID {
			continue
		}
		eligible = append(eligible, id)
	}
	game.Phase = phaseVotingForSurvival
	game.Defense = nil
	game.FinalVote = &FinalVoteRound{
		AccusedID: game.AccusedID,
		Votes:     make(map[int]bool),
		Eligible:  eligible,
		Deadline:  now.Add(window),
	}
	game.PhaseDeadline = game.FinalVote.Deadline
}

func startGuessLocked(game *Game, liarID int, now time.Time, window time.Duration) {
	game.Phase = phaseGuessingWord
	game.FinalVote = nil
	game.Guess = &LiarGuessAttempt{
		LiarID:   liarID,
		Deadline: now.Add(window),
	}
	game.PhaseDeadline = game.Guess.Deadline
}

func endGameLocked(game *Game, team, reason string) {
	game.State = stateEnded
	game.Phase = phaseGameOver
	game.WinningTeam = team
	game.WinReason = reason
	game.PhaseDeadline = time.Time{}
	game.CountdownDeadline = time.Time{}
	game.Voting = nil
	game.Defense = nil
	game.FinalVote = nil
	game.Guess = nil
	if team != "" {
		applyScoresLocked(game, team)
	}
}

func applyScoresLocked(game *Game, team string) {
	switch team {
	case teamCitizens:
		for i := range game.Players {
			player := &game.Players[i]
			if player.Role != roleCitizen {
				continue
			}
			if player.IsAlive {
				player.Score++
			}
			if target, ok := findPlayer(game, player.VotedFor); ok && target.Role == roleLiar && !target.IsAlive {
				player.Score++
			}
		}
	case teamLiars:
		for i := range game.Players {
			if game.Players[i].Role == roleLiar {
				game.Players[i].Score += 2
			}
		}
	}
}

// syncPhaseTask keeps the room's single phase timer aligned with the
// authoritative deadline. Stale fires are guarded by the expected phase.
func (s *Server) syncPhaseTask(roomID string) {
	var state, phase string
	var deadline time.Time
	ok := s.store.ViewGame(roomID, func(game *Game) {
		state = game.State
		phase = game.Phase
		deadline = game.PhaseDeadline
	})
	if !ok {
		return
	}
	if state != stateInProgress || deadline.IsZero() {
		s.tasks.Cancel(roomID, taskPhase)
		return
	}
	wait := time.Until(deadline)
	if wait < 0 {
		wait = 0
	}
	expected := phase
	s.tasks.Schedule(roomID, taskPhase, wait, func() {
		s.phaseDeadlineElapsed(roomID, expected)
	})
}

func (s *Server) phaseDeadlineElapsed(roomID, expectedPhase string) {
	switch expectedPhase {
	case phaseSpeech:
		s.forceAdvanceTurn(roomID)
	case phaseVotingForLiar:
		s.closeVoting(roomID)
	case phaseDefending:
		s.finishDefense(roomID)
	case phaseVotingForSurvival:
		s.closeFinalVote(roomID)
	case phaseGuessingWord:
		s.expireGuess(roomID)
	}
}
