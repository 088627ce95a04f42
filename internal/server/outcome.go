package server

import (
	"log"
	"strconv"
	"time"
)

type roundOutcome struct {
	Ended     bool
	Team      string
	Reason    string
	NextRound int
}

// resolveOutcomeLocked runs after a spared judgment: end conditions are
// checked in order, otherwise the next round starts.
func (s *Server) resolveOutcomeLocked(game *Game, now time.Time) roundOutcome {
	if aliveByRole(game, roleLiar) == 0 {
		endGameLocked(game, teamCitizens, "no liar remains alive")
		return roundOutcome{Ended: true, Team: teamCitizens, Reason: game.WinReason}
	}
	if aliveByRole(game, roleCitizen) <= aliveByRole(game, roleLiar) {
		endGameLocked(game, teamLiars, "the liars outnumber the citizens")
		return roundOutcome{Ended: true, Team: teamLiars, Reason: game.WinReason}
	}
	if game.Round >= game.TotalRounds {
		endGameLocked(game, teamLiars, "the liar survived every round")
		return roundOutcome{Ended: true, Team: teamLiars, Reason: game.WinReason}
	}
	game.Round++
	startRoundLocked(game, now, s.hintDuration())
	return roundOutcome{NextRound: game.Round}
}

func (s *Server) afterRoundOutcome(roomID string, outcome roundOutcome) {
	if outcome.Ended {
		s.broadcastModerator(roomID, winMessage(outcome.Team, outcome.Reason))
		s.finishEndedGame(roomID, outcome.Team, outcome.Reason)
		return
	}
	if outcome.NextRound > 0 {
		s.persistRoomEvent(roomID, "round_started", EventPayload{Round: outcome.NextRound})
		log.Printf("round started room_id=%s round=%d", roomID, outcome.NextRound)
		s.broadcastModerator(roomID, "Round "+strconv.Itoa(outcome.NextRound)+" begins.")
	}
}

// finishEndedGame runs the shared teardown after endGameLocked: cancel every
// pending task, persist the terminal state, and notify both hubs.
func (s *Server) finishEndedGame(roomID, team, reason string) {
	s.tasks.CancelAll(roomID)
	s.persistGameState(roomID)
	s.persistScores(roomID)
	s.persistRoomEvent(roomID, "game_over", EventPayload{
		Team:   team,
		Reason: reason,
	})
	log.Printf("game over room_id=%s team=%s reason=%s", roomID, team, reason)
	s.broadcastGameUpdate(roomID)
}

func winMessage(team, reason string) string {
	switch team {
	case teamCitizens:
		return "The citizens win: " + reason + "."
	case teamLiars:
		return "The liars win: " + reason + "."
	default:
		return "The game has ended: " + reason + "."
	}
}
