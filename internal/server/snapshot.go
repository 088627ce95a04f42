package server

import (
	"time"

	"liar-game/internal/config"
)

// snapshotWithConfig builds the public room view. Roles and topics never
// appear here; players fetch their own secret through the role endpoint.
func snapshotWithConfig(game *Game, cfg config.Config) map[string]any {
	players := make([]map[string]any, 0, len(game.Players))
	for _, player := range game.Players {
		players = append(players, map[string]any{
			"player_id": player.ID,
			"name":      player.Name,
			"alive":     player.IsAlive,
			"online":    player.IsOnline,
			"state":     player.State,
			"is_host":   player.IsHost,
			"score":     player.Score,
			"ready":     game.Ready[player.ID],
			"hint":      player.Hint,
		})
	}

	snap := map[string]any{
		"room_id":        game.ID,
		"room_code":      game.RoomCode,
		"state":          game.State,
		"phase":          game.Phase,
		"round":          game.Round,
		"total_rounds":   game.TotalRounds,
		"liar_count":     game.LiarCount,
		"liar_mode":      game.LiarMode,
		"topic_category": game.TopicCategory,
		"host_id":        game.HostID,
		"players":        players,
		"accused_id":     game.AccusedID,
		"can_join":       game.State == stateWaiting && len(game.Players) < cfg.MaxPlayers,
	}

	if game.Phase == phaseSpeech {
		snap["turn_order"] = append([]int(nil), game.TurnOrder...)
		snap["current_turn_index"] = game.CurrentTurnIndex
		snap["current_speaker_id"] = currentSpeakerID(game)
	}
	if !game.PhaseDeadline.IsZero() {
		snap["phase_ends_at"] = game.PhaseDeadline.UTC().Format(time.RFC3339)
	}
	if !game.CountdownDeadline.IsZero() {
		snap["countdown_ends_at"] = game.CountdownDeadline.UTC().Format(time.RFC3339)
	}
	if game.Voting != nil {
		snap["voting"] = map[string]any{
			"eligible":  append([]int(nil), game.Voting.Eligible...),
			"submitted": len(game.Voting.Votes),
			"closed":    game.Voting.Closed,
		}
	}
	if game.Defense != nil {
		snap["defense"] = map[string]any{
			"accused_id": game.Defense.AccusedID,
			"submitted":  game.Defense.Submitted,
			"text":       game.Defense.Text,
		}
	}
	if game.FinalVote != nil {
		snap["final_vote"] = map[string]any{
			"accused_id": game.FinalVote.AccusedID,
			"eligible":   append([]int(nil), game.FinalVote.Eligible...),
			"submitted":  len(game.FinalVote.Votes),
			"closed":     game.FinalVote.Closed,
		}
	}
	if game.Guess != nil {
		snap["guess"] = map[string]any{
			"liar_id":   game.Guess.LiarID,
			"submitted": game.Guess.Submitted,
		}
	}
	if game.State == stateEnded {
		snap["winning_team"] = game.WinningTeam
		snap["win_reason"] = game.WinReason
	}
	return snap
}
