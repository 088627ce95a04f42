package server

import "sort"

// buildRecovery assembles a reconnect snapshot for one player from in-memory
// state only. It carries no timestamps, so unchanged state encodes to
// byte-identical JSON.
func buildRecovery(game *Game, playerID int) (map[string]any, error) {
	caller, ok := findPlayer(game, playerID)
	if !ok {
		return nil, notFoundError("player not found")
	}

	scoreboard := make([]map[string]any, 0, len(game.Players))
	players := make([]Player, len(game.Players))
	copy(players, game.Players)
	sort.Slice(players, func(i, j int) bool {
		return players[i].ID < players[j].ID
	})
	for _, player := range players {
		scoreboard = append(scoreboard, map[string]any{
			"player_id": player.ID,
			"name":      player.Name,
			"alive":     player.IsAlive,
			"state":     player.State,
			"score":     player.Score,
		})
	}

	snapshot := map[string]any{
		"room_id":            game.ID,
		"state":              game.State,
		"phase":              game.Phase,
		"round":              game.Round,
		"total_rounds":       game.TotalRounds,
		"turn_order":         append([]int(nil), game.TurnOrder...),
		"current_turn_index": game.CurrentTurnIndex,
		"scoreboard":         scoreboard,
		"you": map[string]any{
			"player_id": caller.ID,
			"role":      caller.Role,
			"alive":     caller.IsAlive,
			"topic":     topicForPlayer(game, caller),
		},
	}

	if game.AccusedID != 0 {
		accusation := map[string]any{
			"accused_id":   game.AccusedID,
			"accused_name": playerName(game, game.AccusedID),
		}
		if game.Defense != nil {
			accusation["defense_submitted"] = game.Defense.Submitted
			accusation["defense_text"] = game.Defense.Text
		} else if accused, found := findPlayer(game, game.AccusedID); found {
			accusation["defense_submitted"] = accused.State == playerDefended
			accusation["defense_text"] = accused.DefenseText
		}
		snapshot["accusation"] = accusation
	}
	if game.Voting != nil {
		snapshot["voting"] = map[string]any{
			"eligible":  append([]int(nil), game.Voting.Eligible...),
			"submitted": len(game.Voting.Votes),
			"closed":    game.Voting.Closed,
		}
	}
	if game.FinalVote != nil {
		votes := make(map[int]bool, len(game.FinalVote.Votes))
		for voter, execute := range game.FinalVote.Votes {
			votes[voter] = execute
		}
		snapshot["final_vote"] = map[string]any{
			"accused_id": game.FinalVote.AccusedID,
			"eligible":   append([]int(nil), game.FinalVote.Eligible...),
			"votes":      votes,
			"closed":     game.FinalVote.Closed,
		}
	}
	if game.Guess != nil {
		snapshot["guess"] = map[string]any{
			"liar_id":   game.Guess.LiarID,
			"submitted": game.Guess.Submitted,
		}
	}
	if game.State == stateEnded {
		snapshot["winning_team"] = game.WinningTeam
		snapshot["win_reason"] = game.WinReason
	}
	return snapshot, nil
}

func topicForPlayer(game *Game, player *Player) string {
	if game.State == stateWaiting {
		return ""
	}
	if player.Role == roleLiar {
		return game.LiarTopic
	}
	return game.CitizenTopic
}
