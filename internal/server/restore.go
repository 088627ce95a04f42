package server

import (
	"strconv"
	"strings"
	"time"

	"liar-game/internal/db"
)

// restoreRoom rebuilds a room from the database after a process restart.
// The param is a room code or a numeric database id. Phase-local state
// (open ballots, the pending defense) is not persisted, so an in-progress
// room resumes at the top of its current round with fresh deadlines.
func (s *Server) restoreRoom(param string) (string, error) {
	if s.db == nil {
		return "", preconditionError("database not configured")
	}
	record, err := s.loadGameRecord(strings.TrimSpace(param))
	if err != nil {
		return "", err
	}

	existingID := ""
	for _, id := range s.store.ListRoomIDs() {
		s.store.ViewGame(id, func(game *Game) {
			if game.RoomCode == record.RoomCode {
				existingID = game.ID
			}
		})
	}
	if existingID != "" {
		return existingID, nil
	}

	players, err := s.loadPlayers(record.ID)
	if err != nil {
		return "", err
	}
	if len(players) == 0 {
		return "", preconditionError("room has no players")
	}

	now := timeNowUTC()
	game := &Game{
		ID:               "room-db-" + strconv.FormatUint(uint64(record.ID), 10),
		DBID:             record.ID,
		RoomCode:         record.RoomCode,
		State:            record.State,
		Phase:            record.Phase,
		Round:            record.Round,
		TotalRounds:      record.TotalRounds,
		LiarCount:        record.LiarCount,
		LiarMode:         record.LiarMode,
		TopicCategory:    record.TopicCategory,
		CitizenTopic:     record.CitizenTopic,
		LiarTopic:        record.LiarTopic,
		WinningTeam:      record.WinningTeam,
		WinReason:        record.WinReason,
		CreatedAt:        record.CreatedAt,
		LastActivityAt:   now,
		Ready:            make(map[int]bool),
		PlayerAuthTokens: make(map[int]string),
	}
	for _, row := range players {
		player := Player{
			ID:       int(row.ID),
			DBID:     row.ID,
			Name:     row.Name,
			Role:     row.Role,
			IsAlive:  row.IsAlive,
			IsHost:   row.IsHost,
			Score:    row.Score,
			JoinedAt: row.JoinedAt,
		}
		game.Players = append(game.Players, player)
		if row.IsHost {
			game.HostID = player.ID
		}
	}

	switch game.State {
	case stateWaiting:
		game.Phase = phaseLobby
		if record.CountdownEndsAt != nil && record.CountdownEndsAt.After(now) {
			game.CountdownDeadline = record.CountdownEndsAt.UTC()
		}
	case stateInProgress:
		if game.Round < 1 {
			game.Round = 1
		}
		startRoundLocked(game, now, s.hintDuration())
	case stateEnded:
		game.Phase = phaseGameOver
	default:
		return "", preconditionError("unknown room state")
	}

	if err := s.store.RestoreGame(game); err != nil {
		return "", err
	}
	if game.State == stateWaiting && !game.CountdownDeadline.IsZero() {
		s.tasks.Schedule(game.ID, taskCountdown, time.Until(game.CountdownDeadline), func() {
			s.beginMatch(game.ID)
		})
	}
	if game.State == stateInProgress {
		s.syncPhaseTask(game.ID)
		s.scheduleMonitor(game.ID)
	}
	s.broadcastHomeUpdate()
	return game.ID, nil
}

func (s *Server) loadGameRecord(param string) (db.Game, error) {
	var record db.Game
	if param == "" {
		return record, preconditionError("room id is required")
	}
	if id, err := strconv.ParseUint(param, 10, 64); err == nil {
		if err := s.db.First(&record, uint(id)).Error; err == nil {
			return record, nil
		}
	}
	if err := s.db.Where("room_code = ?", strings.ToUpper(param)).First(&record).Error; err != nil {
		return record, notFoundError("room not found")
	}
	return record, nil
}

func (s *Server) loadPlayers(gameID uint) ([]db.Player, error) {
	var players []db.Player
	if err := s.db.Where("game_id = ?", gameID).Order("joined_at asc").Find(&players).Error; err != nil {
		return nil, err
	}
	return players, nil
}
