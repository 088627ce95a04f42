package server

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"liar-game/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// All persistence is best-effort: with no database configured the engine
// runs fully in memory and every helper is a no-op. Helpers take a room id
// and read whatever game state they need under the room lock; the *Game
// returned by UpdateGame is never dereferenced here.

func (s *Server) persistGame(roomID string) error {
	if s.db == nil {
		return nil
	}
	var record db.Game
	ok := s.store.ViewGame(roomID, func(game *Game) {
		record = db.Game{
			RoomCode:      game.RoomCode,
			State:         game.State,
			Phase:         game.Phase,
			Round:         game.Round,
			TotalRounds:   game.TotalRounds,
			LiarCount:     game.LiarCount,
			LiarMode:      game.LiarMode,
			TopicCategory: game.TopicCategory,
		}
	})
	if !ok {
		return nil
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	s.store.ViewGame(roomID, func(game *Game) {
		game.DBID = record.ID
	})
	s.persistRoomEvent(roomID, "room_created", EventPayload{
		RoomID:   roomID,
		RoomCode: record.RoomCode,
	})
	return nil
}

func (s *Server) persistPlayer(roomID string, playerID int) error {
	if s.db == nil {
		return nil
	}
	gameDBID := s.gameDBID(roomID)
	if gameDBID == 0 {
		return errors.New("room not persisted")
	}
	var record db.Player
	known := false
	found := false
	s.store.ViewGame(roomID, func(game *Game) {
		player, ok := findPlayer(game, playerID)
		if !ok {
			return
		}
		found = true
		known = player.DBID != 0
		record = db.Player{
			GameID:   gameDBID,
			Name:     player.Name,
			IsAlive:  player.IsAlive,
			IsHost:   player.IsHost,
			JoinedAt: player.JoinedAt,
		}
	})
	if !found {
		return errors.New("player not found")
	}
	if known {
		return nil
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.findPlayerDBID(gameDBID, record.Name)
			if lookupErr == nil && existing != 0 {
				s.storePlayerDBID(roomID, playerID, existing)
				return nil
			}
		}
		return err
	}
	s.storePlayerDBID(roomID, playerID, record.ID)
	s.persistRoomEvent(roomID, "player_joined", EventPayload{
		PlayerName: record.Name,
		PlayerID:   playerID,
	})
	return nil
}

func (s *Server) storePlayerDBID(roomID string, playerID int, dbID uint) {
	s.store.ViewGame(roomID, func(game *Game) {
		if player, ok := findPlayer(game, playerID); ok {
			player.DBID = dbID
		}
	})
}

func (s *Server) persistRoles(roomID string) {
	if s.db == nil {
		return
	}
	type roleRow struct {
		dbID uint
		id   int
		role string
	}
	var rows []roleRow
	var updates map[string]any
	s.store.ViewGame(roomID, func(game *Game) {
		for i := range game.Players {
			player := &game.Players[i]
			if player.DBID == 0 {
				continue
			}
			rows = append(rows, roleRow{dbID: player.DBID, id: player.ID, role: player.Role})
		}
		updates = map[string]any{
			"topic_category": game.TopicCategory,
			"citizen_topic":  game.CitizenTopic,
			"liar_topic":     game.LiarTopic,
		}
	})
	for _, row := range rows {
		if err := s.db.Model(&db.Player{}).Where("id = ?", row.dbID).Update("role", row.role).Error; err != nil {
			log.Printf("persist role failed room_id=%s player_id=%d error=%v", roomID, row.id, err)
		}
	}
	if gameDBID := s.gameDBID(roomID); gameDBID != 0 {
		if err := s.db.Model(&db.Game{}).Where("id = ?", gameDBID).Updates(updates).Error; err != nil {
			log.Printf("persist topics failed room_id=%s error=%v", roomID, err)
		}
	}
}

func (s *Server) persistGameState(roomID string) {
	if s.db == nil {
		return
	}
	gameDBID := s.gameDBID(roomID)
	if gameDBID == 0 {
		return
	}
	var updates map[string]any
	ok := s.store.ViewGame(roomID, func(game *Game) {
		updates = map[string]any{
			"state":        game.State,
			"phase":        game.Phase,
			"round":        game.Round,
			"winning_team": game.WinningTeam,
			"win_reason":   game.WinReason,
		}
	})
	if !ok {
		return
	}
	if err := s.db.Model(&db.Game{}).Where("id = ?", gameDBID).Updates(updates).Error; err != nil {
		log.Printf("persist state failed room_id=%s error=%v", roomID, err)
	}
}

func (s *Server) persistScores(roomID string) {
	if s.db == nil {
		return
	}
	type scoreRow struct {
		dbID    uint
		id      int
		score   int
		isAlive bool
	}
	var rows []scoreRow
	s.store.ViewGame(roomID, func(game *Game) {
		for i := range game.Players {
			player := &game.Players[i]
			if player.DBID == 0 {
				continue
			}
			rows = append(rows, scoreRow{dbID: player.DBID, id: player.ID, score: player.Score, isAlive: player.IsAlive})
		}
	})
	for _, row := range rows {
		updates := map[string]any{
			"score":    row.score,
			"is_alive": row.isAlive,
		}
		if err := s.db.Model(&db.Player{}).Where("id = ?", row.dbID).Updates(updates).Error; err != nil {
			log.Printf("persist score failed room_id=%s player_id=%d error=%v", roomID, row.id, err)
		}
	}
}

// persistCountdown stores the countdown deadline so a restart can recompute
// the remaining time.
func (s *Server) persistCountdown(roomID string) {
	if s.db == nil {
		return
	}
	gameDBID := s.gameDBID(roomID)
	if gameDBID == 0 {
		return
	}
	var deadline *time.Time
	s.store.ViewGame(roomID, func(game *Game) {
		if !game.CountdownDeadline.IsZero() {
			value := game.CountdownDeadline
			deadline = &value
		}
	})
	if err := s.db.Model(&db.Game{}).Where("id = ?", gameDBID).Update("countdown_ends_at", deadline).Error; err != nil {
		log.Printf("persist countdown failed room_id=%s error=%v", roomID, err)
	}
}

// persistVote records one ballot. The round is passed in by the caller,
// captured inside the same closure that accepted the vote.
func (s *Server) persistVote(roomID, kind string, round, voterID, targetID int, execute bool) {
	if s.db == nil {
		return
	}
	gameDBID := s.gameDBID(roomID)
	if gameDBID == 0 {
		return
	}
	var voterDBID, targetDBID uint
	s.store.ViewGame(roomID, func(game *Game) {
		if voter, ok := findPlayer(game, voterID); ok {
			voterDBID = voter.DBID
		}
		if target, ok := findPlayer(game, targetID); ok {
			targetDBID = target.DBID
		}
	})
	if voterDBID == 0 {
		return
	}
	record := db.Vote{
		GameID:   gameDBID,
		Round:    round,
		Kind:     kind,
		PlayerID: voterDBID,
		TargetID: targetDBID,
		Execute:  execute,
	}
	if err := s.db.Create(&record).Error; err != nil && !isUniqueViolation(err) {
		log.Printf("persist vote failed room_id=%s player_id=%d error=%v", roomID, voterID, err)
	}
}

func (s *Server) persistRoomEvent(roomID, eventType string, payload EventPayload) {
	if s.db == nil {
		return
	}
	gameDBID := s.gameDBID(roomID)
	if gameDBID == 0 {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	event := db.Event{
		GameID:   gameDBID,
		PlayerID: s.resolveEventPlayerID(roomID, payload),
		Type:     eventType,
		Payload:  datatypes.JSON(data),
	}
	if err := s.db.Create(&event).Error; err != nil {
		log.Printf("persist event failed room_id=%s type=%s error=%v", roomID, eventType, err)
	}
}

func (s *Server) resolveEventPlayerID(roomID string, payload EventPayload) *uint {
	if payload.PlayerID <= 0 {
		return nil
	}
	var dbID uint
	s.store.ViewGame(roomID, func(game *Game) {
		if player, ok := findPlayer(game, payload.PlayerID); ok {
			dbID = player.DBID
		}
	})
	if dbID == 0 {
		return nil
	}
	return &dbID
}

// gameDBID resolves the room's database id, looking it up by room code on
// first use. Reads and the store-back both happen under the room lock.
func (s *Server) gameDBID(roomID string) uint {
	if s.db == nil {
		return 0
	}
	var dbID uint
	var roomCode string
	ok := s.store.ViewGame(roomID, func(game *Game) {
		dbID = game.DBID
		roomCode = game.RoomCode
	})
	if !ok || dbID != 0 {
		return dbID
	}
	var record db.Game
	if err := s.db.Where("room_code = ?", roomCode).First(&record).Error; err != nil {
		return 0
	}
	s.store.ViewGame(roomID, func(game *Game) {
		game.DBID = record.ID
	})
	return record.ID
}

func (s *Server) findPlayerDBID(gameDBID uint, name string) (uint, error) {
	var record db.Player
	if err := s.db.Where("game_id = ? AND name = ?", gameDBID, name).First(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
