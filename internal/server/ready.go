package server

import (
	"log"
	"math/rand"
	"strconv"
	"time"
)

func (s *Server) toggleReady(roomID string, playerID int) error {
	countdownCancelled := false
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateWaiting {
			return wrongPhaseError("game already started")
		}
		if _, ok := findPlayer(game, playerID); !ok {
			return notFoundError("player not found")
		}
		game.Ready[playerID] = !game.Ready[playerID]
		if !game.Ready[playerID] && !game.CountdownDeadline.IsZero() {
			game.CountdownDeadline = time.Time{}
			countdownCancelled = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if countdownCancelled {
		s.tasks.Cancel(roomID, taskCountdown)
		s.persistCountdown(game.ID)
		s.persistRoomEvent(game.ID, "countdown_cancelled", EventPayload{Reason: "player not ready"})
		log.Printf("countdown cancelled room_id=%s reason=player_not_ready", game.ID)
	}
	log.Printf("ready toggled room_id=%s player_id=%d", game.ID, playerID)
	s.broadcastGameUpdate(roomID)
	return nil
}

func allReady(game *Game, minPlayers int) bool {
	if len(game.Players) < minPlayers {
		return false
	}
	for _, player := range game.Players {
		if !game.Ready[player.ID] {
			return false
		}
	}
	return true
}

func (s *Server) startCountdown(roomID string, playerID int) error {
	now := timeNowUTC()
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateWaiting {
			return wrongPhaseError("game already started")
		}
		if playerID != game.HostID {
			return wrongActorError("only the host can start the countdown")
		}
		if len(game.Players) < s.cfg.MinPlayers {
			return preconditionError("not enough players")
		}
		if !allReady(game, s.cfg.MinPlayers) {
			return preconditionError("all players must be ready")
		}
		if !game.CountdownDeadline.IsZero() {
			return alreadySubmittedError("countdown already running")
		}
		game.CountdownDeadline = now.Add(time.Duration(s.cfg.CountdownSeconds) * time.Second)
		return nil
	})
	if err != nil {
		return err
	}
	s.persistCountdown(game.ID)
	s.persistRoomEvent(game.ID, "countdown_started", EventPayload{Count: s.cfg.CountdownSeconds})
	log.Printf("countdown started room_id=%s seconds=%d", game.ID, s.cfg.CountdownSeconds)
	s.broadcastModerator(roomID, "All players are ready. The game starts in "+strconv.Itoa(s.cfg.CountdownSeconds)+" seconds.")
	s.broadcastGameUpdate(roomID)
	s.tasks.Schedule(roomID, taskCountdown, time.Duration(s.cfg.CountdownSeconds)*time.Second, func() {
		s.beginMatch(roomID)
	})
	return nil
}

func (s *Server) cancelCountdown(roomID string, playerID int) error {
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateWaiting {
			return wrongPhaseError("game already started")
		}
		if playerID != game.HostID {
			return wrongActorError("only the host can cancel the countdown")
		}
		if game.CountdownDeadline.IsZero() {
			return preconditionError("countdown is not running")
		}
		game.CountdownDeadline = time.Time{}
		return nil
	})
	if err != nil {
		return err
	}
	s.tasks.Cancel(roomID, taskCountdown)
	s.persistCountdown(game.ID)
	s.persistRoomEvent(game.ID, "countdown_cancelled", EventPayload{Reason: "host cancelled"})
	log.Printf("countdown cancelled room_id=%s reason=host", game.ID)
	s.broadcastGameUpdate(roomID)
	return nil
}

// beginMatch fires when the countdown elapses: roles and topics are dealt
// and the first round starts.
func (s *Server) beginMatch(roomID string) {
	var category, liarMode string
	ok := s.store.ViewGame(roomID, func(game *Game) {
		category = game.TopicCategory
		liarMode = game.LiarMode
	})
	if !ok {
		return
	}
	pick, err := s.topics.Pick(category, liarMode == liarModeDifferentWord)
	if err != nil {
		log.Printf("topic pick failed room_id=%s error=%v", roomID, err)
		return
	}

	now := timeNowUTC()
	playerCount := 0
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		if game.State != stateWaiting {
			return wrongPhaseError("game already started")
		}
		if game.CountdownDeadline.IsZero() {
			return preconditionError("countdown was cancelled")
		}
		playerCount = len(game.Players)
		assignRolesLocked(game)
		game.TopicCategory = pick.Category
		game.CitizenTopic = pick.CitizenWord
		if game.LiarMode == liarModeNoWord {
			game.LiarTopic = ""
		} else {
			game.LiarTopic = pick.LiarWord
		}
		game.State = stateInProgress
		game.Round = 1
		game.CountdownDeadline = time.Time{}
		startRoundLocked(game, now, s.hintDuration())
		return nil
	})
	if err != nil {
		return
	}
	s.persistRoles(game.ID)
	s.persistGameState(game.ID)
	s.persistRoomEvent(game.ID, "game_started", EventPayload{Phase: phaseSpeech, Round: 1})
	log.Printf("game started room_id=%s players=%d", game.ID, playerCount)
	s.broadcastModerator(roomID, "The game begins. Round 1: give your hints in turn.")
	s.broadcastGameUpdate(roomID)
	s.syncPhaseTask(roomID)
	s.scheduleMonitor(roomID)
}

// assignRolesLocked deals liarCount liars at random; everyone else is a
// citizen. Roles never change for the rest of the session.
func assignRolesLocked(game *Game) {
	liarCount := game.LiarCount
	if liarCount < 1 || liarCount >= len(game.Players) {
		liarCount = 1
	}
	order := make([]int, len(game.Players))
	for i := range order {
		order[i] = i
	}
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	for i := range game.Players {
		game.Players[i].Role = roleCitizen
	}
	for _, idx := range order[:liarCount] {
		game.Players[idx].Role = roleLiar
	}
}

func (s *Server) leaveRoom(roomID string, playerID int) error {
	becameEmpty := false
	newHostID := 0
	game, err := s.store.UpdateGame(roomID, func(game *Game) error {
		index := -1
		for i := range game.Players {
			if game.Players[i].ID == playerID {
				index = i
				break
			}
		}
		if index == -1 {
			return notFoundError("player not found")
		}
		if game.State == stateWaiting {
			game.Players = append(game.Players[:index], game.Players[index+1:]...)
			delete(game.Ready, playerID)
			delete(game.PlayerAuthTokens, playerID)
		} else {
			game.Players[index].IsOnline = false
			game.Players[index].IsAlive = false
		}
		if len(game.Players) == 0 {
			becameEmpty = true
			return nil
		}
		if game.HostID == playerID {
			earliest := -1
			for i := range game.Players {
				if game.Players[i].ID == playerID {
					continue
				}
				if earliest == -1 || game.Players[i].JoinedAt.Before(game.Players[earliest].JoinedAt) {
					earliest = i
				}
			}
			if earliest != -1 {
				for i := range game.Players {
					game.Players[i].IsHost = false
				}
				game.Players[earliest].IsHost = true
				game.HostID = game.Players[earliest].ID
				newHostID = game.HostID
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("player left room_id=%s player_id=%d", game.ID, playerID)
	if becameEmpty {
		s.tasks.CancelAll(roomID)
		s.store.DeleteGame(game.ID)
		log.Printf("room deleted room_id=%s reason=empty", game.ID)
		s.broadcastHomeUpdate()
		return nil
	}
	s.persistRoomEvent(game.ID, "player_left", EventPayload{PlayerID: playerID})
	if newHostID != 0 {
		s.persistRoomEvent(game.ID, "host_changed", EventPayload{PlayerID: newHostID})
		log.Printf("host changed room_id=%s player_id=%d", game.ID, newHostID)
	}
	s.broadcastGameUpdate(roomID)
	return nil
}
