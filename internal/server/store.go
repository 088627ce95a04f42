package server

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Store is the room registry. Its own mutex guards only the map and the ID
// counters; each Game carries its own lock, so unrelated rooms never contend.
type Store struct {
	mu           sync.RWMutex
	nextID       int
	nextPlayerID int
	games        map[string]*Game
}

func NewStore() *Store {
	return &Store{
		nextID:       1,
		nextPlayerID: 1,
		games:        make(map[string]*Game),
	}
}

type roomSettings struct {
	TotalRounds   int
	LiarCount     int
	LiarMode      string
	TopicCategory string
}

func (s *Store) CreateRoom(settings roomSettings) *Game {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := "room-" + strconv.Itoa(s.nextID)
	s.nextID++
	now := timeNowUTC()
	game := &Game{
		ID:               id,
		RoomCode:         newRoomCode(),
		State:            stateWaiting,
		Phase:            phaseLobby,
		TotalRounds:      settings.TotalRounds,
		LiarCount:        settings.LiarCount,
		LiarMode:         settings.LiarMode,
		TopicCategory:    settings.TopicCategory,
		CreatedAt:        now,
		LastActivityAt:   now,
		Ready:            make(map[int]bool),
		PlayerAuthTokens: make(map[int]string),
	}
	s.games[id] = game
	return game
}

func (s *Store) lookup(idOrCode string) (*Game, bool) {
	game, ok := s.games[idOrCode]
	if ok {
		return game, true
	}
	for _, candidate := range s.games {
		if candidate.RoomCode == idOrCode {
			return candidate, true
		}
	}
	return nil, false
}

// UpdateGame runs update with the room's lock held. The returned pointer is
// only safe to dereference through ViewGame or another UpdateGame call.
func (s *Store) UpdateGame(id string, update func(game *Game) error) (*Game, error) {
	s.mu.RLock()
	game, ok := s.lookup(id)
	s.mu.RUnlock()
	if !ok {
		return nil, notFoundError("room not found")
	}
	game.mu.Lock()
	defer game.mu.Unlock()
	if err := update(game); err != nil {
		return nil, err
	}
	game.LastActivityAt = timeNowUTC()
	return game, nil
}

// ViewGame runs view with the room's lock held, without touching the
// activity clock.
func (s *Store) ViewGame(id string, view func(game *Game)) bool {
	s.mu.RLock()
	game, ok := s.lookup(id)
	s.mu.RUnlock()
	if !ok {
		return false
	}
	game.mu.Lock()
	defer game.mu.Unlock()
	view(game)
	return true
}

func (s *Store) DeleteGame(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

func (s *Store) AddPlayer(roomIDOrCode, name string) (string, *Player, error) {
	s.mu.Lock()
	game, ok := s.lookup(roomIDOrCode)
	if !ok {
		s.mu.Unlock()
		return "", nil, notFoundError("room not found")
	}
	playerID := s.nextPlayerID
	s.nextPlayerID++
	s.mu.Unlock()

	game.mu.Lock()
	defer game.mu.Unlock()

	for i := range game.Players {
		if strings.EqualFold(game.Players[i].Name, name) {
			if !game.Players[i].IsOnline {
				game.Players[i].IsOnline = true
				copied := game.Players[i]
				return game.ID, &copied, nil
			}
			return "", nil, preconditionError("name already taken")
		}
	}
	if game.State != stateWaiting {
		return "", nil, wrongPhaseError("game already started")
	}

	player := Player{
		ID:       playerID,
		Name:     name,
		IsAlive:  true,
		IsOnline: true,
		State:    playerWaitingForHint,
		IsHost:   len(game.Players) == 0,
		JoinedAt: timeNowUTC(),
	}
	game.Players = append(game.Players, player)
	if player.IsHost {
		game.HostID = player.ID
	}
	game.LastActivityAt = timeNowUTC()
	copied := player
	return game.ID, &copied, nil
}

func (s *Store) RestoreGame(game *Game) error {
	if game == nil {
		return notFoundError("room not found")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.ID]; ok {
		return preconditionError("room already running")
	}
	for _, existing := range s.games {
		if existing.RoomCode == game.RoomCode {
			return preconditionError("room already running")
		}
	}
	s.games[game.ID] = game
	if id := roomSortKey(game.ID); id >= s.nextID {
		s.nextID = id + 1
	}
	maxPlayerID := 0
	for _, player := range game.Players {
		if player.ID > maxPlayerID {
			maxPlayerID = player.ID
		}
	}
	if maxPlayerID >= s.nextPlayerID {
		s.nextPlayerID = maxPlayerID + 1
	}
	return nil
}

func (s *Store) ListRoomIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return roomSortKey(ids[i]) < roomSortKey(ids[j])
	})
	return ids
}

func (s *Store) ListRoomSummaries() []GameSummary {
	ids := s.ListRoomIDs()
	list := make([]GameSummary, 0, len(ids))
	for _, id := range ids {
		s.ViewGame(id, func(game *Game) {
			list = append(list, GameSummary{
				ID:       game.ID,
				RoomCode: game.RoomCode,
				State:    game.State,
				Phase:    game.Phase,
				Round:    game.Round,
				Players:  len(game.Players),
			})
		})
	}
	return list
}

func roomSortKey(id string) int {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return 0
	}
	value, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return value
}

func findPlayer(game *Game, playerID int) (*Player, bool) {
	for i := range game.Players {
		if game.Players[i].ID == playerID {
			return &game.Players[i], true
		}
	}
	return nil, false
}

func playerName(game *Game, playerID int) string {
	if player, ok := findPlayer(game, playerID); ok {
		return player.Name
	}
	return ""
}

func alivePlayers(game *Game) []int {
	ids := make([]int, 0, len(game.Players))
	for _, player := range game.Players {
		if player.IsAlive {
			ids = append(ids, player.ID)
		}
	}
	return ids
}

func aliveByRole(game *Game, role string) int {
	count := 0
	for _, player := range game.Players {
		if player.IsAlive && player.Role == role {
			count++
		}
	}
	return count
}

func firstAliveLiar(game *Game) (*Player, bool) {
	for i := range game.Players {
		if game.Players[i].IsAlive && game.Players[i].Role == roleLiar {
			return &game.Players[i], true
		}
	}
	return nil, false
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
