package server

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"liar-game/internal/db"
)

type createRoomRequest struct {
	TotalRounds   int    `json:"total_rounds"`
	LiarCount     int    `json:"liar_count"`
	LiarMode      string `json:"liar_mode"`
	TopicCategory string `json:"topic_category"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type playerRequest struct {
	PlayerID int `json:"player_id"`
}

type hintRequest struct {
	PlayerID int    `json:"player_id"`
	Hint     string `json:"hint"`
}

type voteRequest struct {
	PlayerID int `json:"player_id"`
	TargetID int `json:"target_id"`
}

type defenseRequest struct {
	PlayerID int    `json:"player_id"`
	Text     string `json:"text"`
}

type finalVoteRequest struct {
	PlayerID int   `json:"player_id"`
	Execute  *bool `json:"execute"`
}

type guessRequest struct {
	PlayerID int    `json:"player_id"`
	Guess    string `json:"guess"`
}

type terminateRequest struct {
	PlayerID int    `json:"player_id"`
	Reason   string `json:"reason"`
}

type generateTopicsRequest struct {
	Category     string `json:"category"`
	Count        int    `json:"count"`
	Instructions string `json:"instructions"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "create") {
		return
	}
	var req createRoomRequest
	_ = readJSON(r.Body, &req)
	category, err := validateCategory(req.TopicCategory)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	settings := roomSettings{
		TotalRounds:   s.cfg.TotalRounds,
		LiarCount:     s.cfg.LiarCount,
		LiarMode:      liarModeDifferentWord,
		TopicCategory: category,
	}
	if req.TotalRounds > 0 && req.TotalRounds <= 10 {
		settings.TotalRounds = req.TotalRounds
	}
	if req.LiarCount > 0 && req.LiarCount <= 3 {
		settings.LiarCount = req.LiarCount
	}
	switch req.LiarMode {
	case "", liarModeDifferentWord:
	case liarModeNoWord:
		settings.LiarMode = liarModeNoWord
	default:
		writeError(w, http.StatusBadRequest, "unknown liar mode")
		return
	}

	game := s.store.CreateRoom(settings)
	if err := s.persistGame(game.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	log.Printf("room created room_id=%s room_code=%s rounds=%d liars=%d mode=%s", game.ID, game.RoomCode, game.TotalRounds, game.LiarCount, game.LiarMode)
	writeJSON(w, http.StatusCreated, map[string]any{
		"room_id":      game.ID,
		"room_code":    game.RoomCode,
		"total_rounds": game.TotalRounds,
		"liar_count":   game.LiarCount,
		"liar_mode":    game.LiarMode,
	})
	s.broadcastHomeUpdate()
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": s.homeSummaries(),
	})
}

func (s *Server) handleRoomSubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if roomID, playerID, ok := parsePlayerRolePath(r.URL.Path); ok {
			s.handlePlayerRole(w, r, roomID, playerID)
			return
		}
	}
	roomID, action, ok := parseRoomPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		switch action {
		case "":
			s.handleGetRoom(w, r, roomID)
		case "events":
			s.handleEvents(w, r, roomID)
		case "recovery":
			s.handleRecovery(w, r, roomID)
		default:
			http.NotFound(w, r)
		}
	case http.MethodPost:
		switch action {
		case "join":
			s.handleJoinRoom(w, r, roomID)
		case "leave":
			s.handleLeaveRoom(w, r, roomID)
		case "ready":
			s.handleReady(w, r, roomID)
		case "countdown/start":
			s.handleCountdownStart(w, r, roomID)
		case "countdown/cancel":
			s.handleCountdownCancel(w, r, roomID)
		case "hints":
			s.handleHints(w, r, roomID)
		case "votes":
			s.handleVotes(w, r, roomID)
		case "defense":
			s.handleDefense(w, r, roomID)
		case "final-votes":
			s.handleFinalVotes(w, r, roomID)
		case "guesses":
			s.handleGuesses(w, r, roomID)
		case "terminate":
			s.handleTerminate(w, r, roomID)
		default:
			http.NotFound(w, r)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	snap, ok := s.snapshotOf(roomID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "join") {
		return
	}
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	name, err := validateName(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resolvedID, player, err := s.store.AddPlayer(roomID, name)
	if err != nil {
		writeGameError(w, err)
		return
	}
	if maxPlayers := s.cfg.MaxPlayers; maxPlayers > 0 {
		tooMany := false
		s.store.ViewGame(resolvedID, func(game *Game) {
			tooMany = len(game.Players) > maxPlayers
		})
		if tooMany {
			_ = s.leaveRoom(resolvedID, player.ID)
			writeError(w, http.StatusConflict, "room is full")
			return
		}
	}

	var token string
	game, err := s.store.UpdateGame(resolvedID, func(game *Game) error {
		token = ensurePlayerAuthToken(game, player.ID)
		return nil
	})
	if err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.persistPlayer(game.ID, player.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to join room")
		return
	}
	log.Printf("player joined room_id=%s player_id=%d player_name=%s", game.ID, player.ID, name)
	if s.sessions != nil {
		s.sessions.SetName(w, r, name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":   game.ID,
		"room_code": game.RoomCode,
		"player_id": player.ID,
		"player":    name,
		"is_host":   player.IsHost,
		"token":     token,
	})
	s.broadcastGameUpdate(game.ID)
}

func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	if err := s.authenticatePlayer(w, r, roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.leaveRoom(roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"left": true})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request, roomID string) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	if err := s.authenticatePlayer(w, r, roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.toggleReady(roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	snap, _ := s.snapshotOf(roomID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCountdownStart(w http.ResponseWriter, r *http.Request, roomID string) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	if err := s.authenticatePlayer(w, r, roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.startCountdown(roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	snap, _ := s.snapshotOf(roomID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCountdownCancel(w http.ResponseWriter, r *http.Request, roomID string) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	if err := s.authenticatePlayer(w, r, roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.cancelCountdown(roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	snap, _ := s.snapshotOf(roomID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHints(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "hints") {
		return
	}
	var req hintRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	hint, err := validateHint(req.Hint)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.authenticatePlayer(w, r, roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.submitHint(roomID, req.PlayerID, hint); err != nil {
		writeGameError(w, err)
		return
	}
	snap, _ := s.snapshotOf(roomID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleVotes(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "votes") {
		return
	}
	var req voteRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 || req.TargetID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id and target_id are required")
		return
	}
	if err := s.authenticatePlayer(w, r, roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.castVote(roomID, req.PlayerID, req.TargetID); err != nil {
		writeGameError(w, err)
		return
	}
	snap, _ := s.snapshotOf(roomID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDefense(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "defense") {
		return
	}
	var req defenseRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	text, err := validateDefense(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.authenticatePlayer(w, r, roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.submitDefense(roomID, req.PlayerID, text); err != nil {
		writeGameError(w, err)
		return
	}
	snap, _ := s.snapshotOf(roomID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFinalVotes(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "final_votes") {
		return
	}
	var req finalVoteRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 || req.Execute == nil {
		writeError(w, http.StatusBadRequest, "player_id and execute are required")
		return
	}
	if err := s.authenticatePlayer(w, r, roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.castFinalVote(roomID, req.PlayerID, *req.Execute); err != nil {
		writeGameError(w, err)
		return
	}
	snap, _ := s.snapshotOf(roomID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGuesses(w http.ResponseWriter, r *http.Request, roomID string) {
	if !s.enforceRateLimit(w, r, "guesses") {
		return
	}
	var req guessRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	guess, err := validateGuess(req.Guess)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.authenticatePlayer(w, r, roomID, req.PlayerID); err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.submitGuess(roomID, req.PlayerID, guess); err != nil {
		writeGameError(w, err)
		return
	}
	snap, _ := s.snapshotOf(roomID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePlayerRole(w http.ResponseWriter, r *http.Request, roomID string, playerID int) {
	if err := s.authenticatePlayer(w, r, roomID, playerID); err != nil {
		writeGameError(w, err)
		return
	}
	var resp map[string]any
	var roleErr error
	ok := s.store.ViewGame(roomID, func(game *Game) {
		if game.State == stateWaiting {
			roleErr = wrongPhaseError("game not started")
			return
		}
		player, found := findPlayer(game, playerID)
		if !found {
			roleErr = notFoundError("player not found")
			return
		}
		resp = map[string]any{
			"room_id":   game.ID,
			"player_id": player.ID,
			"role":      player.Role,
			"topic":     topicForPlayer(game, player),
		}
	})
	if !ok {
		http.NotFound(w, r)
		return
	}
	if roleErr != nil {
		writeGameError(w, roleErr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request, roomID string) {
	playerID, _ := strconv.Atoi(r.URL.Query().Get("player_id"))
	if playerID <= 0 {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	if err := s.authenticatePlayer(w, r, roomID, playerID); err != nil {
		writeGameError(w, err)
		return
	}
	var payload map[string]any
	var buildErr error
	ok := s.store.ViewGame(roomID, func(game *Game) {
		payload, buildErr = buildRecovery(game, playerID)
	})
	if !ok {
		http.NotFound(w, r)
		return
	}
	if buildErr != nil {
		writeGameError(w, buildErr)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, roomID string) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "events not available")
		return
	}
	gameID := ""
	ok := s.store.ViewGame(roomID, func(game *Game) {
		gameID = game.ID
	})
	if !ok {
		http.NotFound(w, r)
		return
	}
	dbID := s.gameDBID(gameID)
	if dbID == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"room_id": gameID, "events": []any{}})
		return
	}
	var records []db.Event
	if err := s.db.Where("game_id = ?", dbID).Order("created_at asc").Find(&records).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	events := make([]map[string]any, 0, len(records))
	for _, record := range records {
		events = append(events, map[string]any{
			"id":         record.ID,
			"type":       record.Type,
			"player_id":  record.PlayerID,
			"created_at": record.CreatedAt,
			"payload":    record.Payload,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id": gameID,
		"events":  events,
	})
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request, roomID string) {
	var req terminateRequest
	_ = readJSON(r.Body, &req)
	reason := normalizeText(req.Reason)

	if s.isAdminRequest(r) {
		if reason == "" {
			reason = "terminated by admin"
		}
	} else {
		if req.PlayerID <= 0 {
			writeError(w, http.StatusBadRequest, "player_id is required")
			return
		}
		if err := s.authenticatePlayer(w, r, roomID, req.PlayerID); err != nil {
			writeGameError(w, err)
			return
		}
		isHost := false
		s.store.ViewGame(roomID, func(game *Game) {
			isHost = game.HostID == req.PlayerID
		})
		if !isHost {
			writeGameError(w, wrongActorError("only the host can terminate the room"))
			return
		}
		if reason == "" {
			reason = "terminated by host"
		}
	}
	if err := s.terminate(roomID, reason); err != nil {
		writeGameError(w, err)
		return
	}
	snap, _ := s.snapshotOf(roomID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAdminRoomSubroutes(w http.ResponseWriter, r *http.Request) {
	if !s.isAdminRequest(r) {
		writeError(w, http.StatusForbidden, "admin token required")
		return
	}
	param, action, ok := parseAdminRoomPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch action {
	case "restore":
		roomID, err := s.restoreRoom(param)
		if err != nil {
			writeGameError(w, err)
			return
		}
		snap, _ := s.snapshotOf(roomID)
		writeJSON(w, http.StatusOK, snap)
	case "terminate":
		var req terminateRequest
		_ = readJSON(r.Body, &req)
		reason := normalizeText(req.Reason)
		if reason == "" {
			reason = "terminated by admin"
		}
		if err := s.terminate(param, reason); err != nil {
			writeGameError(w, err)
			return
		}
		snap, _ := s.snapshotOf(param)
		writeJSON(w, http.StatusOK, snap)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGenerateTopics(w http.ResponseWriter, r *http.Request) {
	if !s.isAdminRequest(r) {
		writeError(w, http.StatusForbidden, "admin token required")
		return
	}
	var req generateTopicsRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "category and count are required")
		return
	}
	category, err := validateCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}
	count := req.Count
	if count <= 0 {
		count = 10
	}
	if count > 50 {
		count = 50
	}
	words, err := s.generateTopicsFromOpenAI(r.Context(), category, count, strings.TrimSpace(req.Instructions))
	if err != nil {
		log.Printf("topic generation failed category=%s error=%v", category, err)
		writeError(w, http.StatusBadGateway, "topic generation failed")
		return
	}
	inserted, err := s.topics.Insert(category, words)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save topics")
		return
	}
	log.Printf("topics generated category=%s inserted=%d", category, inserted)
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"inserted": inserted,
		"words":    words,
	})
}
