package server

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// ensurePlayerAuthToken returns the player's token, minting one on first use.
// Callers must hold the room lock.
func ensurePlayerAuthToken(game *Game, playerID int) string {
	if game.PlayerAuthTokens == nil {
		game.PlayerAuthTokens = make(map[int]string)
	}
	if token, ok := game.PlayerAuthTokens[playerID]; ok && token != "" {
		return token
	}
	token := newAuthToken()
	game.PlayerAuthTokens[playerID] = token
	return token
}

func newAuthToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return fmt.Sprintf("%x", buf)
}

func requestAuthToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("X-Player-Token")); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// authenticatePlayer accepts either the player's token or a session whose
// stored name matches the player.
func (s *Server) authenticatePlayer(w http.ResponseWriter, r *http.Request, roomID string, playerID int) error {
	if playerID <= 0 {
		return preconditionError("player_id is required")
	}
	var expected, playerName string
	found := false
	exists := s.store.ViewGame(roomID, func(game *Game) {
		if player, ok := findPlayer(game, playerID); ok {
			found = true
			playerName = player.Name
			expected = game.PlayerAuthTokens[playerID]
		}
	})
	if !exists {
		return notFoundError("room not found")
	}
	if !found {
		return notFoundError("player not found")
	}
	provided := requestAuthToken(r)
	if provided != "" {
		if expected != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1 {
			return nil
		}
		return wrongActorError("invalid player token")
	}
	if s.sessions != nil {
		sessionName := normalizeText(s.sessions.GetName(w, r))
		if sessionName != "" && strings.EqualFold(sessionName, playerName) {
			return nil
		}
	}
	return wrongActorError("authentication required")
}

func (s *Server) isAdminRequest(r *http.Request) bool {
	token := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("admin_token"))
	}
	if s.cfg.AdminToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) == 1
}
