package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"liar-game/internal/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.AdminToken = "test-admin-token"
	return cfg
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(nil, testConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Player-Token", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func createRoom(t *testing.T, ts *httptest.Server) (string, string) {
	t.Helper()
	resp, body := doRequest(t, ts, http.MethodPost, "/api/rooms", map[string]any{}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status = %d, body = %v", resp.StatusCode, body)
	}
	roomID, _ := body["room_id"].(string)
	roomCode, _ := body["room_code"].(string)
	if roomID == "" || roomCode == "" {
		t.Fatalf("create room returned %v", body)
	}
	return roomID, roomCode
}

type testPlayer struct {
	ID    int
	Name  string
	Token string
}

func joinPlayer(t *testing.T, ts *httptest.Server, roomID, name string) testPlayer {
	t.Helper()
	resp, body := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/join", map[string]any{"name": name}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join %s status = %d, body = %v", name, resp.StatusCode, body)
	}
	id, _ := body["player_id"].(float64)
	token, _ := body["token"].(string)
	if id <= 0 || token == "" {
		t.Fatalf("join %s returned %v", name, body)
	}
	return testPlayer{ID: int(id), Name: name, Token: token}
}

func joinPlayers(t *testing.T, ts *httptest.Server, roomID string, names ...string) []testPlayer {
	t.Helper()
	players := make([]testPlayer, 0, len(names))
	for _, name := range names {
		players = append(players, joinPlayer(t, ts, roomID, name))
	}
	return players
}

// startTestMatch drives the lobby to in-progress without waiting out the
// countdown: everyone readies up, the host starts the countdown, and
// beginMatch is invoked directly.
func startTestMatch(t *testing.T, srv *Server, roomID string, players []testPlayer) {
	t.Helper()
	for _, player := range players {
		if err := srv.toggleReady(roomID, player.ID); err != nil {
			t.Fatalf("ready %s: %v", player.Name, err)
		}
	}
	hostID := 0
	srv.store.ViewGame(roomID, func(game *Game) {
		hostID = game.HostID
	})
	if err := srv.startCountdown(roomID, hostID); err != nil {
		t.Fatalf("start countdown: %v", err)
	}
	srv.beginMatch(roomID)
	state := ""
	srv.store.ViewGame(roomID, func(game *Game) {
		state = game.State
	})
	if state != stateInProgress {
		t.Fatalf("state after beginMatch = %q, want %q", state, stateInProgress)
	}
}

func liarOf(t *testing.T, srv *Server, roomID string) int {
	t.Helper()
	id := 0
	srv.store.ViewGame(roomID, func(game *Game) {
		for _, player := range game.Players {
			if player.Role == roleLiar {
				id = player.ID
				return
			}
		}
	})
	if id == 0 {
		t.Fatal("no liar assigned")
	}
	return id
}

func turnOrderOf(srv *Server, roomID string) []int {
	var order []int
	srv.store.ViewGame(roomID, func(game *Game) {
		order = append([]int(nil), game.TurnOrder...)
	})
	return order
}

func phaseOf(srv *Server, roomID string) string {
	phase := ""
	srv.store.ViewGame(roomID, func(game *Game) {
		phase = game.Phase
	})
	return phase
}

// submitAllHints walks the speech turn order submitting one hint each.
func submitAllHints(t *testing.T, srv *Server, roomID string) {
	t.Helper()
	for _, id := range turnOrderOf(srv, roomID) {
		if err := srv.submitHint(roomID, id, "hint"); err != nil {
			t.Fatalf("hint from %d: %v", id, err)
		}
	}
	if phase := phaseOf(srv, roomID); phase != phaseVotingForLiar {
		t.Fatalf("phase after hints = %q, want %q", phase, phaseVotingForLiar)
	}
}

// accuse drives a decisive liar vote against target (everyone else votes for
// target, target votes for the first other eligible player) and opens the
// defense without waiting for the transition timer.
func accuse(t *testing.T, srv *Server, roomID string, target int) {
	t.Helper()
	var eligible []int
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.Voting != nil {
			eligible = append([]int(nil), game.Voting.Eligible...)
		}
	})
	if len(eligible) == 0 {
		t.Fatal("no open voting round")
	}
	other := 0
	for _, id := range eligible {
		if id != target {
			other = id
			break
		}
	}
	if err := srv.castVote(roomID, target, other); err != nil {
		t.Fatalf("target vote: %v", err)
	}
	for _, id := range eligible {
		if id == target {
			continue
		}
		if err := srv.castVote(roomID, id, target); err != nil {
			t.Fatalf("vote from %d: %v", id, err)
		}
	}
	accused := 0
	srv.store.ViewGame(roomID, func(game *Game) {
		accused = game.AccusedID
	})
	if accused != target {
		t.Fatalf("accused = %d, want %d", accused, target)
	}
	srv.startDefense(roomID)
	if phase := phaseOf(srv, roomID); phase != phaseDefending {
		t.Fatalf("phase after accusation = %q, want %q", phase, phaseDefending)
	}
}

// holdJudgment submits the defense and opens the survival vote without
// waiting for the transition timer.
func holdJudgment(t *testing.T, srv *Server, roomID string, accused int) {
	t.Helper()
	if err := srv.submitDefense(roomID, accused, "it was not me"); err != nil {
		t.Fatalf("defense: %v", err)
	}
	srv.startFinalVote(roomID)
	if phase := phaseOf(srv, roomID); phase != phaseVotingForSurvival {
		t.Fatalf("phase after defense = %q, want %q", phase, phaseVotingForSurvival)
	}
}

func castAllFinalVotes(t *testing.T, srv *Server, roomID string, execute func(voterID int) bool) {
	t.Helper()
	var eligible []int
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.FinalVote != nil {
			eligible = append([]int(nil), game.FinalVote.Eligible...)
		}
	})
	if len(eligible) == 0 {
		t.Fatal("no open final vote")
	}
	for _, id := range eligible {
		if err := srv.castFinalVote(roomID, id, execute(id)); err != nil {
			t.Fatalf("final vote from %d: %v", id, err)
		}
	}
}

func rewindPhaseDeadline(srv *Server, roomID string, d time.Duration) {
	_, _ = srv.store.UpdateGame(roomID, func(game *Game) error {
		past := timeNowUTC().Add(-d)
		game.PhaseDeadline = past
		if game.Voting != nil {
			game.Voting.Deadline = past
		}
		if game.Defense != nil {
			game.Defense.Deadline = past
		}
		if game.FinalVote != nil {
			game.FinalVote.Deadline = past
		}
		if game.Guess != nil {
			game.Guess.Deadline = past
		}
		return nil
	})
}

func gameErrorKind(t *testing.T, err error) errorKind {
	t.Helper()
	ge, ok := err.(*gameError)
	if !ok {
		t.Fatalf("error %v is not a gameError", err)
	}
	return ge.kind
}
