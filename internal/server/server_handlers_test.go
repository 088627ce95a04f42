package server

import (
	"net/http"
	"strconv"
	"testing"
)

func TestCreateRoomHandler(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := doRequest(t, ts, http.MethodPost, "/api/rooms", map[string]any{
		"total_rounds": 5,
		"liar_count":   2,
		"liar_mode":    "no-word",
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["total_rounds"].(float64) != 5 {
		t.Fatalf("total_rounds = %v", body["total_rounds"])
	}
	if body["liar_count"].(float64) != 2 {
		t.Fatalf("liar_count = %v", body["liar_count"])
	}
	if body["liar_mode"] != liarModeNoWord {
		t.Fatalf("liar_mode = %v", body["liar_mode"])
	}
}

func TestCreateRoomRejectsUnknownMode(t *testing.T) {
	_, ts := newTestServer(t)
	resp, _ := doRequest(t, ts, http.MethodPost, "/api/rooms", map[string]any{"liar_mode": "mirror"}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestJoinRequiresName(t *testing.T) {
	_, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	resp, _ := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/join", map[string]any{"name": "   "}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestJoinByRoomCode(t *testing.T) {
	_, ts := newTestServer(t)
	roomID, roomCode := createRoom(t, ts)
	resp, body := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomCode+"/join", map[string]any{"name": "alice"}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["room_id"] != roomID {
		t.Fatalf("room_id = %v, want %s", body["room_id"], roomID)
	}
	if body["is_host"] != true {
		t.Fatal("first joiner should be host")
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	_, ts := newTestServer(t)
	resp, _ := doRequest(t, ts, http.MethodPost, "/api/rooms/ZZZZZZ/join", map[string]any{"name": "alice"}, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSnapshotHidesSecrets(t *testing.T) {
	srv, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	players := joinPlayers(t, ts, roomID, "alice", "bob", "carol")
	startTestMatch(t, srv, roomID, players)

	resp, body := doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, key := range []string{"citizen_topic", "liar_topic"} {
		if _, leaked := body[key]; leaked {
			t.Fatalf("snapshot leaks %s", key)
		}
	}
	for _, raw := range body["players"].([]any) {
		player := raw.(map[string]any)
		if _, leaked := player["role"]; leaked {
			t.Fatal("snapshot leaks player roles")
		}
	}
	if body["phase"] != phaseSpeech {
		t.Fatalf("phase = %v, want %s", body["phase"], phaseSpeech)
	}
}

func TestActionsRequireAuth(t *testing.T) {
	srv, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	players := joinPlayers(t, ts, roomID, "alice", "bob", "carol")
	startTestMatch(t, srv, roomID, players)

	speaker := turnOrderOf(srv, roomID)[0]
	resp, _ := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/hints", map[string]any{
		"player_id": speaker,
		"hint":      "round and red",
	}, "wrong-token")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestHintOverHTTP(t *testing.T) {
	srv, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	players := joinPlayers(t, ts, roomID, "alice", "bob", "carol")
	startTestMatch(t, srv, roomID, players)

	byID := map[int]testPlayer{}
	for _, player := range players {
		byID[player.ID] = player
	}
	speaker := byID[turnOrderOf(srv, roomID)[0]]
	resp, body := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/hints", map[string]any{
		"player_id": speaker.ID,
		"hint":      "round and red",
	}, speaker.Token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["current_speaker_id"].(float64) == float64(speaker.ID) {
		t.Fatal("turn did not advance")
	}
}

func TestRoleEndpoint(t *testing.T) {
	srv, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	players := joinPlayers(t, ts, roomID, "alice", "bob", "carol")

	resp, _ := doRequest(t, ts, http.MethodGet, roleEndpointPath(roomID, players[0].ID), nil, players[0].Token)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("role before start status = %d, want 409", resp.StatusCode)
	}

	startTestMatch(t, srv, roomID, players)
	liar := liarOf(t, srv, roomID)
	liarToken := ""
	for _, player := range players {
		if player.ID == liar {
			liarToken = player.Token
		}
	}
	resp, body := doRequest(t, ts, http.MethodGet, roleEndpointPath(roomID, liar), nil, liarToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("role status = %d, body = %v", resp.StatusCode, body)
	}
	if body["role"] != roleLiar {
		t.Fatalf("role = %v, want %s", body["role"], roleLiar)
	}
	var citizenTopic, liarTopic string
	srv.store.ViewGame(roomID, func(game *Game) {
		citizenTopic = game.CitizenTopic
		liarTopic = game.LiarTopic
	})
	if body["topic"] != liarTopic {
		t.Fatalf("liar topic = %v, want %q", body["topic"], liarTopic)
	}
	if body["topic"] == citizenTopic {
		t.Fatal("liar must not see the citizens' word")
	}
}

func roleEndpointPath(roomID string, playerID int) string {
	return "/api/rooms/" + roomID + "/players/" + strconv.Itoa(playerID) + "/role"
}

func TestAdminTerminateRequiresToken(t *testing.T) {
	srv, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	players := joinPlayers(t, ts, roomID, "alice", "bob", "carol")
	startTestMatch(t, srv, roomID, players)

	resp, _ := doRequest(t, ts, http.MethodPost, "/api/admin/rooms/"+roomID+"/terminate", map[string]any{"reason": "cleanup"}, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status without admin token = %d, want 403", resp.StatusCode)
	}

	resp, body := doRequest(t, ts, http.MethodPost, "/api/admin/rooms/"+roomID+"/terminate?admin_token=test-admin-token", map[string]any{"reason": "cleanup"}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status with admin token = %d, body = %v", resp.StatusCode, body)
	}
	if body["state"] != stateEnded {
		t.Fatalf("state = %v, want %s", body["state"], stateEnded)
	}
}
