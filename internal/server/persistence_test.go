package server

import "testing"

// Every persistence helper takes a room id and re-reads state under the room
// lock, so calling them with no database configured must be a clean no-op.
func TestPersistenceHelpersNoopWithoutDatabase(t *testing.T) {
	srv, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	player := joinPlayer(t, ts, roomID, "alice")

	if err := srv.persistGame(roomID); err != nil {
		t.Fatalf("persistGame: %v", err)
	}
	if err := srv.persistPlayer(roomID, player.ID); err != nil {
		t.Fatalf("persistPlayer: %v", err)
	}
	srv.persistRoles(roomID)
	srv.persistGameState(roomID)
	srv.persistScores(roomID)
	srv.persistCountdown(roomID)
	srv.persistVote(roomID, "liar", 1, player.ID, player.ID, false)
	srv.persistRoomEvent(roomID, "noop", EventPayload{})

	if got := srv.gameDBID(roomID); got != 0 {
		t.Fatalf("gameDBID = %d, want 0 without a database", got)
	}
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.DBID != 0 {
			t.Fatalf("game DBID = %d, want 0", game.DBID)
		}
	})
}
