package server

import (
	"bytes"
	"encoding/json"
	"testing"
)

func recoveryJSON(t *testing.T, srv *Server, roomID string, playerID int) []byte {
	t.Helper()
	var payload []byte
	var buildErr error
	srv.store.ViewGame(roomID, func(game *Game) {
		snapshot, err := buildRecovery(game, playerID)
		if err != nil {
			buildErr = err
			return
		}
		payload, buildErr = json.Marshal(snapshot)
	})
	if buildErr != nil {
		t.Fatalf("build recovery: %v", buildErr)
	}
	return payload
}

func TestRecoveryIsDeterministic(t *testing.T) {
	srv, roomID, players := newRunningGame(t, "alice", "bob", "carol", "dave")
	submitAllHints(t, srv, roomID)

	first := recoveryJSON(t, srv, roomID, players[0].ID)
	second := recoveryJSON(t, srv, roomID, players[0].ID)
	if !bytes.Equal(first, second) {
		t.Fatalf("recovery snapshots differ:\n%s\n%s", first, second)
	}
}

func TestRecoveryCarriesNoTimestamps(t *testing.T) {
	srv, roomID, players := newRunningGame(t, "alice", "bob", "carol")
	payload := recoveryJSON(t, srv, roomID, players[0].ID)

	decoded := map[string]any{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"deadline", "phase_deadline", "created_at", "last_activity_at"} {
		if _, present := decoded[key]; present {
			t.Fatalf("recovery leaks %s", key)
		}
	}
}

func TestRecoveryTopicIsCallerOnly(t *testing.T) {
	srv, roomID, players := newRunningGame(t, "alice", "bob", "carol", "dave")
	liar := liarOf(t, srv, roomID)

	var citizenTopic, liarTopic string
	srv.store.ViewGame(roomID, func(game *Game) {
		citizenTopic = game.CitizenTopic
		liarTopic = game.LiarTopic
	})

	for _, player := range players {
		decoded := map[string]any{}
		if err := json.Unmarshal(recoveryJSON(t, srv, roomID, player.ID), &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		you := decoded["you"].(map[string]any)
		if player.ID == liar {
			if you["role"] != roleLiar || you["topic"] != liarTopic {
				t.Fatalf("liar recovery you = %v", you)
			}
		} else {
			if you["role"] != roleCitizen || you["topic"] != citizenTopic {
				t.Fatalf("citizen recovery you = %v", you)
			}
		}
		// Never both words at once.
		if _, leaked := decoded["citizen_topic"]; leaked {
			t.Fatal("recovery leaks citizen_topic")
		}
		if _, leaked := decoded["liar_topic"]; leaked {
			t.Fatal("recovery leaks liar_topic")
		}
	}
}

func TestRecoverySectionsFollowPhase(t *testing.T) {
	srv, roomID, players := newRunningGame(t, "alice", "bob", "carol", "dave")
	liar := liarOf(t, srv, roomID)

	decode := func() map[string]any {
		decoded := map[string]any{}
		if err := json.Unmarshal(recoveryJSON(t, srv, roomID, players[0].ID), &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return decoded
	}

	speech := decode()
	for _, key := range []string{"voting", "accusation", "final_vote", "guess"} {
		if _, present := speech[key]; present {
			t.Fatalf("speech recovery carries %s", key)
		}
	}

	submitAllHints(t, srv, roomID)
	voting := decode()
	if _, present := voting["voting"]; !present {
		t.Fatal("voting recovery misses voting section")
	}

	accuse(t, srv, roomID, liar)
	defending := decode()
	if _, present := defending["accusation"]; !present {
		t.Fatal("defense recovery misses accusation section")
	}
	if _, present := defending["voting"]; present {
		t.Fatal("defense recovery still carries voting section")
	}

	holdJudgment(t, srv, roomID, liar)
	judgment := decode()
	if _, present := judgment["final_vote"]; !present {
		t.Fatal("judgment recovery misses final_vote section")
	}

	castAllFinalVotes(t, srv, roomID, func(int) bool { return true })
	ended := decode()
	if ended["state"] != stateEnded {
		t.Fatalf("state = %v, want %s", ended["state"], stateEnded)
	}
	if ended["winning_team"] != teamCitizens {
		t.Fatalf("winning_team = %v", ended["winning_team"])
	}
}

func TestRecoveryScoreboardSortedByID(t *testing.T) {
	srv, roomID, players := newRunningGame(t, "zoe", "amy", "bob")
	decoded := map[string]any{}
	if err := json.Unmarshal(recoveryJSON(t, srv, roomID, players[0].ID), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	scoreboard := decoded["scoreboard"].([]any)
	if len(scoreboard) != len(players) {
		t.Fatalf("scoreboard size = %d, want %d", len(scoreboard), len(players))
	}
	last := 0
	for _, raw := range scoreboard {
		entry := raw.(map[string]any)
		id := int(entry["player_id"].(float64))
		if id <= last {
			t.Fatalf("scoreboard not sorted by id: %v", scoreboard)
		}
		last = id
	}
}

func TestRecoveryUnknownPlayer(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol")
	srv.store.ViewGame(roomID, func(game *Game) {
		if _, err := buildRecovery(game, 9999); gameErrorKind(t, err) != errNotFound {
			t.Fatalf("unknown player error = %v", err)
		}
	})
}
