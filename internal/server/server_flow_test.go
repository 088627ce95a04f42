package server

import (
	"testing"
	"time"
)

func newRunningGame(t *testing.T, names ...string) (*Server, string, []testPlayer) {
	t.Helper()
	srv, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	players := joinPlayers(t, ts, roomID, names...)
	startTestMatch(t, srv, roomID, players)
	return srv, roomID, players
}

func TestCitizensWinByExecutingLiar(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave")
	liar := liarOf(t, srv, roomID)

	submitAllHints(t, srv, roomID)
	accuse(t, srv, roomID, liar)
	holdJudgment(t, srv, roomID, liar)
	castAllFinalVotes(t, srv, roomID, func(int) bool { return true })

	srv.store.ViewGame(roomID, func(game *Game) {
		if game.State != stateEnded || game.Phase != phaseGameOver {
			t.Fatalf("state/phase = %s/%s", game.State, game.Phase)
		}
		if game.WinningTeam != teamCitizens {
			t.Fatalf("winning team = %q, want %q", game.WinningTeam, teamCitizens)
		}
		if game.WinReason != "the liar was executed" {
			t.Fatalf("win reason = %q", game.WinReason)
		}
		for _, player := range game.Players {
			if player.ID == liar {
				if player.IsAlive {
					t.Fatal("executed liar still alive")
				}
				if player.Score != 0 {
					t.Fatalf("liar score = %d, want 0", player.Score)
				}
				continue
			}
			// Alive citizen who voted for the executed liar: one survival
			// point plus one accusation point.
			if player.VotedFor == liar && player.Score != 2 {
				t.Fatalf("citizen %s score = %d, want 2", player.Name, player.Score)
			}
		}
	})
}

func TestExecutedCitizenOpensLiarGuess(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave")
	liar := liarOf(t, srv, roomID)
	scapegoat := 0
	srv.store.ViewGame(roomID, func(game *Game) {
		for _, player := range game.Players {
			if player.Role == roleCitizen {
				scapegoat = player.ID
				return
			}
		}
	})

	submitAllHints(t, srv, roomID)
	accuse(t, srv, roomID, scapegoat)
	holdJudgment(t, srv, roomID, scapegoat)
	castAllFinalVotes(t, srv, roomID, func(int) bool { return true })

	srv.store.ViewGame(roomID, func(game *Game) {
		if game.Phase != phaseGuessingWord {
			t.Fatalf("phase = %q, want %q", game.Phase, phaseGuessingWord)
		}
		if game.Guess == nil || game.Guess.LiarID != liar {
			t.Fatalf("guess = %+v, want liar %d", game.Guess, liar)
		}
	})
}

func TestLiarWinsWithCorrectGuess(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave")
	liar := liarOf(t, srv, roomID)
	scapegoat := 0
	word := ""
	srv.store.ViewGame(roomID, func(game *Game) {
		word = game.CitizenTopic
		for _, player := range game.Players {
			if player.Role == roleCitizen {
				scapegoat = player.ID
				return
			}
		}
	})

	submitAllHints(t, srv, roomID)
	accuse(t, srv, roomID, scapegoat)
	holdJudgment(t, srv, roomID, scapegoat)
	castAllFinalVotes(t, srv, roomID, func(int) bool { return true })

	if err := srv.submitGuess(roomID, liar, word); err != nil {
		t.Fatalf("guess: %v", err)
	}
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.WinningTeam != teamLiars {
			t.Fatalf("winning team = %q, want %q", game.WinningTeam, teamLiars)
		}
		if game.WinReason != "the liar guessed the word" {
			t.Fatalf("win reason = %q", game.WinReason)
		}
		for _, player := range game.Players {
			if player.ID == liar && player.Score != 2 {
				t.Fatalf("liar score = %d, want 2", player.Score)
			}
		}
	})
}

func TestCitizensWinOnWrongGuess(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave")
	liar := liarOf(t, srv, roomID)
	scapegoat := 0
	srv.store.ViewGame(roomID, func(game *Game) {
		for _, player := range game.Players {
			if player.Role == roleCitizen {
				scapegoat = player.ID
				return
			}
		}
	})

	submitAllHints(t, srv, roomID)
	accuse(t, srv, roomID, scapegoat)
	holdJudgment(t, srv, roomID, scapegoat)
	castAllFinalVotes(t, srv, roomID, func(int) bool { return true })

	if err := srv.submitGuess(roomID, liar, "definitely wrong zzz"); err != nil {
		t.Fatalf("guess: %v", err)
	}
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.WinningTeam != teamCitizens {
			t.Fatalf("winning team = %q, want %q", game.WinningTeam, teamCitizens)
		}
		if game.WinReason != "the liar failed to guess the word" {
			t.Fatalf("win reason = %q", game.WinReason)
		}
	})
}

func TestGuessTimeoutFavorsCitizens(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave")
	scapegoat := 0
	srv.store.ViewGame(roomID, func(game *Game) {
		for _, player := range game.Players {
			if player.Role == roleCitizen {
				scapegoat = player.ID
				return
			}
		}
	})

	submitAllHints(t, srv, roomID)
	accuse(t, srv, roomID, scapegoat)
	holdJudgment(t, srv, roomID, scapegoat)
	castAllFinalVotes(t, srv, roomID, func(int) bool { return true })

	rewindPhaseDeadline(srv, roomID, time.Minute)
	srv.expireGuess(roomID)
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.WinningTeam != teamCitizens || game.WinReason != "the liar ran out of time" {
			t.Fatalf("team/reason = %s/%s", game.WinningTeam, game.WinReason)
		}
	})
}

func TestSparedAccusedAdvancesRound(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave", "erin")
	liar := liarOf(t, srv, roomID)

	submitAllHints(t, srv, roomID)
	accuse(t, srv, roomID, liar)
	holdJudgment(t, srv, roomID, liar)
	// Two execute, two spare: not a strict majority, so the accused lives.
	count := 0
	castAllFinalVotes(t, srv, roomID, func(int) bool {
		count++
		return count <= 2
	})

	srv.store.ViewGame(roomID, func(game *Game) {
		if game.State != stateInProgress {
			t.Fatalf("state = %q, want in-progress", game.State)
		}
		if game.Round != 2 {
			t.Fatalf("round = %d, want 2", game.Round)
		}
		if game.Phase != phaseSpeech {
			t.Fatalf("phase = %q, want %q", game.Phase, phaseSpeech)
		}
		if game.AccusedID != 0 || game.FinalVote != nil || game.Defense != nil {
			t.Fatal("judgment state not cleared for the new round")
		}
		accused, _ := findPlayer(game, liar)
		if !accused.IsAlive {
			t.Fatal("spared player must stay alive")
		}
	})
}

func TestLiarSurvivingFinalRoundWins(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave", "erin")
	liar := liarOf(t, srv, roomID)
	_, err := srv.store.UpdateGame(roomID, func(game *Game) error {
		game.Round = game.TotalRounds
		return nil
	})
	if err != nil {
		t.Fatalf("set round: %v", err)
	}

	submitAllHints(t, srv, roomID)
	accuse(t, srv, roomID, liar)
	holdJudgment(t, srv, roomID, liar)
	castAllFinalVotes(t, srv, roomID, func(int) bool { return false })

	srv.store.ViewGame(roomID, func(game *Game) {
		if game.WinningTeam != teamLiars {
			t.Fatalf("winning team = %q, want %q", game.WinningTeam, teamLiars)
		}
		if game.WinReason != "the liar survived every round" {
			t.Fatalf("win reason = %q", game.WinReason)
		}
	})
}

func TestTieVoteTriggersRevote(t *testing.T) {
	srv, roomID, players := newRunningGame(t, "alice", "bob", "carol", "dave")
	submitAllHints(t, srv, roomID)

	ids := make([]int, 0, len(players))
	srv.store.ViewGame(roomID, func(game *Game) {
		ids = append(ids, game.Voting.Eligible...)
	})
	// Two against two.
	pairs := [][2]int{{ids[0], ids[1]}, {ids[1], ids[0]}, {ids[2], ids[3]}, {ids[3], ids[2]}}
	for _, pair := range pairs {
		if err := srv.castVote(roomID, pair[0], pair[1]); err != nil {
			t.Fatalf("vote %d -> %d: %v", pair[0], pair[1], err)
		}
	}

	srv.store.ViewGame(roomID, func(game *Game) {
		if game.Phase != phaseVotingForLiar {
			t.Fatalf("phase = %q, want %q", game.Phase, phaseVotingForLiar)
		}
		if game.Voting != nil {
			t.Fatal("tied round must be cleared before the re-vote")
		}
		if game.AccusedID != 0 {
			t.Fatalf("accused id = %d, want 0", game.AccusedID)
		}
	})
	if !srv.tasks.Pending(roomID, taskTransition) {
		t.Fatal("re-vote transition not scheduled")
	}

	srv.restartVoting(roomID)
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.Voting == nil || len(game.Voting.Votes) != 0 {
			t.Fatal("re-vote did not open a fresh round")
		}
		if len(game.Voting.Eligible) != len(ids) {
			t.Fatalf("eligible = %d, want %d", len(game.Voting.Eligible), len(ids))
		}
	})
}

func TestDecisiveVoteOpensDefenseAfterDelay(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave")
	liar := liarOf(t, srv, roomID)
	submitAllHints(t, srv, roomID)

	var eligible []int
	srv.store.ViewGame(roomID, func(game *Game) {
		eligible = append(eligible, game.Voting.Eligible...)
	})
	other := 0
	for _, id := range eligible {
		if id != liar {
			other = id
			break
		}
	}
	if err := srv.castVote(roomID, liar, other); err != nil {
		t.Fatalf("liar vote: %v", err)
	}
	for _, id := range eligible {
		if id == liar {
			continue
		}
		if err := srv.castVote(roomID, id, liar); err != nil {
			t.Fatalf("vote from %d: %v", id, err)
		}
	}

	// The accusation is recorded immediately, but the defense only opens
	// after the transition delay.
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.Phase != phaseVotingForLiar {
			t.Fatalf("phase = %q, want %q", game.Phase, phaseVotingForLiar)
		}
		if game.Voting == nil || !game.Voting.Closed {
			t.Fatal("voting round must be closed after a decisive tally")
		}
		if game.AccusedID != liar {
			t.Fatalf("accused id = %d, want %d", game.AccusedID, liar)
		}
		if !game.PhaseDeadline.IsZero() {
			t.Fatal("phase deadline must be cleared while the defense is pending")
		}
	})
	if !srv.tasks.Pending(roomID, taskTransition) {
		t.Fatal("defense transition not scheduled")
	}
	if err := srv.castVote(roomID, other, liar); gameErrorKind(t, err) != errWindowClosed {
		t.Fatalf("vote after close = %v, want window closed", err)
	}

	srv.startDefense(roomID)
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.Phase != phaseDefending {
			t.Fatalf("phase = %q, want %q", game.Phase, phaseDefending)
		}
		if game.Voting != nil {
			t.Fatal("voting round must be cleared once the defense opens")
		}
		if game.Defense == nil {
			t.Fatal("defense window not opened")
		}
		for _, player := range game.Players {
			if player.ID == liar && player.State != playerAccused {
				t.Fatalf("accused state = %q, want %q", player.State, playerAccused)
			}
		}
	})
}

func TestDefenseTimeoutStartsFinalVote(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave")
	liar := liarOf(t, srv, roomID)
	submitAllHints(t, srv, roomID)
	accuse(t, srv, roomID, liar)

	rewindPhaseDeadline(srv, roomID, time.Minute)
	srv.finishDefense(roomID)

	// A silent accused counts as an empty statement and the survival vote
	// still happens.
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.Defense == nil || !game.Defense.Submitted {
			t.Fatal("expired defense not marked submitted")
		}
		if game.Defense.Text != "" {
			t.Fatalf("defense text = %q, want empty", game.Defense.Text)
		}
		for _, player := range game.Players {
			if player.ID != liar {
				continue
			}
			if player.DefenseText != "" {
				t.Fatalf("accused defense text = %q, want empty", player.DefenseText)
			}
			if player.State != playerDefended {
				t.Fatalf("accused state = %q, want %q", player.State, playerDefended)
			}
		}
	})
	if !srv.tasks.Pending(roomID, taskTransition) {
		t.Fatal("survival vote transition not scheduled")
	}

	srv.startFinalVote(roomID)
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.Phase != phaseVotingForSurvival {
			t.Fatalf("phase = %q, want %q", game.Phase, phaseVotingForSurvival)
		}
		if game.FinalVote == nil {
			t.Fatal("survival vote not opened")
		}
	})
}

func TestZeroVotesTimeoutTriggersRevote(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol")
	submitAllHints(t, srv, roomID)

	rewindPhaseDeadline(srv, roomID, time.Minute)
	srv.closeVoting(roomID)

	srv.store.ViewGame(roomID, func(game *Game) {
		if game.Phase != phaseVotingForLiar {
			t.Fatalf("phase = %q, want %q", game.Phase, phaseVotingForLiar)
		}
		if game.Voting != nil {
			t.Fatal("empty round must be cleared before the re-vote")
		}
	})
}

func TestVoteGuards(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave")
	submitAllHints(t, srv, roomID)
	var ids []int
	srv.store.ViewGame(roomID, func(game *Game) {
		ids = append(ids, game.Voting.Eligible...)
	})

	if err := srv.castVote(roomID, ids[0], ids[0]); gameErrorKind(t, err) != errSelfTarget {
		t.Fatalf("self vote error = %v", err)
	}
	if err := srv.castVote(roomID, ids[0], 9999); gameErrorKind(t, err) != errPrecondition {
		t.Fatalf("dead target error = %v", err)
	}
	if err := srv.castVote(roomID, ids[0], ids[1]); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if err := srv.castVote(roomID, ids[0], ids[2]); gameErrorKind(t, err) != errAlreadySubmitted {
		t.Fatalf("duplicate vote error = %v", err)
	}
	if err := srv.castVote(roomID, 9999, ids[1]); gameErrorKind(t, err) != errNotFound {
		t.Fatalf("unknown voter error = %v", err)
	}

	rewindPhaseDeadline(srv, roomID, time.Minute)
	if err := srv.castVote(roomID, ids[1], ids[0]); gameErrorKind(t, err) != errWindowClosed {
		t.Fatalf("late vote error = %v", err)
	}
}

func TestHintGuards(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol")
	order := turnOrderOf(srv, roomID)

	if err := srv.submitHint(roomID, order[1], "early"); gameErrorKind(t, err) != errWrongActor {
		t.Fatalf("out of turn error = %v", err)
	}
	if err := srv.submitHint(roomID, order[0], "mine"); err != nil {
		t.Fatalf("hint: %v", err)
	}
	if err := srv.submitHint(roomID, order[0], "again"); gameErrorKind(t, err) != errAlreadySubmitted {
		t.Fatalf("repeat hint error = %v", err)
	}
}

func TestSpeechTimeoutSkipsSpeaker(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol")
	order := turnOrderOf(srv, roomID)

	rewindPhaseDeadline(srv, roomID, time.Minute)
	srv.forceAdvanceTurn(roomID)

	srv.store.ViewGame(roomID, func(game *Game) {
		skipped, _ := findPlayer(game, order[0])
		if skipped.State != playerGaveHint || skipped.Hint != "" {
			t.Fatalf("skipped speaker state/hint = %s/%q", skipped.State, skipped.Hint)
		}
		if game.CurrentTurnIndex != 1 {
			t.Fatalf("turn index = %d, want 1", game.CurrentTurnIndex)
		}
	})
}

func TestFinalVoteTimeoutFillsAbsentVoters(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave")
	liar := liarOf(t, srv, roomID)
	submitAllHints(t, srv, roomID)
	accuse(t, srv, roomID, liar)
	holdJudgment(t, srv, roomID, liar)

	rewindPhaseDeadline(srv, roomID, time.Minute)
	srv.closeFinalVote(roomID)

	// The coin-flip fill makes the verdict itself nondeterministic, but the
	// judgment must resolve either way: executed liar ends the game, a spared
	// liar starts the next round.
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.Phase == phaseVotingForSurvival || game.FinalVote != nil {
			t.Fatalf("final vote did not resolve on timeout, phase = %q", game.Phase)
		}
		switch game.State {
		case stateEnded:
			if game.WinningTeam != teamCitizens || game.WinReason != "the liar was executed" {
				t.Fatalf("team/reason = %s/%s", game.WinningTeam, game.WinReason)
			}
		case stateInProgress:
			if game.Round != 2 || game.Phase != phaseSpeech {
				t.Fatalf("round/phase after spare = %d/%s", game.Round, game.Phase)
			}
		default:
			t.Fatalf("state = %q", game.State)
		}
	})
}

func TestFinalVoteGuards(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol", "dave")
	liar := liarOf(t, srv, roomID)
	submitAllHints(t, srv, roomID)
	accuse(t, srv, roomID, liar)
	holdJudgment(t, srv, roomID, liar)

	if err := srv.castFinalVote(roomID, liar, true); gameErrorKind(t, err) != errWrongActor {
		t.Fatalf("accused final vote error = %v", err)
	}
	var voter int
	srv.store.ViewGame(roomID, func(game *Game) {
		voter = game.FinalVote.Eligible[0]
	})
	if err := srv.castFinalVote(roomID, voter, true); err != nil {
		t.Fatalf("final vote: %v", err)
	}
	if err := srv.castFinalVote(roomID, voter, false); gameErrorKind(t, err) != errAlreadySubmitted {
		t.Fatalf("duplicate final vote error = %v", err)
	}
}

func TestCountdownCancelPreventsStart(t *testing.T) {
	srv, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	players := joinPlayers(t, ts, roomID, "alice", "bob", "carol")
	for _, player := range players {
		if err := srv.toggleReady(roomID, player.ID); err != nil {
			t.Fatalf("ready: %v", err)
		}
	}
	hostID := 0
	srv.store.ViewGame(roomID, func(game *Game) {
		hostID = game.HostID
	})
	if err := srv.startCountdown(roomID, hostID); err != nil {
		t.Fatalf("start countdown: %v", err)
	}
	if err := srv.cancelCountdown(roomID, hostID); err != nil {
		t.Fatalf("cancel countdown: %v", err)
	}

	// The countdown callback would fire into this guard.
	srv.beginMatch(roomID)
	srv.store.ViewGame(roomID, func(game *Game) {
		if game.State != stateWaiting {
			t.Fatalf("state = %q, want waiting after cancel", game.State)
		}
	})
}

func TestUnreadyPlayerCancelsCountdown(t *testing.T) {
	srv, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	players := joinPlayers(t, ts, roomID, "alice", "bob", "carol")
	for _, player := range players {
		if err := srv.toggleReady(roomID, player.ID); err != nil {
			t.Fatalf("ready: %v", err)
		}
	}
	hostID := 0
	srv.store.ViewGame(roomID, func(game *Game) {
		hostID = game.HostID
	})
	if err := srv.startCountdown(roomID, hostID); err != nil {
		t.Fatalf("start countdown: %v", err)
	}
	if err := srv.toggleReady(roomID, players[2].ID); err != nil {
		t.Fatalf("unready: %v", err)
	}
	srv.store.ViewGame(roomID, func(game *Game) {
		if !game.CountdownDeadline.IsZero() {
			t.Fatal("countdown must clear when a player is no longer ready")
		}
	})
	if srv.tasks.Pending(roomID, taskCountdown) {
		t.Fatal("countdown task still pending")
	}
}

func TestStaleTimerFireIsIgnored(t *testing.T) {
	srv, roomID, _ := newRunningGame(t, "alice", "bob", "carol")
	order := turnOrderOf(srv, roomID)

	// Deadline passes while the room is mid-speech, then a vote-phase timer
	// fires late. The guard must leave the speech state untouched.
	rewindPhaseDeadline(srv, roomID, time.Minute)
	srv.phaseDeadlineElapsed(roomID, phaseVotingForLiar)

	srv.store.ViewGame(roomID, func(game *Game) {
		if game.Phase != phaseSpeech {
			t.Fatalf("phase = %q, want %q", game.Phase, phaseSpeech)
		}
		speaker, _ := findPlayer(game, order[0])
		if speaker.State == playerGaveHint {
			t.Fatal("stale fire must not skip the speaker")
		}
	})
}

func TestLeaveRoomTransfersHost(t *testing.T) {
	srv, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	players := joinPlayers(t, ts, roomID, "alice", "bob", "carol")

	if err := srv.leaveRoom(roomID, players[0].ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	srv.store.ViewGame(roomID, func(game *Game) {
		if len(game.Players) != 2 {
			t.Fatalf("players = %d, want 2", len(game.Players))
		}
		if game.HostID != players[1].ID {
			t.Fatalf("host = %d, want %d", game.HostID, players[1].ID)
		}
	})
}

func TestLastLeaverDeletesRoom(t *testing.T) {
	srv, ts := newTestServer(t)
	roomID, _ := createRoom(t, ts)
	player := joinPlayer(t, ts, roomID, "alice")
	if err := srv.leaveRoom(roomID, player.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if ok := srv.store.ViewGame(roomID, func(*Game) {}); ok {
		t.Fatal("empty room should be deleted")
	}
}
