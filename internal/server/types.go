package server

import (
	"sync"
	"time"
)

const (
	stateWaiting    = "waiting"
	stateInProgress = "in-progress"
	stateEnded      = "ended"
)

const (
	phaseLobby             = "lobby"
	phaseSpeech            = "speech"
	phaseVotingForLiar     = "voting-for-liar"
	phaseDefending         = "defending"
	phaseVotingForSurvival = "voting-for-survival"
	phaseGuessingWord      = "guessing-word"
	phaseGameOver          = "game-over"
)

const (
	roleCitizen = "citizen"
	roleLiar    = "liar"
)

const (
	liarModeDifferentWord = "different-word"
	liarModeNoWord        = "no-word"
)

const (
	teamCitizens = "citizens"
	teamLiars    = "liars"
)

const (
	playerWaitingForHint = "waiting-for-hint"
	playerGaveHint       = "gave-hint"
	playerVoted          = "voted"
	playerAccused        = "accused"
	playerDefended       = "defended"
)

type GameSummary struct {
	ID       string
	RoomCode string
	State    string
	Phase    string
	Round    int
	Players  int
}

// Game is one room. The mutex guards every mutable field; the Store hands
// out access only through locked closures.
type Game struct {
	mu sync.Mutex

	ID                string
	DBID              uint
	RoomCode          string
	State             string
	Phase             string
	Round             int
	TotalRounds       int
	LiarCount         int
	LiarMode          string
	TopicCategory     string
	CitizenTopic      string
	LiarTopic         string
	TurnOrder         []int
	CurrentTurnIndex  int
	PhaseDeadline     time.Time
	AccusedID         int
	CountdownDeadline time.Time
	LastActivityAt    time.Time
	CreatedAt         time.Time
	HostID            int
	WinningTeam       string
	WinReason         string
	Players           []Player
	Ready             map[int]bool
	PlayerAuthTokens  map[int]string

	Voting    *VotingRound
	Defense   *DefenseRecord
	FinalVote *FinalVoteRound
	Guess     *LiarGuessAttempt
}

type Player struct {
	ID          int
	DBID        uint
	Name        string
	Role        string
	IsAlive     bool
	IsOnline    bool
	State       string
	Hint        string
	DefenseText string
	VotedFor    int
	FinalVote   *bool
	Score       int
	IsHost      bool
	JoinedAt    time.Time
}

// VotingRound lives only while phase is voting-for-liar.
type VotingRound struct {
	Votes    map[int]int
	Eligible []int
	Deadline time.Time
	Closed   bool
}

type DefenseRecord struct {
	AccusedID int
	Text      string
	Submitted bool
	Deadline  time.Time
}

type FinalVoteRound struct {
	AccusedID int
	Votes     map[int]bool
	Eligible  []int
	Deadline  time.Time
	Closed    bool
}

type LiarGuessAttempt struct {
	LiarID    int
	Deadline  time.Time
	Submitted bool
	Text      string
	Correct   bool
}
