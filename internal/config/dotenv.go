package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	MinPlayers               int
	MaxPlayers               int
	TotalRounds              int
	LiarCount                int
	HintSeconds              int
	VoteSeconds              int
	DefenseSeconds           int
	FinalVoteSeconds         int
	GuessSeconds             int
	TransitionDelaySeconds   int
	CountdownSeconds         int
	SweepIntervalSeconds     int
	MonitorIntervalSeconds   int
	SessionCapMinutes        int
	StuckThresholdMinutes    int
	AdminToken               string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	OpenAIAPIKey             string
	OpenAIModel              string
}

func Default() Config {
	return Config{
		MinPlayers:               3,
		MaxPlayers:               15,
		TotalRounds:              3,
		LiarCount:                1,
		HintSeconds:              60,
		VoteSeconds:              60,
		DefenseSeconds:           60,
		FinalVoteSeconds:         30,
		GuessSeconds:             30,
		TransitionDelaySeconds:   3,
		CountdownSeconds:         10,
		SweepIntervalSeconds:     5,
		MonitorIntervalSeconds:   30,
		SessionCapMinutes:        120,
		StuckThresholdMinutes:    10,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		OpenAIModel:              "gpt-4o-mini",
	}
}

func Load() Config {
	cfg := Default()
	loadInt(&cfg.MinPlayers, "MIN_PLAYERS")
	loadInt(&cfg.MaxPlayers, "MAX_PLAYERS")
	loadInt(&cfg.TotalRounds, "TOTAL_ROUNDS")
	loadInt(&cfg.LiarCount, "LIAR_COUNT")
	loadInt(&cfg.HintSeconds, "HINT_SECONDS")
	loadInt(&cfg.VoteSeconds, "VOTE_SECONDS")
	loadInt(&cfg.DefenseSeconds, "DEFENSE_SECONDS")
	loadInt(&cfg.FinalVoteSeconds, "FINAL_VOTE_SECONDS")
	loadInt(&cfg.GuessSeconds, "GUESS_SECONDS")
	loadInt(&cfg.TransitionDelaySeconds, "TRANSITION_DELAY_SECONDS")
	loadInt(&cfg.CountdownSeconds, "COUNTDOWN_SECONDS")
	loadInt(&cfg.SweepIntervalSeconds, "SWEEP_INTERVAL_SECONDS")
	loadInt(&cfg.MonitorIntervalSeconds, "MONITOR_INTERVAL_SECONDS")
	loadInt(&cfg.SessionCapMinutes, "SESSION_CAP_MINUTES")
	loadInt(&cfg.StuckThresholdMinutes, "STUCK_THRESHOLD_MINUTES")
	loadInt(&cfg.DBMaxOpenConns, "DB_MAX_OPEN_CONNS")
	loadInt(&cfg.DBMaxIdleConns, "DB_MAX_IDLE_CONNS")
	loadInt(&cfg.DBConnMaxLifetimeSeconds, "DB_CONN_MAX_LIFETIME_SECONDS")
	loadInt(&cfg.DBConnMaxIdleTimeSeconds, "DB_CONN_MAX_IDLE_SECONDS")
	if raw := os.Getenv("ADMIN_TOKEN"); raw != "" {
		cfg.AdminToken = raw
	}
	if raw := os.Getenv("OPENAI_API_KEY"); raw != "" {
		cfg.OpenAIAPIKey = raw
	}
	if raw := os.Getenv("OPENAI_MODEL"); raw != "" {
		cfg.OpenAIModel = raw
	}
	return cfg
}

func loadInt(dest *int, name string) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	if value, err := strconv.Atoi(raw); err == nil && value > 0 {
		*dest = value
	}
}
