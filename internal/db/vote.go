package db

import "time"

// Kind is "liar" for accusation votes and "survival" for execute/spare votes.
type Vote struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null;uniqueIndex:idx_votes_game_round_kind_player"`
	Round     int       `gorm:"not null;uniqueIndex:idx_votes_game_round_kind_player"`
	Kind      string    `gorm:"size:16;not null;uniqueIndex:idx_votes_game_round_kind_player"`
	PlayerID  uint      `gorm:"index;not null;uniqueIndex:idx_votes_game_round_kind_player"`
	TargetID  uint      `gorm:"index;not null;default:0"`
	Execute   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
