package db

import "time"

type Game struct {
	ID              uint   `gorm:"primaryKey"`
	RoomCode        string `gorm:"size:12;uniqueIndex;not null"`
	State           string `gorm:"size:16;not null"`
	Phase           string `gorm:"size:32;not null"`
	Round           int    `gorm:"not null;default:0"`
	TotalRounds     int    `gorm:"not null;default:3"`
	LiarCount       int    `gorm:"not null;default:1"`
	LiarMode        string `gorm:"size:24;not null;default:'different-word'"`
	TopicCategory   string `gorm:"size:64"`
	CitizenTopic    string `gorm:"size:128"`
	LiarTopic       string `gorm:"size:128"`
	CountdownEndsAt *time.Time
	WinningTeam     string    `gorm:"size:16"`
	WinReason       string    `gorm:"size:280"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
	Players         []Player
	Votes           []Vote
	Events          []Event
}
