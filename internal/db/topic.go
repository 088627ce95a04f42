package db

import "time"

// TopicLibrary holds the word pool games draw their secret topics from.
type TopicLibrary struct {
	ID        uint      `gorm:"primaryKey"`
	Category  string    `gorm:"size:64;not null;uniqueIndex:idx_topic_library_category_word"`
	Word      string    `gorm:"size:128;not null;uniqueIndex:idx_topic_library_category_word"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
