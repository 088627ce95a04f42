package server

import (
	"errors"
	"math/rand"
	"sort"

	"liar-game/internal/db"

	"gorm.io/gorm"
)

type topicPick struct {
	Category    string
	CitizenWord string
	LiarWord    string
}

// topicSource serves the word pool. The database-backed topic library wins
// when rows exist; the builtin packs keep the engine playable without one.
type topicSource struct {
	db      *gorm.DB
	builtin map[string][]string
}

func newTopicSource(conn *gorm.DB) *topicSource {
	return &topicSource{
		db: conn,
		builtin: map[string][]string{
			"food":    {"apple", "banana", "pizza", "kimchi", "ramen", "chocolate", "watermelon", "dumpling"},
			"animals": {"elephant", "penguin", "giraffe", "octopus", "hamster", "dolphin", "kangaroo", "owl"},
			"places":  {"library", "airport", "beach", "hospital", "subway", "stadium", "bakery", "museum"},
			"objects": {"umbrella", "keyboard", "telescope", "backpack", "candle", "mirror", "bicycle", "pillow"},
		},
	}
}

// Pick returns a citizen word and, when wanted, a different liar word from
// the same category.
func (t *topicSource) Pick(category string, liarWordWanted bool) (topicPick, error) {
	category, words, err := t.wordsFor(category)
	if err != nil {
		return topicPick{}, err
	}
	if len(words) == 0 || (liarWordWanted && len(words) < 2) {
		return topicPick{}, errors.New("not enough topics in category")
	}
	citizen := words[rand.Intn(len(words))]
	pick := topicPick{Category: category, CitizenWord: citizen}
	if liarWordWanted {
		liar := citizen
		for liar == citizen {
			liar = words[rand.Intn(len(words))]
		}
		pick.LiarWord = liar
	}
	return pick, nil
}

func (t *topicSource) wordsFor(category string) (string, []string, error) {
	if t.db != nil {
		if category == "" {
			categories, err := t.Categories()
			if err == nil && len(categories) > 0 {
				category = categories[rand.Intn(len(categories))]
			}
		}
		if category != "" {
			var words []string
			err := t.db.Model(&db.TopicLibrary{}).
				Where("category = ?", category).
				Order("word asc").
				Pluck("word", &words).Error
			if err == nil && len(words) >= 2 {
				return category, words, nil
			}
		}
	}
	if category == "" {
		keys := make([]string, 0, len(t.builtin))
		for key := range t.builtin {
			keys = append(keys, key)
		}
		category = keys[rand.Intn(len(keys))]
	}
	words, ok := t.builtin[category]
	if !ok {
		return category, nil, errors.New("unknown topic category")
	}
	return category, words, nil
}

// Categories lists topic categories, preferring the database library.
func (t *topicSource) Categories() ([]string, error) {
	if t.db != nil {
		var categories []string
		err := t.db.Model(&db.TopicLibrary{}).
			Distinct("category").
			Order("category asc").
			Pluck("category", &categories).Error
		if err == nil && len(categories) > 0 {
			return categories, nil
		}
	}
	categories := make([]string, 0, len(t.builtin))
	for key := range t.builtin {
		categories = append(categories, key)
	}
	sort.Strings(categories)
	return categories, nil
}

// Insert adds generated words to the library table.
func (t *topicSource) Insert(category string, words []string) (int, error) {
	if t.db == nil {
		return 0, errors.New("database not configured")
	}
	inserted := 0
	for _, word := range words {
		entry := db.TopicLibrary{Category: category, Word: word}
		if err := t.db.FirstOrCreate(&entry, db.TopicLibrary{Category: category, Word: word}).Error; err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
