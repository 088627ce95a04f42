package db

import (
	"encoding/csv"
	"os"
	"strings"

	"gorm.io/gorm"
)

type topicRecord struct {
	Category string
	Word     string
}

// LoadTopicLibrary reads category,word rows from a CSV and upserts them into
// the topic_libraries table.
func LoadTopicLibrary(conn *gorm.DB, path string) (int, error) {
	if conn == nil {
		return 0, nil
	}
	records, err := readTopics(path)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, record := range records {
		entry := TopicLibrary{
			Category: record.Category,
			Word:     record.Word,
		}
		if err := conn.FirstOrCreate(&entry, TopicLibrary{Category: entry.Category, Word: entry.Word}).Error; err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func readTopics(path string) ([]topicRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []topicRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 2 {
			continue
		}
		category := strings.TrimSpace(row[0])
		word := strings.TrimSpace(row[1])
		if category == "" || word == "" {
			continue
		}
		records = append(records, topicRecord{Category: category, Word: word})
	}
	return records, nil
}
