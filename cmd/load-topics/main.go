package main

import (
	"flag"
	"log"

	"liar-game/internal/config"
	"liar-game/internal/db"
)

func main() {
	filePath := flag.String("file", "topics.csv", "path to topics csv")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	conn, err := db.Open()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	inserted, err := db.LoadTopicLibrary(conn, *filePath)
	if err != nil {
		log.Fatalf("failed to load topics: %v", err)
	}
	log.Printf("loaded %d topics", inserted)
}
