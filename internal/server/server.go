package server

import (
	"net/http"

	"liar-game/internal/config"

	"gorm.io/gorm"
)

type Server struct {
	store    *Store
	db       *gorm.DB
	ws       *wsHub
	homeWS   *homeHub
	cfg      config.Config
	sessions *sessionStore
	limiter  *rateLimiter
	tasks    *taskRegistry
	topics   *topicSource
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	return &Server{
		store:    NewStore(),
		db:       conn,
		ws:       newWSHub(),
		homeWS:   newHomeHub(),
		cfg:      cfg,
		sessions: newSessionStore(conn),
		limiter:  newRateLimiter(),
		tasks:    newTaskRegistry(),
		topics:   newTopicSource(conn),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleHome)
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("GET /api/rooms/", s.handleRoomSubroutes)
	mux.HandleFunc("POST /api/rooms/", s.handleRoomSubroutes)
	mux.HandleFunc("POST /api/admin/rooms/", s.handleAdminRoomSubroutes)
	mux.HandleFunc("POST /api/admin/topics/generate", s.handleGenerateTopics)
	mux.HandleFunc("GET /ws/rooms/", s.handleWebsocket)
	mux.HandleFunc("GET /ws/home", s.handleHomeWebsocket)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	return mux
}

// snapshotOf builds the public snapshot under the room's lock.
func (s *Server) snapshotOf(roomID string) (map[string]any, bool) {
	var snap map[string]any
	ok := s.store.ViewGame(roomID, func(game *Game) {
		snap = snapshotWithConfig(game, s.cfg)
	})
	return snap, ok
}
