package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
)

// wsClient wraps one connection with a write mutex. gorilla/websocket
// permits a single concurrent writer, and broadcasts arrive from any
// request goroutine.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*wsClient]int
}

type homeHub struct {
	mu    sync.Mutex
	conns map[*wsClient]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*wsClient]int),
	}
}

func newHomeHub() *homeHub {
	return &homeHub{
		conns: make(map[*wsClient]struct{}),
	}
}

func (h *wsHub) Add(roomID string, conn *websocket.Conn, playerID int) *wsClient {
	client := &wsClient{conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		group = make(map[*wsClient]int)
		h.groups[roomID] = group
	}
	group[client] = playerID
	return client
}

func (h *wsHub) Remove(roomID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		return
	}
	delete(group, client)
	_ = client.conn.Close()
	if len(group) == 0 {
		delete(h.groups, roomID)
	}
}

func (h *wsHub) Send(client *wsClient, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = client.write(data)
}

func (h *wsHub) Broadcast(roomID string, payload any) {
	h.mu.Lock()
	group := h.groups[roomID]
	clients := make([]*wsClient, 0, len(group))
	for client := range group {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, client := range clients {
		if err := client.write(data); err != nil {
			h.Remove(roomID, client)
		}
	}
}

// SendTo addresses a single player's connections within a room.
func (h *wsHub) SendTo(roomID string, playerID int, payload any) {
	h.mu.Lock()
	group := h.groups[roomID]
	clients := make([]*wsClient, 0)
	for client, id := range group {
		if id == playerID {
			clients = append(clients, client)
		}
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, client := range clients {
		if err := client.write(data); err != nil {
			h.Remove(roomID, client)
		}
	}
}

func (h *homeHub) Add(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[client] = struct{}{}
	return client
}

func (h *homeHub) Remove(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, client)
	_ = client.conn.Close()
}

func (h *homeHub) Send(client *wsClient, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = client.write(data)
}

func (h *homeHub) Broadcast(payload any) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.conns))
	for client := range h.conns {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, client := range clients {
		if err := client.write(data); err != nil {
			h.Remove(client)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	snap, exists := s.snapshotOf(roomID)
	if !exists {
		http.NotFound(w, r)
		return
	}
	playerID, _ := strconv.Atoi(r.URL.Query().Get("player_id"))
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected room_id=%s player_id=%d remote=%s", roomID, playerID, r.RemoteAddr)
	client := s.ws.Add(roomID, conn, playerID)
	s.ws.Send(client, wsEnvelope("snapshot", snap))
	if playerID > 0 {
		s.markOnline(roomID, playerID, true)
	}
	go s.readWS(roomID, playerID, client)
}

func (s *Server) handleHomeWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected home remote=%s", r.RemoteAddr)
	client := s.homeWS.Add(conn)
	s.homeWS.Send(client, map[string]any{
		"rooms": s.homeSummaries(),
	})
	go s.readHomeWS(client)
}

func (s *Server) readWS(roomID string, playerID int, client *wsClient) {
	defer func() {
		s.ws.Remove(roomID, client)
		if playerID > 0 {
			s.markOnline(roomID, playerID, false)
		}
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected room_id=%s player_id=%d error=%v", roomID, playerID, err)
			return
		}
	}
}

func (s *Server) readHomeWS(client *wsClient) {
	defer s.homeWS.Remove(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			log.Printf("home ws disconnected error=%v", err)
			return
		}
	}
}

func (s *Server) markOnline(roomID string, playerID int, online bool) {
	_, err := s.store.UpdateGame(roomID, func(game *Game) error {
		player, ok := findPlayer(game, playerID)
		if !ok {
			return notFoundError("player not found")
		}
		player.IsOnline = online
		return nil
	})
	if err != nil {
		return
	}
	s.broadcastGameUpdate(roomID)
}

func wsEnvelope(kind string, payload any) map[string]any {
	return map[string]any{
		"type":    kind,
		"payload": payload,
	}
}

func (s *Server) broadcastGameUpdate(roomID string) {
	if s.ws == nil {
		return
	}
	snap, ok := s.snapshotOf(roomID)
	if !ok {
		return
	}
	s.ws.Broadcast(roomID, wsEnvelope("snapshot", snap))
	s.broadcastHomeUpdate()
}

// broadcastModerator carries the narrator lines ("X has been accused").
func (s *Server) broadcastModerator(roomID, text string) {
	if s.ws == nil {
		return
	}
	s.ws.Broadcast(roomID, wsEnvelope("moderator", map[string]any{"text": text}))
}

func (s *Server) notifyPlayer(roomID string, playerID int, text string) {
	if s.ws == nil {
		return
	}
	s.ws.SendTo(roomID, playerID, wsEnvelope("notice", map[string]any{"text": text}))
}

func (s *Server) broadcastHomeUpdate() {
	if s.homeWS == nil {
		return
	}
	s.homeWS.Broadcast(map[string]any{
		"rooms": s.homeSummaries(),
	})
}

func (s *Server) homeSummaries() []map[string]any {
	summaries := make([]map[string]any, 0)
	for _, room := range s.store.ListRoomSummaries() {
		summaries = append(summaries, map[string]any{
			"room_id":   room.ID,
			"room_code": room.RoomCode,
			"state":     room.State,
			"phase":     room.Phase,
			"round":     room.Round,
			"players":   room.Players,
		})
	}
	return summaries
}
