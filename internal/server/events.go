package server

type EventPayload struct {
	RoomID     string `json:"room_id,omitempty"`
	RoomCode   string `json:"room_code,omitempty"`
	PlayerName string `json:"player,omitempty"`
	PlayerID   int    `json:"player_id,omitempty"`
	Round      int    `json:"round,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Hint       string `json:"hint,omitempty"`
	Guess      string `json:"guess,omitempty"`
	Team       string `json:"team,omitempty"`
	Executed   bool   `json:"executed,omitempty"`
	Correct    bool   `json:"correct,omitempty"`
	Count      int    `json:"count,omitempty"`
}
