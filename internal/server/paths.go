package server

import (
	"strconv"
	"strings"
)

func parseRoomPath(path string) (string, string, bool) {
	const prefix = "/api/rooms/"
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "", "", false
	}
	roomID := parts[0]
	if len(parts) == 1 {
		return roomID, "", true
	}
	if len(parts) == 2 {
		return roomID, parts[1], true
	}
	if len(parts) == 3 && parts[1] == "countdown" {
		return roomID, parts[1] + "/" + parts[2], true
	}
	return "", "", false
}

func parseWebsocketPath(path string) (string, bool) {
	const prefix = "/ws/rooms/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func parsePlayerRolePath(path string) (string, int, bool) {
	const prefix = "/api/rooms/"
	if !strings.HasPrefix(path, prefix) {
		return "", 0, false
	}
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 4 {
		return "", 0, false
	}
	if parts[1] != "players" || parts[3] != "role" {
		return "", 0, false
	}
	playerID, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, false
	}
	if playerID <= 0 {
		return "", 0, false
	}
	return parts[0], playerID, true
}

func parseAdminRoomPath(path string) (string, string, bool) {
	const prefix = "/api/admin/rooms/"
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
