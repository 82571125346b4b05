// models/models.go
package models

import (
	"time"
)

// GameRecord 游戏记录模型, written once when a game finishes.
type GameRecord struct {
	RoomID     string       `json:"room_id"`
	Visibility string       `json:"visibility"`
	Winner     string       `json:"winner"`
	Players    []PlayerInfo `json:"players"`
	Rounds     int          `json:"rounds"`
	TieBreak   bool         `json:"tie_break"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Duration 游戏时长
func (r *GameRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PlayerInfo 玩家信息（用于游戏记录）
type PlayerInfo struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Outcome  string `json:"outcome"` // win/lose
	Points   int    `json:"points"`
}

// RoomState 房间状态模型, as exposed to admin surfaces.
type RoomState struct {
	RoomID     string         `json:"room_id"`
	Visibility string         `json:"visibility"`
	State      string         `json:"state"`
	Creator    string         `json:"creator"`
	Capacity   int            `json:"capacity"`
	Members    []string       `json:"members"`
	Scores     map[string]int `json:"scores"`
	Round      int            `json:"round"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ServerStats 服务器统计
type ServerStats struct {
	Players    int `json:"players"`
	Named      int `json:"named"`
	Rooms      int `json:"rooms"`
	InProgress int `json:"in_progress"`
}
