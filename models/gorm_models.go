// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	RoomID     string       `gorm:"index;not null"`
	Visibility string       `gorm:"not null"`
	Winner     string       `gorm:"index"`
	Players    []PlayerInfo `gorm:"serializer:json;type:jsonb;not null"`
	Rounds     int          `gorm:"default:0"`
	TieBreak   bool         `gorm:"default:false"`
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   int `gorm:"default:0"` // 游戏时长(秒)
}

func (GormGameRecord) TableName() string {
	return "game_records"
}

// NewGormGameRecord converts an archive record into its table row.
func NewGormGameRecord(rec *GameRecord) *GormGameRecord {
	return &GormGameRecord{
		RoomID:     rec.RoomID,
		Visibility: rec.Visibility,
		Winner:     rec.Winner,
		Players:    rec.Players,
		Rounds:     rec.Rounds,
		TieBreak:   rec.TieBreak,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		Duration:   int(rec.Duration().Seconds()),
	}
}
