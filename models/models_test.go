package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGameRecord_Duration(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	rec := &GameRecord{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, rec.Duration())

	assert.Zero(t, (&GameRecord{FinishedAt: start}).Duration(), "never started")
	assert.Zero(t, (&GameRecord{StartedAt: start, FinishedAt: start.Add(-time.Second)}).Duration())
}

func TestNewGormGameRecord(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := &GameRecord{
		RoomID:     "ab12cd34",
		Visibility: "private",
		Winner:     "ann",
		Players: []PlayerInfo{
			{PlayerID: "1", Name: "ann", Outcome: "win", Points: 10},
			{PlayerID: "2", Name: "bob", Outcome: "lose", Points: 7},
		},
		Rounds:     17,
		TieBreak:   true,
		StartedAt:  start,
		FinishedAt: start.Add(5 * time.Minute),
	}

	row := NewGormGameRecord(rec)
	assert.Equal(t, "ab12cd34", row.RoomID)
	assert.Equal(t, "ann", row.Winner)
	assert.Equal(t, rec.Players, row.Players)
	assert.Equal(t, 17, row.Rounds)
	assert.True(t, row.TieBreak)
	assert.Equal(t, 300, row.Duration)
	assert.Equal(t, "game_records", row.TableName())
}
