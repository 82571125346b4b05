package server

import (
	"context"
	"errors"

	"github.com/wfunc/trivia/models"
	"github.com/wfunc/trivia/services"
	"github.com/wfunc/trivia/state"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Rooms snapshots every live room.
func (s *GameServer) Rooms(ctx context.Context) ([]models.RoomState, error) {
	var rooms []models.RoomState
	err := s.Do(ctx, func() {
		rooms = s.roomManager.Snapshot()
	})
	return rooms, err
}

// Stats counts connected players and rooms.
func (s *GameServer) Stats(ctx context.Context) (models.ServerStats, error) {
	var stats models.ServerStats
	err := s.Do(ctx, func() {
		stats.Players = s.sessions.Len()
		for _, p := range s.sessions.Players() {
			if p.Named() {
				stats.Named++
			}
		}
		for _, r := range s.roomManager.Snapshot() {
			stats.Rooms++
			if r.State != state.StateWaiting {
				stats.InProgress++
			}
		}
	})
	return stats, err
}

// RecentGames reads the game archive. It does not touch loop state.
func (s *GameServer) RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error) {
	games, err := s.records.Recent(ctx, limit)
	if errors.Is(err, services.ErrArchiveDisabled) {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	return games, err
}
