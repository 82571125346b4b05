package rpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/trivia/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type mockAdmin struct {
	rooms     []models.RoomState
	stats     models.ServerStats
	games     []models.GameRecord
	gamesErr  error
	lastLimit int
}

func (m *mockAdmin) Rooms(ctx context.Context) ([]models.RoomState, error) {
	return m.rooms, nil
}

func (m *mockAdmin) Stats(ctx context.Context) (models.ServerStats, error) {
	return m.stats, nil
}

func (m *mockAdmin) RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error) {
	m.lastLimit = limit
	if m.gamesErr != nil {
		return nil, m.gamesErr
	}
	return m.games, nil
}

func startAdmin(t *testing.T, admin Admin) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServerWithListener(lis, admin)
	go func() { _ = srv.Start() }()
	t.Cleanup(srv.Stop)

	client, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAdmin_ListRoomsAndStats(t *testing.T) {
	admin := &mockAdmin{
		rooms: []models.RoomState{{
			RoomID:     "ab12cd34",
			Visibility: "public",
			State:      "asking",
			Creator:    "ann",
			Capacity:   5,
			Members:    []string{"ann", "bob"},
			Scores:     map[string]int{"ann": 3, "bob": 1},
			Round:      4,
		}},
		stats: models.ServerStats{Players: 3, Named: 2, Rooms: 1, InProgress: 1},
	}
	client := startAdmin(t, admin)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rooms, err := client.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "ab12cd34", rooms[0].RoomID)
	assert.Equal(t, []string{"ann", "bob"}, rooms[0].Members)
	assert.Equal(t, map[string]int{"ann": 3, "bob": 1}, rooms[0].Scores)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin.stats, stats)
}

func TestAdmin_RecentGames(t *testing.T) {
	admin := &mockAdmin{games: []models.GameRecord{{RoomID: "r1", Winner: "ann"}}}
	client := startAdmin(t, admin)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	games, err := client.RecentGames(ctx, 0)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "ann", games[0].Winner)
	assert.Equal(t, defaultRecentGames, admin.lastLimit)

	_, err = client.RecentGames(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, maxRecentGames, admin.lastLimit)

	_, err = client.RecentGames(ctx, -1)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAdmin_ErrorCodes(t *testing.T) {
	admin := &mockAdmin{gamesErr: status.Error(codes.FailedPrecondition, "archive disabled")}
	client := startAdmin(t, admin)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.RecentGames(ctx, 5)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	admin.gamesErr = errors.New("boom")
	_, err = client.RecentGames(ctx, 5)
	assert.Equal(t, codes.Internal, status.Code(err))
}
