package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/trivia/models"
)

// MockStore keeps saved records in memory.
type MockStore struct {
	mu     sync.Mutex
	saved  []*models.GameRecord
	fail   bool
	closed bool
}

func (m *MockStore) SaveGameRecord(ctx context.Context, rec *models.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("database unavailable")
	}
	m.saved = append(m.saved, rec)
	return nil
}

func (m *MockStore) RecentGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []models.GameRecord
	for i := len(m.saved) - 1; i >= 0 && len(records) < limit; i-- {
		records = append(records, *m.saved[i])
	}
	return records, nil
}

func (m *MockStore) Close() error {
	m.closed = true
	return nil
}

func (m *MockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func TestRecordService_SavesInBackground(t *testing.T) {
	store := &MockStore{}
	svc := NewRecordService(store, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	svc.Record(&models.GameRecord{RoomID: "r1", Winner: "ann"})
	svc.Record(&models.GameRecord{RoomID: "r2", Winner: "bob"})

	require.Eventually(t, func() bool { return store.count() == 2 }, time.Second, 5*time.Millisecond)

	recent, err := svc.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "r2", recent[0].RoomID)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, svc.Close())
	assert.True(t, store.closed)
}

func TestRecordService_DrainsOnShutdown(t *testing.T) {
	store := &MockStore{}
	svc := NewRecordService(store, 4)

	svc.Record(&models.GameRecord{RoomID: "r1"})
	svc.Record(&models.GameRecord{RoomID: "r2"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, svc.Run(ctx))
	assert.Equal(t, 2, store.count())
}

func TestRecordService_DropsWhenFull(t *testing.T) {
	svc := NewRecordService(&MockStore{}, 1)

	svc.Record(&models.GameRecord{RoomID: "r1"})
	svc.Record(&models.GameRecord{RoomID: "r2"})

	assert.Equal(t, int64(1), svc.Dropped())
}

func TestRecordService_Disabled(t *testing.T) {
	svc := NewRecordService(nil, 1)
	assert.False(t, svc.Enabled())

	svc.Record(&models.GameRecord{RoomID: "r1"})
	assert.Zero(t, svc.Dropped())

	_, err := svc.Recent(context.Background(), 5)
	assert.ErrorIs(t, err, ErrArchiveDisabled)
	assert.NoError(t, svc.Close())
}

func TestRecordService_SaveErrorIsNotFatal(t *testing.T) {
	store := &MockStore{fail: true}
	svc := NewRecordService(store, 2)
	svc.Record(&models.GameRecord{RoomID: "r1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, svc.Run(ctx))
	assert.Zero(t, store.count())
}
