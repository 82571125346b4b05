// services/record_service.go
package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/wfunc/trivia/logger"
	"github.com/wfunc/trivia/models"
	"github.com/wfunc/trivia/persistence"
)

var ErrArchiveDisabled = errors.New("game archive disabled")

// RecordService writes finished games to the store from its own goroutine,
// so the event loop never waits on the database.
type RecordService struct {
	store   persistence.Store
	records chan *models.GameRecord
	timeout time.Duration
	dropped atomic.Int64
}

// NewRecordService returns a service with room for buffer pending records.
// A nil store disables archiving.
func NewRecordService(store persistence.Store, buffer int) *RecordService {
	if buffer <= 0 {
		buffer = 64
	}
	return &RecordService{
		store:   store,
		records: make(chan *models.GameRecord, buffer),
		timeout: 5 * time.Second,
	}
}

// Enabled reports whether a store is configured.
func (s *RecordService) Enabled() bool {
	return s.store != nil
}

// Record queues rec without blocking. When the buffer is full the record is
// dropped.
func (s *RecordService) Record(rec *models.GameRecord) {
	if s.store == nil {
		return
	}
	select {
	case s.records <- rec:
	default:
		s.dropped.Add(1)
		logger.Log.Warnw("game record dropped, archive backlog full", "room", rec.RoomID)
	}
}

// Dropped counts records lost to a full buffer.
func (s *RecordService) Dropped() int64 {
	return s.dropped.Load()
}

// Run saves queued records until ctx is cancelled, then saves whatever is
// still buffered.
func (s *RecordService) Run(ctx context.Context) error {
	if s.store == nil {
		<-ctx.Done()
		return nil
	}
	for {
		select {
		case rec := <-s.records:
			s.save(context.Background(), rec)
		case <-ctx.Done():
			for {
				select {
				case rec := <-s.records:
					s.save(context.Background(), rec)
				default:
					return nil
				}
			}
		}
	}
}

func (s *RecordService) save(parent context.Context, rec *models.GameRecord) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if err := s.store.SaveGameRecord(ctx, rec); err != nil {
		logger.Log.Errorw("failed to save game record", "room", rec.RoomID, "error", err)
		return
	}
	logger.Log.Debugw("game record saved", "room", rec.RoomID, "winner", rec.Winner)
}

// Recent returns the newest archived games.
func (s *RecordService) Recent(ctx context.Context, limit int) ([]models.GameRecord, error) {
	if s.store == nil {
		return nil, ErrArchiveDisabled
	}
	return s.store.RecentGameRecords(ctx, limit)
}

// Close closes the store.
func (s *RecordService) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
