package question

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/trivia/logger"
	"github.com/wfunc/trivia/timer"
)

// Result is a completed fetch for one room.
type Result struct {
	RoomID    string
	Questions []Question
	Err       error
	Attempt   int
}

// FeedOptions tune batch size and retry policy.
type FeedOptions struct {
	Batch   int
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// Feed runs fetches off the event loop and hands the results back through
// Results. Request, Handle and Cancel must be called from the loop goroutine;
// retries are scheduled on the loop's timer queue.
type Feed struct {
	ctx      context.Context
	source   Source
	opts     FeedOptions
	timers   *timer.Queue
	results  chan Result
	inflight map[string]int
}

func NewFeed(ctx context.Context, source Source, timers *timer.Queue, opts FeedOptions) *Feed {
	if opts.Batch <= 0 {
		opts.Batch = 50
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Feed{
		ctx:      ctx,
		source:   source,
		opts:     opts,
		timers:   timers,
		results:  make(chan Result, 16),
		inflight: make(map[string]int),
	}
}

// Results delivers completed fetches to the loop.
func (f *Feed) Results() <-chan Result {
	return f.results
}

// Request starts a fetch for roomID unless one is already running.
func (f *Feed) Request(roomID string) {
	if _, busy := f.inflight[roomID]; busy {
		return
	}
	f.fetch(roomID, 0)
}

// Pending reports whether a fetch or retry is outstanding for roomID.
func (f *Feed) Pending(roomID string) bool {
	_, busy := f.inflight[roomID]
	return busy
}

// Cancel forgets roomID; a late result for it is dropped by Handle.
func (f *Feed) Cancel(roomID string) {
	delete(f.inflight, roomID)
}

func (f *Feed) fetch(roomID string, attempt int) {
	f.inflight[roomID] = attempt
	go func() {
		ctx, cancel := context.WithTimeout(f.ctx, f.opts.Timeout)
		defer cancel()

		questions, err := f.source.Fetch(ctx, f.opts.Batch)
		if err == nil && len(questions) == 0 {
			err = ErrNoQuestions
		}
		select {
		case f.results <- Result{RoomID: roomID, Questions: questions, Err: err, Attempt: attempt}:
		case <-f.ctx.Done():
		}
	}()
}

// Handle processes a result on the loop. It returns true when res is final
// and should be applied to the room; a failed attempt with retries left is
// rescheduled instead.
func (f *Feed) Handle(res Result) bool {
	attempt, ok := f.inflight[res.RoomID]
	if !ok || attempt != res.Attempt {
		return false
	}
	if res.Err != nil && res.Attempt < f.opts.Retries && !errors.Is(res.Err, context.Canceled) {
		delay := f.opts.Backoff << res.Attempt
		logger.Log.Warnw("question fetch failed, retrying",
			"room", res.RoomID, "attempt", res.Attempt+1, "delay", delay, "error", res.Err)
		next := res.Attempt + 1
		f.inflight[res.RoomID] = next
		f.timers.AddTimer(delay, 0, func() {
			if current, ok := f.inflight[res.RoomID]; ok && current == next {
				f.fetch(res.RoomID, next)
			}
		})
		return false
	}
	delete(f.inflight, res.RoomID)
	return true
}
