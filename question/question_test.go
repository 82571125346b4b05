package question

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/trivia/timer"
)

func TestQuestion_IsCorrect(t *testing.T) {
	q := Question{Text: "Is water wet?", CorrectAnswer: "True"}

	assert.True(t, q.IsCorrect("TRUE"))
	assert.True(t, q.IsCorrect(" true "))
	assert.False(t, q.IsCorrect("false"))
	assert.False(t, q.IsCorrect("yes"))
}

func TestValidAnswer(t *testing.T) {
	for _, in := range []string{"true", "false"} {
		assert.True(t, ValidAnswer(in))
	}
	for _, in := range []string{"", "TRUE", "t", "maybe"} {
		assert.False(t, ValidAnswer(in), in)
	}
	assert.True(t, ValidAnswer(Normalize(" FaLsE\n")))
}

func TestStatic_Fetch(t *testing.T) {
	s := Static{{Text: "a", CorrectAnswer: "True"}, {Text: "b", CorrectAnswer: "False"}}

	batch, err := s.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []Question{{Text: "a", CorrectAnswer: "True"}}, batch)

	batch[0].Text = "mutated"
	assert.Equal(t, "a", s[0].Text, "batches are copies")

	batch, err = s.Fetch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	_, err = Static{}.Fetch(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestOpenTDB_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "boolean", r.URL.Query().Get("type"))
		assert.Equal(t, "2", r.URL.Query().Get("amount"))
		_, _ = w.Write([]byte(`{"response_code":0,"results":[
			{"question":"&quot;HTML&quot; stands for HyperText Markup Language.","correct_answer":"True"},
			{"question":"The Moon is a planet.","correct_answer":"False"}]}`))
	}))
	defer srv.Close()

	batch, err := NewOpenTDB(srv.URL, time.Second).Fetch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, `"HTML" stands for HyperText Markup Language.`, batch[0].Text)
	assert.Equal(t, "False", batch[1].CorrectAnswer)
}

func TestOpenTDB_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "api response code", status: http.StatusOK, body: `{"response_code":1,"results":[]}`},
		{name: "empty batch", status: http.StatusOK, body: `{"response_code":0,"results":[]}`, wantErr: ErrNoQuestions},
		{name: "garbage", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenTDB(srv.URL, time.Second).Fetch(context.Background(), 5)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"question":"one","correct_answer":"True"},
		{"question":"two","correct_answer":"False"},
		{"question":"three","correct_answer":"True"}]`), 0o600))

	src, err := LoadFile(path)
	require.NoError(t, err)

	batch, err := src.Fetch(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o600))
	_, err = LoadFile(empty)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

// flakySource fails the first failures calls.
type flakySource struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakySource) Fetch(ctx context.Context, amount int) ([]Question, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, errors.New("upstream unavailable")
	}
	return []Question{{Text: "q", CorrectAnswer: "True"}}, nil
}

func receive(t *testing.T, feed *Feed) Result {
	t.Helper()
	select {
	case res := <-feed.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch result")
		return Result{}
	}
}

func TestFeed_Success(t *testing.T) {
	feed := NewFeed(context.Background(), &flakySource{}, timer.NewQueue(), FeedOptions{Batch: 5})

	feed.Request("room1")
	feed.Request("room1")
	assert.True(t, feed.Pending("room1"))

	res := receive(t, feed)
	require.True(t, feed.Handle(res))
	assert.NoError(t, res.Err)
	assert.Equal(t, "room1", res.RoomID)
	assert.Len(t, res.Questions, 1)
	assert.False(t, feed.Pending("room1"))
}

func TestFeed_RetriesThenSucceeds(t *testing.T) {
	timers := timer.NewQueue()
	src := &flakySource{failures: 2}
	feed := NewFeed(context.Background(), src, timers, FeedOptions{Retries: 2})

	feed.Request("room1")
	for i := 0; i < 2; i++ {
		res := receive(t, feed)
		require.Error(t, res.Err)
		assert.False(t, feed.Handle(res), "attempt %d should be retried", i)
		timers.RunDue(time.Now())
	}

	res := receive(t, feed)
	require.True(t, feed.Handle(res))
	assert.NoError(t, res.Err)
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestFeed_RetriesExhausted(t *testing.T) {
	timers := timer.NewQueue()
	feed := NewFeed(context.Background(), &flakySource{failures: 100}, timers, FeedOptions{Retries: 1})

	feed.Request("room1")
	res := receive(t, feed)
	assert.False(t, feed.Handle(res))
	timers.RunDue(time.Now())

	res = receive(t, feed)
	assert.True(t, feed.Handle(res))
	assert.Error(t, res.Err)
}

func TestFeed_CancelDropsResult(t *testing.T) {
	feed := NewFeed(context.Background(), &flakySource{}, timer.NewQueue(), FeedOptions{})

	feed.Request("room1")
	feed.Cancel("room1")

	res := receive(t, feed)
	assert.False(t, feed.Handle(res))
}
