package question

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
)

// FileSource serves questions from a JSON array of
// {"question": ..., "correct_answer": ...} objects, shuffled per batch.
type FileSource struct {
	questions Static
	shuffle   func(n int, swap func(i, j int))
}

func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("question file %s: %w", path, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("question file %s: %w", path, ErrNoQuestions)
	}
	return &FileSource{questions: questions, shuffle: rand.Shuffle}, nil
}

func (f *FileSource) Fetch(ctx context.Context, amount int) ([]Question, error) {
	batch, err := f.questions.Fetch(ctx, len(f.questions))
	if err != nil {
		return nil, err
	}
	f.shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
	if amount > 0 && amount < len(batch) {
		batch = batch[:amount]
	}
	return batch, nil
}
