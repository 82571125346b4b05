// Package question supplies boolean trivia questions to rooms.
package question

import (
	"context"
	"errors"
	"strings"
)

// ErrNoQuestions is returned when a source answers with an empty batch.
var ErrNoQuestions = errors.New("question: source returned no questions")

// Question is one true/false item. CorrectAnswer is never sent to clients.
type Question struct {
	Text          string `json:"question"`
	CorrectAnswer string `json:"correct_answer"`
}

// IsCorrect compares answer with the correct answer, ignoring case and
// surrounding space.
func (q Question) IsCorrect(answer string) bool {
	return Normalize(answer) == Normalize(q.CorrectAnswer)
}

// Normalize trims and lowercases an answer.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidAnswer reports whether a normalized answer is "true" or "false".
func ValidAnswer(normalized string) bool {
	return normalized == "true" || normalized == "false"
}

// Source fetches a batch of up to amount questions.
type Source interface {
	Fetch(ctx context.Context, amount int) ([]Question, error)
}

// Static serves a fixed list, in order.
type Static []Question

func (s Static) Fetch(ctx context.Context, amount int) ([]Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, ErrNoQuestions
	}
	if amount <= 0 || amount > len(s) {
		amount = len(s)
	}
	out := make([]Question, amount)
	copy(out, s[:amount])
	return out, nil
}
