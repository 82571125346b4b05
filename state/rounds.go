package state

import (
	"fmt"

	"github.com/wfunc/trivia/network"
	"github.com/wfunc/trivia/question"
)

// AskingState holds one question open until every member has answered. A
// room whose queue ran dry stays here with no current question until the
// next batch arrives.
type AskingState struct {
	RoomStateBase
	current *question.Question
}

func NewAskingState(room RoomContext) *AskingState {
	return &AskingState{
		RoomStateBase: RoomStateBase{
			ID:   StateAsking,
			Room: room,
		},
	}
}

// Current returns the open question, if any.
func (s *AskingState) Current() (question.Question, bool) {
	if s.current == nil {
		return question.Question{}, false
	}
	return *s.current, true
}

func (s *AskingState) OnEnter() {
	for _, p := range s.Room.GetPlayers() {
		p.SetAnswered(false)
	}
	s.deliver()
}

func (s *AskingState) OnExit() {
	s.current = nil
}

func (s *AskingState) deliver() {
	q, ok := s.Room.NextQuestion()
	if !ok {
		s.Room.RequestQuestions()
		return
	}
	s.current = &q
	s.Room.Broadcast(network.Message{
		Action:   network.ActionQuestion,
		Question: q.Text,
		Options:  network.AnswerOptions,
	})
}

func (s *AskingState) OnQuestionsReady() {
	if s.current == nil {
		s.deliver()
	}
}

func (s *AskingState) HandleAnswer(player Player, answer string) error {
	if s.current == nil {
		return ErrNoActiveQuestion
	}
	if player.HasAnswered() {
		return ErrAlreadyAnswered
	}
	normalized := question.Normalize(answer)
	if !question.ValidAnswer(normalized) {
		return ErrInvalidAnswer
	}

	feedback := "Incorrect!"
	if s.current.IsCorrect(normalized) {
		player.AddPoint()
		feedback = "Correct!"
	}
	player.SetAnswered(true)
	s.Room.Send(player, network.Message{
		Action:  network.ActionAnswerFeedback,
		Message: feedback,
		Score:   network.IntPtr(player.GetScore()),
	})

	s.checkComplete()
	return nil
}

func (s *AskingState) OnMembersChanged() {
	s.checkComplete()
}

func (s *AskingState) OnUpdate() {
	s.checkComplete()
}

func (s *AskingState) checkComplete() {
	if s.current == nil || !allAnswered(s.Room.GetPlayers()) {
		return
	}
	_ = s.Room.ChangeState(NewRoundCompleteState(s.Room))
}

// RoundCompleteState publishes scores and decides how play continues.
type RoundCompleteState struct {
	RoomStateBase
}

func NewRoundCompleteState(room RoomContext) *RoundCompleteState {
	return &RoundCompleteState{
		RoomStateBase: RoomStateBase{
			ID:   StateRoundComplete,
			Room: room,
		},
	}
}

func (s *RoundCompleteState) OnEnter() {
	players := s.Room.GetPlayers()
	s.Room.Broadcast(network.Message{
		Action: network.ActionScoreUpdate,
		Scores: Scores(players),
	})

	winner, tie := DecideWinner(players, s.Room.WinThreshold())
	switch {
	case winner != nil:
		_ = s.Room.ChangeState(NewFinishedState(s.Room, winner))
	case tie:
		s.Room.Broadcast(network.Message{
			Action:  network.ActionTieBreaker,
			Message: "It's a tie! Continuing the game until one player leads by one point...",
		})
		_ = s.Room.ChangeState(NewAskingState(s.Room))
	default:
		_ = s.Room.ChangeState(NewAskingState(s.Room))
	}
}

// FinishedState announces the winner and releases the room.
type FinishedState struct {
	RoomStateBase
	Winner Player
}

func NewFinishedState(room RoomContext, winner Player) *FinishedState {
	return &FinishedState{
		RoomStateBase: RoomStateBase{
			ID:   StateFinished,
			Room: room,
		},
		Winner: winner,
	}
}

func (s *FinishedState) OnEnter() {
	text := fmt.Sprintf("Game over! The winner is %s with %d points.", s.Winner.GetName(), s.Winner.GetScore())
	s.Room.Broadcast(network.Message{Action: network.ActionGameOver, Message: text})
	s.Room.Finish(s.Winner)
}

// DecideWinner looks at members at or above threshold. A single contender,
// or a single highest score among several contenders, wins. Several
// contenders sharing the highest score is a tie.
func DecideWinner(players []Player, threshold int) (winner Player, tie bool) {
	var contenders []Player
	for _, p := range players {
		if p.GetScore() >= threshold {
			contenders = append(contenders, p)
		}
	}
	if len(contenders) == 0 {
		return nil, false
	}

	best := contenders[0]
	shared := false
	for _, p := range contenders[1:] {
		switch {
		case p.GetScore() > best.GetScore():
			best, shared = p, false
		case p.GetScore() == best.GetScore():
			shared = true
		}
	}
	if shared {
		return nil, true
	}
	return best, false
}

// Scores maps member names to scores.
func Scores(players []Player) map[string]int {
	scores := make(map[string]int, len(players))
	for _, p := range players {
		scores[p.GetName()] = p.GetScore()
	}
	return scores
}

func allAnswered(players []Player) bool {
	if len(players) == 0 {
		return false
	}
	for _, p := range players {
		if !p.HasAnswered() {
			return false
		}
	}
	return true
}
