// state/interfaces.go
package state

import (
	"github.com/wfunc/trivia/network"
	"github.com/wfunc/trivia/question"
)

// Player is what a round needs to know about a room member.
type Player interface {
	GetID() string
	GetName() string
	GetScore() int
	AddPoint()
	HasAnswered() bool
	SetAnswered(answered bool)
}

// RoomContext is implemented by the room that owns a state machine. It keeps
// the state package free of any dependency on room.
type RoomContext interface {
	GetID() string
	// GetPlayers returns members in join order.
	GetPlayers() []Player
	WinThreshold() int
	ChangeState(newState State) error
	Broadcast(msg network.Message)
	Send(player Player, msg network.Message)
	// NextQuestion pops the head of the question queue.
	NextQuestion() (question.Question, bool)
	// RequestQuestions asks for a new batch; the room calls OnQuestionsReady
	// on the current state once it has been queued.
	RequestQuestions()
	// Finish tears the room down after a win.
	Finish(winner Player)
}
