package room

import (
	"time"

	"github.com/wfunc/trivia/models"
	"github.com/wfunc/trivia/network"
	"github.com/wfunc/trivia/session"
)

// Broadcaster defines the interface for sending messages to room members.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	SendTo(p *session.Player, msg network.Message)
	BroadcastTo(players []*session.Player, msg network.Message)
}

// QuestionFeed fetches question batches off the event loop. Results come back
// through Manager.QuestionsLoaded.
type QuestionFeed interface {
	Request(roomID string)
	Cancel(roomID string)
}

// Recorder receives the archive record of every finished game.
type Recorder interface {
	Record(rec *models.GameRecord)
}

// Observer is notified of room lifecycle events, for metrics.
type Observer interface {
	RoomCreated(visibility string)
	RoomClosed(reason string, age time.Duration)
	GameStarted(visibility string)
	QuestionAsked()
}

type nopObserver struct{}

func (nopObserver) RoomCreated(string)               {}
func (nopObserver) RoomClosed(string, time.Duration) {}
func (nopObserver) GameStarted(string)               {}
func (nopObserver) QuestionAsked()                   {}
