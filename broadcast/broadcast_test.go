package broadcast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wfunc/trivia/network"
	"github.com/wfunc/trivia/session"
)

type mockOutbox struct {
	queued map[network.ConnID][]string
	broken map[network.ConnID]bool
}

func (o *mockOutbox) Enqueue(conn network.ConnID, msg network.Message) error {
	if o.broken[conn] {
		return errors.New("closed")
	}
	o.queued[conn] = append(o.queued[conn], msg.Action)
	return nil
}

func TestRoomBroadcaster(t *testing.T) {
	outbox := &mockOutbox{
		queued: make(map[network.ConnID][]string),
		broken: map[network.ConnID]bool{2: true},
	}
	sessions := session.NewRegistry()
	p1 := sessions.Add(1, "a")
	p2 := sessions.Add(2, "b")
	p3 := sessions.Add(3, "c")

	b := NewRoomBroadcaster(outbox, sessions)

	b.SendTo(p1, network.Message{Action: network.ActionSetName})
	b.BroadcastTo([]*session.Player{p1, p2, p3}, network.Message{Action: network.ActionPlayerJoined})
	b.BroadcastToAll(network.Message{Action: network.ActionServerShutdown})

	assert.Equal(t, []string{network.ActionSetName, network.ActionPlayerJoined, network.ActionServerShutdown}, outbox.queued[1])
	assert.Empty(t, outbox.queued[2], "a broken connection does not stop the fan-out")
	assert.Equal(t, []string{network.ActionPlayerJoined, network.ActionServerShutdown}, outbox.queued[3])
}
