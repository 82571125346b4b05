// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/trivia/logger"
	"github.com/wfunc/trivia/network"
	"github.com/wfunc/trivia/session"
)

// Outbox queues a message on a connection. The server implements it.
type Outbox interface {
	Enqueue(conn network.ConnID, msg network.Message) error
}

// 广播接口
type Broadcaster interface {
	SendTo(p *session.Player, msg network.Message)
	BroadcastTo(players []*session.Player, msg network.Message)
	BroadcastToAll(msg network.Message)
}

// 基于会话的广播器
type RoomBroadcaster struct {
	outbox   Outbox
	sessions *session.Registry
}

func NewRoomBroadcaster(outbox Outbox, sessions *session.Registry) *RoomBroadcaster {
	return &RoomBroadcaster{
		outbox:   outbox,
		sessions: sessions,
	}
}

// SendTo queues msg for one player. A failed enqueue means the connection is
// already going away; its teardown takes care of the player.
func (b *RoomBroadcaster) SendTo(p *session.Player, msg network.Message) {
	if err := b.outbox.Enqueue(p.Conn, msg); err != nil {
		logger.Log.Debugw("dropping message", "player", p.ID, "action", msg.Action, "error", err)
	}
}

func (b *RoomBroadcaster) BroadcastTo(players []*session.Player, msg network.Message) {
	for _, p := range players {
		b.SendTo(p, msg)
	}
}

// BroadcastToAll sends msg to every connected player.
func (b *RoomBroadcaster) BroadcastToAll(msg network.Message) {
	b.BroadcastTo(b.sessions.Players(), msg)
}
