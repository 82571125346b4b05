// room/room.go
package room

import (
	"time"

	"github.com/wfunc/trivia/network"
	"github.com/wfunc/trivia/question"
	"github.com/wfunc/trivia/session"
	"github.com/wfunc/trivia/state"
)

// Capacity of a private room.
const PrivateCapacity = 2

// MinPlayers needed to start or keep playing a game.
const MinPlayers = 2

// Room 是游戏房间的核心结构. It is owned by the event loop and is not safe
// for concurrent use.
type Room struct {
	ID           string
	Visibility   string
	Capacity     int
	Creator      *session.Player
	Members      []*session.Player // join order
	StateMachine state.StateMachine
	Questions    []question.Question
	Round        int
	TieBreak     bool
	CreatedAt    time.Time
	StartedAt    time.Time

	mgr    *Manager
	closed bool
}

func newRoom(mgr *Manager, id, visibility string, capacity int, creator *session.Player) *Room {
	room := &Room{
		ID:         id,
		Visibility: visibility,
		Capacity:   capacity,
		Creator:    creator,
		Members:    []*session.Player{creator},
		CreatedAt:  time.Now(),
		mgr:        mgr,
	}
	// 初始化状态机，将房间自身(room)作为上下文传入
	room.StateMachine = state.NewRoundMachine(room)
	return room
}

// --- 实现 state.RoomContext 接口 ---

// GetID 返回房间ID
func (r *Room) GetID() string {
	return r.ID
}

// GetPlayers 获取房间中的所有玩家, in join order.
func (r *Room) GetPlayers() []state.Player {
	players := make([]state.Player, len(r.Members))
	for i, p := range r.Members {
		players[i] = p
	}
	return players
}

func (r *Room) WinThreshold() int {
	return r.mgr.opts.WinThreshold
}

// ChangeState 改变房间的状态机状态
func (r *Room) ChangeState(newState state.State) error {
	return r.StateMachine.ChangeState(newState)
}

// Broadcast sends a message to all players in the room.
func (r *Room) Broadcast(msg network.Message) {
	if msg.Action == network.ActionTieBreaker {
		r.TieBreak = true
	}
	r.mgr.out.BroadcastTo(r.Members, msg)
}

// Send delivers a message to one member.
func (r *Room) Send(player state.Player, msg network.Message) {
	if p, ok := r.member(player.GetID()); ok {
		r.mgr.out.SendTo(p, msg)
	}
}

func (r *Room) NextQuestion() (question.Question, bool) {
	if len(r.Questions) == 0 {
		return question.Question{}, false
	}
	q := r.Questions[0]
	r.Questions = r.Questions[1:]
	r.Round++
	r.mgr.observer.QuestionAsked()
	return q, true
}

func (r *Room) RequestQuestions() {
	r.mgr.feed.Request(r.ID)
}

func (r *Room) Finish(winner state.Player) {
	r.mgr.finish(r, winner)
}

// --- 房间核心逻辑 ---

// State returns the id of the current round state.
func (r *Room) State() string {
	return r.StateMachine.GetCurrentState().GetID()
}

// Started reports whether the game has left the waiting state.
func (r *Room) Started() bool {
	return r.State() != state.StateWaiting
}

func (r *Room) Full() bool {
	return len(r.Members) >= r.Capacity
}

// Closed reports whether the room has been torn down.
func (r *Room) Closed() bool {
	return r.closed
}

// HandleAnswer routes an answer to the current state.
func (r *Room) HandleAnswer(p *session.Player, answer string) error {
	return r.StateMachine.GetCurrentState().HandleAnswer(p, answer)
}

// QuestionsLoaded applies a finished fetch. A failed fetch aborts the game.
func (r *Room) QuestionsLoaded(batch []question.Question, err error) {
	if r.closed {
		return
	}
	if err != nil {
		r.mgr.abort(r, "Failed to fetch questions. Game cannot proceed.")
		return
	}
	r.Questions = append(r.Questions, batch...)
	r.StateMachine.GetCurrentState().OnQuestionsReady()
}

// Update 由主循环调用，驱动状态机更新
func (r *Room) Update() {
	if r.closed || r.StateMachine == nil {
		return
	}
	if currentState := r.StateMachine.GetCurrentState(); currentState != nil {
		currentState.OnUpdate()
	}
}

// Scores maps member names to scores.
func (r *Room) Scores() map[string]int {
	return state.Scores(r.GetPlayers())
}

// Names lists member names in join order.
func (r *Room) Names() []string {
	names := make([]string, len(r.Members))
	for i, p := range r.Members {
		names[i] = p.Name
	}
	return names
}

func (r *Room) member(id string) (*session.Player, bool) {
	for _, p := range r.Members {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (r *Room) removeMember(p *session.Player) bool {
	for i, m := range r.Members {
		if m == p {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return true
		}
	}
	return false
}
