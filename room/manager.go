package room

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/trivia/logger"
	"github.com/wfunc/trivia/models"
	"github.com/wfunc/trivia/network"
	"github.com/wfunc/trivia/question"
	"github.com/wfunc/trivia/session"
	"github.com/wfunc/trivia/state"
)

var (
	ErrAlreadyInRoom    = errors.New("room: player already in a room")
	ErrInvalidRoomType  = errors.New("room: invalid room type")
	ErrNoPublicRoom     = errors.New("room: no public room available")
	ErrRoomNotFound     = errors.New("room: not found")
	ErrRoomFull         = errors.New("room: full")
	ErrAlreadyStarted   = errors.New("room: game already started")
	ErrNotInRoom        = errors.New("room: player not in a room")
	ErrNotCreator       = errors.New("room: only the creator can start the game")
	ErrNotEnoughPlayers = errors.New("room: not enough players")
)

// Reasons a room is closed.
const (
	CloseEmpty    = "empty"
	CloseFinished = "finished"
	CloseAborted  = "aborted"
)

// Options configure the manager.
type Options struct {
	PublicCapacity int
	WinThreshold   int
}

// Manager 管理所有房间. Like the rooms it owns, it is driven from the event
// loop only.
type Manager struct {
	rooms    map[string]*Room
	order    []*Room // creation order, for first-fit matchmaking
	opts     Options
	out      Broadcaster
	feed     QuestionFeed
	recorder Recorder
	observer Observer
	newID    func() string
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(opts Options, out Broadcaster, feed QuestionFeed) *Manager {
	if opts.PublicCapacity < MinPlayers {
		opts.PublicCapacity = 5
	}
	if opts.WinThreshold <= 0 {
		opts.WinThreshold = 10
	}
	return &Manager{
		rooms:    make(map[string]*Room),
		opts:     opts,
		out:      out,
		feed:     feed,
		observer: nopObserver{},
		newID:    func() string { return uuid.New().String()[:8] },
	}
}

// SetRecorder sets where finished games are archived.
func (m *Manager) SetRecorder(r Recorder) {
	m.recorder = r
}

func (m *Manager) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	m.observer = o
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	room, exists := m.rooms[id]
	return room, exists
}

// RoomOf returns the room p belongs to.
func (m *Manager) RoomOf(p *session.Player) (*Room, bool) {
	if !p.InRoom() {
		return nil, false
	}
	return m.GetRoom(p.RoomID)
}

// Len returns the number of live rooms.
func (m *Manager) Len() int {
	return len(m.rooms)
}

// CreateRoom 创建一个新房间, with p as its creator and sole member.
func (m *Manager) CreateRoom(p *session.Player, visibility string) (*Room, error) {
	if p.InRoom() {
		return nil, ErrAlreadyInRoom
	}

	var capacity int
	switch visibility {
	case network.RoomTypePublic:
		capacity = m.opts.PublicCapacity
	case network.RoomTypePrivate:
		capacity = PrivateCapacity
	default:
		return nil, ErrInvalidRoomType
	}

	id := m.newID()
	for _, exists := m.rooms[id]; exists; _, exists = m.rooms[id] {
		id = m.newID()
	}

	p.Reset()
	p.RoomID = id
	room := newRoom(m, id, visibility, capacity, p)
	m.rooms[id] = room
	m.order = append(m.order, room)
	m.observer.RoomCreated(visibility)
	logger.Log.Infow("room created", "room", id, "visibility", visibility, "creator", p.Name)

	m.out.SendTo(p, network.Message{
		Action:  network.ActionGameCreated,
		RoomID:  id,
		Message: fmt.Sprintf("Game created with ID: %s. Waiting for players to join...", id),
	})
	return room, nil
}

// JoinRoom adds p to a room. An empty roomID picks the first public room
// that is waiting and not full; otherwise roomID must name a private room.
// A room that becomes full starts on its own.
func (m *Manager) JoinRoom(p *session.Player, visibility, roomID string) (*Room, error) {
	if p.InRoom() {
		return nil, ErrAlreadyInRoom
	}

	var room *Room
	switch {
	case roomID != "":
		r, exists := m.rooms[roomID]
		if !exists || r.Visibility != network.RoomTypePrivate {
			return nil, ErrRoomNotFound
		}
		if r.Full() {
			return nil, ErrRoomFull
		}
		if r.Started() {
			return nil, ErrAlreadyStarted
		}
		room = r
	case visibility == network.RoomTypePublic || visibility == "":
		room = m.firstFit()
		if room == nil {
			return nil, ErrNoPublicRoom
		}
	default:
		return nil, ErrInvalidRoomType
	}

	room.Broadcast(network.Message{Action: network.ActionPlayerJoined, Player: p.Name})
	p.Reset()
	p.RoomID = room.ID
	room.Members = append(room.Members, p)
	logger.Log.Infow("player joined room", "room", room.ID, "player", p.Name, "members", len(room.Members))

	m.out.SendTo(p, network.Message{
		Action:  network.ActionGameJoined,
		RoomID:  room.ID,
		Message: fmt.Sprintf("Joined game %s. Waiting for the game to start.", room.ID),
	})
	room.StateMachine.GetCurrentState().OnMembersChanged()

	if room.Full() && !room.Started() {
		m.start(room)
	}
	return room, nil
}

func (m *Manager) firstFit() *Room {
	for _, room := range m.order {
		if room.Visibility == network.RoomTypePublic && !room.Started() && !room.Full() {
			return room
		}
	}
	return nil
}

// StartRoom starts the game of p's room. Only the creator may start it.
func (m *Manager) StartRoom(p *session.Player) error {
	room, ok := m.RoomOf(p)
	if !ok {
		return ErrNotInRoom
	}
	if room.Creator != p {
		return ErrNotCreator
	}
	if room.Started() {
		return ErrAlreadyStarted
	}
	if len(room.Members) < MinPlayers {
		return ErrNotEnoughPlayers
	}
	m.start(room)
	return nil
}

func (m *Manager) start(room *Room) {
	room.StartedAt = time.Now()
	room.Broadcast(network.Message{
		Action:  network.ActionGameStarted,
		Message: "The game has started! Get ready for the first question.",
	})
	m.observer.GameStarted(room.Visibility)
	logger.Log.Infow("game started", "room", room.ID, "players", room.Names())
	if err := room.ChangeState(state.NewAskingState(room)); err != nil {
		logger.Log.Errorw("failed to start round", "room", room.ID, "error", err)
	}
}

// RemovePlayer takes p out of its room. It is a no-op for a roomless player.
// The last member leaving destroys the room; a started game left with too
// few players is ended.
func (m *Manager) RemovePlayer(p *session.Player) {
	room, ok := m.RoomOf(p)
	p.RoomID = ""
	p.Answered = false
	if !ok || !room.removeMember(p) {
		return
	}
	logger.Log.Infow("player left room", "room", room.ID, "player", p.Name, "members", len(room.Members))

	if len(room.Members) == 0 {
		m.destroy(room, CloseEmpty)
		return
	}

	room.Broadcast(network.Message{Action: network.ActionPlayerLeft, Player: p.Name})
	if room.Creator == p {
		room.Creator = room.Members[0]
		room.Broadcast(network.Message{Action: network.ActionNewCreator, Player: room.Creator.Name})
	}

	if room.Started() && len(room.Members) < MinPlayers {
		m.abort(room, "Not enough players to continue the game. Game ended.")
		return
	}
	room.StateMachine.GetCurrentState().OnMembersChanged()
}

// LeaveRoom removes p from its room and sends it back to the menu.
func (m *Manager) LeaveRoom(p *session.Player) error {
	if _, ok := m.RoomOf(p); !ok {
		return ErrNotInRoom
	}
	m.RemovePlayer(p)
	m.out.SendTo(p, network.MenuMessage())
	return nil
}

// QuestionsLoaded hands a fetch result to its room, if it still exists.
func (m *Manager) QuestionsLoaded(roomID string, batch []question.Question, err error) {
	room, ok := m.rooms[roomID]
	if !ok {
		return
	}
	room.QuestionsLoaded(batch, err)
}

// Update drives every room once.
func (m *Manager) Update() {
	for _, room := range append([]*Room(nil), m.order...) {
		room.Update()
	}
}

// Snapshot describes every live room in creation order.
func (m *Manager) Snapshot() []models.RoomState {
	rooms := make([]models.RoomState, 0, len(m.order))
	for _, room := range m.order {
		rooms = append(rooms, models.RoomState{
			RoomID:     room.ID,
			Visibility: room.Visibility,
			State:      room.State(),
			Creator:    room.Creator.Name,
			Capacity:   room.Capacity,
			Members:    room.Names(),
			Scores:     room.Scores(),
			Round:      room.Round,
			CreatedAt:  room.CreatedAt,
		})
	}
	return rooms
}

func (m *Manager) finish(room *Room, winner state.Player) {
	if room.closed {
		return
	}
	if m.recorder != nil {
		m.recorder.Record(gameRecord(room, winner))
	}
	m.release(room)
	m.destroy(room, CloseFinished)
}

// abort ends a game that cannot go on.
func (m *Manager) abort(room *Room, reason string) {
	if room.closed {
		return
	}
	logger.Log.Warnw("game aborted", "room", room.ID, "reason", reason)
	room.Broadcast(network.ErrorMessage(reason))
	m.release(room)
	m.destroy(room, CloseAborted)
}

// release sends every member back to the menu.
func (m *Manager) release(room *Room) {
	members := room.Members
	room.Members = nil
	for _, p := range members {
		p.RoomID = ""
		p.Answered = false
		m.out.SendTo(p, network.MenuMessage())
	}
}

// destroy 从管理器中移除并关闭一个房间
func (m *Manager) destroy(room *Room, reason string) {
	room.closed = true
	delete(m.rooms, room.ID)
	for i, r := range m.order {
		if r == room {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.feed.Cancel(room.ID)
	m.observer.RoomClosed(reason, time.Since(room.CreatedAt))
	logger.Log.Infow("room closed", "room", room.ID, "reason", reason, "rounds", room.Round)
}

func gameRecord(room *Room, winner state.Player) *models.GameRecord {
	rec := &models.GameRecord{
		RoomID:     room.ID,
		Visibility: room.Visibility,
		Winner:     winner.GetName(),
		Rounds:     room.Round,
		TieBreak:   room.TieBreak,
		StartedAt:  room.StartedAt,
		FinishedAt: time.Now(),
	}
	for _, p := range room.Members {
		outcome := "lose"
		if p.ID == winner.GetID() {
			outcome = "win"
		}
		rec.Players = append(rec.Players, models.PlayerInfo{
			PlayerID: p.ID,
			Name:     p.Name,
			Outcome:  outcome,
			Points:   p.Score,
		})
	}
	return rec
}
