package state

import (
	"errors"
)

// State ids.
const (
	StateWaiting       = "waiting"
	StateAsking        = "asking"
	StateRoundComplete = "round_complete"
	StateFinished      = "finished"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(fromID, toID string, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	// OnUpdate runs on every event loop tick.
	OnUpdate()
	GetID() string
	HandleAnswer(player Player, answer string) error
	// OnMembersChanged runs after a member joined or left.
	OnMembersChanged()
	// OnQuestionsReady runs after a requested batch was queued.
	OnQuestionsReady()
}

var (
	// ErrTransitionNotAllowed is returned when a state transition is not allowed.
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
	ErrNoActiveQuestion     = errors.New("no active question")
	ErrAlreadyAnswered      = errors.New("already answered this round")
	ErrInvalidAnswer        = errors.New("invalid answer format")
)

// BaseStateMachine switches between states. Once any transition is
// registered, only registered transitions are allowed. A state may change
// state again from its OnEnter.
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	if len(sm.transitions) > 0 {
		condition, exists := sm.transitions[currentID][newID]
		if !exists {
			return ErrTransitionNotAllowed
		}
		if condition != nil && !condition() {
			return ErrTransitionNotAllowed
		}
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(fromID, toID string, condition func() bool) error {
	if fromID == "" || toID == "" {
		return errors.New("transition needs both state ids")
	}
	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}
	sm.transitions[fromID][toID] = condition
	return nil
}

// 房间状态基础结构
type RoomStateBase struct {
	ID   string
	Room RoomContext
}

func (s *RoomStateBase) GetID() string {
	return s.ID
}

func (s *RoomStateBase) OnEnter() {}

func (s *RoomStateBase) OnExit() {}

func (s *RoomStateBase) OnUpdate() {}

func (s *RoomStateBase) OnMembersChanged() {}

func (s *RoomStateBase) OnQuestionsReady() {}

func (s *RoomStateBase) HandleAnswer(player Player, answer string) error {
	return ErrNoActiveQuestion
}

// NewRoundMachine builds the trivia round machine for room, starting in
// waiting.
func NewRoundMachine(room RoomContext) *BaseStateMachine {
	sm := NewBaseStateMachine(NewWaitingState(room))
	_ = sm.AddTransition(StateWaiting, StateAsking, nil)
	_ = sm.AddTransition(StateAsking, StateRoundComplete, func() bool { return allAnswered(room.GetPlayers()) })
	_ = sm.AddTransition(StateRoundComplete, StateAsking, nil)
	_ = sm.AddTransition(StateRoundComplete, StateFinished, nil)
	return sm
}

// NewWaitingState creates a new waiting state.
func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{
		RoomStateBase: RoomStateBase{
			ID:   StateWaiting,
			Room: room,
		},
	}
}

// 等待状态: players gather until the creator starts or the room fills up.
type WaitingState struct {
	RoomStateBase
}
