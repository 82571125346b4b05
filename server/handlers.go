package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/trivia/logger"
	"github.com/wfunc/trivia/network"
	"github.com/wfunc/trivia/room"
	"github.com/wfunc/trivia/session"
	"github.com/wfunc/trivia/state"
)

type handlerFunc func(p *session.Player, msg network.Message) error

// routesTable maps the actions that need a named player to their handlers.
func (s *GameServer) routesTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		network.ActionCreateGame: s.handleCreateGame,
		network.ActionJoinGame:   s.handleJoinGame,
		network.ActionStartGame:  s.handleStartGame,
		network.ActionAnswer:     s.handleAnswer,
		network.ActionLeaveGame:  s.handleLeaveGame,
	}
}

func (s *GameServer) dispatch(c *network.Connection, msg network.Message) {
	start := time.Now()
	defer func() {
		s.monitor.ObserveMessageLatency(time.Since(start))
	}()

	p, ok := s.sessions.Get(c.ID)
	if !ok {
		return
	}

	switch msg.Action {
	case "":
		s.reply(p, "Missing 'action' in message.")
		return
	case network.ActionSetName:
		s.monitor.IncMessagesReceived(msg.Action)
		s.handleSetName(p, msg)
		return
	case network.ActionDisconnect:
		s.monitor.IncMessagesReceived(msg.Action)
		s.teardown(c, nil)
		return
	case network.ActionGameMenu:
		s.monitor.IncMessagesReceived(msg.Action)
		s.broadcaster.SendTo(p, network.MenuMessage())
		return
	}

	handler, known := s.handlers[msg.Action]
	if !known {
		s.monitor.IncMessagesReceived("unknown")
		s.reply(p, fmt.Sprintf("Unknown action '%s'.", msg.Action))
		return
	}
	s.monitor.IncMessagesReceived(msg.Action)

	if !p.Named() {
		s.reply(p, "Please set your name first.")
		return
	}
	if err := handler(p, msg); err != nil {
		logger.Log.Debugw("request rejected", "player", p.Name, "action", msg.Action, "error", err)
		s.reply(p, clientError(err))
	}
}

func (s *GameServer) reply(p *session.Player, text string) {
	s.broadcaster.SendTo(p, network.ErrorMessage(text))
}

func (s *GameServer) handleSetName(p *session.Player, msg network.Message) {
	if _, err := s.sessions.SetName(p.Conn, msg.Name); err != nil {
		switch {
		case errors.Is(err, session.ErrEmptyName):
			s.reply(p, "Name cannot be empty.")
		case errors.Is(err, session.ErrNameSet):
			s.reply(p, "Your name is already set.")
		case errors.Is(err, session.ErrNameTaken):
			s.reply(p, "That name is already taken. Please choose another.")
		default:
			s.reply(p, clientError(err))
		}
		return
	}
	logger.Log.Infow("player named", "player", p.ID, "name", p.Name)

	menu := network.MenuMessage()
	menu.Message = fmt.Sprintf("Welcome, %s! Choose an option:", p.Name)
	s.broadcaster.SendTo(p, menu)
}

func (s *GameServer) handleCreateGame(p *session.Player, msg network.Message) error {
	_, err := s.roomManager.CreateRoom(p, msg.RoomType)
	return err
}

func (s *GameServer) handleJoinGame(p *session.Player, msg network.Message) error {
	if msg.RoomType == "" && msg.RoomID == "" {
		return errMissingJoinTarget
	}
	_, err := s.roomManager.JoinRoom(p, msg.RoomType, msg.RoomID)
	return err
}

func (s *GameServer) handleStartGame(p *session.Player, _ network.Message) error {
	return s.roomManager.StartRoom(p)
}

func (s *GameServer) handleAnswer(p *session.Player, msg network.Message) error {
	r, ok := s.roomManager.RoomOf(p)
	if !ok {
		return room.ErrNotInRoom
	}
	return r.HandleAnswer(p, msg.Answer)
}

func (s *GameServer) handleLeaveGame(p *session.Player, _ network.Message) error {
	return s.roomManager.LeaveRoom(p)
}

var errMissingJoinTarget = errors.New("server: join_game needs room_type or room_id")

// clientError turns a rejected request into the text sent to the client.
func clientError(err error) string {
	switch {
	case errors.Is(err, errMissingJoinTarget):
		return "Missing 'room_type' or 'room_id' in join_game."
	case errors.Is(err, room.ErrAlreadyInRoom):
		return "You are already in a game room."
	case errors.Is(err, room.ErrInvalidRoomType):
		return "Invalid room type. Use 'public' or 'private'."
	case errors.Is(err, room.ErrNoPublicRoom):
		return "No available public games to join. Consider creating one."
	case errors.Is(err, room.ErrRoomNotFound):
		return "Game not found. It might have ended or never existed."
	case errors.Is(err, room.ErrRoomFull):
		return "That game is full."
	case errors.Is(err, room.ErrAlreadyStarted):
		return "The game has already started."
	case errors.Is(err, room.ErrNotInRoom):
		return "You are not in a game room."
	case errors.Is(err, room.ErrNotCreator):
		return "Only the game creator can start the game."
	case errors.Is(err, room.ErrNotEnoughPlayers):
		return "Not enough players to start the game."
	case errors.Is(err, state.ErrNoActiveQuestion):
		return "There is no active question right now."
	case errors.Is(err, state.ErrAlreadyAnswered):
		return "You have already answered this question."
	case errors.Is(err, state.ErrInvalidAnswer):
		return "Invalid answer format. Please reply with 'True' or 'False'."
	}
	return "Internal server error."
}
