package network

// Actions carried in the "action" field of every Message.
const (
	ActionSetName        = "set_name"
	ActionGameMenu       = "game_menu"
	ActionCreateGame     = "create_game"
	ActionJoinGame       = "join_game"
	ActionLeaveGame      = "leave_game"
	ActionGameCreated    = "game_created"
	ActionGameJoined     = "game_joined"
	ActionPlayerJoined   = "player_joined"
	ActionPlayerLeft     = "player_left"
	ActionNewCreator     = "new_creator"
	ActionStartGame      = "start_game"
	ActionGameStarted    = "game_started"
	ActionQuestion       = "question"
	ActionAnswer         = "answer"
	ActionAnswerFeedback = "answer_feedback"
	ActionScoreUpdate    = "score_update"
	ActionTieBreaker     = "tie_breaker"
	ActionGameOver       = "game_over"
	ActionError          = "error"
	ActionDisconnect     = "disconnect"
	ActionServerShutdown = "server_shutdown"
)

// Room visibilities accepted in room_type.
const (
	RoomTypePublic  = "public"
	RoomTypePrivate = "private"
)

// MenuOptions is the menu sent with every game_menu message.
var MenuOptions = []string{
	"1. Join a public game",
	"2. Create a public game",
	"3. Create a private game",
	"4. Join a private game",
	"5. Exit",
}

// AnswerOptions accompany every question.
var AnswerOptions = []string{"True", "False"}

// Message is the JSON envelope exchanged in both directions. Only the fields
// relevant to Action are set.
type Message struct {
	Action   string         `json:"action"`
	Message  string         `json:"message,omitempty"`
	Name     string         `json:"name,omitempty"`
	RoomType string         `json:"room_type,omitempty"`
	RoomID   string         `json:"room_id,omitempty"`
	Player   string         `json:"player,omitempty"`
	Question string         `json:"question,omitempty"`
	Options  []string       `json:"options,omitempty"`
	Answer   string         `json:"answer,omitempty"`
	Score    *int           `json:"score,omitempty"`
	Scores   map[string]int `json:"scores,omitempty"`
}

// ErrorMessage builds an error message for the client.
func ErrorMessage(text string) Message {
	return Message{Action: ActionError, Message: text}
}

// MenuMessage builds the game menu.
func MenuMessage() Message {
	return Message{Action: ActionGameMenu, Options: MenuOptions}
}

// IntPtr is a helper for optional numeric fields.
func IntPtr(v int) *int {
	return &v
}
