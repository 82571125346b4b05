// session/session.go
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/trivia/network"
)

var (
	ErrEmptyName   = errors.New("session: name is empty")
	ErrNameSet     = errors.New("session: name already set")
	ErrNameTaken   = errors.New("session: name already taken")
	ErrUnknownConn = errors.New("session: unknown connection")
)

// Player is the game-side record of a connection. It refers to its transport
// only through Conn; the event loop owns the connection itself.
type Player struct {
	ID        string
	Conn      network.ConnID
	Addr      string
	Name      string
	Score     int
	Answered  bool
	RoomID    string
	CreatedAt time.Time
}

func NewPlayer(conn network.ConnID, addr string) *Player {
	return &Player{
		ID:        uuid.New().String(),
		Conn:      conn,
		Addr:      addr,
		CreatedAt: time.Now(),
	}
}

func (p *Player) GetID() string      { return p.ID }
func (p *Player) GetName() string    { return p.Name }
func (p *Player) GetScore() int      { return p.Score }
func (p *Player) HasAnswered() bool  { return p.Answered }
func (p *Player) SetAnswered(v bool) { p.Answered = v }

// AddPoint is the only way a score changes during a game.
func (p *Player) AddPoint() {
	p.Score++
}

// Reset clears per-game state.
func (p *Player) Reset() {
	p.Score = 0
	p.Answered = false
}

// Named reports whether set_name has succeeded.
func (p *Player) Named() bool {
	return p.Name != ""
}

// InRoom reports whether the player belongs to a room.
func (p *Player) InRoom() bool {
	return p.RoomID != ""
}

// Registry maps live connections to players. It is owned by the event loop
// and is not safe for concurrent use.
type Registry struct {
	byConn map[network.ConnID]*Player
	byID   map[string]*Player
	names  map[string]*Player
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[network.ConnID]*Player),
		byID:   make(map[string]*Player),
		names:  make(map[string]*Player),
	}
}

// Add creates the player for a freshly accepted connection.
func (r *Registry) Add(conn network.ConnID, addr string) *Player {
	p := NewPlayer(conn, addr)
	r.byConn[conn] = p
	r.byID[p.ID] = p
	return p
}

func (r *Registry) Get(conn network.ConnID) (*Player, bool) {
	p, ok := r.byConn[conn]
	return p, ok
}

func (r *Registry) GetByID(id string) (*Player, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// SetName assigns the player's display name once.
func (r *Registry) SetName(conn network.ConnID, name string) (*Player, error) {
	p, ok := r.byConn[conn]
	if !ok {
		return nil, ErrUnknownConn
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return p, ErrEmptyName
	}
	if p.Named() {
		return p, ErrNameSet
	}
	if _, taken := r.names[strings.ToLower(name)]; taken {
		return p, ErrNameTaken
	}
	p.Name = name
	r.names[strings.ToLower(name)] = p
	return p, nil
}

// Remove forgets the connection and returns its player.
func (r *Registry) Remove(conn network.ConnID) (*Player, bool) {
	p, ok := r.byConn[conn]
	if !ok {
		return nil, false
	}
	delete(r.byConn, conn)
	delete(r.byID, p.ID)
	if p.Named() {
		delete(r.names, strings.ToLower(p.Name))
	}
	return p, true
}

func (r *Registry) Len() int {
	return len(r.byConn)
}

// Players returns every connected player.
func (r *Registry) Players() []*Player {
	players := make([]*Player, 0, len(r.byConn))
	for _, p := range r.byConn {
		players = append(players, p)
	}
	return players
}
