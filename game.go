package main

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bodul/crossgen/internal/layout"
	"github.com/bodul/crossgen/internal/storage"
)

var (
	errOutOfBounds = errors.New("position out of bounds")
	errBlockedCell = errors.New("cell is not part of any word")
)

// Player represents a connected player.
type Player struct {
	Pseudo   string    `json:"pseudo"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`
}

// GameSession is a collaborative game on a crossword. It keeps its own copy
// of the solution, so later edits to the crossword do not change a running game.
type GameSession struct {
	ID          string
	CrosswordID string
	CreatedAt   time.Time

	mu       sync.Mutex
	players  map[string]*Player
	state    [][]string // letters typed so far [row][col]
	solution [][]string
	words    []layout.PlacedWord
}

// playerColors is the palette assigned to players in order.
var playerColors = []string{
	"#2563eb", "#dc2626", "#16a34a", "#9333ea",
	"#ea580c", "#0891b2", "#c026d3", "#ca8a04",
}

// NewGameSession starts an empty game on c.
func NewGameSession(id string, c *storage.Crossword) *GameSession {
	state := make([][]string, c.Size)
	solution := make([][]string, c.Size)
	for y := range state {
		state[y] = make([]string, c.Size)
		solution[y] = make([]string, c.Size)
		copy(solution[y], c.Grid[y])
	}
	return &GameSession{
		ID:          id,
		CrosswordID: c.ID,
		CreatedAt:   time.Now(),
		players:     make(map[string]*Player),
		state:       state,
		solution:    solution,
		words:       append([]layout.PlacedWord(nil), c.PlacedWords...),
	}
}

// AddPlayer adds a player to the session and returns the player.
func (g *GameSession) AddPlayer(pseudo string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.players[pseudo]; ok {
		return p
	}

	p := &Player{
		Pseudo:   pseudo,
		Color:    playerColors[len(g.players)%len(playerColors)],
		JoinedAt: time.Now(),
	}
	g.players[pseudo] = p
	return p
}

// RemovePlayer removes a player from the session.
func (g *GameSession) RemovePlayer(pseudo string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.players, pseudo)
}

// Players returns a copy of the connected players.
func (g *GameSession) Players() map[string]Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp := make(map[string]Player, len(g.players))
	for k, p := range g.players {
		cp[k] = *p
	}
	return cp
}

// SetCell writes value at (row, col). An empty value erases the cell.
// Cells outside every word are rejected with errBlockedCell.
func (g *GameSession) SetCell(row, col int, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if row < 0 || row >= len(g.state) || col < 0 || col >= len(g.state) {
		return errOutOfBounds
	}
	if g.solution[row][col] == "" {
		return errBlockedCell
	}
	g.state[row][col] = value
	return nil
}

// GetState returns a copy of the current game state.
func (g *GameSession) GetState() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()

	cp := make([][]string, len(g.state))
	for i, row := range g.state {
		cp[i] = make([]string, len(row))
		copy(cp[i], row)
	}
	return cp
}

// WordCheck is the state of one word of the game.
type WordCheck struct {
	Number     int  `json:"number"`
	Horizontal bool `json:"horizontal"`
	X          int  `json:"x"`
	Y          int  `json:"y"`
	// Complete is set once every cell of the word holds a letter.
	Complete bool `json:"complete"`
	Correct  bool `json:"correct"`
}

// Check compares the typed letters with the solution, word by word.
// Solved is true when every word is correct.
func (g *GameSession) Check() (checks []WordCheck, solved bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	solved = len(g.words) > 0
	checks = make([]WordCheck, 0, len(g.words))
	for _, w := range g.words {
		wc := WordCheck{
			Number:     w.Number,
			Horizontal: w.Position.Horizontal,
			X:          w.Position.X,
			Y:          w.Position.Y,
			Complete:   true,
			Correct:    true,
		}
		for _, cell := range layout.Cells(w) {
			x, y := cell[0], cell[1]
			typed := g.state[y][x]
			if typed == "" {
				wc.Complete = false
			}
			if !strings.EqualFold(typed, g.solution[y][x]) {
				wc.Correct = false
			}
		}
		solved = solved && wc.Correct
		checks = append(checks, wc)
	}
	return checks, solved
}

// gameView is the JSON form of a game.
type gameView struct {
	ID          string            `json:"id"`
	CrosswordID string            `json:"crossword_id"`
	Players     map[string]Player `json:"players"`
	State       [][]string        `json:"state"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (g *GameSession) view() gameView {
	return gameView{
		ID:          g.ID,
		CrosswordID: g.CrosswordID,
		Players:     g.Players(),
		State:       g.GetState(),
		CreatedAt:   g.CreatedAt,
	}
}
