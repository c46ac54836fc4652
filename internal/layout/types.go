// Package layout places an ordered list of words on a square letter grid,
// validates every crossing and numbers the clues in reading order.
package layout

import "errors"

// ErrInvalidInput is returned when no usable word remains after filtering.
var ErrInvalidInput = errors.New("layout: no usable words")

// ErrConflict is returned when placed words disagree on a cell or leave the grid.
var ErrConflict = errors.New("layout: placed words conflict")

// Position is where a word starts and the direction it runs in.
type Position struct {
	X          int  `json:"x"`
	Y          int  `json:"y"`
	Horizontal bool `json:"horizontal"`
}

// step returns the unit vector along the word's axis.
func (p Position) step() (dx, dy int) {
	if p.Horizontal {
		return 1, 0
	}
	return 0, 1
}

// Cell returns the coordinates of the i-th letter of a word placed at p.
func (p Position) Cell(i int) (x, y int) {
	dx, dy := p.step()
	return p.X + dx*i, p.Y + dy*i
}

// PlacedWord is a word committed to the grid.
type PlacedWord struct {
	Word        string   `json:"word"`
	Position    Position `json:"position"`
	Number      int      `json:"number"`
	Description string   `json:"description,omitempty"`
}

// Len returns the number of grid cells the word occupies.
func (w PlacedWord) Len() int {
	return len([]rune(w.Word))
}

// Result is the output of one generation run.
type Result struct {
	Grid        [][]string   `json:"grid"`
	PlacedWords []PlacedWord `json:"placedWords"`
	Size        int          `json:"size"`

	// Dropped holds the words no search phase could place, in processing order.
	Dropped []string `json:"-"`
}

// Intersection pairs an index in the first word with an index in the
// second where both carry the same letter.
type Intersection struct {
	A int
	B int
}
