package layout

// cell is one square of the board. across and down record which
// orientations already run through it.
type cell struct {
	letter rune
	across bool
	down   bool
}

func (c cell) empty() bool { return c.letter == 0 }

func (c cell) runs(horizontal bool) bool {
	if horizontal {
		return c.across
	}
	return c.down
}

// board is the arena owned by a single generation run.
type board struct {
	size  int
	cells []cell
}

func newBoard(size int) *board {
	return &board{size: size, cells: make([]cell, size*size)}
}

func (b *board) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.size && y < b.size
}

func (b *board) at(x, y int) cell {
	return b.cells[y*b.size+x]
}

// occupied reports whether (x, y) is on the board and holds a letter.
func (b *board) occupied(x, y int) bool {
	return b.inBounds(x, y) && !b.at(x, y).empty()
}

// canPlace checks bounds, letter consistency and spacing, in that order.
// A cell already holding a letter is a valid crossing only when the word
// already there runs the other way; every other cell must have empty
// neighbours across the word's axis, and the cells just before the start
// and just after the end must be empty. A placement must add at least one
// new letter.
func (b *board) canPlace(word []rune, p Position) bool {
	n := len(word)
	if n == 0 {
		return false
	}
	dx, dy := p.step()
	endX, endY := p.Cell(n - 1)
	if !b.inBounds(p.X, p.Y) || !b.inBounds(endX, endY) {
		return false
	}

	for i, r := range word {
		c := b.at(p.Cell(i))
		if !c.empty() && c.letter != r {
			return false
		}
	}

	if b.occupied(p.X-dx, p.Y-dy) || b.occupied(endX+dx, endY+dy) {
		return false
	}
	fresh := 0
	for i := range word {
		x, y := p.Cell(i)
		c := b.at(x, y)
		if !c.empty() {
			if c.runs(p.Horizontal) {
				return false
			}
			continue
		}
		fresh++
		// neighbours across the axis: (dy, dx) is the perpendicular step
		if b.occupied(x+dy, y+dx) || b.occupied(x-dy, y-dx) {
			return false
		}
	}
	return fresh > 0
}

// crossings counts the cells where the word reuses a letter already on the board.
func (b *board) crossings(word []rune, p Position) int {
	n := 0
	for i, r := range word {
		c := b.at(p.Cell(i))
		if !c.empty() && c.letter == r {
			n++
		}
	}
	return n
}

// write commits the word. Callers validate with canPlace first.
func (b *board) write(word []rune, p Position) {
	for i, r := range word {
		x, y := p.Cell(i)
		c := &b.cells[y*b.size+x]
		c.letter = r
		if p.Horizontal {
			c.across = true
		} else {
			c.down = true
		}
	}
}

// strings renders the board; empty cells are "".
func (b *board) strings() [][]string {
	grid := make([][]string, b.size)
	for y := range grid {
		row := make([]string, b.size)
		for x := range row {
			if c := b.at(x, y); !c.empty() {
				row[x] = string(c.letter)
			}
		}
		grid[y] = row
	}
	return grid
}
