package layout

import (
	"fmt"
	"sort"
)

type point struct{ x, y int }

// Number assigns clue numbers in place. Distinct start cells are numbered
// from 1 in reading order (top to bottom, then left to right); words that
// start on the same cell share its number.
func Number(placed []PlacedWord) {
	numbers := make(map[point]int, len(placed))
	starts := make([]point, 0, len(placed))
	for _, w := range placed {
		p := point{w.Position.X, w.Position.Y}
		if _, ok := numbers[p]; ok {
			continue
		}
		numbers[p] = 0
		starts = append(starts, p)
	}
	sort.Slice(starts, func(i, j int) bool {
		if starts[i].y != starts[j].y {
			return starts[i].y < starts[j].y
		}
		return starts[i].x < starts[j].x
	})
	for i, p := range starts {
		numbers[p] = i + 1
	}
	for i := range placed {
		placed[i].Number = numbers[point{placed[i].Position.X, placed[i].Position.Y}]
	}
}

// Rebuild derives the grid from placed words alone. It returns ErrConflict
// when a word leaves the grid or two words disagree on a cell.
func Rebuild(size int, placed []PlacedWord) ([][]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: grid size %d", ErrConflict, size)
	}
	b := newBoard(size)
	for _, w := range placed {
		rs := letters(w.Word)
		end := w.Position
		end.X, end.Y = w.Position.Cell(len(rs) - 1)
		if len(rs) == 0 || !b.inBounds(w.Position.X, w.Position.Y) || !b.inBounds(end.X, end.Y) {
			return nil, fmt.Errorf("%w: %q at (%d,%d) leaves the %dx%d grid",
				ErrConflict, w.Word, w.Position.X, w.Position.Y, size, size)
		}
		for i, r := range rs {
			x, y := w.Position.Cell(i)
			if c := b.at(x, y); !c.empty() && c.letter != r {
				return nil, fmt.Errorf("%w: %q and %q at (%d,%d)",
					ErrConflict, w.Word, string(c.letter), x, y)
			}
		}
		b.write(rs, w.Position)
	}
	return b.strings(), nil
}

// Verify checks that the grid is exactly what the placed words describe.
func (r *Result) Verify() error {
	grid, err := Rebuild(r.Size, r.PlacedWords)
	if err != nil {
		return err
	}
	if len(r.Grid) != len(grid) {
		return fmt.Errorf("%w: grid has %d rows, want %d", ErrConflict, len(r.Grid), len(grid))
	}
	for y := range grid {
		if len(r.Grid[y]) != len(grid[y]) {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrConflict, y, len(r.Grid[y]), len(grid[y]))
		}
		for x := range grid[y] {
			if r.Grid[y][x] != grid[y][x] {
				return fmt.Errorf("%w: cell (%d,%d) is %q, want %q", ErrConflict, x, y, r.Grid[y][x], grid[y][x])
			}
		}
	}
	return nil
}
