package layout

import (
	"sort"
)

// Generate lays the words out on a fresh grid.
//
// Words are sorted longest first (stable, so equal lengths keep input
// order). The first one is written horizontally at the centre; every other
// word is tried against all placed anchors through their shared letters,
// then beside an anchor, then on rings around the centre. Words no phase can
// place are left out of PlacedWords and reported in Dropped. The output is
// fully determined by the input list.
func Generate(words []string) (*Result, error) {
	words = Normalize(words)
	if len(words) == 0 {
		return nil, ErrInvalidInput
	}

	sorted := make([]string, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len([]rune(sorted[i])) > len([]rune(sorted[j]))
	})

	size := GridSize(words)
	g := &generator{board: newBoard(size)}

	for _, w := range sorted {
		rs := letters(w)
		if len(rs) > size {
			g.dropped = append(g.dropped, w)
			continue
		}
		if len(g.placed) == 0 {
			g.seed(w, rs)
			continue
		}
		pos, ok := g.find(rs)
		if !ok {
			g.dropped = append(g.dropped, w)
			continue
		}
		g.commit(w, rs, pos)
	}

	Number(g.placed)
	return &Result{
		Grid:        g.board.strings(),
		PlacedWords: g.placed,
		Size:        size,
		Dropped:     g.dropped,
	}, nil
}

// generator carries the state of one run.
type generator struct {
	board   *board
	placed  []PlacedWord
	dropped []string

	// preferHorizontal flips every time a word falls back past the
	// intersection pass.
	preferHorizontal bool
}

func (g *generator) seed(word string, rs []rune) {
	size := g.board.size
	pos := Position{X: (size - len(rs)) / 2, Y: size / 2, Horizontal: true}
	g.commit(word, rs, pos)
}

func (g *generator) commit(word string, rs []rune, pos Position) {
	g.board.write(rs, pos)
	g.placed = append(g.placed, PlacedWord{Word: word, Position: pos})
}

func (g *generator) find(rs []rune) (Position, bool) {
	if pos, ok := g.bestCrossing(rs); ok {
		return pos, true
	}
	g.preferHorizontal = !g.preferHorizontal
	if pos, ok := g.besideAnchor(rs); ok {
		return pos, true
	}
	return g.aroundCentre(rs)
}

// bestCrossing tries every shared letter with every placed word and keeps
// the valid candidate with the most crossings. The first candidate seen
// wins ties.
func (g *generator) bestCrossing(rs []rune) (Position, bool) {
	word := string(rs)
	var (
		best      Position
		bestScore = -1
	)
	for _, anchor := range g.placed {
		horizontal := !anchor.Position.Horizontal
		for _, in := range FindIntersections(word, anchor.Word) {
			pos, ok := CalculatePosition(anchor.Position, in.B, in.A, horizontal)
			if !ok || !g.board.canPlace(rs, pos) {
				continue
			}
			if score := g.board.crossings(rs, pos); score > bestScore {
				best, bestScore = pos, score
			}
		}
	}
	return best, bestScore >= 0
}

// besideAnchor tries positions one blank line away from each placed word,
// in the preferred orientation first and then the other one.
func (g *generator) besideAnchor(rs []rune) (Position, bool) {
	for _, horizontal := range []bool{g.preferHorizontal, !g.preferHorizontal} {
		for _, anchor := range g.placed {
			for _, pos := range adjacentPositions(anchor, len(rs), horizontal) {
				if g.board.canPlace(rs, pos) {
					return pos, true
				}
			}
		}
	}
	return Position{}, false
}

// adjacentPositions lists the starts next to the anchor for a word of
// length n running in the given orientation. Perpendicular words sit
// beyond the anchor's first letter, parallel ones run alongside it.
func adjacentPositions(anchor PlacedWord, n int, horizontal bool) []Position {
	p := anchor.Position
	if horizontal == p.Horizontal {
		if horizontal {
			return []Position{
				{X: p.X, Y: p.Y - 2, Horizontal: true},
				{X: p.X, Y: p.Y + 2, Horizontal: true},
			}
		}
		return []Position{
			{X: p.X - 2, Y: p.Y, Horizontal: false},
			{X: p.X + 2, Y: p.Y, Horizontal: false},
		}
	}
	if p.Horizontal {
		return []Position{
			{X: p.X, Y: p.Y - n - 1, Horizontal: false},
			{X: p.X, Y: p.Y + 2, Horizontal: false},
		}
	}
	return []Position{
		{X: p.X - n - 1, Y: p.Y, Horizontal: true},
		{X: p.X + 2, Y: p.Y, Horizontal: true},
	}
}

// aroundCentre scans square rings of growing radius around the centre,
// row by row within a ring, preferred orientation first.
func (g *generator) aroundCentre(rs []rune) (Position, bool) {
	size := g.board.size
	c := size / 2
	for d := 0; d <= c; d++ {
		for y := c - d; y <= c+d; y++ {
			for x := c - d; x <= c+d; x++ {
				if max(abs(x-c), abs(y-c)) != d {
					continue
				}
				for _, horizontal := range []bool{g.preferHorizontal, !g.preferHorizontal} {
					pos := Position{X: x, Y: y, Horizontal: horizontal}
					if g.board.canPlace(rs, pos) {
						return pos, true
					}
				}
			}
		}
	}
	return Position{}, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
