package layout

import "sort"

// Cells returns the coordinates of every letter of w, in order.
func Cells(w PlacedWord) [][2]int {
	n := w.Len()
	out := make([][2]int, n)
	for i := range out {
		x, y := w.Position.Cell(i)
		out[i] = [2]int{x, y}
	}
	return out
}

// Offset returns the index of (x, y) within w, or -1 if w does not cover it.
func Offset(w PlacedWord, x, y int) int {
	p := w.Position
	var along int
	switch {
	case p.Horizontal && y == p.Y:
		along = x - p.X
	case !p.Horizontal && x == p.X:
		along = y - p.Y
	default:
		return -1
	}
	if along < 0 || along >= w.Len() {
		return -1
	}
	return along
}

// WordsAt returns every placed word covering (x, y), across before down.
// Choosing which one is active is left to the caller.
func WordsAt(placed []PlacedWord, x, y int) []PlacedWord {
	var out []PlacedWord
	for _, w := range placed {
		if Offset(w, x, y) >= 0 {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position.Horizontal && !out[j].Position.Horizontal
	})
	return out
}

// Clues splits the words into across and down lists, each ordered by number.
func Clues(placed []PlacedWord) (across, down []PlacedWord) {
	for _, w := range placed {
		if w.Position.Horizontal {
			across = append(across, w)
		} else {
			down = append(down, w)
		}
	}
	byNumber := func(list []PlacedWord) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Number < list[j].Number })
	}
	byNumber(across)
	byNumber(down)
	return across, down
}

// Regenerate lays out the edited word list from scratch and carries each
// description over from the previous words with the same text, ignoring
// case. Words without a match keep an empty description.
func Regenerate(words []string, previous []PlacedWord) (*Result, error) {
	res, err := Generate(words)
	if err != nil {
		return nil, err
	}
	descriptions := make(map[string]string, len(previous))
	for _, w := range previous {
		key := fold(w.Word)
		if _, ok := descriptions[key]; !ok && w.Description != "" {
			descriptions[key] = w.Description
		}
	}
	for i := range res.PlacedWords {
		res.PlacedWords[i].Description = descriptions[fold(res.PlacedWords[i].Word)]
	}
	return res, nil
}
