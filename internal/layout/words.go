package layout

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minGridSize = 20
	areaFactor  = 2
)

// Normalize trims each word, removes inner whitespace and drops the
// entries left empty.
func Normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Join(strings.Fields(w), "")
		if w == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

// GridSize returns the side of the square grid for the given words:
// max(20, ceil(sqrt(2 × total letters))).
func GridSize(words []string) int {
	total := 0
	for _, w := range words {
		total += utf8.RuneCountInString(w)
	}
	size := int(math.Ceil(math.Sqrt(float64(areaFactor * total))))
	return max(size, minGridSize)
}

// letters returns the case-folded runes of a word.
func letters(word string) []rune {
	rs := []rune(word)
	for i, r := range rs {
		rs[i] = unicode.ToUpper(r)
	}
	return rs
}

// fold is the comparison key used for matching words across runs.
func fold(word string) string {
	return string(letters(strings.Join(strings.Fields(word), "")))
}

// FindIntersections returns every (i, j) such that a[i] equals b[j],
// ignoring case. Pairs are ordered by i, then j.
func FindIntersections(a, b string) []Intersection {
	la, lb := letters(a), letters(b)
	var out []Intersection
	for i, ra := range la {
		for j, rb := range lb {
			if ra == rb {
				out = append(out, Intersection{A: i, B: j})
			}
		}
	}
	return out
}

// CalculatePosition returns the start of a word whose wordIndex-th letter
// lands on the anchorIndex-th letter of the anchor. It reports false when
// the start would fall at a negative coordinate.
func CalculatePosition(anchor Position, anchorIndex, wordIndex int, horizontal bool) (Position, bool) {
	x, y := anchor.Cell(anchorIndex)
	if horizontal {
		x -= wordIndex
	} else {
		y -= wordIndex
	}
	if x < 0 || y < 0 {
		return Position{}, false
	}
	return Position{X: x, Y: y, Horizontal: horizontal}, true
}
