package engine

import (
	"fmt"
	"sort"
)

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// EncodeTile packs a position as x*10+y for the wire
func EncodeTile(p Position) int {
	return p.X*10 + p.Y
}

// DecodeTile is the inverse of EncodeTile
func DecodeTile(tile int) (Position, error) {
	if tile < 0 || tile >= MaxBoardSize*MaxBoardSize {
		return Position{}, fmt.Errorf("tile %d outside the %dx%d grid", tile, MaxBoardSize, MaxBoardSize)
	}
	return Position{X: tile / 10, Y: tile % 10}, nil
}

// EncodeTiles encodes a slice of positions, preserving order
func EncodeTiles(ps []Position) []int {
	out := make([]int, 0, len(ps))
	for _, p := range ps {
		out = append(out, EncodeTile(p))
	}
	return out
}

// neighbors returns the four orthogonal neighbours of p
func neighbors(p Position) []Position {
	return []Position{{p.X, p.Y - 1}, {p.X + 1, p.Y}, {p.X, p.Y + 1}, {p.X - 1, p.Y}}
}

// ring returns every on-board position at exactly distance d from p
func (b *Battle) ring(p Position, d int) []Position {
	var out []Position
	for dx := -d; dx <= d; dx++ {
		dy := d - abs(dx)
		for _, y := range uniqueInts(p.Y-dy, p.Y+dy) {
			q := Position{p.X + dx, y}
			if _, ok := b.board.TerrainAt(q); ok {
				out = append(out, q)
			}
		}
	}
	return out
}

type positionSet map[Position]bool

func (s positionSet) sorted() []Position {
	out := make([]Position, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sortPositions(out)
	return out
}

func sortPositions(ps []Position) {
	sort.Slice(ps, func(i, j int) bool {
		return EncodeTile(ps[i]) < EncodeTile(ps[j])
	})
}

func uniqueInts(a, b int) []int {
	if a == b {
		return []int{a}
	}
	return []int{a, b}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func percent(v, pct int) int {
	return v * pct / 100
}
