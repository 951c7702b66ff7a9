package engine

// MoveValue is the perfect-play result of marking Cell: 1 win, 0 draw, -1 loss
type MoveValue struct {
	Cell  int
	Value int
}

// OtherMark returns the mark playing against m
func OtherMark(m Mark) Mark {
	if m == Cross {
		return Circle
	}
	return Cross
}

// Evaluate returns the minimax value of each free cell for toMove, in cell order
func Evaluate(b Board, toMove Mark) []MoveValue {
	memo := map[Board]int{}
	var out []MoveValue
	for _, idx := range FreeCells(b) {
		b[idx] = toMove
		out = append(out, MoveValue{Cell: idx, Value: -negamax(b, OtherMark(toMove), memo)})
		b[idx] = Empty
	}
	return out
}

// BestMove returns the lowest cell with the best value for toMove. ok is false
// when the game on b is already over.
func BestMove(b Board, toMove Mark) (cell int, ok bool) {
	if Winner(b) != Empty || IsFull(b) {
		return 0, false
	}
	best := MoveValue{Value: -2}
	for _, mv := range Evaluate(b, toMove) {
		if mv.Value > best.Value {
			best = mv
		}
	}
	return best.Cell, true
}

// negamax scores b for toMove. A finished board is always lost by the side
// to move, since only the previous move can have completed a line.
func negamax(b Board, toMove Mark, memo map[Board]int) int {
	if v, ok := memo[b]; ok {
		return v
	}
	var best int
	switch {
	case Winner(b) != Empty:
		best = -1
	case IsFull(b):
		best = 0
	default:
		best = -2
		for _, idx := range FreeCells(b) {
			b[idx] = toMove
			if v := -negamax(b, OtherMark(toMove), memo); v > best {
				best = v
			}
			b[idx] = Empty
		}
	}
	memo[b] = best
	return best
}
