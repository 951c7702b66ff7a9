package engine

// lines are the eight winning triples: rows, columns, diagonals
var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Winner returns the mark owning a complete line, or Empty when there is none
func Winner(b Board) Mark {
	for _, l := range lines {
		m := b[l[0]]
		if m != Empty && b[l[1]] == m && b[l[2]] == m {
			return m
		}
	}
	return Empty
}

// IsFull reports whether every cell is marked
func IsFull(b Board) bool {
	for _, m := range b {
		if m == Empty {
			return false
		}
	}
	return true
}

// IsDraw reports a full board without a winning line
func IsDraw(b Board) bool {
	return IsFull(b) && Winner(b) == Empty
}

// IsEmpty reports whether no cell is marked
func IsEmpty(b Board) bool {
	for _, m := range b {
		if m != Empty {
			return false
		}
	}
	return true
}

// ValidCell reports whether idx addresses a board cell
func ValidCell(idx int) bool {
	return idx >= 0 && idx < BoardSize
}

// FreeCells returns the indexes of empty cells in ascending order
func FreeCells(b Board) []int {
	free := make([]int, 0, BoardSize)
	for i, m := range b {
		if m == Empty {
			free = append(free, i)
		}
	}
	return free
}
