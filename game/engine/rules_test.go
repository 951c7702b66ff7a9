package engine

import "testing"

func board(cells string) Board {
	var b Board
	for i, c := range cells {
		switch c {
		case 'X':
			b[i] = Cross
		case 'O':
			b[i] = Circle
		}
	}
	return b
}

func TestWinner(t *testing.T) {
	tests := []struct {
		name     string
		board    string
		expected Mark
	}{
		{"empty board", "_________", Empty},
		{"top row X", "XXXOO____", Cross},
		{"middle row O", "XX_OOOX__", Circle},
		{"bottom row X", "OO_O__XXX", Cross},
		{"left column O", "OX_OX_O__", Circle},
		{"middle column X", "OX_OX__X_", Cross},
		{"right column O", "XXOX_O__O", Circle},
		{"main diagonal X", "XO_OX___X", Cross},
		{"anti diagonal O", "XXO_O_O_X", Circle},
		{"no line", "XOXOXOOXO", Empty},
		{"anti diagonal through mixed column", "XOXOXOX__", Cross},
		{"partial board no line", "XO_______", Empty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Winner(board(tt.board)); got != tt.expected {
				t.Errorf("Expected winner %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestWinnerAllLines(t *testing.T) {
	for _, mark := range []Mark{Circle, Cross} {
		for _, l := range lines {
			var b Board
			for _, idx := range l {
				b[idx] = mark
			}
			if got := Winner(b); got != mark {
				t.Errorf("Line %v of %q: expected winner %q, got %q", l, mark, mark, got)
			}
		}
	}
}

func TestIsDraw(t *testing.T) {
	if !IsDraw(board("XOXOXOOXO")) {
		t.Error("Expected full board without a line to be a draw")
	}
	if IsDraw(board("XXXOOXOXO")) {
		t.Error("Full board with a line must not be a draw")
	}
	if IsDraw(board("XOXOXOOX_")) {
		t.Error("Board with a free cell must not be a draw")
	}
}

func TestBoardHelpers(t *testing.T) {
	b := board("X___O___X")

	if IsEmpty(b) {
		t.Error("Expected marked board to be non-empty")
	}
	if !IsEmpty(Board{}) {
		t.Error("Expected zero board to be empty")
	}
	if IsFull(b) {
		t.Error("Expected partial board not to be full")
	}

	free := FreeCells(b)
	expected := []int{1, 2, 3, 5, 6, 7}
	if len(free) != len(expected) {
		t.Fatalf("Expected %d free cells, got %d", len(expected), len(free))
	}
	for i := range expected {
		if free[i] != expected[i] {
			t.Errorf("Expected free cell %d at %d, got %d", expected[i], i, free[i])
		}
	}

	for _, idx := range []int{-1, 9, 100} {
		if ValidCell(idx) {
			t.Errorf("Expected cell %d to be invalid", idx)
		}
	}
	for idx := 0; idx < BoardSize; idx++ {
		if !ValidCell(idx) {
			t.Errorf("Expected cell %d to be valid", idx)
		}
	}
}
