// Command analyze prints game-tree facts about a tic-tac-toe position: how
// many games can still be played out, how they end, and the value of every
// free cell under perfect play.
//
// Usage:
//
//	analyze [board] [mark]
//
// board is nine cells read row by row, using X, O and _ for free cells.
// mark is the side to move; by default the side with fewer marks, X on a tie.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/wricardo/tictactoe-arena/game/engine"
)

// TreeStats summarizes every game reachable from a position
type TreeStats struct {
	Games     int
	Wins      map[engine.Mark]int
	Draws     int
	Positions int
}

func main() {
	args := os.Args[1:]
	board := engine.Board{}
	var err error
	if len(args) > 0 {
		board, err = parseBoard(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	}

	toMove := defaultMover(board)
	if len(args) > 1 {
		toMove = engine.Mark(strings.ToUpper(args[1]))
		if toMove != engine.Cross && toMove != engine.Circle {
			fmt.Fprintf(os.Stderr, "Error: mark must be X or O, got %q\n", args[1])
			os.Exit(2)
		}
	}

	report(board, toMove)
}

func report(board engine.Board, toMove engine.Mark) {
	fmt.Println(render(board))

	if w := engine.Winner(board); w != engine.Empty {
		fmt.Printf("Game over: %s won\n", w)
		return
	}
	if engine.IsFull(board) {
		fmt.Println("Game over: draw")
		return
	}

	stats := Explore(board, toMove)
	fmt.Printf("To move: %s\n", toMove)
	fmt.Printf("Playable games: %d\n", stats.Games)
	fmt.Printf("  X wins: %d\n", stats.Wins[engine.Cross])
	fmt.Printf("  O wins: %d\n", stats.Wins[engine.Circle])
	fmt.Printf("  Draws: %d\n", stats.Draws)
	fmt.Printf("Distinct positions: %d\n", stats.Positions)

	fmt.Println("Move values:")
	for _, mv := range engine.Evaluate(board, toMove) {
		fmt.Printf("  cell %d: %s\n", mv.Cell, describe(mv.Value))
	}
}

func describe(v int) string {
	switch {
	case v > 0:
		return "win"
	case v < 0:
		return "loss"
	}
	return "draw"
}

// parseBoard reads a nine character board
func parseBoard(s string) (engine.Board, error) {
	var b engine.Board
	if len(s) != engine.BoardSize {
		return b, fmt.Errorf("board must have %d cells, got %d", engine.BoardSize, len(s))
	}
	for i, c := range strings.ToUpper(s) {
		switch c {
		case 'X':
			b[i] = engine.Cross
		case 'O':
			b[i] = engine.Circle
		case '_', '.', '-':
		default:
			return b, fmt.Errorf("invalid cell %q at %d", c, i)
		}
	}
	return b, nil
}

func defaultMover(b engine.Board) engine.Mark {
	var x, o int
	for _, m := range b {
		switch m {
		case engine.Cross:
			x++
		case engine.Circle:
			o++
		}
	}
	if o < x {
		return engine.Circle
	}
	return engine.Cross
}

func render(b engine.Board) string {
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		if row > 0 {
			sb.WriteString("\n---------\n")
		}
		for col := 0; col < 3; col++ {
			if col > 0 {
				sb.WriteString(" | ")
			}
			idx := row*3 + col
			if b[idx] == engine.Empty {
				fmt.Fprintf(&sb, "%d", idx)
			} else {
				sb.WriteString(string(b[idx]))
			}
		}
	}
	return sb.String()
}

// Explore plays out every legal continuation of b with toMove first
func Explore(b engine.Board, toMove engine.Mark) TreeStats {
	stats := TreeStats{Wins: map[engine.Mark]int{}}
	seen := map[engine.Board]struct{}{}
	explore(b, toMove, &stats, seen)
	stats.Positions = len(seen)
	return stats
}

func explore(b engine.Board, toMove engine.Mark, stats *TreeStats, seen map[engine.Board]struct{}) {
	seen[b] = struct{}{}
	if w := engine.Winner(b); w != engine.Empty {
		stats.Games++
		stats.Wins[w]++
		return
	}
	if engine.IsFull(b) {
		stats.Games++
		stats.Draws++
		return
	}
	for _, idx := range engine.FreeCells(b) {
		b[idx] = toMove
		explore(b, engine.OtherMark(toMove), stats, seen)
		b[idx] = engine.Empty
	}
}
