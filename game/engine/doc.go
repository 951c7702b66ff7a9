// Package engine provides the core game logic for Tic-Tac-Toe Arena.
//
// The engine package implements the game mechanics including:
//   - Side assignment for the two player slots (circle and cross)
//   - Move validation and application
//   - Win and draw detection over the eight lines of the 3x3 board
//   - Forfeiture when a side is vacated during a live game
//
// Core Types:
//
// Game holds the board, the turn and the two side occupants. Every operation
// returns a Result describing the outbound events and score outcomes it
// produced, or a sentinel error when its preconditions do not hold. A rejected
// operation never changes the game.
//
// Usage:
//
//	var g engine.Game
//	coin := rand.New(rand.NewSource(time.Now().UnixNano()))
//
//	res, err := g.PickSide(engine.SideCircle, "alice", coin)
//	res, err = g.PickSide(engine.SideCross, "bob", coin) // starts the game
//
//	res, err = g.Move(4, g.Occupant(g.Turn))
//	for _, ev := range res.Events {
//		// broadcast ev
//	}
//
// Game Rules:
//
// The game starts automatically once both sides are occupied; the starting
// side is picked by an injected Coin with equal probability. Circle plays O,
// cross plays X. A side that completes a row, column or diagonal wins; a full
// board without a line is a draw. Vacating a side while the game is live is a
// forfeit and awards the win to the opposite side.
package engine
