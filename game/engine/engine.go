package engine

import (
	"encoding/json"
	"errors"
)

var (
	ErrInvalidSide    = errors.New("invalid side")
	ErrEmptyNick      = errors.New("nick is required")
	ErrSideTaken      = errors.New("side already occupied")
	ErrSideEmpty      = errors.New("side is not occupied")
	ErrNotLive        = errors.New("game is not in progress")
	ErrNotYourTurn    = errors.New("not this player's turn")
	ErrInvalidCell    = errors.New("cell index out of range")
	ErrCellTaken      = errors.New("cell already marked")
	ErrNotRestartable = errors.New("game cannot be restarted now")
	ErrNotPermitted   = errors.New("not permitted to vacate this side")
	ErrInvariant      = errors.New("game invariant violated")
)

// Game is the per-room turn-based state. The zero value is an empty game.
type Game struct {
	Board  Board
	Turn   Side
	Circle string
	Cross  string
}

// Occupant returns the nick holding side s, or "" when it is free
func (g *Game) Occupant(s Side) string {
	switch s {
	case SideCircle:
		return g.Circle
	case SideCross:
		return g.Cross
	}
	return ""
}

func (g *Game) setOccupant(s Side, nick string) {
	switch s {
	case SideCircle:
		g.Circle = nick
	case SideCross:
		g.Cross = nick
	}
}

// SideOf returns the side held by nick, or SideNone
func (g *Game) SideOf(nick string) Side {
	if nick == "" {
		return SideNone
	}
	if g.Circle == nick {
		return SideCircle
	}
	if g.Cross == nick {
		return SideCross
	}
	return SideNone
}

// Live reports whether a game is in progress
func (g *Game) Live() bool {
	return g.Turn != SideNone
}

// Full reports whether both sides are occupied
func (g *Game) Full() bool {
	return g.Circle != "" && g.Cross != ""
}

// Phase derives the lifecycle state from the current fields
func (g *Game) Phase() Phase {
	switch {
	case g.Circle == "" && g.Cross == "":
		return PhaseEmpty
	case !g.Full():
		return PhaseWaiting
	case g.Live():
		return PhaseInProgress
	case IsEmpty(g.Board):
		return PhaseReady
	default:
		return PhaseConcluded
	}
}

// PickSide seats nick on side. A nick holding the opposite side is moved.
// When both sides become occupied and no game is live, a new game starts.
func (g *Game) PickSide(side Side, nick string, coin Coin) (Result, error) {
	var res Result
	if !side.Valid() {
		return res, ErrInvalidSide
	}
	if nick == "" {
		return res, ErrEmptyNick
	}
	if g.Occupant(side) != "" {
		return res, ErrSideTaken
	}

	opposite := Opposite(side)
	if g.Occupant(opposite) == nick {
		g.setOccupant(opposite, "")
		res.emit(Event{Kind: EventSidePicked, Side: opposite})
	}
	g.setOccupant(side, nick)
	res.emit(Event{Kind: EventSidePicked, Side: side, Nick: nick})

	if g.Full() && !g.Live() {
		g.start(coin, &res)
	}
	return res, nil
}

// Restart starts a new game between the seated players. It only has an
// effect when both sides are occupied and no game is live.
func (g *Game) Restart(coin Coin) (Result, error) {
	var res Result
	if !g.Full() || g.Live() {
		return res, ErrNotRestartable
	}
	g.start(coin, &res)
	return res, nil
}

// start picks the starting side, clears the board and emits startGame
func (g *Game) start(coin Coin, res *Result) {
	first := SideCircle
	if coin != nil && coin.Intn(2) == 1 {
		first = SideCross
	}
	g.Board = Board{}
	g.Turn = first
	res.emit(Event{Kind: EventStartGame, Side: first})
}

// Move places the mark of nick's side on cell and evaluates the board
func (g *Game) Move(cell int, nick string) (Result, error) {
	var res Result
	if !g.Live() {
		return res, ErrNotLive
	}
	if nick == "" || g.Occupant(g.Turn) != nick {
		return res, ErrNotYourTurn
	}
	if !ValidCell(cell) {
		return res, ErrInvalidCell
	}
	if g.Board[cell] != Empty {
		return res, ErrCellTaken
	}

	mark := MarkOf(g.Turn)
	next := g.Board
	next[cell] = mark

	if w := Winner(next); w != Empty {
		winSide := SideOfMark(w)
		winner, loser := g.Occupant(winSide), g.Occupant(Opposite(winSide))
		if winner == "" || loser == "" {
			return Result{}, ErrInvariant
		}
		g.Board = next
		g.Turn = SideNone
		res.emit(Event{Kind: EventMove, Cell: cell, Mark: mark})
		res.score(winner, OutcomeWin)
		res.score(loser, OutcomeLose)
		res.emit(Event{Kind: EventWinner, Side: winSide, Nick: winner})
		return res, nil
	}

	if IsFull(next) {
		if !g.Full() {
			return Result{}, ErrInvariant
		}
		g.Board = next
		g.Turn = SideNone
		res.emit(Event{Kind: EventMove, Cell: cell, Mark: mark})
		res.score(g.Circle, OutcomeDraw)
		res.score(g.Cross, OutcomeDraw)
		res.emit(Event{Kind: EventWinner, Draw: true})
		return res, nil
	}

	g.Board = next
	g.Turn = Opposite(g.Turn)
	res.emit(Event{Kind: EventMove, Cell: cell, Mark: mark})
	return res, nil
}

// Vacate empties side on behalf of requester, who must be the room owner or
// the occupant. Vacating during a live game forfeits it to the opposite side.
func (g *Game) Vacate(side Side, requester, owner, reason string) (Result, error) {
	var res Result
	if !side.Valid() {
		return res, ErrInvalidSide
	}
	occupant := g.Occupant(side)
	if occupant == "" {
		return res, ErrSideEmpty
	}
	if requester == "" || (requester != owner && requester != occupant) {
		return res, ErrNotPermitted
	}

	if !g.Live() {
		g.setOccupant(side, "")
		res.emit(Event{Kind: EventSidePicked, Side: side})
		return res, nil
	}

	opposite := Opposite(side)
	winner := g.Occupant(opposite)
	if winner == "" {
		return Result{}, ErrInvariant
	}
	g.Turn = SideNone
	g.setOccupant(side, "")
	res.score(winner, OutcomeWin)
	res.score(occupant, OutcomeLose)
	res.emit(Event{Kind: EventWinner, Side: opposite, Nick: winner, Surrender: true})
	res.emit(Event{Kind: EventStopGame, Reason: reason})
	res.emit(Event{Kind: EventSidePicked, Side: side})
	return res, nil
}

type gameJSON struct {
	Board  Board   `json:"board"`
	Turn   Side    `json:"turn"`
	Circle *string `json:"circlePlayer"`
	Cross  *string `json:"crossPlayer"`
	Phase  Phase   `json:"phase,omitempty"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// MarshalJSON encodes free sides as null
func (g Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameJSON{
		Board:  g.Board,
		Turn:   g.Turn,
		Circle: nullable(g.Circle),
		Cross:  nullable(g.Cross),
		Phase:  g.Phase(),
	})
}

// UnmarshalJSON decodes the form produced by MarshalJSON
func (g *Game) UnmarshalJSON(data []byte) error {
	var v gameJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*g = Game{Board: v.Board, Turn: v.Turn}
	if v.Circle != nil {
		g.Circle = *v.Circle
	}
	if v.Cross != nil {
		g.Cross = *v.Cross
	}
	return nil
}
