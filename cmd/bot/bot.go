package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/wricardo/tictactoe-arena/game/engine"
	"github.com/wricardo/tictactoe-arena/game/room"
)

var (
	ErrPasswordRejected = errors.New("room password rejected")
	ErrRoomGone         = errors.New("room does not exist")
)

// Sender emits one event frame to the server
type Sender func(event string, args ...interface{}) error

// Results counts finished games from the bot's point of view
type Results struct {
	Wins   int
	Draws  int
	Losses int
}

func (r Results) String() string {
	return fmt.Sprintf("%d wins, %d draws, %d losses", r.Wins, r.Draws, r.Losses)
}

// Bot seats itself in one room and answers every turn with a perfect move
type Bot struct {
	Nick     string
	Token    string
	RoomID   string
	Password string
	Games    int

	send    Sender
	side    engine.Side
	picking engine.Side
	board   engine.Board
	turn    engine.Side
	played  int
	results Results
}

// NewBot returns a bot that plays games rounds through send
func NewBot(nick, token string, games int, send Sender) *Bot {
	if games <= 0 {
		games = 1
	}
	return &Bot{Nick: nick, Token: token, Games: games, send: send}
}

// Done reports whether every requested game has finished
func (b *Bot) Done() bool {
	return b.played >= b.Games
}

// Results returns the tally so far
func (b *Bot) Results() Results {
	return b.results
}

// Start creates a room named name, or enters RoomID when it is set
func (b *Bot) Start(name string) error {
	if b.RoomID != "" {
		return b.send("getRoom", b.RoomID, b.Password, b.Token)
	}
	form := map[string]interface{}{
		"name":             name,
		"owner":            b.Nick,
		"requiresPassword": b.Password != "",
		"password":         b.Password,
	}
	return b.send("createRoom", form, b.Token)
}

// Handle applies one server frame and sends whatever it calls for
func (b *Bot) Handle(event string, args []json.RawMessage) error {
	switch event {
	case "roomAdded":
		var id string
		if err := arg(args, 0, &id); err != nil {
			return err
		}
		b.RoomID = id
		log.Printf("[BOT] Created room %s", id)
		return b.send("getRoom", id, b.Password, b.Token)

	case "roomNameTaken":
		var name string
		arg(args, 0, &name)
		return fmt.Errorf("room name %q is taken", name)

	case "roomRequiresPassword":
		return ErrPasswordRejected

	case "roomError":
		return ErrRoomGone

	case "roomData":
		var view room.View
		if err := arg(args, 0, &view); err != nil {
			return err
		}
		if view.ID != b.RoomID {
			return nil
		}
		b.board = view.Game.Board
		b.turn = view.Game.Turn
		if held := view.Game.SideOf(b.Nick); held != engine.SideNone {
			b.side = held
			return b.play()
		}
		return b.pick(view.Game)

	case "sidePicked":
		var side engine.Side
		var nick *string
		if err := arg(args, 0, &side); err != nil {
			return err
		}
		if err := arg(args, 1, &nick); err != nil {
			return err
		}
		switch {
		case nick != nil && *nick == b.Nick:
			b.side = side
			b.picking = engine.SideNone
			log.Printf("[BOT] %s seated as %s", b.Nick, side)
		case nick != nil && side == b.picking && b.side == engine.SideNone:
			// lost the race for this side, try the other one
			b.picking = engine.Opposite(side)
			return b.send("pickSide", b.RoomID, b.picking, b.Token)
		case side == b.side && nick == nil:
			b.side = engine.SideNone
		}
		return nil

	case "startGame":
		if err := arg(args, 0, &b.turn); err != nil {
			return err
		}
		b.board = engine.Board{}
		return b.play()

	case "move":
		var cell int
		var mark engine.Mark
		if err := arg(args, 0, &cell); err != nil {
			return err
		}
		if err := arg(args, 1, &mark); err != nil {
			return err
		}
		if !engine.ValidCell(cell) {
			return fmt.Errorf("move to invalid cell %d", cell)
		}
		b.board[cell] = mark
		b.turn = engine.Opposite(engine.SideOfMark(mark))
		return b.play()

	case "winner":
		var side string
		var nick string
		arg(args, 0, &side)
		arg(args, 1, &nick)
		b.turn = engine.SideNone
		if b.side == engine.SideNone {
			return nil
		}
		switch {
		case side == engine.ResultDraw:
			b.results.Draws++
		case nick == b.Nick:
			b.results.Wins++
		default:
			b.results.Losses++
		}
		b.played++
		log.Printf("[BOT] Game %d/%d finished: %s", b.played, b.Games, b.results)
		if !b.Done() {
			return b.send("restart", b.RoomID)
		}
		return nil

	case "stopGame":
		var reason string
		arg(args, 0, &reason)
		b.turn = engine.SideNone
		log.Printf("[BOT] Game stopped: %s", reason)
		return nil

	case "isTokenOk":
		var ok bool
		if err := arg(args, 0, &ok); err == nil && !ok {
			return errors.New("server rejected the bot token")
		}
		return nil
	}
	return nil
}

// pick requests the first free side of g
func (b *Bot) pick(g engine.Game) error {
	if b.picking != engine.SideNone {
		return nil
	}
	for _, side := range []engine.Side{engine.SideCircle, engine.SideCross} {
		if g.Occupant(side) == "" {
			b.picking = side
			return b.send("pickSide", b.RoomID, side, b.Token)
		}
	}
	log.Printf("[BOT] Both sides taken in %s, watching", b.RoomID)
	return nil
}

func (b *Bot) play() error {
	if b.side == engine.SideNone || b.turn != b.side {
		return nil
	}
	cell, ok := engine.BestMove(b.board, engine.MarkOf(b.side))
	if !ok {
		return nil
	}
	return b.send("move", b.RoomID, cell, b.Token)
}

func arg(args []json.RawMessage, i int, v interface{}) error {
	if i >= len(args) {
		return fmt.Errorf("missing argument %d", i)
	}
	return json.Unmarshal(args[i], v)
}
