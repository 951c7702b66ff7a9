package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/wricardo/tictactoe-arena/game/engine"
	"github.com/wricardo/tictactoe-arena/game/presence"
	"github.com/wricardo/tictactoe-arena/game/room"
)

func (d *Dispatcher) onJoin(c *presence.Connection, env Envelope) error {
	d.send(c.ID, OutNewRoom, d.rooms.List())
	return nil
}

func (d *Dispatcher) onJoinRoom(c *presence.Connection, env Envelope) error {
	id, err := env.str(0)
	if err != nil {
		return err
	}
	if !d.conns.InRoom(c.ID, id) {
		return nil
	}
	if rm, err := d.rooms.Get(id); err == nil {
		d.send(c.ID, OutRoomData, rm.View())
	}
	return nil
}

func (d *Dispatcher) onCreateRoom(c *presence.Connection, env Envelope) error {
	var form roomForm
	if err := env.arg(0, &form); err != nil {
		return err
	}
	token, err := env.str(1)
	if err != nil {
		return err
	}
	nick := d.identify(c, token)
	if nick == "" {
		return nil
	}
	if form.Owner != "" && form.Owner != nick {
		return nil
	}

	if !form.RequiresPassword {
		rm, err := d.rooms.Create(form.Name, nick, false, "")
		return d.roomCreated(c.ID, form.Name, rm, err)
	}
	if err := d.rooms.Validate(form.Name, true, form.Password); err != nil {
		return d.roomCreated(c.ID, form.Name, nil, err)
	}

	// bcrypt stays off the loop; the name is checked again once hashed
	connID := c.ID
	d.async(func() {
		hash, err := room.HashPassword(form.Password)
		d.later(func() {
			if err != nil {
				log.Printf("[ROOM] Failed to protect room %q: %v", form.Name, err)
				return
			}
			if cur, ok := d.conns.Get(connID); !ok || cur.Nick != nick {
				return
			}
			rm, err := d.rooms.CreateProtected(form.Name, nick, hash)
			if err := d.roomCreated(connID, form.Name, rm, err); err != nil {
				d.debugf("[ROOM] Dropping createRoom from %s: %v", connID, err)
			}
		})
	})
	return nil
}

// roomCreated announces rm, or answers the creation error to connID
func (d *Dispatcher) roomCreated(connID, name string, rm *room.Room, err error) error {
	if errors.Is(err, room.ErrDuplicateName) {
		d.send(connID, OutRoomNameTaken, strings.TrimSpace(name))
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("[ROOM] %s created room %q (%s)", rm.Owner, rm.Name, rm.ID)
	d.metrics.SetRooms(d.rooms.Count())
	d.broadcastAll(OutNewRoom, []room.Listing{{ID: rm.ID, Data: rm.Data()}})
	d.send(connID, OutRoomAdded, rm.ID)
	return nil
}

func (d *Dispatcher) onDoesRoomExist(c *presence.Connection, env Envelope) error {
	id, err := env.str(0)
	if err != nil {
		return err
	}
	if !d.rooms.Exists(id) {
		d.send(c.ID, OutRoomError)
	}
	return nil
}

// onGetRoom is the password gate: access joins the room channel
func (d *Dispatcher) onGetRoom(c *presence.Connection, env Envelope) error {
	id, err := env.str(0)
	if err != nil {
		return err
	}
	password, err := env.str(1)
	if err != nil {
		return err
	}
	token, err := env.str(2)
	if err != nil {
		return err
	}

	// identify first: a rebind may settle and remove rooms
	nick := d.identify(c, token)
	if token != "" && nick == "" {
		return nil
	}
	rm, err := d.rooms.Get(id)
	if err != nil {
		d.send(c.ID, OutRoomError)
		return nil
	}

	if !rm.RequiresPassword || (nick != "" && nick == rm.Owner) {
		d.grant(c.ID, rm)
		return nil
	}
	if password == "" {
		d.send(c.ID, OutRoomRequiresPassword, false)
		return nil
	}

	connID, hash := c.ID, rm.PasswordHash
	d.async(func() {
		ok := room.CheckPassword(hash, password)
		d.later(func() {
			if _, alive := d.conns.Get(connID); !alive {
				return
			}
			if !ok {
				d.send(connID, OutRoomRequiresPassword, true)
				return
			}
			rm, err := d.rooms.Get(id)
			if err != nil {
				d.send(connID, OutRoomError)
				return
			}
			d.grant(connID, rm)
		})
	})
	return nil
}

func (d *Dispatcher) grant(connID string, rm *room.Room) {
	d.conns.Join(connID, rm.ID)
	d.send(connID, OutRoomData, rm.View())
}

// memberRoom returns the room id names when c has joined its channel.
// A missing room is answered with roomError.
func (d *Dispatcher) memberRoom(c *presence.Connection, id string) (*room.Room, bool) {
	rm, err := d.rooms.Get(id)
	if err != nil {
		d.send(c.ID, OutRoomError)
		return nil, false
	}
	if !d.conns.InRoom(c.ID, id) {
		return nil, false
	}
	return rm, true
}

func (d *Dispatcher) onPickSide(c *presence.Connection, env Envelope) error {
	id, err := env.str(0)
	if err != nil {
		return err
	}
	var side engine.Side
	if err := env.arg(1, &side); err != nil {
		return err
	}
	token, err := env.str(2)
	if err != nil {
		return err
	}

	nick := d.identify(c, token)
	if nick == "" {
		return nil
	}
	rm, ok := d.memberRoom(c, id)
	if !ok {
		return nil
	}

	if side == engine.SideNone {
		held := rm.Game.SideOf(nick)
		if held == engine.SideNone {
			return nil
		}
		res, err := rm.Game.Vacate(held, nick, rm.Owner, ReasonSurrender)
		d.apply(rm, res, err)
		return nil
	}

	res, err := rm.Game.PickSide(side, nick, d.coin)
	d.apply(rm, res, err)
	return nil
}

func (d *Dispatcher) onMove(c *presence.Connection, env Envelope) error {
	id, err := env.str(0)
	if err != nil {
		return err
	}
	var cell *int
	if err := env.arg(1, &cell); err != nil {
		return err
	}
	if cell == nil {
		return fmt.Errorf("%w: missing cell", ErrMalformed)
	}
	token, err := env.str(2)
	if err != nil {
		return err
	}

	nick := d.identify(c, token)
	if nick == "" {
		return nil
	}
	rm, ok := d.memberRoom(c, id)
	if !ok {
		return nil
	}

	res, err := rm.Game.Move(*cell, nick)
	d.apply(rm, res, err)
	return nil
}

func (d *Dispatcher) onRestart(c *presence.Connection, env Envelope) error {
	id, err := env.str(0)
	if err != nil {
		return err
	}
	rm, ok := d.memberRoom(c, id)
	if !ok {
		return nil
	}
	res, err := rm.Game.Restart(d.coin)
	d.apply(rm, res, err)
	return nil
}

func (d *Dispatcher) onKick(c *presence.Connection, env Envelope) error {
	var side engine.Side
	if err := env.arg(0, &side); err != nil {
		return err
	}
	id, err := env.str(1)
	if err != nil {
		return err
	}
	token, err := env.str(2)
	if err != nil {
		return err
	}

	nick := d.identify(c, token)
	if nick == "" {
		return nil
	}
	rm, ok := d.memberRoom(c, id)
	if !ok {
		return nil
	}

	occupant := rm.Game.Occupant(side)
	live := rm.Game.Live()
	ownerKick := nick == rm.Owner && occupant != nick
	reason := ReasonSurrender
	if ownerKick {
		reason = ReasonKicked
	}

	res, err := rm.Game.Vacate(side, nick, rm.Owner, reason)
	if !d.apply(rm, res, err) || !live {
		return nil
	}

	notice := fmt.Sprintf("The game has been stopped, because %s surrendered.", occupant)
	if ownerKick {
		notice = "The game has been stopped, because room owner kicked one of the players."
	}
	d.broadcastRoom(id, OutMessage, SystemSender, notice, id)
	return nil
}

func (d *Dispatcher) onMessage(c *presence.Connection, env Envelope) error {
	id, err := env.str(0)
	if err != nil {
		return err
	}
	text, err := env.str(1)
	if err != nil {
		return err
	}
	token, err := env.str(2)
	if err != nil {
		return err
	}

	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil
	}
	nick := d.identify(c, token)
	if nick == "" {
		return nil
	}
	if _, ok := d.memberRoom(c, id); !ok {
		return nil
	}

	d.broadcastRoom(id, OutMessage, nick, text, id)
	return nil
}

func (d *Dispatcher) onHandleLeave(c *presence.Connection, env Envelope) error {
	nick := c.Nick
	ids := d.conns.LeaveAll(c.ID)
	d.depart(nick, ids, func(roomID string) bool {
		return d.conns.IdentityCountInRoom(nick, roomID) == 0
	})
	return nil
}

func (d *Dispatcher) onCheckTokenValidity(c *presence.Connection, env Envelope) error {
	token, err := env.str(0)
	if err != nil {
		return err
	}
	if token == "" {
		d.send(c.ID, OutIsTokenOk, false)
		return nil
	}
	if d.bind(c, token) {
		d.send(c.ID, OutIsTokenOk, true)
	}
	return nil
}

func (d *Dispatcher) onRegister(c *presence.Connection, env Envelope) error {
	if d.accounts == nil {
		return nil
	}
	var form registerForm
	if err := env.arg(0, &form); err != nil {
		return err
	}
	connID := c.ID
	d.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
		defer cancel()
		token, err := d.accounts.Register(ctx, form.Nick, form.Email, form.Password)
		if err != nil {
			d.send(connID, OutAuthFail, failReason(err))
			return
		}
		log.Printf("[AUTH] Registered %s", form.Nick)
		d.send(connID, OutAuthOK, token)
	})
	return nil
}

func (d *Dispatcher) onLogin(c *presence.Connection, env Envelope) error {
	if d.accounts == nil {
		return nil
	}
	var form loginForm
	if err := env.arg(0, &form); err != nil {
		return err
	}
	connID := c.ID
	d.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
		defer cancel()
		token, err := d.accounts.Login(ctx, form.Identifier, form.Password)
		if err != nil {
			d.send(connID, OutAuthFail, failReason(err))
			return
		}
		d.send(connID, OutAuthOK, token)
	})
	return nil
}

func (d *Dispatcher) onGuest(c *presence.Connection, env Envelope) error {
	if d.accounts == nil {
		return nil
	}
	nick, err := env.str(0)
	if err != nil {
		return err
	}
	connID := c.ID
	d.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
		defer cancel()
		token, err := d.accounts.Guest(ctx, nick)
		if err != nil {
			d.send(connID, OutAuthFail, failReason(err))
			return
		}
		d.send(connID, OutAuthOK, token)
		d.submit(Inbound{Kind: InboundBind, ConnID: connID, Token: token})
	})
	return nil
}

func (d *Dispatcher) onGetProfile(c *presence.Connection, env Envelope) error {
	if d.accounts == nil {
		return nil
	}
	token, err := env.str(0)
	if err != nil {
		return err
	}
	connID := c.ID
	d.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
		defer cancel()
		p, err := d.accounts.Profile(ctx, token)
		if err != nil {
			d.debugf("[AUTH] Profile for %s unavailable: %v", connID, err)
			return
		}
		d.send(connID, OutProfile, p)
	})
	return nil
}

func (d *Dispatcher) onGetRanking(c *presence.Connection, env Envelope) error {
	if d.accounts == nil {
		return nil
	}
	connID := c.ID
	d.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), accountTimeout)
		defer cancel()
		entries, err := d.accounts.Ranking(ctx, DefaultRankingLimit)
		if err != nil {
			log.Printf("[SCORE] Ranking unavailable: %v", err)
			return
		}
		d.send(connID, OutRanking, entries)
	})
	return nil
}

// failReason maps account errors to the text sent with authFail
func failReason(err error) string {
	var guestErr *GuestNickError
	switch {
	case errors.As(err, &guestErr),
		errors.Is(err, ErrInvalidNick),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrNickTaken),
		errors.Is(err, ErrBadCredentials):
		return err.Error()
	}
	log.Printf("[AUTH] Account operation failed: %v", err)
	return "internal server error"
}
