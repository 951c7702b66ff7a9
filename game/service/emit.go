package service

import (
	"errors"
	"log"

	"github.com/wricardo/tictactoe-arena/game/engine"
	"github.com/wricardo/tictactoe-arena/game/room"
)

// apply broadcasts the events of an accepted game operation and hands its
// scores to the reporter. It reports whether the operation was accepted.
func (d *Dispatcher) apply(rm *room.Room, res engine.Result, err error) bool {
	if err != nil {
		if errors.Is(err, engine.ErrInvariant) {
			log.Printf("[ROOM] Invariant violated in room %s: %v", rm.ID, err)
		} else {
			d.debugf("[ROOM] Rejected operation in room %s: %v", rm.ID, err)
		}
		return false
	}

	for _, ev := range res.Events {
		d.broadcastEvent(rm.ID, ev)
	}
	if d.reporter != nil {
		for _, s := range res.Scores {
			d.reporter.Report(s)
		}
	}
	return true
}

func (d *Dispatcher) broadcastEvent(roomID string, ev engine.Event) {
	switch ev.Kind {
	case engine.EventSidePicked:
		d.broadcastRoom(roomID, OutSidePicked, ev.Side, nullable(ev.Nick))
	case engine.EventStartGame:
		d.broadcastRoom(roomID, OutStartGame, ev.Side)
	case engine.EventMove:
		d.broadcastRoom(roomID, OutMove, ev.Cell, ev.Mark)
	case engine.EventWinner:
		switch {
		case ev.Draw:
			d.metrics.GameFinished("draw")
			d.broadcastRoom(roomID, OutWinner, []interface{}{engine.ResultDraw, ""}, false)
		default:
			if ev.Surrender {
				d.metrics.GameFinished("forfeit")
			} else {
				d.metrics.GameFinished("win")
			}
			d.broadcastRoom(roomID, OutWinner, []interface{}{ev.Side, ev.Nick}, ev.Surrender)
		}
	case engine.EventStopGame:
		d.broadcastRoom(roomID, OutStopGame, ev.Reason)
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// send delivers one frame to connID
func (d *Dispatcher) send(connID, event string, args ...interface{}) {
	frame, err := Encode(event, args...)
	if err != nil {
		log.Printf("[DISPATCH] Failed to encode %s: %v", event, err)
		return
	}
	d.out.Send(connID, frame)
}

// broadcastRoom delivers one frame to every connection in the room channel
func (d *Dispatcher) broadcastRoom(roomID, event string, args ...interface{}) {
	frame, err := Encode(event, args...)
	if err != nil {
		log.Printf("[DISPATCH] Failed to encode %s: %v", event, err)
		return
	}
	for _, id := range d.conns.Members(roomID) {
		d.out.Send(id, frame)
	}
}

// broadcastAll delivers one frame to every live connection
func (d *Dispatcher) broadcastAll(event string, args ...interface{}) {
	frame, err := Encode(event, args...)
	if err != nil {
		log.Printf("[DISPATCH] Failed to encode %s: %v", event, err)
		return
	}
	for _, id := range d.conns.All() {
		d.out.Send(id, frame)
	}
}
