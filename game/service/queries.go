package service

import (
	"context"
	"time"

	"github.com/wricardo/tictactoe-arena/game/engine"
	"github.com/wricardo/tictactoe-arena/game/room"
)

// RoomSummary is a lobby row for the REST and MCP surfaces
type RoomSummary struct {
	ID string `json:"id"`
	room.Data
	Phase       engine.Phase `json:"phase"`
	Connections int          `json:"connections"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// RoomSnapshot is a copy of one room with its present identities
type RoomSnapshot struct {
	room.View
	Connections int      `json:"connections"`
	Identities  []string `json:"identities"`
}

// Stats counts live connections and rooms
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

// ListRooms returns every room, oldest first
func (d *Dispatcher) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	var out []RoomSummary
	err := d.call(ctx, func() {
		out = make([]RoomSummary, 0, d.rooms.Count())
		for _, l := range d.rooms.List() {
			rm, err := d.rooms.Get(l.ID)
			if err != nil {
				continue
			}
			out = append(out, RoomSummary{
				ID:          rm.ID,
				Data:        rm.Data(),
				Phase:       rm.Game.Phase(),
				Connections: d.conns.MemberCount(rm.ID),
				CreatedAt:   rm.CreatedAt,
			})
		}
	})
	return out, err
}

// RoomSnapshot returns a copy of room id, or room.ErrRoomNotFound
func (d *Dispatcher) RoomSnapshot(ctx context.Context, id string) (*RoomSnapshot, error) {
	var (
		snap   *RoomSnapshot
		getErr error
	)
	err := d.call(ctx, func() {
		rm, err := d.rooms.Get(id)
		if err != nil {
			getErr = err
			return
		}
		identities := d.conns.Identities(id)
		if identities == nil {
			identities = []string{}
		}
		snap = &RoomSnapshot{
			View:        rm.View(),
			Connections: d.conns.MemberCount(id),
			Identities:  identities,
		}
	})
	if err != nil {
		return nil, err
	}
	return snap, getErr
}

// Stats returns live counters
func (d *Dispatcher) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := d.call(ctx, func() {
		s = Stats{Connections: d.conns.Len(), Rooms: d.rooms.Count()}
	})
	return s, err
}
