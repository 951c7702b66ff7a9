package service

import (
	"fmt"
	"log"
	"sort"

	"github.com/wricardo/tictactoe-arena/game/room"
)

// handleClose forgets a closed connection. When it was the identity's last
// connection, every room the identity plays in or owns is settled too.
func (d *Dispatcher) handleClose(connID string) {
	c, joined := d.conns.Remove(connID)
	d.metrics.SetConnections(d.conns.Len())
	if c == nil {
		return
	}

	nick := c.Nick
	ids := joined
	if nick != "" && d.conns.CountFor(nick) == 0 {
		ids = union(ids, d.roomsWith(nick))
	}
	d.depart(nick, ids, func(string) bool {
		return d.conns.CountFor(nick) == 0
	})
	d.debugf("[DISPATCH] Connection %s (%q) closed", connID, nick)
}

// depart settles each room after nick's connection left it. gone reports
// whether nick no longer counts as present in a room.
func (d *Dispatcher) depart(nick string, roomIDs []string, gone func(roomID string) bool) {
	for _, id := range roomIDs {
		rm, err := d.rooms.Get(id)
		if err != nil {
			continue
		}

		if nick != "" && gone(id) {
			if side := rm.Game.SideOf(nick); side.Valid() {
				res, err := rm.Game.Vacate(side, nick, rm.Owner, ReasonLeft)
				d.apply(rm, res, err)
			}
			if rm.Owner == nick {
				d.transferOwnership(rm, nick)
			}
		}

		if d.conns.MemberCount(id) == 0 {
			log.Printf("[ROOM] Removing empty room %q (%s)", rm.Name, id)
			d.rooms.Remove(id)
		}
	}
}

// transferOwnership hands rm to a random identity still in its channel
func (d *Dispatcher) transferOwnership(rm *room.Room, leaving string) {
	var candidates []string
	for _, nick := range d.conns.Identities(rm.ID) {
		if nick != leaving {
			candidates = append(candidates, nick)
		}
	}
	if len(candidates) == 0 {
		return
	}

	rm.Owner = candidates[d.coin.Intn(len(candidates))]
	log.Printf("[ROOM] Ownership of %q moved from %s to %s", rm.Name, leaving, rm.Owner)
	d.broadcastRoom(rm.ID, OutRoomData, rm.View())
	d.broadcastAll(OutNewRoom, []room.Listing{{ID: rm.ID, Data: rm.Data()}})
	d.broadcastRoom(rm.ID, OutMessage, SystemSender,
		fmt.Sprintf("Owner left room, ownership transferred to %s", rm.Owner), rm.ID)
}

// roomsWith returns the rooms where nick holds a side or is the owner
func (d *Dispatcher) roomsWith(nick string) []string {
	var ids []string
	for _, l := range d.rooms.List() {
		rm, err := d.rooms.Get(l.ID)
		if err != nil {
			continue
		}
		if rm.Owner == nick || rm.Game.SideOf(nick).Valid() {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// roomRemoved runs for every room leaving the registry
func (d *Dispatcher) roomRemoved(id string) {
	d.conns.DropRoom(id)
	d.metrics.SetRooms(d.rooms.Count())
	d.broadcastAll(OutRemoveRoom, id)
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
