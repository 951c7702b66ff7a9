// Package presence tracks live transport connections, the identity each one
// is bound to, and which room channels each one has joined.
//
// A nick may be bound to several connections at once (multiple tabs). The
// per-nick count lets callers tell a refreshed tab from a player who really
// left. Like the room registry, a Registry holds no locks and belongs to the
// dispatcher goroutine.
package presence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wricardo/tictactoe-arena/auth"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrInvalidToken      = errors.New("invalid token")
)

// Verifier turns a token into verified claims
type Verifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Connection is one live transport connection
type Connection struct {
	ID          string
	Nick        string
	Email       string
	Token       string
	ConnectedAt time.Time

	rooms map[string]struct{}
}

// Bound reports whether the connection acts as an identity
func (c *Connection) Bound() bool {
	return c.Nick != ""
}

// Registry maps connections to identities and room channels
type Registry struct {
	verifier Verifier
	conns    map[string]*Connection
	counts   map[string]int
	channels map[string]map[string]struct{}
	now      func() time.Time
}

// NewRegistry creates an empty registry verifying tokens with v
func NewRegistry(v Verifier) *Registry {
	return &Registry{
		verifier: v,
		conns:    make(map[string]*Connection),
		counts:   make(map[string]int),
		channels: make(map[string]map[string]struct{}),
		now:      time.Now,
	}
}

// Register records a new unauthenticated connection
func (r *Registry) Register(connID string) *Connection {
	if c, ok := r.conns[connID]; ok {
		return c
	}
	c := &Connection{ID: connID, ConnectedAt: r.now(), rooms: make(map[string]struct{})}
	r.conns[connID] = c
	return c
}

// Get returns the connection with id connID
func (r *Registry) Get(connID string) (*Connection, bool) {
	c, ok := r.conns[connID]
	return c, ok
}

// Bind verifies token and binds connID to its identity. A connection that
// was bound to another nick moves its count to the new one.
func (r *Registry) Bind(connID, token string) (string, error) {
	c, ok := r.conns[connID]
	if !ok {
		return "", ErrUnknownConnection
	}
	claims, err := r.verifier.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if c.Nick != claims.Nick {
		r.release(c)
		c.Nick = claims.Nick
		r.counts[c.Nick]++
	}
	c.Email = claims.Email
	c.Token = token
	return c.Nick, nil
}

// Unbind clears the identity of connID and returns the nick it had
func (r *Registry) Unbind(connID string) string {
	c, ok := r.conns[connID]
	if !ok {
		return ""
	}
	nick := c.Nick
	r.release(c)
	c.Nick, c.Email, c.Token = "", "", ""
	return nick
}

func (r *Registry) release(c *Connection) {
	if c.Nick == "" {
		return
	}
	r.counts[c.Nick]--
	if r.counts[c.Nick] <= 0 {
		delete(r.counts, c.Nick)
	}
}

// Remove forgets connID entirely. It returns the removed connection and the
// room channels it had joined.
func (r *Registry) Remove(connID string) (*Connection, []string) {
	c, ok := r.conns[connID]
	if !ok {
		return nil, nil
	}
	rooms := r.LeaveAll(connID)
	r.release(c)
	delete(r.conns, connID)
	return c, rooms
}

// CountFor returns how many live connections are bound to nick
func (r *Registry) CountFor(nick string) int {
	return r.counts[nick]
}

// Join adds connID to the channel of roomID
func (r *Registry) Join(connID, roomID string) bool {
	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	members, ok := r.channels[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.channels[roomID] = members
	}
	members[connID] = struct{}{}
	c.rooms[roomID] = struct{}{}
	return true
}

// Leave removes connID from the channel of roomID
func (r *Registry) Leave(connID, roomID string) {
	if c, ok := r.conns[connID]; ok {
		delete(c.rooms, roomID)
	}
	if members, ok := r.channels[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.channels, roomID)
		}
	}
}

// LeaveAll removes connID from every channel and returns the rooms it left
func (r *Registry) LeaveAll(connID string) []string {
	rooms := r.RoomsOf(connID)
	for _, id := range rooms {
		r.Leave(connID, id)
	}
	return rooms
}

// InRoom reports whether connID has joined roomID
func (r *Registry) InRoom(connID, roomID string) bool {
	_, ok := r.channels[roomID][connID]
	return ok
}

// RoomsOf returns the rooms connID has joined
func (r *Registry) RoomsOf(connID string) []string {
	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		rooms = append(rooms, id)
	}
	sort.Strings(rooms)
	return rooms
}

// Members returns the connections in the channel of roomID
func (r *Registry) Members(roomID string) []string {
	members := r.channels[roomID]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Identities returns the distinct bound nicks in the channel of roomID
func (r *Registry) Identities(roomID string) []string {
	seen := make(map[string]struct{})
	var nicks []string
	for id := range r.channels[roomID] {
		c := r.conns[id]
		if c == nil || c.Nick == "" {
			continue
		}
		if _, dup := seen[c.Nick]; dup {
			continue
		}
		seen[c.Nick] = struct{}{}
		nicks = append(nicks, c.Nick)
	}
	sort.Strings(nicks)
	return nicks
}

// IdentityCountInRoom returns how many connections bound to nick are in roomID
func (r *Registry) IdentityCountInRoom(nick, roomID string) int {
	n := 0
	for id := range r.channels[roomID] {
		if c := r.conns[id]; c != nil && c.Nick == nick {
			n++
		}
	}
	return n
}

// MemberCount returns the number of connections in the channel of roomID
func (r *Registry) MemberCount(roomID string) int {
	return len(r.channels[roomID])
}

// DropRoom removes the channel of roomID and detaches its members
func (r *Registry) DropRoom(roomID string) {
	for id := range r.channels[roomID] {
		if c := r.conns[id]; c != nil {
			delete(c.rooms, roomID)
		}
	}
	delete(r.channels, roomID)
}

// All returns every live connection id
func (r *Registry) All() []string {
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live connections
func (r *Registry) Len() int {
	return len(r.conns)
}
