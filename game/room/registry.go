package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/wricardo/tictactoe-arena/auth"
)

// MaxNameLength is the longest room name accepted, in runes
const MaxNameLength = 32

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrDuplicateName    = errors.New("room name already taken")
	ErrInvalidName      = errors.New("invalid room name")
	ErrPasswordRequired = errors.New("password required for protected room")
)

// Registry is the authoritative map of room id to Room
type Registry struct {
	rooms    map[string]*Room
	names    map[string]string // lowercase name -> id
	order    []string
	onRemove []func(id string)

	newID func() string
	now   func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		names: make(map[string]string),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// OnRemove registers fn to be called with the id of every removed room
func (r *Registry) OnRemove(fn func(id string)) {
	r.onRemove = append(r.onRemove, fn)
}

// Validate reports why a room named name could not be created right now
func (r *Registry) Validate(name string, requiresPassword bool, password string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return ErrInvalidName
	}
	if r.NameTaken(name) {
		return ErrDuplicateName
	}
	if requiresPassword && password == "" {
		return ErrPasswordRequired
	}
	return nil
}

// Create adds a room with an empty game. The registry is left untouched
// when the name is invalid or already used by a live room.
func (r *Registry) Create(name, owner string, requiresPassword bool, password string) (*Room, error) {
	if err := r.Validate(name, requiresPassword, password); err != nil {
		return nil, err
	}
	var hash string
	if requiresPassword {
		h, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("failed to protect room: %w", err)
		}
		hash = h
	}
	return r.insert(name, owner, hash), nil
}

// CreateProtected adds a password protected room from an already computed
// bcrypt hash, see HashPassword.
func (r *Registry) CreateProtected(name, owner, hash string) (*Room, error) {
	if hash == "" {
		return nil, ErrPasswordRequired
	}
	if err := r.Validate(name, false, ""); err != nil {
		return nil, err
	}
	return r.insert(name, owner, hash), nil
}

func (r *Registry) insert(name, owner, hash string) *Room {
	name = strings.TrimSpace(name)
	rm := &Room{
		ID:               r.newID(),
		Name:             name,
		Owner:            owner,
		RequiresPassword: hash != "",
		PasswordHash:     hash,
		CreatedAt:        r.now(),
	}
	r.rooms[rm.ID] = rm
	r.names[strings.ToLower(name)] = rm.ID
	r.order = append(r.order, rm.ID)
	return rm
}

// Get retrieves a room by id
func (r *Registry) Get(id string) (*Room, error) {
	rm, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return rm, nil
}

// Exists reports whether id names a live room
func (r *Registry) Exists(id string) bool {
	_, ok := r.rooms[id]
	return ok
}

// NameTaken reports whether a live room uses name, ignoring case
func (r *Registry) NameTaken(name string) bool {
	_, ok := r.names[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// List returns the public data of every room, oldest first
func (r *Registry) List() []Listing {
	result := make([]Listing, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, Listing{ID: id, Data: r.rooms[id].Data()})
	}
	return result
}

// Remove deletes a room and notifies the removal observers
func (r *Registry) Remove(id string) error {
	rm, ok := r.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}

	delete(r.rooms, id)
	delete(r.names, strings.ToLower(rm.Name))
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	for _, fn := range r.onRemove {
		fn(id)
	}
	return nil
}

// HashPassword hashes a room password. It touches no registry state and
// may run on any goroutine.
func HashPassword(plain string) (string, error) {
	return auth.HashPassword(plain)
}

// CheckPassword reports whether plain matches a hash taken from a Room. It
// touches no registry state and may run on any goroutine.
func CheckPassword(hash, plain string) bool {
	return hash != "" && auth.ComparePassword(hash, plain)
}

// Count returns the number of live rooms
func (r *Registry) Count() int {
	return len(r.rooms)
}

func marshalPair(id string, v interface{}) ([]byte, error) {
	return json.Marshal([]interface{}{id, v})
}
