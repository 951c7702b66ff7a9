package room

import (
	"time"

	"github.com/wricardo/tictactoe-arena/game/engine"
)

// Data is the public part of a room shown in the lobby
type Data struct {
	Name             string `json:"name"`
	Owner            string `json:"owner"`
	RequiresPassword bool   `json:"requiresPassword"`
}

// Listing pairs a room id with its public data
type Listing struct {
	ID   string
	Data Data
}

// MarshalJSON encodes a listing as the [id, data] pair clients expect
func (l Listing) MarshalJSON() ([]byte, error) {
	return marshalPair(l.ID, l.Data)
}

// Room is a named session with an owner and an embedded game
type Room struct {
	ID               string
	Name             string
	Owner            string
	RequiresPassword bool
	PasswordHash     string
	Game             engine.Game
	CreatedAt        time.Time
}

// View is the redacted room sent to clients that passed the password gate
type View struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Owner            string      `json:"owner"`
	RequiresPassword bool        `json:"requiresPassword"`
	Game             engine.Game `json:"game"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// Data returns the public lobby data of r
func (r *Room) Data() Data {
	return Data{Name: r.Name, Owner: r.Owner, RequiresPassword: r.RequiresPassword}
}

// View returns a copy of r without the password hash
func (r *Room) View() View {
	return View{
		ID:               r.ID,
		Name:             r.Name,
		Owner:            r.Owner,
		RequiresPassword: r.RequiresPassword,
		Game:             r.Game,
		CreatedAt:        r.CreatedAt,
	}
}
