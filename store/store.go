// Package store defines the persistent record store for user accounts,
// guest reservations, player stats and the win ranking.
//
// Three backends implement Store: Memory (this package), store/sqlite and
// store/redisstore. The game core never waits on a store; score writes go
// through the asynchronous score reporter.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// Outcome is a finished game's result for one player
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeDraw Outcome = "draw"
)

// Stats counts a registered player's results
type Stats struct {
	Wins   int
	Losses int
	Draws  int
}

// MarshalJSON encodes stats as [wins, draws, losses]
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{s.Wins, s.Draws, s.Losses})
}

// UnmarshalJSON decodes the [wins, draws, losses] form
func (s *Stats) UnmarshalJSON(data []byte) error {
	var v [3]int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Stats{Wins: v[0], Draws: v[1], Losses: v[2]}
	return nil
}

// Apply adds one outcome to the stats
func (s *Stats) Apply(o Outcome) {
	switch o {
	case OutcomeWin:
		s.Wins++
	case OutcomeLose:
		s.Losses++
	case OutcomeDraw:
		s.Draws++
	}
}

// User is a registered account
type User struct {
	Nick         string
	Email        string
	PasswordHash string
	Stats        Stats
	CreatedAt    time.Time
}

// Guest reserves a nick for a guest until ExpiresAt
type Guest struct {
	Nick      string
	ExpiresAt time.Time
}

// Expired reports whether the reservation lapsed at now
func (g Guest) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// RankEntry is one ranking row
type RankEntry struct {
	Nick string
	Wins int
}

// MarshalJSON encodes the entry as [nick, wins]
func (e RankEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.Nick, e.Wins})
}

// UnmarshalJSON decodes a [nick, wins] pair
func (e *RankEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return errors.New("rank entry must have two elements")
	}
	if err := json.Unmarshal(pair[0], &e.Nick); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &e.Wins)
}

// Store persists accounts, guests and stats
type Store interface {
	// CreateUser fails with ErrAlreadyExists when the nick or email is taken
	CreateUser(ctx context.Context, u User) error
	GetUserByNick(ctx context.Context, nick string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// RecordOutcome fails with ErrNotFound for nicks without an account
	RecordOutcome(ctx context.Context, nick string, outcome Outcome) error
	// Ranking lists users by wins, most first
	Ranking(ctx context.Context, limit int) ([]RankEntry, error)

	PutGuest(ctx context.Context, g Guest) error
	GetGuest(ctx context.Context, nick string) (Guest, error)
	DeleteGuest(ctx context.Context, nick string) error

	Close() error
}
