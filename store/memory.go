package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store, used for development and tests
type Memory struct {
	mu      sync.RWMutex
	users   map[string]*User  // nick -> user
	byEmail map[string]string // lowercase email -> nick
	guests  map[string]Guest
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		guests:  make(map[string]Guest),
	}
}

func (m *Memory) CreateUser(ctx context.Context, u User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, ok := m.users[u.Nick]; ok {
		return ErrAlreadyExists
	}
	if _, ok := m.byEmail[email]; ok {
		return ErrAlreadyExists
	}
	stored := u
	m.users[u.Nick] = &stored
	m.byEmail[email] = u.Nick
	return nil
}

func (m *Memory) GetUserByNick(ctx context.Context, nick string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[nick]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	nick, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return *m.users[nick], nil
}

func (m *Memory) RecordOutcome(ctx context.Context, nick string, outcome Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[nick]
	if !ok {
		return ErrNotFound
	}
	u.Stats.Apply(outcome)
	return nil
}

func (m *Memory) Ranking(ctx context.Context, limit int) ([]RankEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	entries := make([]RankEntry, 0, len(m.users))
	for _, u := range m.users {
		entries = append(entries, RankEntry{Nick: u.Nick, Wins: u.Stats.Wins})
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].Nick < entries[j].Nick
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *Memory) PutGuest(ctx context.Context, g Guest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guests[g.Nick] = g
	return nil
}

func (m *Memory) GetGuest(ctx context.Context, nick string) (Guest, error) {
	if err := ctx.Err(); err != nil {
		return Guest{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.guests[nick]
	if !ok {
		return Guest{}, ErrNotFound
	}
	return g, nil
}

func (m *Memory) DeleteGuest(ctx context.Context, nick string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.guests, nick)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
