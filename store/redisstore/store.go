// Package redisstore provides a Redis-backed store.Store.
//
// Keys, under a configurable prefix:
//
//	<prefix>:user:<nick>     hash of the account and its stats
//	<prefix>:email:<email>   nick owning a lowercased email
//	<prefix>:guest:<nick>    guest expiry (unix seconds) with a matching TTL
//	<prefix>:ranking         sorted set of nick by wins
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wricardo/tictactoe-arena/store"
)

// DefaultPrefix namespaces every key written by the store
const DefaultPrefix = "tictactoe"

// Options configures the connection
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store persists accounts and stats in Redis
type Store struct {
	client *redis.Client
	prefix string
}

var _ store.Store = (*Store)(nil)

// Open connects to Redis and verifies the connection
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Printf("[REDIS] Connected to %s (prefix %s)", opts.Addr, prefix)
	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) userKey(nick string) string   { return s.prefix + ":user:" + nick }
func (s *Store) emailKey(email string) string { return s.prefix + ":email:" + strings.ToLower(email) }
func (s *Store) guestKey(nick string) string  { return s.prefix + ":guest:" + nick }
func (s *Store) rankingKey() string           { return s.prefix + ":ranking" }

// Close closes the client
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// CreateUser reserves the email, then the nick, then writes the account
func (s *Store) CreateUser(ctx context.Context, u store.User) error {
	ok, err := s.client.SetNX(ctx, s.emailKey(u.Email), u.Nick, 0).Result()
	if err != nil {
		return fmt.Errorf("reserve email: %w", err)
	}
	if !ok {
		return store.ErrAlreadyExists
	}

	ok, err = s.client.HSetNX(ctx, s.userKey(u.Nick), "nick", u.Nick).Result()
	if err != nil || !ok {
		s.client.Del(ctx, s.emailKey(u.Email))
		if err != nil {
			return fmt.Errorf("reserve nick: %w", err)
		}
		return store.ErrAlreadyExists
	}

	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.userKey(u.Nick),
			"email", strings.ToLower(u.Email),
			"password_hash", u.PasswordHash,
			"wins", u.Stats.Wins,
			"losses", u.Stats.Losses,
			"draws", u.Stats.Draws,
			"created_at", createdAt.UTC().UnixMilli(),
		)
		pipe.ZAdd(ctx, s.rankingKey(), redis.Z{Score: float64(u.Stats.Wins), Member: u.Nick})
		return nil
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByNick returns one account by nick
func (s *Store) GetUserByNick(ctx context.Context, nick string) (store.User, error) {
	fields, err := s.client.HGetAll(ctx, s.userKey(nick)).Result()
	if err != nil {
		return store.User{}, fmt.Errorf("get user: %w", err)
	}
	if len(fields) == 0 {
		return store.User{}, store.ErrNotFound
	}
	return decodeUser(fields), nil
}

// GetUserByEmail resolves the email index then loads the account
func (s *Store) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	nick, err := s.client.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.User{}, store.ErrNotFound
		}
		return store.User{}, fmt.Errorf("get email index: %w", err)
	}
	return s.GetUserByNick(ctx, nick)
}

func decodeUser(fields map[string]string) store.User {
	atoi := func(k string) int {
		n, _ := strconv.Atoi(fields[k])
		return n
	}
	created, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	return store.User{
		Nick:         fields["nick"],
		Email:        fields["email"],
		PasswordHash: fields["password_hash"],
		Stats: store.Stats{
			Wins:   atoi("wins"),
			Losses: atoi("losses"),
			Draws:  atoi("draws"),
		},
		CreatedAt: time.UnixMilli(created).UTC(),
	}
}

// RecordOutcome increments one stats field and, for wins, the ranking
func (s *Store) RecordOutcome(ctx context.Context, nick string, outcome store.Outcome) error {
	var field string
	switch outcome {
	case store.OutcomeWin:
		field = "wins"
	case store.OutcomeLose:
		field = "losses"
	case store.OutcomeDraw:
		field = "draws"
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}

	n, err := s.client.Exists(ctx, s.userKey(nick)).Result()
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, s.userKey(nick), field, 1)
		if outcome == store.OutcomeWin {
			pipe.ZIncrBy(ctx, s.rankingKey(), 1, nick)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// Ranking reads the sorted set, most wins first. Equal scores are ordered
// by nick.
func (s *Store) Ranking(ctx context.Context, limit int) ([]store.RankEntry, error) {
	zs, err := s.client.ZRangeArgsWithScores(ctx, redis.ZRangeArgs{
		Key:   s.rankingKey(),
		Start: 0,
		Stop:  -1,
		Rev:   true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}

	entries := make([]store.RankEntry, 0, len(zs))
	for _, z := range zs {
		nick, _ := z.Member.(string)
		entries = append(entries, store.RankEntry{Nick: nick, Wins: int(z.Score)})
	}
	sortRanking(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// PutGuest stores the reservation with a TTL ending at its expiry
func (s *Store) PutGuest(ctx context.Context, g store.Guest) error {
	ttl := time.Until(g.ExpiresAt)
	if ttl <= 0 {
		return s.DeleteGuest(ctx, g.Nick)
	}
	if err := s.client.Set(ctx, s.guestKey(g.Nick), g.ExpiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("put guest: %w", err)
	}
	return nil
}

// GetGuest returns a live guest reservation
func (s *Store) GetGuest(ctx context.Context, nick string) (store.Guest, error) {
	sec, err := s.client.Get(ctx, s.guestKey(nick)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.Guest{}, store.ErrNotFound
		}
		return store.Guest{}, fmt.Errorf("get guest: %w", err)
	}
	return store.Guest{Nick: nick, ExpiresAt: time.Unix(sec, 0).UTC()}, nil
}

// DeleteGuest drops a guest reservation
func (s *Store) DeleteGuest(ctx context.Context, nick string) error {
	if err := s.client.Del(ctx, s.guestKey(nick)).Err(); err != nil {
		return fmt.Errorf("delete guest: %w", err)
	}
	return nil
}

// sortRanking orders by wins desc then nick asc. Redis breaks score ties
// in reverse lexical order when reading with Rev.
func sortRanking(entries []store.RankEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].Nick < entries[j].Nick
	})
}
