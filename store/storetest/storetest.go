// Package storetest runs the behavior every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wricardo/tictactoe-arena/store"
)

// Run exercises s. The store must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Millisecond)

	alice := store.User{Nick: "alice", Email: "alice@example.com", PasswordHash: "hash-a", CreatedAt: created}
	bob := store.User{Nick: "bob", Email: "bob@example.com", PasswordHash: "hash-b", CreatedAt: created}

	t.Run("create and fetch", func(t *testing.T) {
		if err := s.CreateUser(ctx, alice); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if err := s.CreateUser(ctx, bob); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		got, err := s.GetUserByNick(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUserByNick failed: %v", err)
		}
		if got.Email != alice.Email || got.PasswordHash != alice.PasswordHash || got.Stats != (store.Stats{}) {
			t.Errorf("Unexpected user %+v", got)
		}

		got, err = s.GetUserByEmail(ctx, "BOB@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got.Nick != "bob" {
			t.Errorf("Expected bob, got %q", got.Nick)
		}
	})

	t.Run("duplicates", func(t *testing.T) {
		dupNick := store.User{Nick: "alice", Email: "other@example.com", PasswordHash: "x"}
		if err := s.CreateUser(ctx, dupNick); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("Expected ErrAlreadyExists for nick, got %v", err)
		}
		dupEmail := store.User{Nick: "alice2", Email: "alice@example.com", PasswordHash: "x"}
		if err := s.CreateUser(ctx, dupEmail); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("Expected ErrAlreadyExists for email, got %v", err)
		}
		if _, err := s.GetUserByNick(ctx, "alice2"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Rejected user must not be stored, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := s.GetUserByNick(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if err := s.RecordOutcome(ctx, "nobody", store.OutcomeWin); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("outcomes and ranking", func(t *testing.T) {
		for _, o := range []store.Outcome{store.OutcomeWin, store.OutcomeWin, store.OutcomeLose, store.OutcomeDraw} {
			if err := s.RecordOutcome(ctx, "bob", o); err != nil {
				t.Fatalf("RecordOutcome failed: %v", err)
			}
		}
		s.RecordOutcome(ctx, "alice", store.OutcomeWin)

		got, _ := s.GetUserByNick(ctx, "bob")
		if got.Stats != (store.Stats{Wins: 2, Losses: 1, Draws: 1}) {
			t.Errorf("Unexpected stats %+v", got.Stats)
		}

		ranking, err := s.Ranking(ctx, 20)
		if err != nil {
			t.Fatalf("Ranking failed: %v", err)
		}
		if len(ranking) != 2 || ranking[0] != (store.RankEntry{Nick: "bob", Wins: 2}) || ranking[1] != (store.RankEntry{Nick: "alice", Wins: 1}) {
			t.Errorf("Unexpected ranking %+v", ranking)
		}

		top, _ := s.Ranking(ctx, 1)
		if len(top) != 1 || top[0].Nick != "bob" {
			t.Errorf("Expected limit to apply, got %+v", top)
		}
	})

	t.Run("ranking limit over many users", func(t *testing.T) {
		for i := 0; i < 25; i++ {
			u := store.User{Nick: fmt.Sprintf("p%02d", i), Email: fmt.Sprintf("p%02d@example.com", i), PasswordHash: "x"}
			if err := s.CreateUser(ctx, u); err != nil {
				t.Fatalf("CreateUser failed: %v", err)
			}
		}
		ranking, _ := s.Ranking(ctx, 20)
		if len(ranking) != 20 {
			t.Errorf("Expected 20 entries, got %d", len(ranking))
		}
	})

	t.Run("guests", func(t *testing.T) {
		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		if err := s.PutGuest(ctx, store.Guest{Nick: "ghost", ExpiresAt: expires}); err != nil {
			t.Fatalf("PutGuest failed: %v", err)
		}
		g, err := s.GetGuest(ctx, "ghost")
		if err != nil {
			t.Fatalf("GetGuest failed: %v", err)
		}
		if !g.ExpiresAt.Equal(expires) {
			t.Errorf("Expected expiry %v, got %v", expires, g.ExpiresAt)
		}
		if g.Expired(time.Now()) {
			t.Error("Guest must not be expired yet")
		}
		if err := s.DeleteGuest(ctx, "ghost"); err != nil {
			t.Fatalf("DeleteGuest failed: %v", err)
		}
		if _, err := s.GetGuest(ctx, "ghost"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
	})
}
