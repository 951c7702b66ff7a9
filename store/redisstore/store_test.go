package redisstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/wricardo/tictactoe-arena/store"
	"github.com/wricardo/tictactoe-arena/store/storetest"
)

// openTestStore connects to REDIS_ADDR under a throwaway prefix
func openTestStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, Options{Addr: addr, Prefix: "test-" + uuid.NewString()})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		keys, _ := s.client.Keys(ctx, s.prefix+":*").Result()
		if len(keys) > 0 {
			s.client.Del(ctx, keys...)
		}
		s.Close()
	})
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, openTestStore(t))
}

func TestOpenRequiresAddr(t *testing.T) {
	if _, err := Open(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestSortRanking(t *testing.T) {
	entries := []store.RankEntry{
		{Nick: "carol", Wins: 1},
		{Nick: "bob", Wins: 3},
		{Nick: "zed", Wins: 3},
		{Nick: "alice", Wins: 1},
	}
	sortRanking(entries)

	want := []string{"bob", "zed", "alice", "carol"}
	for i, nick := range want {
		if entries[i].Nick != nick {
			t.Errorf("Position %d: expected %s, got %s", i, nick, entries[i].Nick)
		}
	}
}
