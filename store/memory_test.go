package store_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/wricardo/tictactoe-arena/store"
	"github.com/wricardo/tictactoe-arena/store/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, store.NewMemory())
}

func TestStatsJSON(t *testing.T) {
	data, err := json.Marshal(store.Stats{Wins: 3, Losses: 1, Draws: 2})
	if err != nil {
		t.Fatalf("Failed to marshal stats: %v", err)
	}
	if string(data) != "[3,2,1]" {
		t.Errorf("Expected [3,2,1], got %s", data)
	}

	var s store.Stats
	if err := json.Unmarshal(data, &s); err != nil || s.Draws != 2 {
		t.Errorf("Expected round trip, got %+v (err %v)", s, err)
	}

	data, _ = json.Marshal(store.RankEntry{Nick: "bob", Wins: 4})
	if string(data) != `["bob",4]` {
		t.Errorf(`Expected ["bob",4], got %s`, data)
	}
}

func TestGuestExpired(t *testing.T) {
	now := time.Now()
	if !(store.Guest{ExpiresAt: now}).Expired(now) {
		t.Error("Guest expiring now must be expired")
	}
	if (store.Guest{ExpiresAt: now.Add(time.Second)}).Expired(now) {
		t.Error("Guest expiring later must not be expired")
	}
}
