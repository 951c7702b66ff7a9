package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wricardo/tictactoe-arena/auth"
	"github.com/wricardo/tictactoe-arena/game/engine"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	auth.Cost = bcrypt.MinCost
}

func TestRegistry_Create(t *testing.T) {
	registry := NewRegistry()

	t.Run("create open room", func(t *testing.T) {
		rm, err := registry.Create("  Arena ", "alice", false, "")
		if err != nil {
			t.Fatalf("Failed to create room: %v", err)
		}
		if rm.ID == "" {
			t.Error("Expected generated room ID")
		}
		if rm.Name != "Arena" {
			t.Errorf("Expected trimmed name 'Arena', got '%s'", rm.Name)
		}
		if rm.Owner != "alice" {
			t.Errorf("Expected owner alice, got '%s'", rm.Owner)
		}
		if rm.Game != (engine.Game{}) {
			t.Errorf("Expected empty game, got %+v", rm.Game)
		}
		if rm.Game.Phase() != engine.PhaseEmpty {
			t.Errorf("Expected phase %s, got %s", engine.PhaseEmpty, rm.Game.Phase())
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		before := registry.List()
		_, err := registry.Create("Arena", "bob", false, "")
		if !errors.Is(err, ErrDuplicateName) {
			t.Errorf("Expected ErrDuplicateName, got %v", err)
		}
		if registry.Count() != len(before) {
			t.Errorf("Rejected create must not change the registry")
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := registry.Create("ARENA", "bob", false, "")
		if !errors.Is(err, ErrDuplicateName) {
			t.Errorf("Expected ErrDuplicateName for case variant, got %v", err)
		}
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", "   ", strings.Repeat("x", MaxNameLength+1)} {
			if _, err := registry.Create(name, "bob", false, ""); !errors.Is(err, ErrInvalidName) {
				t.Errorf("Expected ErrInvalidName for %q, got %v", name, err)
			}
		}
	})

	t.Run("password required", func(t *testing.T) {
		if _, err := registry.Create("Vault", "bob", true, ""); !errors.Is(err, ErrPasswordRequired) {
			t.Errorf("Expected ErrPasswordRequired, got %v", err)
		}
		if registry.NameTaken("Vault") {
			t.Error("Rejected room must not reserve its name")
		}
	})

	t.Run("protected room stores a hash", func(t *testing.T) {
		rm, err := registry.Create("Vault", "bob", true, "s3cret")
		if err != nil {
			t.Fatalf("Failed to create room: %v", err)
		}
		if rm.PasswordHash == "" || rm.PasswordHash == "s3cret" {
			t.Errorf("Expected a bcrypt hash, got %q", rm.PasswordHash)
		}
		if !CheckPassword(rm.PasswordHash, "s3cret") {
			t.Error("Expected correct password to match")
		}
		if CheckPassword(rm.PasswordHash, "guess") {
			t.Error("Expected wrong password to fail")
		}
	})
}

func TestRegistry_CreateProtected(t *testing.T) {
	registry := NewRegistry()
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	rm, err := registry.CreateProtected(" Vault ", "alice", hash)
	if err != nil {
		t.Fatalf("Failed to create protected room: %v", err)
	}
	if !rm.RequiresPassword || rm.Name != "Vault" || !CheckPassword(rm.PasswordHash, "s3cret") {
		t.Errorf("Unexpected protected room %+v", rm)
	}

	if _, err := registry.CreateProtected("vault", "bob", hash); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}
	if _, err := registry.CreateProtected("Open", "bob", ""); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("Expected ErrPasswordRequired, got %v", err)
	}
	if registry.Count() != 1 {
		t.Errorf("Expected 1 room, got %d", registry.Count())
	}
	if CheckPassword("", "") {
		t.Error("Empty hash must never match")
	}
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	created, _ := registry.Create("get-test", "alice", false, "")

	t.Run("get existing room", func(t *testing.T) {
		rm, err := registry.Get(created.ID)
		if err != nil {
			t.Fatalf("Failed to get room: %v", err)
		}
		if rm != created {
			t.Error("Expected the same room instance")
		}
		if !registry.Exists(created.ID) {
			t.Error("Expected room to exist")
		}
	})

	t.Run("get non-existent room", func(t *testing.T) {
		_, err := registry.Get("missing")
		if !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("Expected ErrRoomNotFound, got %v", err)
		}
	})
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry()
	for i := 0; i < 5; i++ {
		if _, err := registry.Create(fmt.Sprintf("room-%d", i), "alice", i%2 == 0, "pw"); err != nil {
			t.Fatalf("Failed to create room %d: %v", i, err)
		}
	}

	list := registry.List()
	if len(list) != 5 {
		t.Fatalf("Expected 5 rooms, got %d", len(list))
	}
	for i, l := range list {
		if l.Data.Name != fmt.Sprintf("room-%d", i) {
			t.Errorf("Expected room-%d at position %d, got %s", i, i, l.Data.Name)
		}
		if l.Data.RequiresPassword != (i%2 == 0) {
			t.Errorf("Unexpected requiresPassword for %s", l.Data.Name)
		}
	}

	data, err := json.Marshal(list[0])
	if err != nil {
		t.Fatalf("Failed to marshal listing: %v", err)
	}
	if strings.Contains(string(data), "$2") || strings.Contains(strings.ToLower(string(data)), "hash") {
		t.Errorf("Listing leaked the password hash: %s", data)
	}
	want := fmt.Sprintf(`["%s",{"name":"room-0","owner":"alice","requiresPassword":true}]`, list[0].ID)
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}

func TestRegistry_Remove(t *testing.T) {
	registry := NewRegistry()
	var removed []string
	registry.OnRemove(func(id string) { removed = append(removed, id) })

	rm, _ := registry.Create("Arena", "alice", false, "")
	other, _ := registry.Create("Lobby", "bob", false, "")

	if err := registry.Remove(rm.ID); err != nil {
		t.Fatalf("Failed to remove room: %v", err)
	}
	if len(removed) != 1 || removed[0] != rm.ID {
		t.Errorf("Expected observer to see %s, got %v", rm.ID, removed)
	}
	if registry.Exists(rm.ID) {
		t.Error("Removed room still exists")
	}
	if list := registry.List(); len(list) != 1 || list[0].ID != other.ID {
		t.Errorf("Expected only %s listed, got %v", other.ID, list)
	}

	t.Run("name is free again", func(t *testing.T) {
		if _, err := registry.Create("arena", "carol", false, ""); err != nil {
			t.Errorf("Expected name to be reusable, got %v", err)
		}
	})

	t.Run("remove non-existent room", func(t *testing.T) {
		if err := registry.Remove(rm.ID); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("Expected ErrRoomNotFound, got %v", err)
		}
		if len(removed) != 1 {
			t.Error("Observer must not fire for unknown rooms")
		}
	})
}

func TestRoomView(t *testing.T) {
	registry := NewRegistry()
	rm, _ := registry.Create("Vault", "alice", true, "pw")
	rm.Game.Circle = "alice"

	data, err := json.Marshal(rm.View())
	if err != nil {
		t.Fatalf("Failed to marshal view: %v", err)
	}
	s := string(data)
	if strings.Contains(s, rm.PasswordHash) {
		t.Errorf("View leaked the password hash: %s", s)
	}
	for _, want := range []string{`"name":"Vault"`, `"owner":"alice"`, `"circlePlayer":"alice"`, `"requiresPassword":true`} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %s in %s", want, s)
		}
	}
}
