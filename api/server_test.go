package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wricardo/tictactoe-arena/game/engine"
	"github.com/wricardo/tictactoe-arena/game/room"
	"github.com/wricardo/tictactoe-arena/game/service"
	"github.com/wricardo/tictactoe-arena/store"
)

// MockLobby implements Lobby for testing
type MockLobby struct {
	ListRoomsFunc    func(ctx context.Context) ([]service.RoomSummary, error)
	RoomSnapshotFunc func(ctx context.Context, id string) (*service.RoomSnapshot, error)
	StatsFunc        func(ctx context.Context) (service.Stats, error)
}

func (m *MockLobby) ListRooms(ctx context.Context) ([]service.RoomSummary, error) {
	if m.ListRoomsFunc != nil {
		return m.ListRoomsFunc(ctx)
	}
	return []service.RoomSummary{}, nil
}

func (m *MockLobby) RoomSnapshot(ctx context.Context, id string) (*service.RoomSnapshot, error) {
	if m.RoomSnapshotFunc != nil {
		return m.RoomSnapshotFunc(ctx, id)
	}
	return nil, room.ErrRoomNotFound
}

func (m *MockLobby) Stats(ctx context.Context) (service.Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return service.Stats{}, nil
}

// MockAccounts implements AccountService for testing
type MockAccounts struct {
	RegisterFunc      func(ctx context.Context, nick, email, password string) (string, error)
	LoginFunc         func(ctx context.Context, identifier, password string) (string, error)
	GuestFunc         func(ctx context.Context, nick string) (string, error)
	ProfileByNickFunc func(ctx context.Context, nick string) (service.Profile, error)
	RankingFunc       func(ctx context.Context, limit int) ([]store.RankEntry, error)
}

func (m *MockAccounts) Register(ctx context.Context, nick, email, password string) (string, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, nick, email, password)
	}
	return "token", nil
}

func (m *MockAccounts) Login(ctx context.Context, identifier, password string) (string, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, identifier, password)
	}
	return "token", nil
}

func (m *MockAccounts) Guest(ctx context.Context, nick string) (string, error) {
	if m.GuestFunc != nil {
		return m.GuestFunc(ctx, nick)
	}
	return "token", nil
}

func (m *MockAccounts) ProfileByNick(ctx context.Context, nick string) (service.Profile, error) {
	if m.ProfileByNickFunc != nil {
		return m.ProfileByNickFunc(ctx, nick)
	}
	return service.Profile{}, store.ErrNotFound
}

func (m *MockAccounts) Ranking(ctx context.Context, limit int) ([]store.RankEntry, error) {
	if m.RankingFunc != nil {
		return m.RankingFunc(ctx, limit)
	}
	return []store.RankEntry{}, nil
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	lobby := &MockLobby{
		StatsFunc: func(ctx context.Context) (service.Stats, error) {
			return service.Stats{Connections: 3, Rooms: 1}, nil
		},
	}
	s := NewServer(lobby, &MockAccounts{}, Options{})

	w := doRequest(t, s, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	decodeBody(t, w, &resp)
	if resp["status"] != "ok" || resp["connections"] != float64(3) || resp["rooms"] != float64(1) {
		t.Errorf("Unexpected health %v", resp)
	}

	t.Run("stopped dispatcher", func(t *testing.T) {
		lobby.StatsFunc = func(ctx context.Context) (service.Stats, error) {
			return service.Stats{}, service.ErrStopped
		}
		w := doRequest(t, s, "GET", "/health", nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})
}

func TestRooms(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	lobby := &MockLobby{
		ListRoomsFunc: func(ctx context.Context) ([]service.RoomSummary, error) {
			return []service.RoomSummary{{
				ID:          "r1",
				Data:        room.Data{Name: "Arena", Owner: "alice"},
				Phase:       engine.PhaseWaiting,
				Connections: 2,
				CreatedAt:   created,
			}}, nil
		},
		RoomSnapshotFunc: func(ctx context.Context, id string) (*service.RoomSnapshot, error) {
			if id != "r1" {
				return nil, room.ErrRoomNotFound
			}
			return &service.RoomSnapshot{
				View:        room.View{ID: "r1", Name: "Arena", Owner: "alice", Game: engine.Game{Circle: "alice"}},
				Connections: 2,
				Identities:  []string{"alice", "bob"},
			}, nil
		},
	}
	s := NewServer(lobby, &MockAccounts{}, Options{})

	t.Run("list", func(t *testing.T) {
		w := doRequest(t, s, "GET", "/api/rooms", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp struct {
			Count int `json:"count"`
			Rooms []struct {
				ID          string `json:"id"`
				Name        string `json:"name"`
				Owner       string `json:"owner"`
				Phase       string `json:"phase"`
				Connections int    `json:"connections"`
			} `json:"rooms"`
		}
		decodeBody(t, w, &resp)
		if resp.Count != 1 || len(resp.Rooms) != 1 {
			t.Fatalf("Expected one room, got %+v", resp)
		}
		got := resp.Rooms[0]
		if got.ID != "r1" || got.Name != "Arena" || got.Owner != "alice" || got.Phase != string(engine.PhaseWaiting) || got.Connections != 2 {
			t.Errorf("Unexpected room %+v", got)
		}
	})

	t.Run("get", func(t *testing.T) {
		w := doRequest(t, s, "GET", "/api/rooms/r1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var resp map[string]interface{}
		decodeBody(t, w, &resp)
		if resp["owner"] != "alice" {
			t.Errorf("Expected owner alice, got %v", resp["owner"])
		}
		game, ok := resp["game"].(map[string]interface{})
		if !ok || game["circlePlayer"] != "alice" || game["crossPlayer"] != nil {
			t.Errorf("Unexpected game %v", resp["game"])
		}
		if _, leaked := resp["passwordHash"]; leaked {
			t.Error("Room response must not include the password hash")
		}
	})

	t.Run("missing", func(t *testing.T) {
		w := doRequest(t, s, "GET", "/api/rooms/nope", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
		var resp map[string]string
		decodeBody(t, w, &resp)
		if resp["error"] == "" {
			t.Error("Expected an error message")
		}
	})
}

func TestRanking(t *testing.T) {
	var gotLimit int
	accounts := &MockAccounts{
		RankingFunc: func(ctx context.Context, limit int) ([]store.RankEntry, error) {
			gotLimit = limit
			return []store.RankEntry{{Nick: "alice", Wins: 4}, {Nick: "bob", Wins: 1}}, nil
		},
	}
	s := NewServer(&MockLobby{}, accounts, Options{})

	tests := []struct {
		name      string
		path      string
		status    int
		wantLimit int
	}{
		{"default limit", "/api/ranking", http.StatusOK, service.DefaultRankingLimit},
		{"explicit limit", "/api/ranking?limit=5", http.StatusOK, 5},
		{"bad limit", "/api/ranking?limit=abc", http.StatusBadRequest, 0},
		{"zero limit", "/api/ranking?limit=0", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLimit = 0
			w := doRequest(t, s, "GET", tt.path, nil)
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, w.Code)
			}
			if gotLimit != tt.wantLimit {
				t.Errorf("Expected limit %d, got %d", tt.wantLimit, gotLimit)
			}
		})
	}

	w := doRequest(t, s, "GET", "/api/ranking", nil)
	var resp struct {
		Ranking [][]interface{} `json:"ranking"`
	}
	decodeBody(t, w, &resp)
	if len(resp.Ranking) != 2 || resp.Ranking[0][0] != "alice" || resp.Ranking[0][1] != float64(4) {
		t.Errorf("Unexpected ranking %v", resp.Ranking)
	}
}

func TestProfile(t *testing.T) {
	accounts := &MockAccounts{
		ProfileByNickFunc: func(ctx context.Context, nick string) (service.Profile, error) {
			if nick != "alice" {
				return service.Profile{}, store.ErrNotFound
			}
			return service.Profile{Nick: "alice", Stats: store.Stats{Wins: 3, Draws: 2, Losses: 1}}, nil
		},
	}
	s := NewServer(&MockLobby{}, accounts, Options{})

	w := doRequest(t, s, "GET", "/api/profile/alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Nick  string `json:"nick"`
		Stats []int  `json:"stats"`
	}
	decodeBody(t, w, &resp)
	if resp.Nick != "alice" || len(resp.Stats) != 3 || resp.Stats[0] != 3 || resp.Stats[1] != 2 || resp.Stats[2] != 1 {
		t.Errorf("Unexpected profile %+v", resp)
	}

	w = doRequest(t, s, "GET", "/api/profile/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestAuthEndpoints(t *testing.T) {
	accounts := &MockAccounts{
		GuestFunc: func(ctx context.Context, nick string) (string, error) {
			switch nick {
			case "":
				return "", service.ErrInvalidNick
			case "taken":
				return "", &service.GuestNickError{Remaining: time.Hour}
			}
			return "guest-token", nil
		},
		RegisterFunc: func(ctx context.Context, nick, email, password string) (string, error) {
			if email == "dup@example.com" {
				return "", service.ErrEmailTaken
			}
			return "user-token", nil
		},
		LoginFunc: func(ctx context.Context, identifier, password string) (string, error) {
			if password != "pw" {
				return "", service.ErrBadCredentials
			}
			return "login-token", nil
		},
	}
	s := NewServer(&MockLobby{}, accounts, Options{})

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		token  string
	}{
		{"guest ok", "/api/auth/guest", map[string]string{"nick": "dave"}, http.StatusCreated, "guest-token"},
		{"guest invalid", "/api/auth/guest", map[string]string{"nick": ""}, http.StatusBadRequest, ""},
		{"guest reserved", "/api/auth/guest", map[string]string{"nick": "taken"}, http.StatusConflict, ""},
		{"register ok", "/api/auth/register", map[string]string{"nick": "erin", "email": "erin@example.com", "password": "pw"}, http.StatusCreated, "user-token"},
		{"register duplicate", "/api/auth/register", map[string]string{"nick": "erin", "email": "dup@example.com", "password": "pw"}, http.StatusConflict, ""},
		{"login ok", "/api/auth/login", map[string]string{"identifier": "erin", "password": "pw"}, http.StatusOK, "login-token"},
		{"login bad password", "/api/auth/login", map[string]string{"identifier": "erin", "password": "x"}, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, "POST", tt.path, tt.body)
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, w.Code)
			}
			var resp map[string]string
			decodeBody(t, w, &resp)
			if tt.token != "" && resp["token"] != tt.token {
				t.Errorf("Expected token %q, got %q", tt.token, resp["token"])
			}
			if tt.token == "" && resp["error"] == "" {
				t.Error("Expected an error message")
			}
		})
	}

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		s.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		accounts.LoginFunc = func(ctx context.Context, identifier, password string) (string, error) {
			return "", errors.New("disk on fire")
		}
		w := doRequest(t, s, "POST", "/api/auth/login", map[string]string{"identifier": "a", "password": "b"})
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}
	})
}

func TestMountedHandlers(t *testing.T) {
	mounted := func(name string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(name))
		})
	}
	s := NewServer(&MockLobby{}, &MockAccounts{}, Options{
		WebSocket: mounted("ws"),
		Metrics:   mounted("metrics"),
		MCP:       mounted("mcp"),
	})

	for _, tc := range []struct{ method, path, want string }{
		{"GET", "/ws", "ws"},
		{"GET", "/metrics", "metrics"},
		{"POST", "/mcp", "mcp"},
	} {
		w := doRequest(t, s, tc.method, tc.path, nil)
		if w.Body.String() != tc.want {
			t.Errorf("%s %s: expected %q, got %q", tc.method, tc.path, tc.want, w.Body.String())
		}
	}

	t.Run("unmounted", func(t *testing.T) {
		bare := NewServer(&MockLobby{}, &MockAccounts{}, Options{})
		if w := doRequest(t, bare, "GET", "/metrics", nil); w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

func TestInternalErrorsHidden(t *testing.T) {
	leak := errors.New("sqlite: disk I/O error at /var/lib/arena.db")
	accounts := &MockAccounts{
		RankingFunc: func(ctx context.Context, limit int) ([]store.RankEntry, error) {
			return nil, leak
		},
		ProfileByNickFunc: func(ctx context.Context, nick string) (service.Profile, error) {
			return service.Profile{}, leak
		},
		GuestFunc: func(ctx context.Context, nick string) (string, error) {
			return "", leak
		},
		RegisterFunc: func(ctx context.Context, nick, email, password string) (string, error) {
			return "", leak
		},
		LoginFunc: func(ctx context.Context, identifier, password string) (string, error) {
			return "", leak
		},
	}
	lobby := &MockLobby{
		ListRoomsFunc: func(ctx context.Context) ([]service.RoomSummary, error) {
			return nil, leak
		},
	}
	s := NewServer(lobby, accounts, Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"ranking", "GET", "/api/ranking", nil, http.StatusInternalServerError},
		{"profile", "GET", "/api/profile/alice", nil, http.StatusInternalServerError},
		{"guest", "POST", "/api/auth/guest", map[string]string{"nick": "dave"}, http.StatusInternalServerError},
		{"register", "POST", "/api/auth/register", map[string]string{"nick": "erin", "email": "erin@example.com", "password": "pw"}, http.StatusInternalServerError},
		{"login", "POST", "/api/auth/login", map[string]string{"identifier": "erin", "password": "pw"}, http.StatusInternalServerError},
		{"rooms", "GET", "/api/rooms", nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, w.Code)
			}
			if bytes.Contains(w.Body.Bytes(), []byte("sqlite")) {
				t.Errorf("Response leaks the internal error: %s", w.Body.String())
			}
			var resp map[string]string
			decodeBody(t, w, &resp)
			if resp["error"] != http.StatusText(tt.status) {
				t.Errorf("Expected generic message %q, got %q", http.StatusText(tt.status), resp["error"])
			}
		})
	}
}
