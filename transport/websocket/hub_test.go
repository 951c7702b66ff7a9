package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type connectCall struct {
	connID string
	token  string
}

type receiveCall struct {
	connID  string
	payload string
}

// MockHandler records calls on channels
type MockHandler struct {
	connects    chan connectCall
	receives    chan receiveCall
	disconnects chan string
}

func NewMockHandler() *MockHandler {
	return &MockHandler{
		connects:    make(chan connectCall, 16),
		receives:    make(chan receiveCall, 16),
		disconnects: make(chan string, 16),
	}
}

func (m *MockHandler) Connect(connID, token string) {
	m.connects <- connectCall{connID, token}
}

func (m *MockHandler) Receive(connID string, payload []byte) {
	m.receives <- receiveCall{connID, string(payload)}
}

func (m *MockHandler) Disconnect(connID string) {
	m.disconnects <- connID
}

func startHub(t *testing.T) (*Hub, *MockHandler, *httptest.Server) {
	t.Helper()
	handler := NewMockHandler()
	hub := NewHub(handler, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, handler, server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(NewMockHandler(), nil)
	client := &Client{hub: hub, id: "c1", send: make(chan []byte, 1)}

	hub.registerClient(client)
	if hub.clients["c1"] != client {
		t.Fatal("Client was not registered")
	}

	hub.unregisterClient(client)
	if _, ok := hub.clients["c1"]; ok {
		t.Error("Client should have been removed")
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected send channel to be closed")
	}

	// Unregistering twice must not panic on a closed channel
	hub.unregisterClient(client)
}

func TestHubDeliver(t *testing.T) {
	hub := NewHub(NewMockHandler(), nil)
	client := &Client{hub: hub, id: "c1", send: make(chan []byte, 1)}
	hub.registerClient(client)

	hub.deliver(outbound{connID: "unknown", frame: []byte("x")})
	hub.deliver(outbound{connID: "c1", frame: []byte("first")})
	if got := string(<-client.send); got != "first" {
		t.Errorf("Expected first frame, got %q", got)
	}

	t.Run("slow client is dropped", func(t *testing.T) {
		hub.deliver(outbound{connID: "c1", frame: []byte("a")})
		hub.deliver(outbound{connID: "c1", frame: []byte("b")})
		if _, ok := hub.clients["c1"]; ok {
			t.Error("Expected overflowing client to be unregistered")
		}
	})
}

func TestWebSocketLifecycle(t *testing.T) {
	hub, handler, server := startHub(t)

	conn := dial(t, server, "?token=abc")
	defer conn.Close()

	var connID string
	select {
	case call := <-handler.connects:
		if call.token != "abc" {
			t.Errorf("Expected token abc, got %q", call.token)
		}
		connID = call.connID
	case <-time.After(time.Second):
		t.Fatal("Connect was not called")
	}

	frame := `{"event":"join","args":[]}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	select {
	case call := <-handler.receives:
		if call.connID != connID || call.payload != frame {
			t.Errorf("Unexpected receive %+v", call)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive was not called")
	}

	hub.Send(connID, []byte(`{"event":"roomError","args":[]}`))
	hub.Send(connID, []byte(`{"event":"newRoom","args":[[]]}`))
	conn.SetReadDeadline(time.Now().Add(time.Second))
	for _, want := range []string{"roomError", "newRoom"} {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read WebSocket message: %v", err)
		}
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected %s frame, got %s", want, data)
		}
	}

	conn.Close()
	select {
	case id := <-handler.disconnects:
		if id != connID {
			t.Errorf("Expected disconnect of %s, got %s", connID, id)
		}
	case <-time.After(time.Second):
		t.Fatal("Disconnect was not called")
	}
}

func TestWebSocketWithoutToken(t *testing.T) {
	_, handler, server := startHub(t)

	conn := dial(t, server, "")
	defer conn.Close()

	select {
	case call := <-handler.connects:
		if call.token != "" {
			t.Errorf("Expected empty token, got %q", call.token)
		}
		if call.connID == "" {
			t.Error("Expected a connection id")
		}
	case <-time.After(time.Second):
		t.Fatal("Connect was not called")
	}
}

func TestSendAfterStop(t *testing.T) {
	hub := NewHub(NewMockHandler(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5000; i++ {
			hub.Send("c1", []byte("x"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked after the hub stopped")
	}
}
