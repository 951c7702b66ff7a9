// Command bot joins a tic-tac-toe arena server as a guest and plays perfect
// games over the websocket protocol. Run two bots against the same room to
// watch a series of draws.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "bot",
		Usage: "Play tic-tac-toe against an arena server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Arena server URL"},
			&cli.StringFlag{Name: "nick", Usage: "Guest nick (default: random bot-xxxxxxxx)"},
			&cli.StringFlag{Name: "room", Usage: "Room id to join; a new room is created when empty"},
			&cli.StringFlag{Name: "room-name", Usage: "Name of the created room (default: <nick>'s table)"},
			&cli.StringFlag{Name: "password", Usage: "Room password"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "Games to finish before exiting"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	serverURL := strings.TrimSuffix(cmd.String("url"), "/")
	nick := cmd.String("nick")
	if nick == "" {
		nick = "bot-" + uuid.NewString()[:8]
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	token, err := guestToken(httpClient, serverURL, nick)
	if err != nil {
		return err
	}

	wsURL, err := websocketURL(serverURL, token)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	log.Printf("[BOT] Connected to %s as %s", serverURL, nick)

	send := func(event string, args ...interface{}) error {
		frame, err := json.Marshal(map[string]interface{}{"event": event, "args": args})
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, frame)
	}

	b := NewBot(nick, token, int(cmd.Int("games")), send)
	b.RoomID = cmd.String("room")
	b.Password = cmd.String("password")

	name := cmd.String("room-name")
	if name == "" {
		name = nick + "'s table"
	}
	if err := b.Start(name); err != nil {
		return err
	}

	for !b.Done() {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("read: %w", err)
		}
		var env struct {
			Event string            `json:"event"`
			Args  []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[BOT] Ignoring invalid frame: %v", err)
			continue
		}
		if err := b.Handle(env.Event, env.Args); err != nil {
			return err
		}
	}

	log.Printf("[BOT] %s finished: %s", nick, b.Results())
	return nil
}

// guestToken asks the server for a guest identity
func guestToken(client *http.Client, serverURL, nick string) (string, error) {
	body, err := json.Marshal(map[string]string{"nick": nick})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	resp, err := client.Post(serverURL+"/api/auth/guest", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("guest login: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("guest login failed: %s - %s", resp.Status, string(data))
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse guest response: %w", err)
	}
	return out.Token, nil
}

// websocketURL maps an http(s) server URL to its /ws endpoint
func websocketURL(serverURL, token string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}
