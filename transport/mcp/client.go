package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/tictactoe-arena/game/engine"
	"github.com/wricardo/tictactoe-arena/game/service"
	"github.com/wricardo/tictactoe-arena/store"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Tic-Tac-Toe Arena",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tic-Tac-Toe Arena - MCP Interface

This is a read-only client that proxies requests to the arena REST API.
Games are played by humans over websockets; these tools let you watch.

AVAILABLE TOOLS:
- list_rooms: Rooms in the lobby with their phase and connection count
- get_room: Board, seated players and present identities of one room
- get_ranking: Top players by wins
- get_profile: Wins, draws and losses of a registered player
- game_rules: How rooms, sides, turns and forfeits work`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all live rooms, oldest first",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get the board and players of one room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_ranking",
		Description: "Get the top players by wins",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Number of players to return (max %d)", service.DefaultRankingLimit),
				},
			},
		},
	}, c.handleGetRanking)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_profile",
		Description: "Get the stats of a registered player",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"nick": map[string]interface{}{
					"type":        "string",
					"description": "Player nick",
				},
			},
			Required: []string{"nick"},
		},
	}, c.handleGetProfile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the rules of the arena",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HTTPHandler serves single JSON-RPC messages posted to it
func (c *Client) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Rooms []service.RoomSummary `json:"rooms"`
	}
	if err := c.apiCall(ctx, "GET", "/api/rooms", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRooms(resp.Rooms)), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var snap service.RoomSnapshot
	if err := c.apiCall(ctx, "GET", "/api/rooms/"+url.PathEscape(roomID), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRoom(&snap)), nil
}

func (c *Client) handleGetRanking(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	path := "/api/ranking"
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, int(limit))
	}

	var resp struct {
		Ranking []store.RankEntry `json:"ranking"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRanking(resp.Ranking)), nil
}

func (c *Client) handleGetProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	nick, _ := args["nick"].(string)
	if nick == "" {
		return mcp.NewToolResultError("nick is required"), nil
	}

	var profile service.Profile
	if err := c.apiCall(ctx, "GET", "/api/profile/"+url.PathEscape(nick), nil, &profile); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatProfile(profile)), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(rules), nil
}

const rules = `TIC-TAC-TOE ARENA RULES

ROOMS:
- Anyone with an identity (registered user or guest) can create a room. The creator owns it.
- Room names are unique, ignoring case. A room may require a password; the owner never needs it.
- Any number of connections can watch a room. Two of them play.

SIDES:
- circlePlayer places O, crossPlayer places X.
- Picking a free side seats you. Picking the other side moves you.
- When both sides are taken a game starts. The first side is chosen at random.

TURNS:
- Players alternate, one mark per turn, on cells 0-8 (row by row from the top left).
- Three in a row, column or diagonal wins. A full board without a line is a draw.
- After a game ends, restart starts a new one between the same players.

LEAVING:
- Leaving or being kicked during a game forfeits it. The opponent is credited with a win.
- A player with several tabs open only leaves when the last one closes.
- When the owner leaves, ownership passes to a random identity still in the room.
- A room with no connections left is removed.

STATS:
- Registered players keep wins, draws and losses. Guests do not.`

// Formatting helpers

func formatRooms(rooms []service.RoomSummary) string {
	if len(rooms) == 0 {
		return "No rooms are open."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Rooms (%d):\n\n", len(rooms))
	for _, r := range rooms {
		lock := ""
		if r.RequiresPassword {
			lock = " [password]"
		}
		fmt.Fprintf(&b, "- %s%s (id: %s) owner=%s phase=%s connections=%d\n",
			r.Name, lock, r.ID, r.Owner, r.Phase, r.Connections)
	}
	return b.String()
}

func formatRoom(snap *service.RoomSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room %s (id: %s)\n", snap.Name, snap.ID)
	fmt.Fprintf(&b, "Owner: %s\n", snap.Owner)
	fmt.Fprintf(&b, "Phase: %s\n", snap.Game.Phase())
	fmt.Fprintf(&b, "O (circlePlayer): %s\n", seat(snap.Game.Circle))
	fmt.Fprintf(&b, "X (crossPlayer): %s\n", seat(snap.Game.Cross))
	if snap.Game.Live() {
		fmt.Fprintf(&b, "Turn: %s (%s)\n", snap.Game.Turn, snap.Game.Occupant(snap.Game.Turn))
	}
	b.WriteString("\n")
	b.WriteString(formatBoard(snap.Game.Board))
	fmt.Fprintf(&b, "\nConnections: %d\n", snap.Connections)
	if len(snap.Identities) > 0 {
		fmt.Fprintf(&b, "Present: %s\n", strings.Join(snap.Identities, ", "))
	}
	return b.String()
}

func seat(nick string) string {
	if nick == "" {
		return "(free)"
	}
	return nick
}

// formatBoard renders the board as three rows, showing free cell indices
func formatBoard(board engine.Board) string {
	var b strings.Builder
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			idx := row*3 + col
			if board[idx] == engine.Empty {
				fmt.Fprintf(&b, "%d", idx)
			} else {
				b.WriteString(string(board[idx]))
			}
			if col < 2 {
				b.WriteString(" | ")
			}
		}
		b.WriteString("\n")
		if row < 2 {
			b.WriteString("---------\n")
		}
	}
	return b.String()
}

func formatRanking(entries []store.RankEntry) string {
	if len(entries) == 0 {
		return "No ranked players yet."
	}
	var b strings.Builder
	b.WriteString("Ranking:\n\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s - %d wins\n", i+1, e.Nick, e.Wins)
	}
	return b.String()
}

func formatProfile(p service.Profile) string {
	return fmt.Sprintf("%s: %d wins, %d draws, %d losses", p.Nick, p.Stats.Wins, p.Stats.Draws, p.Stats.Losses)
}
