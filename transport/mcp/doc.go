// Package mcp exposes the arena to MCP clients.
//
// The Client registers read-only tools (list_rooms, get_room, get_ranking,
// get_profile, game_rules) and answers them by calling the REST API, so the
// same tools work over stdio and over the server's POST /mcp endpoint.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
