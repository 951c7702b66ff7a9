// Package api provides the HTTP surface of the arena server.
//
// Endpoints:
//
//   - GET  /health              liveness plus connection and room counts
//   - GET  /api/rooms           lobby listing, oldest room first
//   - GET  /api/rooms/{id}      one room with its board and present identities
//   - GET  /api/ranking?limit=  top players by wins
//   - GET  /api/profile/{nick}  stats of a registered user
//   - POST /api/auth/guest      {nick} -> {token}
//   - POST /api/auth/register   {nick, email, password} -> {token}
//   - POST /api/auth/login      {identifier, password} -> {token}
//   - GET  /ws?token=           websocket upgrade, when mounted
//   - GET  /metrics             Prometheus exposition, when mounted
//   - POST /mcp                 MCP JSON-RPC, when mounted
//
// Room passwords are never returned. Gameplay happens over /ws only; the
// REST endpoints are read-only apart from issuing tokens.
//
// Errors are returned as JSON with an appropriate status code:
//
//	{"error": "room not found"}
package api
