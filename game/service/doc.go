// Package service coordinates rooms, connections and games for the arena.
//
// A Dispatcher owns the room registry and the connection registry and
// applies every inbound event to them from one goroutine, so neither
// registry needs locking. Transports feed it through Connect, Receive and
// Disconnect and receive frames through an Outbox.
//
// Frames are JSON envelopes of the form {"event": name, "args": [...]}.
// Events that touch the account store (register, login, guest, getProfile,
// getRanking) run off the loop and answer the requesting connection
// directly. A guest login is bound back on the loop.
//
// Usage:
//
//	rooms := room.NewRegistry()
//	conns := presence.NewRegistry(jwt)
//	d := service.NewDispatcher(rooms, conns, hub, reporter, service.Options{
//		Accounts: service.NewAccounts(st, jwt, service.AccountOptions{}),
//	})
//	go d.Run(ctx)
//
// Read-only views for HTTP and MCP surfaces are served by ListRooms,
// RoomSnapshot and Stats, which run on the loop as well.
package service
