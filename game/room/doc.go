// Package room provides the registry of live tic-tac-toe rooms.
//
// The room package implements:
//   - Room creation with trimmed, case-insensitively unique names
//   - Lookup by opaque id and a redacted listing for the lobby
//   - Password protection backed by bcrypt hashes
//   - Removal notifications for lobby broadcasts
//
// Core Types:
//
// Registry owns every Room. Each Room embeds exactly one engine.Game and is
// referenced elsewhere only by its id.
//
// Concurrency:
//
// The registry holds no locks. It is owned by the event dispatcher loop and
// must only be touched from that goroutine.
//
// Usage:
//
//	rooms := room.NewRegistry()
//	rooms.OnRemove(func(id string) { log.Printf("room %s gone", id) })
//
//	r, err := rooms.Create("Arena", "alice", false, "")
//	if errors.Is(err, room.ErrDuplicateName) {
//		// name taken
//	}
package room
