package service

import (
	"time"

	"github.com/wricardo/tictactoe-arena/auth"
	"github.com/wricardo/tictactoe-arena/game/engine"
)

// Outbox delivers encoded frames to one connection. Implementations must
// not block and must be safe for concurrent use.
type Outbox interface {
	Send(connID string, frame []byte)
}

// Reporter records finished-game outcomes without blocking
type Reporter interface {
	Report(s engine.Score)
}

// TokenSigner issues and verifies identity tokens
type TokenSigner interface {
	Sign(nick, email string, ttl time.Duration) (string, error)
	Verify(token string) (*auth.Claims, error)
}
