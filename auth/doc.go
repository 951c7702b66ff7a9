// Package auth signs and verifies the identity tokens clients present on
// the socket and REST surfaces, and hashes the passwords of users and
// password-protected rooms.
//
// Tokens are HS256 JWTs carrying the player's nick and, for registered
// users, their email. Guests receive tokens without an email.
//
// Usage:
//
//	signer := auth.NewJWT(secret)
//	token, err := signer.Sign("alice", "alice@example.com", 14*24*time.Hour)
//	claims, err := signer.Verify(token)
package auth
