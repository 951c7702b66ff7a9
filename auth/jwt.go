package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrEmptySecret  = errors.New("jwt secret is required")
)

// Claims identify a player. Email is empty for guests.
type Claims struct {
	Nick  string `json:"nick"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Guest reports whether the claims belong to a guest identity
func (c *Claims) Guest() bool {
	return c.Email == ""
}

// JWT signs and verifies HS256 tokens with a shared secret
type JWT struct {
	secret []byte
	now    func() time.Time
}

// NewJWT creates a signer/verifier for secret
func NewJWT(secret string) (*JWT, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &JWT{secret: []byte(secret), now: time.Now}, nil
}

// Sign issues a token for nick valid for ttl
func (j *JWT) Sign(nick, email string, ttl time.Duration) (string, error) {
	now := j.now()
	claims := Claims{
		Nick:  nick,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   nick,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns its claims. Expired tokens yield
// ErrExpiredToken, anything else unusable yields ErrInvalidToken.
func (j *JWT) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Nick == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RandomSecret returns a hex-encoded 32 byte secret
func RandomSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
