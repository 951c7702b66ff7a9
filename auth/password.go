package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used by HashPassword
var Cost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of plain
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword reports whether plain matches hash
func ComparePassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
