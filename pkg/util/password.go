package util

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when the caller passes a cost of 0.
const DefaultBcryptCost = 12

// HashPassword hashes a plain text password with the given bcrypt cost.
// The cost factor comes from configuration, not a hard-coded constant.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// VerifyPassword checks if a plain text password matches a hashed password.
// bcrypt's comparison is constant time.
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
