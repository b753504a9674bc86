package crypto

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt (higher = more secure but slower)
	BcryptCost = 10

	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword compares a password with a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidatePasswordStrength checks the length bounds. bcrypt ignores bytes past 72.
func ValidatePasswordStrength(password string) bool {
	return len(password) >= MinPasswordLength && len(password) <= MaxPasswordLength
}
