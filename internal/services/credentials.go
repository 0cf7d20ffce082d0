package services

import (
	"fmt"

	"github.com/fathima-sithara/user-service/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// CredentialStore hashes and verifies account passwords.
type CredentialStore struct {
	cost int
}

func NewCredentialStore(cost int) *CredentialStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialStore{cost: cost}
}

// Set hashes plaintext and writes the digest onto u. An empty plaintext means
// the password was not changed, so Set returns immediately without touching
// the stored hash.
func (s *CredentialStore) Set(u *models.User, plaintext string) error {
	if plaintext == "" {
		return nil
	}
	if len(plaintext) < minPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// Verify reports whether plaintext matches the stored hash. Any failure,
// including a malformed stored hash, is a mismatch rather than an error.
func (s *CredentialStore) Verify(u *models.User, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}
