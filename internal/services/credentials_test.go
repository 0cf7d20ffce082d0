package services

import (
	"testing"

	"github.com/fathima-sithara/user-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCredentialStoreSetAndVerify(t *testing.T) {
	store := NewCredentialStore(bcrypt.MinCost)
	u := &models.User{}

	require.NoError(t, store.Set(u, "password1"))
	require.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "password1", u.PasswordHash)

	assert.True(t, store.Verify(u, "password1"))
	assert.False(t, store.Verify(u, "password1x"))
	assert.False(t, store.Verify(u, ""))
}

func TestCredentialStoreRejectsShortPassword(t *testing.T) {
	store := NewCredentialStore(bcrypt.MinCost)
	u := &models.User{}

	err := store.Set(u, "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	assert.Empty(t, u.PasswordHash)
}

func TestCredentialStoreSkipsUnchangedPassword(t *testing.T) {
	store := NewCredentialStore(bcrypt.MinCost)
	u := &models.User{}
	require.NoError(t, store.Set(u, "password1"))
	original := u.PasswordHash

	// empty plaintext means "not changed": the stored hash must survive
	require.NoError(t, store.Set(u, ""))
	assert.Equal(t, original, u.PasswordHash)
}

func TestCredentialStoreVerifyEmptyHash(t *testing.T) {
	store := NewCredentialStore(bcrypt.MinCost)
	assert.False(t, store.Verify(&models.User{}, "anything"))
}
