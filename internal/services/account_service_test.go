package services

import (
	"context"
	"testing"
	"time"

	"github.com/fathima-sithara/user-service/internal/models"
	"github.com/fathima-sithara/user-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestAccountService(repo *fakeUserRepo) *AccountService {
	creds := NewCredentialStore(bcrypt.MinCost)
	otp := NewOTPManager(repo, 5*time.Minute, 10*time.Minute)
	lockout := NewLockoutGuard(repo, 5, 2*time.Hour)
	usernames := NewUsernameAllocator(repo)
	tokens := utils.NewTokenIssuer("test-secret", 15*time.Minute)
	return NewAccountService(repo, creds, otp, lockout, usernames, tokens, nil, nil, zap.NewNop())
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		FullName:    "John Doe!",
		Email:       "John@Example.com",
		Phone:       "+14155550100",
		CountryCode: "us",
		Password:    "password1",
	}
}

func TestRegisterCreatesAccount(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)

	u, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	assert.Equal(t, "johndoe", u.Username)
	assert.Equal(t, "john@example.com", u.Email)
	assert.Equal(t, "US", u.CountryCode)
	assert.True(t, u.IsActive)
	assert.NotEmpty(t, u.PasswordHash)

	// an email verification challenge is issued at registration
	stored := repo.get(u.ID)
	assert.NotEmpty(t, stored.EmailVerificationOTP)
}

func TestRegisterValidatesInput(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)

	in := validRegisterInput()
	in.Email = "not-an-email"
	_, err := svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validRegisterInput()
	in.Password = "short"
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)

	_, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	in := validRegisterInput()
	in.FullName = "Johnny Doe" // distinct username, same email
	in.Phone = "+14155550101"
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestRegisterAllocatesDistinctUsernames(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)

	first, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	in := validRegisterInput()
	in.Email = "second@example.com"
	in.Phone = "+14155550102"
	second, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "johndoe", first.Username)
	assert.Equal(t, "johndoe1", second.Username)
}

func TestAuthenticateByEmailUsernameAndPhone(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)
	_, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	for _, identifier := range []string{"john@example.com", "johndoe", "+14155550100"} {
		token, u, err := svc.Authenticate(context.Background(), identifier, "password1")
		require.NoError(t, err, "identifier %q", identifier)
		assert.NotEmpty(t, token)
		assert.Equal(t, "johndoe", u.Username)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)
	u, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	_, _, err = svc.Authenticate(context.Background(), u.Email, "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, repo.get(u.ID).LoginAttempts)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)

	_, _, err := svc.Authenticate(context.Background(), "ghost@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateLocksAfterRepeatedFailures(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)
	u, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, _, err = svc.Authenticate(context.Background(), u.Email, "wrongpassword")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// fifth failure trips the lock
	_, _, err = svc.Authenticate(context.Background(), u.Email, "wrongpassword")
	assert.ErrorIs(t, err, ErrAccountLocked)

	// even the right password is refused while locked
	_, _, err = svc.Authenticate(context.Background(), u.Email, "password1")
	assert.ErrorIs(t, err, ErrAccountLocked)

	stored := repo.get(u.ID)
	assert.Equal(t, 5, stored.LoginAttempts)
	require.NotNil(t, stored.LockUntil)
}

func TestAuthenticateBlockedAccount(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)
	u, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	repo.get(u.ID).IsBlocked = true
	_, _, err = svc.Authenticate(context.Background(), u.Email, "password1")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestVerifyOTPConsumesAndFlipsFlag(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)
	u, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	code, err := svc.IssueOTP(context.Background(), u.ID, models.ChallengePhoneOTP)
	require.NoError(t, err)

	require.NoError(t, svc.VerifyOTP(context.Background(), u.ID, models.ChallengePhoneOTP, code))

	stored := repo.get(u.ID)
	assert.True(t, stored.IsPhoneVerified)
	assert.Empty(t, stored.PhoneVerificationOTP)
	assert.Nil(t, stored.PhoneVerificationOTPExpiry)

	// consumed: the same code cannot be replayed
	err = svc.VerifyOTP(context.Background(), u.ID, models.ChallengePhoneOTP, code)
	assert.ErrorIs(t, err, ErrOTPMismatch)
}

func TestPasswordResetFlow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)
	u, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(context.Background(), u.Email)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, svc.CompletePasswordReset(context.Background(), token, "brandnewpass"))

	_, _, err = svc.Authenticate(context.Background(), u.Email, "brandnewpass")
	assert.NoError(t, err)
	_, _, err = svc.Authenticate(context.Background(), u.Email, "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// token is single-use
	err = svc.CompletePasswordReset(context.Background(), token, "anotherpass99")
	assert.ErrorIs(t, err, ErrOTPMismatch)
}

func TestPasswordResetExpiredToken(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)
	u, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(context.Background(), u.Email)
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	repo.get(u.ID).ResetPasswordTokenExpiry = &past

	err = svc.CompletePasswordReset(context.Background(), token, "brandnewpass")
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestPasswordResetBadToken(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)

	err := svc.CompletePasswordReset(context.Background(), "deadbeef", "brandnewpass")
	assert.ErrorIs(t, err, ErrOTPMismatch)
}

func TestPasswordResetShortPassword(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)

	err := svc.CompletePasswordReset(context.Background(), "whatever", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestPasswordResetClearsLockout(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)
	u, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _, _ = svc.Authenticate(context.Background(), u.Email, "wrongpassword")
	}
	require.NotNil(t, repo.get(u.ID).LockUntil)

	token, err := svc.RequestPasswordReset(context.Background(), u.Email)
	require.NoError(t, err)
	require.NoError(t, svc.CompletePasswordReset(context.Background(), token, "brandnewpass"))

	stored := repo.get(u.ID)
	assert.Nil(t, stored.LockUntil)
	assert.Equal(t, 0, stored.LoginAttempts)

	_, _, err = svc.Authenticate(context.Background(), u.Email, "brandnewpass")
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)
	u, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), u.ID, "wrongpassword", "brandnewpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(context.Background(), u.ID, "password1", "brandnewpass"))
	_, _, err = svc.Authenticate(context.Background(), u.Email, "brandnewpass")
	assert.NoError(t, err)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestAccountService(repo)

	_, err := svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
