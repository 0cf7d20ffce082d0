package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/fathima-sithara/user-service/internal/models"
	"github.com/fathima-sithara/user-service/internal/repository"
)

const opaqueTokenBytes = 20

// OTPManager issues and verifies the one-time codes stored on the user
// document. Codes are never persisted in plaintext; only a sha256 digest and
// an expiry are written.
type OTPManager struct {
	repo     repository.UserRepository
	otpTTL   time.Duration // numeric email/phone codes
	tokenTTL time.Duration // opaque email-verification and reset tokens
	now      func() time.Time
}

func NewOTPManager(repo repository.UserRepository, otpTTL, tokenTTL time.Duration) *OTPManager {
	return &OTPManager{repo: repo, otpTTL: otpTTL, tokenTTL: tokenTTL, now: time.Now}
}

// Issue generates a fresh code for kind, stores its digest and expiry on the
// user document and returns the plaintext for out-of-band delivery.
func (m *OTPManager) Issue(ctx context.Context, u *models.User, kind models.ChallengeKind) (string, error) {
	var (
		code string
		err  error
		ttl  time.Duration
	)
	switch kind {
	case models.ChallengeEmailOTP, models.ChallengePhoneOTP:
		code, err = generateNumericCode()
		ttl = m.otpTTL
	case models.ChallengeEmailToken, models.ChallengePasswordReset:
		code, err = generateOpaqueToken()
		ttl = m.tokenTTL
	default:
		return "", fmt.Errorf("unknown challenge kind %q", kind)
	}
	if err != nil {
		return "", err
	}

	expiry := m.now().Add(ttl)
	if err := m.repo.SetChallenge(ctx, u.ID, kind, hashChallenge(code), expiry); err != nil {
		return "", fmt.Errorf("store challenge: %w", err)
	}
	return code, nil
}

// Verify checks supplied against the digest stored for kind. An expired code
// reports ErrOTPExpired even when its digest would otherwise match; a missing
// challenge is a mismatch. Verify does not consume the challenge, the caller
// clears it after a successful check.
func (m *OTPManager) Verify(u *models.User, kind models.ChallengeKind, supplied string) error {
	digest, expiry := storedChallenge(u, kind)
	if digest == "" || expiry == nil {
		return ErrOTPMismatch
	}
	if expiry.Before(m.now()) {
		return ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(digest), []byte(hashChallenge(supplied))) != 1 {
		return ErrOTPMismatch
	}
	return nil
}

func storedChallenge(u *models.User, kind models.ChallengeKind) (string, *time.Time) {
	switch kind {
	case models.ChallengeEmailOTP:
		return u.EmailVerificationOTP, u.EmailVerificationOTPExpiry
	case models.ChallengePhoneOTP:
		return u.PhoneVerificationOTP, u.PhoneVerificationOTPExpiry
	case models.ChallengeEmailToken:
		return u.EmailVerificationToken, u.EmailVerificationTokenExpiry
	case models.ChallengePasswordReset:
		return u.ResetPasswordToken, u.ResetPasswordTokenExpiry
	}
	return "", nil
}

func hashChallenge(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// generateNumericCode draws a uniform six digit code from [100000, 999999].
func generateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

func generateOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
