package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/fathima-sithara/user-service/internal/repository"
)

const (
	usernameMinLength = 3
	usernameMaxBase   = 20
	usernameMaxProbes = 1000
	usernameCharset   = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// UsernameAllocator derives globally unique handles from display names.
type UsernameAllocator struct {
	repo repository.UserRepository
	now  func() time.Time
}

func NewUsernameAllocator(repo repository.UserRepository) *UsernameAllocator {
	return &UsernameAllocator{repo: repo, now: time.Now}
}

// Generate returns a free username derived from displayName. It probes
// numbered suffixes up to a fixed bound and then falls back to a timestamp
// suffix, so it terminates after at most usernameMaxProbes+1 existence
// checks.
func (a *UsernameAllocator) Generate(ctx context.Context, displayName string) (string, error) {
	base := sanitizeHandle(displayName)
	if len(base) < usernameMinLength {
		suffix, err := randomChars(3)
		if err != nil {
			return "", err
		}
		base = "user" + suffix
	}

	exists, err := a.repo.UsernameExists(ctx, base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}

	for i := 1; i <= usernameMaxProbes; i++ {
		candidate := base + strconv.Itoa(i)
		taken, err := a.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	// every numbered candidate is taken; a unix-seconds suffix keeps the
	// result inside the 30 character username cap
	return base + strconv.FormatInt(a.now().Unix(), 10), nil
}

// sanitizeHandle lowercases name, strips everything outside [a-z0-9] and
// truncates to the base length cap.
func sanitizeHandle(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == usernameMaxBase {
			break
		}
	}
	return b.String()
}

func randomChars(n int) (string, error) {
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(usernameCharset))))
		if err != nil {
			return "", fmt.Errorf("generate username suffix: %w", err)
		}
		buf[i] = usernameCharset[idx.Int64()]
	}
	return string(buf), nil
}
