package services

import (
	"context"
	"time"

	"github.com/fathima-sithara/user-service/internal/models"
	"github.com/fathima-sithara/user-service/internal/repository"
)

// LockoutGuard tracks failed logins and derives the locked state. A lock
// whose deadline has passed counts as unlocked even while lock_until is still
// set on the document.
type LockoutGuard struct {
	repo         repository.UserRepository
	maxAttempts  int
	lockDuration time.Duration
	now          func() time.Time
}

func NewLockoutGuard(repo repository.UserRepository, maxAttempts int, lockDuration time.Duration) *LockoutGuard {
	return &LockoutGuard{
		repo:         repo,
		maxAttempts:  maxAttempts,
		lockDuration: lockDuration,
		now:          time.Now,
	}
}

// IsLocked reports whether u is inside an unexpired lockout window.
func (g *LockoutGuard) IsLocked(u *models.User) bool {
	return u.LockUntil != nil && u.LockUntil.After(g.now())
}

// RecordFailure registers one failed login. An expired lock is replaced by a
// fresh counter of one; otherwise the counter is incremented server-side and
// the account locks once the post-increment value reaches the threshold.
func (g *LockoutGuard) RecordFailure(ctx context.Context, u *models.User) error {
	if u.LockUntil != nil && !u.LockUntil.After(g.now()) {
		u.LoginAttempts = 1
		u.LockUntil = nil
		return g.repo.RestartLoginAttempts(ctx, u.ID)
	}

	attempts, err := g.repo.IncrementLoginAttempts(ctx, u.ID)
	if err != nil {
		return err
	}
	u.LoginAttempts = attempts

	if attempts >= g.maxAttempts && !g.IsLocked(u) {
		until := g.now().Add(g.lockDuration)
		u.LockUntil = &until
		return g.repo.SetLock(ctx, u.ID, until)
	}
	return nil
}

// RecordSuccess clears the counter and any lock unconditionally.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, u *models.User) error {
	u.LoginAttempts = 0
	u.LockUntil = nil
	return g.repo.ClearLock(ctx, u.ID)
}
