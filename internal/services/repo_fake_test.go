package services

import (
	"context"
	"sync"
	"time"

	"github.com/fathima-sithara/user-service/internal/models"
	"github.com/fathima-sithara/user-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeUserRepo is an in-memory UserRepository with the same atomicity
// semantics as the Mongo implementation: counter and set mutations apply to
// the stored document, duplicate identities fail like a unique index.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func duplicateKeyErr() error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Following = append([]primitive.ObjectID(nil), u.Following...)
	c.Followers = append([]primitive.ObjectID(nil), u.Followers...)
	return &c
}

// seed inserts a user directly, bypassing uniqueness checks.
func (f *fakeUserRepo) seed(u *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.users[u.ID] = u
	return u
}

// get returns the live stored document for assertions and test mutations.
func (f *fakeUserRepo) get(id primitive.ObjectID) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email ||
			(u.Phone != "" && existing.Phone == u.Phone) {
			return duplicateKeyErr()
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.users[u.ID] = cloneUser(u)
	return nil
}

func (f *fakeUserRepo) findBy(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return f.findBy(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return f.findBy(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return f.findBy(func(u *models.User) bool { return u.Username == username })
}

func (f *fakeUserRepo) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	return f.findBy(func(u *models.User) bool { return u.Phone == phone })
}

func (f *fakeUserRepo) FindByResetToken(_ context.Context, digest string) (*models.User, error) {
	return f.findBy(func(u *models.User) bool {
		return u.ResetPasswordToken != "" && u.ResetPasswordToken == digest
	})
}

func (f *fakeUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) update(id primitive.ObjectID, apply func(*models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	apply(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return f.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (f *fakeUserRepo) SetChallenge(_ context.Context, id primitive.ObjectID, kind models.ChallengeKind, digest string, expiry time.Time) error {
	return f.update(id, func(u *models.User) {
		switch kind {
		case models.ChallengeEmailOTP:
			u.EmailVerificationOTP, u.EmailVerificationOTPExpiry = digest, &expiry
		case models.ChallengePhoneOTP:
			u.PhoneVerificationOTP, u.PhoneVerificationOTPExpiry = digest, &expiry
		case models.ChallengeEmailToken:
			u.EmailVerificationToken, u.EmailVerificationTokenExpiry = digest, &expiry
		case models.ChallengePasswordReset:
			u.ResetPasswordToken, u.ResetPasswordTokenExpiry = digest, &expiry
		}
	})
}

func (f *fakeUserRepo) ClearChallenge(_ context.Context, id primitive.ObjectID, kind models.ChallengeKind) error {
	return f.update(id, func(u *models.User) {
		switch kind {
		case models.ChallengeEmailOTP:
			u.EmailVerificationOTP, u.EmailVerificationOTPExpiry = "", nil
		case models.ChallengePhoneOTP:
			u.PhoneVerificationOTP, u.PhoneVerificationOTPExpiry = "", nil
		case models.ChallengeEmailToken:
			u.EmailVerificationToken, u.EmailVerificationTokenExpiry = "", nil
		case models.ChallengePasswordReset:
			u.ResetPasswordToken, u.ResetPasswordTokenExpiry = "", nil
		}
	})
}

func (f *fakeUserRepo) MarkEmailVerified(_ context.Context, id primitive.ObjectID) error {
	return f.update(id, func(u *models.User) { u.IsEmailVerified = true })
}

func (f *fakeUserRepo) MarkPhoneVerified(_ context.Context, id primitive.ObjectID) error {
	return f.update(id, func(u *models.User) { u.IsPhoneVerified = true })
}

func (f *fakeUserRepo) IncrementLoginAttempts(_ context.Context, id primitive.ObjectID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	u.LoginAttempts++
	return u.LoginAttempts, nil
}

func (f *fakeUserRepo) RestartLoginAttempts(_ context.Context, id primitive.ObjectID) error {
	return f.update(id, func(u *models.User) {
		u.LoginAttempts = 1
		u.LockUntil = nil
	})
}

func (f *fakeUserRepo) SetLock(_ context.Context, id primitive.ObjectID, until time.Time) error {
	return f.update(id, func(u *models.User) { u.LockUntil = &until })
}

func (f *fakeUserRepo) ClearLock(_ context.Context, id primitive.ObjectID) error {
	return f.update(id, func(u *models.User) {
		u.LoginAttempts = 0
		u.LockUntil = nil
	})
}

func addToSet(set []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for _, existing := range set {
		if existing == id {
			return set
		}
	}
	return append(set, id)
}

func pull(set []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := set[:0]
	for _, existing := range set {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func (f *fakeUserRepo) AddFollowing(_ context.Context, actor, target primitive.ObjectID) error {
	return f.update(actor, func(u *models.User) { u.Following = addToSet(u.Following, target) })
}

func (f *fakeUserRepo) RemoveFollowing(_ context.Context, actor, target primitive.ObjectID) error {
	return f.update(actor, func(u *models.User) { u.Following = pull(u.Following, target) })
}

func (f *fakeUserRepo) AddFollower(_ context.Context, target, actor primitive.ObjectID) error {
	return f.update(target, func(u *models.User) { u.Followers = addToSet(u.Followers, actor) })
}

func (f *fakeUserRepo) RemoveFollower(_ context.Context, target, actor primitive.ObjectID) error {
	return f.update(target, func(u *models.User) { u.Followers = pull(u.Followers, actor) })
}

func (f *fakeUserRepo) FindProfilesByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var profiles []models.Profile
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			profiles = append(profiles, models.Profile{
				ID:              u.ID,
				Username:        u.Username,
				FullName:        u.FullName,
				IsEmailVerified: u.IsEmailVerified,
			})
		}
	}
	return profiles, nil
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)
