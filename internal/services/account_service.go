package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fathima-sithara/user-service/internal/events"
	"github.com/fathima-sithara/user-service/internal/models"
	"github.com/fathima-sithara/user-service/internal/notify"
	"github.com/fathima-sithara/user-service/internal/repository"
	"github.com/fathima-sithara/user-service/internal/utils"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const deliveryTimeout = 10 * time.Second

// RegisterInput carries the identity fields for a new account.
type RegisterInput struct {
	FullName    string `json:"full_name" validate:"required,min=2,max=60"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"omitempty,e164"`
	CountryCode string `json:"country_code" validate:"omitempty,len=2"`
	Password    string `json:"password" validate:"required,min=8"`
}

// AccountService composes the security components into the operations the
// route layer calls.
type AccountService struct {
	repo      repository.UserRepository
	creds     *CredentialStore
	otp       *OTPManager
	lockout   *LockoutGuard
	usernames *UsernameAllocator
	tokens    *utils.TokenIssuer
	notifier  notify.Notifier
	events    *events.Publisher
	validate  *validator.Validate
	log       *zap.Logger
	now       func() time.Time
}

func NewAccountService(
	repo repository.UserRepository,
	creds *CredentialStore,
	otp *OTPManager,
	lockout *LockoutGuard,
	usernames *UsernameAllocator,
	tokens *utils.TokenIssuer,
	notifier notify.Notifier,
	publisher *events.Publisher,
	log *zap.Logger,
) *AccountService {
	return &AccountService{
		repo:      repo,
		creds:     creds,
		otp:       otp,
		lockout:   lockout,
		usernames: usernames,
		tokens:    tokens,
		notifier:  notifier,
		events:    publisher,
		validate:  validator.New(),
		log:       log,
		now:       time.Now,
	}
}

// Register creates an account: allocates a unique username from the display
// name, hashes the password and persists the document. Identity collisions
// surface as ErrDuplicateKey from the unique indexes.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	username, err := s.usernames.Generate(ctx, in.FullName)
	if err != nil {
		return nil, fmt.Errorf("allocate username: %w", err)
	}

	now := s.now().UTC()
	u := &models.User{
		Username:    username,
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:       in.Phone,
		CountryCode: strings.ToUpper(in.CountryCode),
		FullName:    in.FullName,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.creds.Set(u, in.Password); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if code, err := s.otp.Issue(ctx, u, models.ChallengeEmailOTP); err == nil {
		s.dispatchEmail(u.Email, "Verify your email", s.otpEmailBody(code))
	} else {
		s.log.Warn("issue email verification code", zap.Error(err))
	}

	s.events.Publish(ctx, events.Event{Type: events.TypeUserRegistered, UserID: u.ID.Hex()})
	return u, nil
}

// Authenticate resolves the identifier (email, phone or username), applies
// the lockout state machine and returns a signed identity token on success.
func (s *AccountService) Authenticate(ctx context.Context, identifier, password string) (string, *models.User, error) {
	u, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if u.IsBlocked || !u.IsActive {
		return "", nil, ErrAccountDisabled
	}
	if s.lockout.IsLocked(u) {
		return "", nil, ErrAccountLocked
	}

	if !s.creds.Verify(u, password) {
		if err := s.lockout.RecordFailure(ctx, u); err != nil {
			s.log.Warn("record failed login", zap.String("user", u.ID.Hex()), zap.Error(err))
		}
		if s.lockout.IsLocked(u) {
			return "", nil, ErrAccountLocked
		}
		return "", nil, ErrInvalidCredentials
	}

	if err := s.lockout.RecordSuccess(ctx, u); err != nil {
		s.log.Warn("clear login attempts", zap.String("user", u.ID.Hex()), zap.Error(err))
	}

	token, _, err := s.tokens.Issue(u.ID.Hex())
	if err != nil {
		return "", nil, fmt.Errorf("issue identity token: %w", err)
	}
	return token, u, nil
}

// IssueOTP generates a verification challenge for the user and dispatches it
// over the matching channel. The plaintext code is returned to the caller;
// delivery happens out of band.
func (s *AccountService) IssueOTP(ctx context.Context, userID primitive.ObjectID, kind models.ChallengeKind) (string, error) {
	u, err := s.userByID(ctx, userID)
	if err != nil {
		return "", err
	}

	code, err := s.otp.Issue(ctx, u, kind)
	if err != nil {
		return "", err
	}

	switch kind {
	case models.ChallengePhoneOTP:
		s.dispatchSMS(u.Phone, fmt.Sprintf("Your verification code is %s", code))
	case models.ChallengeEmailOTP:
		s.dispatchEmail(u.Email, "Verify your email", s.otpEmailBody(code))
	case models.ChallengeEmailToken:
		s.dispatchEmail(u.Email, "Confirm your email address", s.tokenEmailBody(code))
	}
	return code, nil
}

// VerifyOTP checks the supplied code and, on success, consumes the stored
// challenge and flips the matching verification flag.
func (s *AccountService) VerifyOTP(ctx context.Context, userID primitive.ObjectID, kind models.ChallengeKind, code string) error {
	u, err := s.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.otp.Verify(u, kind, code); err != nil {
		return err
	}
	if err := s.repo.ClearChallenge(ctx, u.ID, kind); err != nil {
		return fmt.Errorf("clear challenge: %w", err)
	}
	switch kind {
	case models.ChallengeEmailOTP, models.ChallengeEmailToken:
		return s.repo.MarkEmailVerified(ctx, u.ID)
	case models.ChallengePhoneOTP:
		return s.repo.MarkPhoneVerified(ctx, u.ID)
	}
	return nil
}

// RequestPasswordReset issues a reset token for the account registered under
// email and mails it. The plaintext token is returned for the caller's
// delivery pipeline; handlers must not leak it to the response.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	u, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	token, err := s.otp.Issue(ctx, u, models.ChallengePasswordReset)
	if err != nil {
		return "", err
	}
	s.dispatchEmail(u.Email, "Reset your password", s.resetEmailBody(token))
	return token, nil
}

// CompletePasswordReset looks the account up by the token digest, verifies
// expiry, stores the new password and consumes the token. The lockout state
// is cleared so the owner regains access immediately.
func (s *AccountService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	u, err := s.repo.FindByResetToken(ctx, hashChallenge(token))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrOTPMismatch
		}
		return err
	}
	if err := s.otp.Verify(u, models.ChallengePasswordReset, token); err != nil {
		return err
	}

	if err := s.creds.Set(u, newPassword); err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, u.PasswordHash); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	if err := s.repo.ClearChallenge(ctx, u.ID, models.ChallengePasswordReset); err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	if err := s.lockout.RecordSuccess(ctx, u); err != nil {
		s.log.Warn("clear lockout after reset", zap.String("user", u.ID.Hex()), zap.Error(err))
	}
	return nil
}

// ChangePassword verifies the current password before storing a new one.
func (s *AccountService) ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	u, err := s.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.creds.Verify(u, oldPassword) {
		return ErrInvalidCredentials
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if err := s.creds.Set(u, newPassword); err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, u.ID, u.PasswordHash)
}

func (s *AccountService) userByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *AccountService) findByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	id := strings.TrimSpace(identifier)
	switch {
	case strings.Contains(id, "@"):
		return s.repo.FindByEmail(ctx, strings.ToLower(id))
	case strings.HasPrefix(id, "+"):
		return s.repo.FindByPhone(ctx, id)
	default:
		return s.repo.FindByUsername(ctx, strings.ToLower(id))
	}
}

func (s *AccountService) otpEmailBody(code string) string {
	return fmt.Sprintf("<p>Your verification code is <b>%s</b>. It expires in %d minutes.</p>",
		code, int(s.otp.otpTTL.Minutes()))
}

func (s *AccountService) tokenEmailBody(token string) string {
	return fmt.Sprintf("<p>Use this token to confirm your email address: <b>%s</b>. It expires in %d minutes.</p>",
		token, int(s.otp.tokenTTL.Minutes()))
}

func (s *AccountService) resetEmailBody(token string) string {
	return fmt.Sprintf("<p>Use this token to reset your password: <b>%s</b>. It expires in %d minutes.</p>",
		token, int(s.otp.tokenTTL.Minutes()))
}

func (s *AccountService) dispatchEmail(to, subject, body string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := s.notifier.SendEmail(ctx, to, subject, body); err != nil {
			s.log.Warn("send email", zap.String("to", to), zap.Error(err))
		}
	}()
}

func (s *AccountService) dispatchSMS(to, message string) {
	if s.notifier == nil || to == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := s.notifier.SendSMS(ctx, to, message); err != nil {
			s.log.Warn("send sms", zap.String("to", to), zap.Error(err))
		}
	}()
}
