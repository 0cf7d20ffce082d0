package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the single persisted account document. Uniqueness of username,
// email and phone is enforced by unique sparse indexes on the collection,
// not in application code.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username    string             `bson:"username" json:"username"`
	Email       string             `bson:"email" json:"email"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	CountryCode string             `bson:"country_code,omitempty" json:"country_code,omitempty"`
	FullName    string             `bson:"full_name,omitempty" json:"full_name,omitempty"`

	PasswordHash string `bson:"password_hash,omitempty" json:"-"`

	EmailVerificationToken       string     `bson:"email_verification_token,omitempty" json:"-"`
	EmailVerificationTokenExpiry *time.Time `bson:"email_verification_token_expiry,omitempty" json:"-"`
	EmailVerificationOTP         string     `bson:"email_verification_otp,omitempty" json:"-"`
	EmailVerificationOTPExpiry   *time.Time `bson:"email_verification_otp_expiry,omitempty" json:"-"`
	PhoneVerificationOTP         string     `bson:"phone_verification_otp,omitempty" json:"-"`
	PhoneVerificationOTPExpiry   *time.Time `bson:"phone_verification_otp_expiry,omitempty" json:"-"`
	IsEmailVerified              bool       `bson:"is_email_verified" json:"is_email_verified"`
	IsPhoneVerified              bool       `bson:"is_phone_verified" json:"is_phone_verified"`

	ResetPasswordToken       string     `bson:"reset_password_token,omitempty" json:"-"`
	ResetPasswordTokenExpiry *time.Time `bson:"reset_password_token_expiry,omitempty" json:"-"`

	LoginAttempts int        `bson:"login_attempts" json:"-"`
	LockUntil     *time.Time `bson:"lock_until,omitempty" json:"-"`

	Following []primitive.ObjectID `bson:"following,omitempty" json:"-"`
	Followers []primitive.ObjectID `bson:"followers,omitempty" json:"-"`

	IsActive  bool `bson:"is_active" json:"is_active"`
	IsBlocked bool `bson:"is_blocked" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Profile is the public projection returned by follower/following pages.
type Profile struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	Username        string             `bson:"username" json:"username"`
	FullName        string             `bson:"full_name,omitempty" json:"full_name,omitempty"`
	IsEmailVerified bool               `bson:"is_email_verified" json:"is_email_verified"`
}

// ChallengeKind names one of the one-time code slots on the user document.
type ChallengeKind string

const (
	ChallengeEmailOTP      ChallengeKind = "email_otp"
	ChallengePhoneOTP      ChallengeKind = "phone_otp"
	ChallengeEmailToken    ChallengeKind = "email_token"
	ChallengePasswordReset ChallengeKind = "password_reset"
)
