package services

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrDuplicateKey       = errors.New("username, email or phone already in use")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid identifier or password")
	ErrAccountLocked      = errors.New("account temporarily locked, try again later")
	ErrAccountDisabled    = errors.New("account is blocked or deactivated")
	ErrOTPExpired         = errors.New("code has expired")
	ErrOTPMismatch        = errors.New("invalid code")
	ErrSelfFollow         = errors.New("cannot follow yourself")
)
