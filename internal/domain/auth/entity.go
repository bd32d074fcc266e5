package auth

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials indicates a login failure. The same value is
	// returned for an unknown email and a wrong password so callers cannot
	// enumerate registered accounts.
	ErrInvalidCredentials = errors.New("email or password does not match")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already exists")
	// ErrTokenInvalid means a supplied session token cannot be validated.
	// Signature, format and expiry failures all collapse into this value.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEmailNotRegistered indicates a forgot-password request for an
	// email the store does not know. The HTTP layer masks it.
	ErrEmailNotRegistered = errors.New("email is not registered")
	// ErrResetTokenInvalid indicates a reset secret that does not match any
	// pending reset or whose window has elapsed.
	ErrResetTokenInvalid = errors.New("reset token is invalid or expired")
	// ErrPasswordMismatch indicates the current password is incorrect.
	ErrPasswordMismatch = errors.New("old password does not match")
	// ErrInvalidName indicates a full name outside the accepted bounds.
	ErrInvalidName = errors.New("name must be between 5 and 50 characters")
	// ErrInvalidEmail indicates an email that fails the address grammar.
	ErrInvalidEmail = errors.New("please provide a valid email address")
	// ErrPasswordTooShort indicates a password below the minimum length.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

// Role identifies the privileges assigned to an account.
type Role string

const (
	// RoleUser represents a standard learner account.
	RoleUser Role = "USER"
	// RoleAdmin represents an administrative account.
	RoleAdmin Role = "ADMIN"
)

const (
	minNameLength     = 5
	maxNameLength     = 50
	minPasswordLength = 8
)

// Avatar references a profile image held by external object storage.
type Avatar struct {
	PublicID  string `json:"publicId"`
	SecureURL string `json:"secureUrl"`
}

// Account models the authentication entity persisted in storage.
// PasswordHash and the reset fields are never serialized.
type Account struct {
	ID               string     `json:"id"`
	FullName         string     `json:"fullName"`
	Email            string     `json:"email"`
	Role             Role       `json:"role"`
	Avatar           Avatar     `json:"avatar"`
	PasswordHash     string     `json:"-"`
	ResetTokenHash   *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// ValidateName checks the full-name length bounds.
func ValidateName(name string) error {
	n := len(strings.TrimSpace(name))
	if n < minNameLength || n > maxNameLength {
		return ErrInvalidName
	}
	return nil
}

// ValidateEmail checks the email against the address grammar.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword checks the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
