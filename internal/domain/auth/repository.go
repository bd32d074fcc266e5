package auth

import (
	"context"
	"time"
)

// AccountRepository is the narrow contract the credential core requires from
// the external account store.
type AccountRepository interface {
	// Create inserts a new account. A duplicate email surfaces as
	// ErrEmailExists rather than a generic storage error.
	Create(ctx context.Context, account *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	// GetByValidResetHash locates the account holding the given reset-token
	// hash whose reset window is still open at now.
	GetByValidResetHash(ctx context.Context, hash string, now time.Time) (*Account, error)
	// Update persists mutable profile fields (name, avatar).
	Update(ctx context.Context, account *Account) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	// SetResetToken stores the pending reset hash and expiry together.
	SetResetToken(ctx context.Context, id, hash string, expiry, updatedAt time.Time) error
	// ClearResetToken removes both reset fields together.
	ClearResetToken(ctx context.Context, id string, updatedAt time.Time) error
	// ConsumeResetToken applies the new password hash and clears both reset
	// fields in one atomic update, so no state exists where the new password
	// is saved but the old reset secret still verifies.
	ConsumeResetToken(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}
