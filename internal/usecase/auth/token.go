package auth

import domain "lms/backend/internal/domain/auth"

// Claims is the minimal identity attached to a verified session token.
type Claims struct {
	AccountID string
	Role      domain.Role
}

// TokenManager abstracts session-token issuance and verification.
type TokenManager interface {
	Issue(accountID string, role domain.Role) (string, error)
	// Verify returns the embedded claims, or a single undifferentiated
	// authentication error for any bad, tampered or expired token.
	Verify(token string) (Claims, error)
}
