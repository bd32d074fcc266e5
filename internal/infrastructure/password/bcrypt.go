package password

import (
	"golang.org/x/crypto/bcrypt"

	usecase "lms/backend/internal/usecase/auth"
)

// BcryptHasher hashes credentials with bcrypt. The work factor is fixed at
// construction so the cost is an explicit deployment decision rather than
// ambient state.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher constructs a hasher with the given work factor. Costs below
// bcrypt's minimum fall back to the default (10).
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Ensure BcryptHasher implements the PasswordHasher interface.
var _ usecase.PasswordHasher = (*BcryptHasher)(nil)

// Hash produces a salted one-way digest of the plaintext.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether the plaintext matches the digest. A mismatch is not
// an error; bcrypt's comparison is constant-time over the digest.
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
