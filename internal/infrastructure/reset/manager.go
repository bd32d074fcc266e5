package reset

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	usecase "lms/backend/internal/usecase/auth"
)

// secretBytes is the entropy of a reset secret: 32 bytes = 64 hex chars.
const secretBytes = 32

// DefaultTTL bounds how long a reset secret stays redeemable.
const DefaultTTL = 15 * time.Minute

// Manager generates and verifies single-use password-reset secrets. Only the
// SHA-256 hash of a secret is ever persisted; the secret itself carries the
// entropy, so a fast deterministic hash is sufficient here, unlike password
// hashing.
type Manager struct {
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewManager constructs a manager with the provided redemption window.
// A non-positive ttl falls back to DefaultTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Ensure Manager implements the ResetTokenManager interface.
var _ usecase.ResetTokenManager = (*Manager)(nil)

// Generate produces a random secret, its storable hash, and the expiry
// timestamp. The raw secret is for out-of-band delivery only.
func (m *Manager) Generate() (secret, hash string, expiry time.Time, err error) {
	raw := make([]byte, secretBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", time.Time{}, err
	}
	secret = hex.EncodeToString(raw)
	return secret, m.Hash(secret), m.nowFunc().UTC().Add(m.ttl), nil
}

// Hash computes the deterministic one-way hash used to look up a presented
// secret in the store.
func (m *Manager) Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the presented secret matches the stored hash and the
// redemption window is still open. Hash comparison is constant-time.
func (m *Manager) Verify(secret, storedHash string, storedExpiry time.Time) bool {
	if secret == "" || storedHash == "" {
		return false
	}
	if !m.nowFunc().Before(storedExpiry) {
		return false
	}
	computed := m.Hash(secret)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
