package auth

import (
	"context"
	"io"
	"time"
)

// PasswordHasher abstracts one-way salted credential hashing.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports a match; a mismatch is a false return, never an error.
	Verify(plaintext, digest string) bool
}

// ResetTokenManager abstracts generation and verification of single-use
// password-reset secrets. Only the hash is ever handed to storage.
type ResetTokenManager interface {
	Generate() (secret, hash string, expiry time.Time, err error)
	Hash(secret string) string
	Verify(secret, storedHash string, storedExpiry time.Time) bool
}

// Mailer delivers outbound mail. Failures surface to the caller; they are
// never silently swallowed.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ObjectStorage abstracts the external media store used for avatars and
// course media. Upload returns the stored object's public id and URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (publicID, secureURL string, err error)
	Destroy(ctx context.Context, publicID string) error
}
