package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domain "lms/backend/internal/domain/auth"
	usecase "lms/backend/internal/usecase/auth"
)

// JWTManager issues and verifies signed session tokens carrying the subject
// id and role.
type JWTManager struct {
	secret     []byte
	expiration time.Duration
	issuer     string
	nowFunc    func() time.Time
}

// NewJWTManager constructs a manager with the provided secret and expiration.
func NewJWTManager(secret string, expiration time.Duration, issuer string) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		expiration: expiration,
		issuer:     issuer,
		nowFunc:    time.Now,
	}
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// sessionClaims is the wire shape of a session token.
type sessionClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issue creates a signed token for the account with an expiry computed from
// the configured duration.
func (m *JWTManager) Issue(accountID string, role domain.Role) (string, error) {
	now := m.nowFunc().UTC()
	claims := sessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates the token, returning the embedded claims.
// Every failure mode (malformed token, bad signature, elapsed expiry) is
// reported as the single ErrTokenInvalid so callers across the trust boundary
// cannot tell which case occurred.
func (m *JWTManager) Verify(tokenString string) (usecase.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.nowFunc() }))
	if err != nil {
		return usecase.Claims{}, domain.ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return usecase.Claims{}, domain.ErrTokenInvalid
	}

	return usecase.Claims{
		AccountID: claims.Subject,
		Role:      claims.Role,
	}, nil
}
