package postgres

import (
	"context"
	"errors"
	"time"

	domain "lms/backend/internal/domain/auth"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AccountRepository persists accounts in PostgreSQL. It implements the
// credential store gateway the auth core depends on.
type AccountRepository struct {
	pool Querier
}

// Querier is the subset of pgxpool.Pool the repositories use. Tests satisfy
// it with a pgxmock pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewAccountRepository constructs a repository.
func NewAccountRepository(pool Querier) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, full_name, email, password_hash, role, avatar_public_id, avatar_secure_url, reset_token_hash, reset_token_expiry, created_at, updated_at`

// Create inserts a new account record. A unique violation on email maps to
// ErrEmailExists so the caller can report a conflict rather than a server
// error.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
INSERT INTO accounts (id, full_name, email, password_hash, role, avatar_public_id, avatar_secure_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.FullName,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.Avatar.PublicID,
		account.Avatar.SecureURL,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches an account by its normalized email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `
SELECT ` + accountColumns + `
FROM accounts WHERE email = $1
`
	return r.getOne(ctx, query, email)
}

// GetByID retrieves an account by id.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
SELECT ` + accountColumns + `
FROM accounts WHERE id = $1
`
	return r.getOne(ctx, query, id)
}

// GetByValidResetHash locates the account with the given pending reset hash,
// filtering out elapsed reset windows in the statement itself.
func (r *AccountRepository) GetByValidResetHash(ctx context.Context, hash string, now time.Time) (*domain.Account, error) {
	const query = `
SELECT ` + accountColumns + `
FROM accounts WHERE reset_token_hash = $1 AND reset_token_expiry > $2
`
	return r.getOne(ctx, query, hash, now)
}

// Update persists the mutable profile fields of an account.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
UPDATE accounts
SET full_name = $2, avatar_public_id = $3, avatar_secure_url = $4, updated_at = $5
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query,
		account.ID,
		account.FullName,
		account.Avatar.PublicID,
		account.Avatar.SecureURL,
		account.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// UpdatePassword updates the stored password hash for an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `
UPDATE accounts
SET password_hash = $2, updated_at = $3
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, passwordHash, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// SetResetToken stores the pending reset hash and expiry in one statement.
func (r *AccountRepository) SetResetToken(ctx context.Context, id, hash string, expiry, updatedAt time.Time) error {
	const query = `
UPDATE accounts
SET reset_token_hash = $2, reset_token_expiry = $3, updated_at = $4
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, hash, expiry, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// ClearResetToken removes both reset fields in one statement.
func (r *AccountRepository) ClearResetToken(ctx context.Context, id string, updatedAt time.Time) error {
	const query = `
UPDATE accounts
SET reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = $2
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// ConsumeResetToken applies the new password hash and clears both reset
// fields in a single UPDATE, so the secret cannot outlive the password
// change.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `
UPDATE accounts
SET password_hash = $2, reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = $3
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, passwordHash, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.FullName,
		&a.Email,
		&a.PasswordHash,
		&a.Role,
		&a.Avatar.PublicID,
		&a.Avatar.SecureURL,
		&a.ResetTokenHash,
		&a.ResetTokenExpiry,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
