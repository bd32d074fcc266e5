package auth_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domain "lms/backend/internal/domain/auth"
	"lms/backend/internal/infrastructure/password"
	"lms/backend/internal/infrastructure/reset"
	"lms/backend/internal/infrastructure/token"
	usecase "lms/backend/internal/usecase/auth"
)

// fakeAccountRepo is an in-memory credential store honoring the gateway
// contract, including the expiry filter on reset-hash lookups.
type fakeAccountRepo struct {
	accounts map[string]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return domain.ErrEmailExists
		}
	}
	clone := *account
	r.accounts[account.ID] = &clone
	return nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range r.accounts {
		if a.Email == email {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *fakeAccountRepo) GetByValidResetHash(_ context.Context, hash string, now time.Time) (*domain.Account, error) {
	for _, a := range r.accounts {
		if a.ResetTokenHash != nil && *a.ResetTokenHash == hash &&
			a.ResetTokenExpiry != nil && a.ResetTokenExpiry.After(now) {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *fakeAccountRepo) Update(_ context.Context, account *domain.Account) error {
	stored, ok := r.accounts[account.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	stored.FullName = account.FullName
	stored.Avatar = account.Avatar
	stored.UpdatedAt = account.UpdatedAt
	return nil
}

func (r *fakeAccountRepo) UpdatePassword(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	stored, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	stored.PasswordHash = passwordHash
	stored.UpdatedAt = updatedAt
	return nil
}

func (r *fakeAccountRepo) SetResetToken(_ context.Context, id, hash string, expiry, updatedAt time.Time) error {
	stored, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	stored.ResetTokenHash = &hash
	stored.ResetTokenExpiry = &expiry
	stored.UpdatedAt = updatedAt
	return nil
}

func (r *fakeAccountRepo) ClearResetToken(_ context.Context, id string, updatedAt time.Time) error {
	stored, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	stored.ResetTokenHash = nil
	stored.ResetTokenExpiry = nil
	stored.UpdatedAt = updatedAt
	return nil
}

func (r *fakeAccountRepo) ConsumeResetToken(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	stored, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	stored.PasswordHash = passwordHash
	stored.ResetTokenHash = nil
	stored.ResetTokenExpiry = nil
	stored.UpdatedAt = updatedAt
	return nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	sent    []sentMail
	failing bool
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if m.failing {
		return errors.New("smtp relay unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type fakeStorage struct {
	ops         []string
	uploads     int
	failUpload  bool
	failDestroy bool
}

func (s *fakeStorage) Upload(_ context.Context, key string, _ io.Reader, _ string) (string, string, error) {
	if s.failUpload {
		return "", "", errors.New("object store unavailable")
	}
	s.uploads++
	s.ops = append(s.ops, "upload:"+key)
	return key, "https://cdn.example.com/" + key, nil
}

func (s *fakeStorage) Destroy(_ context.Context, publicID string) error {
	if s.failDestroy {
		return errors.New("object store unavailable")
	}
	s.ops = append(s.ops, "destroy:"+publicID)
	return nil
}

type testEnv struct {
	service *usecase.Service
	repo    *fakeAccountRepo
	mailer  *fakeMailer
	storage *fakeStorage
	tokens  *token.JWTManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newFakeAccountRepo()
	mailer := &fakeMailer{}
	storage := &fakeStorage{}
	tokens := token.NewJWTManager("test-secret", time.Hour, "lms")
	service := usecase.NewService(
		repo,
		tokens,
		password.NewBcryptHasher(bcrypt.MinCost),
		reset.NewManager(15*time.Minute),
		mailer,
		storage,
		"https://app.example.com/",
		nil,
	)
	return &testEnv{service: service, repo: repo, mailer: mailer, storage: storage, tokens: tokens}
}

func register(t *testing.T, env *testEnv, email, pass string) *domain.Account {
	t.Helper()
	account, _, err := env.service.Register(context.Background(), usecase.RegisterInput{
		FullName: "Alice Example",
		Email:    email,
		Password: pass,
	})
	require.NoError(t, err)
	return account
}

var resetLinkRe = regexp.MustCompile(`reset-password/([0-9a-f]+)`)

func lastResetSecret(t *testing.T, env *testEnv) string {
	t.Helper()
	require.NotEmpty(t, env.mailer.sent)
	match := resetLinkRe.FindStringSubmatch(env.mailer.sent[len(env.mailer.sent)-1].Body)
	require.Len(t, match, 2)
	return match[1]
}

func TestRegisterThenLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	created, tok, err := env.service.Register(ctx, usecase.RegisterInput{
		FullName: "Alice Example",
		Email:    "Alice@Example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", created.Email, "email is case-normalized")
	assert.Equal(t, domain.RoleUser, created.Role)
	assert.Empty(t, created.PasswordHash, "returned account never carries the hash")
	assert.NotEmpty(t, tok)

	account, loginTok, err := env.service.Login(ctx, domain.Credentials{
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
	assert.Empty(t, account.PasswordHash)

	claims, err := env.tokens.Verify(loginTok)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.AccountID)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   usecase.RegisterInput
		wantErr error
	}{
		{
			name:    "missing fields",
			input:   usecase.RegisterInput{Email: "a@b.com", Password: "password123"},
			wantErr: usecase.ErrFieldsRequired,
		},
		{
			name:    "short name",
			input:   usecase.RegisterInput{FullName: "Al", Email: "a@example.com", Password: "password123"},
			wantErr: domain.ErrInvalidName,
		},
		{
			name:    "bad email",
			input:   usecase.RegisterInput{FullName: "Alice Example", Email: "not-an-email", Password: "password123"},
			wantErr: domain.ErrInvalidEmail,
		},
		{
			name:    "short password",
			input:   usecase.RegisterInput{FullName: "Alice Example", Email: "a@example.com", Password: "short"},
			wantErr: domain.ErrPasswordTooShort,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.service.Register(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	register(t, env, "alice@example.com", "password123")

	_, _, err := env.service.Register(context.Background(), usecase.RegisterInput{
		FullName: "Alice Imposter",
		Email:    "alice@example.com",
		Password: "password456",
	})
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestRegister_AvatarUploadIsBestEffort(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.storage.failUpload = true

	account, tok, err := env.service.Register(context.Background(), usecase.RegisterInput{
		FullName: "Alice Example",
		Email:    "alice@example.com",
		Password: "password123",
		Avatar: &usecase.AvatarUpload{
			Filename:    "me.png",
			ContentType: "image/png",
			Body:        strings.NewReader("img-bytes"),
		},
	})
	require.NoError(t, err, "upload failure must not lose the created account")
	assert.NotEmpty(t, tok)
	assert.Empty(t, account.Avatar.PublicID)

	stored, err := env.repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, stored.ID)
}

func TestRegister_AvatarStored(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	account, _, err := env.service.Register(context.Background(), usecase.RegisterInput{
		FullName: "Alice Example",
		Email:    "alice@example.com",
		Password: "password123",
		Avatar: &usecase.AvatarUpload{
			Filename:    "me.png",
			ContentType: "image/png",
			Body:        strings.NewReader("img-bytes"),
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, account.Avatar.PublicID)
	assert.True(t, strings.HasPrefix(account.Avatar.SecureURL, "https://cdn.example.com/"))
	assert.Equal(t, 1, env.storage.uploads)
}

// Unknown email and wrong password must be indistinguishable.
func TestLogin_EnumerationResistance(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	register(t, env, "alice@example.com", "password123")

	_, _, wrongPassErr := env.service.Login(ctx, domain.Credentials{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	_, _, unknownErr := env.service.Login(ctx, domain.Credentials{
		Email:    "nobody@example.com",
		Password: "password123",
	})

	assert.ErrorIs(t, wrongPassErr, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPassErr, unknownErr)
}

func TestForgotPassword_SetsResetFieldsAndSendsMail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account := register(t, env, "alice@example.com", "password123")

	require.NoError(t, env.service.ForgotPassword(ctx, "alice@example.com"))

	stored, err := env.repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetTokenHash)
	require.NotNil(t, stored.ResetTokenExpiry)

	require.Len(t, env.mailer.sent, 1)
	mail := env.mailer.sent[0]
	assert.Equal(t, "alice@example.com", mail.To)
	secret := lastResetSecret(t, env)
	assert.NotEqual(t, *stored.ResetTokenHash, secret, "only the hash is persisted")
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	err := env.service.ForgotPassword(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrEmailNotRegistered)
	assert.Empty(t, env.mailer.sent)
}

// A mail-delivery failure must clear the just-set reset fields so no
// dangling secret blocks or backdoors a future request.
func TestForgotPassword_MailFailureClearsResetFields(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account := register(t, env, "alice@example.com", "password123")
	env.mailer.failing = true

	err := env.service.ForgotPassword(ctx, "alice@example.com")
	require.Error(t, err)

	stored, getErr := env.repo.GetByID(ctx, account.ID)
	require.NoError(t, getErr)
	assert.Nil(t, stored.ResetTokenHash)
	assert.Nil(t, stored.ResetTokenExpiry)
}

func TestResetPassword_Flow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account := register(t, env, "alice@example.com", "password123")
	require.NoError(t, env.service.ForgotPassword(ctx, "alice@example.com"))
	secret := lastResetSecret(t, env)

	// Wrong secret is rejected.
	err := env.service.ResetPassword(ctx, "deadbeef", "newpass12")
	assert.ErrorIs(t, err, domain.ErrResetTokenInvalid)

	// Missing password is rejected before any lookup.
	err = env.service.ResetPassword(ctx, secret, "")
	assert.ErrorIs(t, err, usecase.ErrFieldsRequired)

	// Correct secret rotates the password and clears the reset fields.
	require.NoError(t, env.service.ResetPassword(ctx, secret, "newpass12"))

	stored, err := env.repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ResetTokenHash)
	assert.Nil(t, stored.ResetTokenExpiry)

	_, _, err = env.service.Login(ctx, domain.Credentials{Email: "alice@example.com", Password: "newpass12"})
	assert.NoError(t, err)
	_, _, err = env.service.Login(ctx, domain.Credentials{Email: "alice@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

// A consumed secret must never verify again.
func TestResetPassword_SingleUse(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	register(t, env, "alice@example.com", "password123")
	require.NoError(t, env.service.ForgotPassword(ctx, "alice@example.com"))
	secret := lastResetSecret(t, env)

	require.NoError(t, env.service.ResetPassword(ctx, secret, "newpass12"))

	err := env.service.ResetPassword(ctx, secret, "another99")
	assert.ErrorIs(t, err, domain.ErrResetTokenInvalid)
}

func TestResetPassword_ExpiredSecret(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account := register(t, env, "alice@example.com", "password123")
	require.NoError(t, env.service.ForgotPassword(ctx, "alice@example.com"))
	secret := lastResetSecret(t, env)

	// Force the window shut.
	past := time.Now().Add(-time.Minute)
	env.repo.accounts[account.ID].ResetTokenExpiry = &past

	err := env.service.ResetPassword(ctx, secret, "newpass12")
	assert.ErrorIs(t, err, domain.ErrResetTokenInvalid)
}

// The most recently issued secret wins; an earlier one no longer verifies.
func TestForgotPassword_LatestSecretWins(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	register(t, env, "alice@example.com", "password123")
	require.NoError(t, env.service.ForgotPassword(ctx, "alice@example.com"))
	first := lastResetSecret(t, env)
	require.NoError(t, env.service.ForgotPassword(ctx, "alice@example.com"))
	second := lastResetSecret(t, env)
	require.NotEqual(t, first, second)

	err := env.service.ResetPassword(ctx, first, "newpass12")
	assert.ErrorIs(t, err, domain.ErrResetTokenInvalid)
	assert.NoError(t, env.service.ResetPassword(ctx, second, "newpass12"))
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account := register(t, env, "alice@example.com", "password123")

	err := env.service.ChangePassword(ctx, account.ID, "wrong-old", "newpass12")
	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)

	err = env.service.ChangePassword(ctx, account.ID, "", "newpass12")
	assert.ErrorIs(t, err, usecase.ErrFieldsRequired)

	err = env.service.ChangePassword(ctx, "missing-id", "password123", "newpass12")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	require.NoError(t, env.service.ChangePassword(ctx, account.ID, "password123", "newpass12"))

	_, _, err = env.service.Login(ctx, domain.Credentials{Email: "alice@example.com", Password: "newpass12"})
	assert.NoError(t, err)
	_, _, err = env.service.Login(ctx, domain.Credentials{Email: "alice@example.com", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestGetProfile(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account := register(t, env, "alice@example.com", "password123")

	profile, err := env.service.GetProfile(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Empty(t, profile.PasswordHash)

	_, err = env.service.GetProfile(ctx, "missing-id")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

// A replacement avatar is uploaded before the old object is destroyed.
func TestUpdateProfile_AvatarOrdering(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account, _, err := env.service.Register(ctx, usecase.RegisterInput{
		FullName: "Alice Example",
		Email:    "alice@example.com",
		Password: "password123",
		Avatar:   &usecase.AvatarUpload{Filename: "old.png", ContentType: "image/png", Body: strings.NewReader("old")},
	})
	require.NoError(t, err)
	oldPublicID := account.Avatar.PublicID
	require.NotEmpty(t, oldPublicID)
	env.storage.ops = nil

	updated, err := env.service.UpdateProfile(ctx, account.ID, usecase.UpdateProfileInput{
		Avatar: &usecase.AvatarUpload{Filename: "new.png", ContentType: "image/png", Body: strings.NewReader("new")},
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldPublicID, updated.Avatar.PublicID)

	require.Len(t, env.storage.ops, 2)
	assert.True(t, strings.HasPrefix(env.storage.ops[0], "upload:"))
	assert.Equal(t, "destroy:"+oldPublicID, env.storage.ops[1])
}

// An upload failure leaves the existing avatar untouched.
func TestUpdateProfile_UploadFailureKeepsOldAvatar(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account, _, err := env.service.Register(ctx, usecase.RegisterInput{
		FullName: "Alice Example",
		Email:    "alice@example.com",
		Password: "password123",
		Avatar:   &usecase.AvatarUpload{Filename: "old.png", ContentType: "image/png", Body: strings.NewReader("old")},
	})
	require.NoError(t, err)
	env.storage.failUpload = true
	env.storage.ops = nil

	_, err = env.service.UpdateProfile(ctx, account.ID, usecase.UpdateProfileInput{
		Avatar: &usecase.AvatarUpload{Filename: "new.png", ContentType: "image/png", Body: strings.NewReader("new")},
	})
	require.Error(t, err)
	assert.Empty(t, env.storage.ops, "old avatar must not be destroyed")

	stored, getErr := env.repo.GetByID(ctx, account.ID)
	require.NoError(t, getErr)
	assert.Equal(t, account.Avatar.PublicID, stored.Avatar.PublicID)
}

func TestUpdateProfile_Name(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	account := register(t, env, "alice@example.com", "password123")

	newName := "Alice B. Example"
	updated, err := env.service.UpdateProfile(ctx, account.ID, usecase.UpdateProfileInput{FullName: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.FullName)

	badName := "Al"
	_, err = env.service.UpdateProfile(ctx, account.ID, usecase.UpdateProfileInput{FullName: &badName})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = env.service.UpdateProfile(ctx, "missing-id", usecase.UpdateProfileInput{FullName: &newName})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRegisterManyDistinctAccounts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		register(t, env, fmt.Sprintf("user%d@example.com", i), "password123")
	}
	assert.Len(t, env.repo.accounts, 5)
}
