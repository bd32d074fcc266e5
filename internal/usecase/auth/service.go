package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	domain "lms/backend/internal/domain/auth"

	"github.com/google/uuid"
)

// ErrFieldsRequired indicates a request with one or more required fields
// missing.
var ErrFieldsRequired = errors.New("all fields are required")

// Service coordinates the register/login/reset workflows between the domain
// and the credential store, hasher, token services and collaborators.
type Service struct {
	accounts domain.AccountRepository
	tokens   TokenManager
	hasher   PasswordHasher
	resets   ResetTokenManager
	mailer   Mailer
	storage  ObjectStorage
	resetURL string
	log      *slog.Logger
	nowFunc  func() time.Time
}

// NewService constructs an auth service. resetURL is the externally reachable
// base the reset secret is embedded under when mailed out.
func NewService(
	accounts domain.AccountRepository,
	tokens TokenManager,
	hasher PasswordHasher,
	resets ResetTokenManager,
	mailer Mailer,
	storage ObjectStorage,
	resetURL string,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		resets:   resets,
		mailer:   mailer,
		storage:  storage,
		resetURL: strings.TrimRight(resetURL, "/"),
		log:      log,
		nowFunc:  time.Now,
	}
}

// AvatarUpload carries an optional profile image supplied with registration
// or profile updates.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// RegisterInput is the payload for self-service registration.
type RegisterInput struct {
	FullName string
	Email    string
	Password string
	Avatar   *AvatarUpload
}

// UpdateProfileInput captures the mutable profile fields. Role is never
// settable through this path.
type UpdateProfileInput struct {
	FullName *string
	Avatar   *AvatarUpload
}

// Register creates a new USER account, issues a session token and returns the
// persisted entity without its password hash. The avatar upload is
// best-effort enrichment: a storage failure never loses the created account.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.Account, string, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := domain.NormalizeEmail(input.Email)
	password := input.Password
	if fullName == "" || email == "" || password == "" {
		return nil, "", ErrFieldsRequired
	}
	if err := domain.ValidateName(fullName); err != nil {
		return nil, "", err
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, "", err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, "", err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	now := s.nowFunc().UTC()
	account := &domain.Account{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		Role:         domain.RoleUser,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, "", err
	}

	if input.Avatar != nil {
		if avatar, err := s.uploadAvatar(ctx, account.ID, input.Avatar); err != nil {
			s.log.Warn("avatar upload failed, keeping account without image",
				"accountId", account.ID, "error", err)
		} else {
			account.Avatar = avatar
			account.UpdatedAt = s.nowFunc().UTC()
			if err := s.accounts.Update(ctx, account); err != nil {
				s.log.Warn("persisting avatar failed", "accountId", account.ID, "error", err)
			}
		}
	}

	token, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issuing session token: %w", err)
	}

	return sanitizeAccount(account), token, nil
}

// Login validates credentials and returns the account plus a session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*domain.Account, string, error) {
	email := domain.NormalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, "", ErrFieldsRequired
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !s.hasher.Verify(creds.Password, account.PasswordHash) {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issuing session token: %w", err)
	}

	return sanitizeAccount(account), token, nil
}

// VerifyToken validates a session token for the access-control middleware.
func (s *Service) VerifyToken(token string) (Claims, error) {
	return s.tokens.Verify(token)
}

// GetProfile returns the account for an authenticated subject.
func (s *Service) GetProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return sanitizeAccount(account), nil
}

// ForgotPassword starts the reset protocol: it generates a fresh secret,
// persists only its hash and expiry, and mails the raw secret embedded in a
// reset link. If any step after persistence fails the just-set reset fields
// are cleared before the error is returned, so no dangling secret survives a
// failed request. Concurrent requests simply overwrite each other; only the
// most recently issued secret verifies.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return ErrFieldsRequired
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrEmailNotRegistered
		}
		return err
	}

	secret, hash, expiry, err := s.resets.Generate()
	if err != nil {
		return fmt.Errorf("generating reset secret: %w", err)
	}

	now := s.nowFunc().UTC()
	if err := s.accounts.SetResetToken(ctx, account.ID, hash, expiry, now); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.resetURL, secret)
	body := fmt.Sprintf(
		"You requested a password reset.\n\nFollow this link to choose a new password:\n%s\n\nThe link expires at %s. If you did not request this, ignore this email.",
		link, expiry.Format(time.RFC1123),
	)
	if err := s.mailer.Send(ctx, account.Email, "Reset your password", body); err != nil {
		if clearErr := s.accounts.ClearResetToken(ctx, account.ID, s.nowFunc().UTC()); clearErr != nil {
			s.log.Error("clearing reset token after mail failure",
				"accountId", account.ID, "error", clearErr)
		}
		return fmt.Errorf("sending reset email: %w", err)
	}

	return nil
}

// ResetPassword completes the reset protocol. The presented secret locates
// the account by its hash with the expiry filter applied in the store; the
// new password and the cleared reset fields land in one committed update, so
// a consumed secret can never be replayed.
func (s *Service) ResetPassword(ctx context.Context, secret, newPassword string) error {
	if newPassword == "" {
		return ErrFieldsRequired
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}
	if secret == "" {
		return domain.ErrResetTokenInvalid
	}

	now := s.nowFunc().UTC()
	account, err := s.accounts.GetByValidResetHash(ctx, s.resets.Hash(secret), now)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrResetTokenInvalid
		}
		return err
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.accounts.ConsumeResetToken(ctx, account.ID, hashed, s.nowFunc().UTC())
}

// ChangePassword rotates the password of an authenticated account after
// verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ErrFieldsRequired
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(oldPassword, account.PasswordHash) {
		return domain.ErrPasswordMismatch
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.accounts.UpdatePassword(ctx, account.ID, hashed, s.nowFunc().UTC())
}

// UpdateProfile applies the supplied mutable fields. A replacement avatar is
// uploaded before the old object is destroyed, so a storage failure can never
// leave the account with neither image.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, input UpdateProfileInput) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if err := domain.ValidateName(fullName); err != nil {
			return nil, err
		}
		account.FullName = fullName
	}

	if input.Avatar != nil {
		avatar, err := s.uploadAvatar(ctx, account.ID, input.Avatar)
		if err != nil {
			return nil, fmt.Errorf("uploading avatar: %w", err)
		}
		if old := account.Avatar.PublicID; old != "" {
			if err := s.storage.Destroy(ctx, old); err != nil {
				s.log.Warn("destroying replaced avatar", "accountId", account.ID, "publicId", old, "error", err)
			}
		}
		account.Avatar = avatar
	}

	account.UpdatedAt = s.nowFunc().UTC()
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}

	return sanitizeAccount(account), nil
}

func (s *Service) uploadAvatar(ctx context.Context, accountID string, upload *AvatarUpload) (domain.Avatar, error) {
	key := fmt.Sprintf("avatars/%s/%s", accountID, uuid.NewString())
	publicID, secureURL, err := s.storage.Upload(ctx, key, upload.Body, upload.ContentType)
	if err != nil {
		return domain.Avatar{}, err
	}
	return domain.Avatar{PublicID: publicID, SecureURL: secureURL}, nil
}

func sanitizeAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	copy := *a
	copy.PasswordHash = ""
	copy.ResetTokenHash = nil
	copy.ResetTokenExpiry = nil
	return &copy
}
