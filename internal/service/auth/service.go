package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"log/slog"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/repository"
	"github.com/PietroNozella/PetWalker/pkg/config"
	"github.com/PietroNozella/PetWalker/pkg/crypto"
)

var (
	// ErrInvalidCredentials is returned for any failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthenticated is returned for missing, invalid or expired tokens and deleted users.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when an authenticated user lacks the admin role.
	ErrForbidden = errors.New("admin privileges required")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)

const timingPassword = "petwalker-timing-equaliser"

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Issue(subjectID int64, ttl time.Duration) (string, error)
	Verify(token string) (int64, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) ([]byte, error)
	Verify(hash []byte, plain string) bool
}

// Service handles authentication workflows.
type Service struct {
	users     repository.UserRepository
	tokens    TokenIssuer
	hasher    PasswordHasher
	logger    *slog.Logger
	ttl       time.Duration
	dummyHash []byte
}

// New constructs a Service.
func New(users repository.UserRepository, tokens TokenIssuer, hasher PasswordHasher, logger *slog.Logger, cfg config.APIConfig) Service {
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	dummy, err := hasher.Hash(timingPassword)
	if err != nil {
		logger.Warn("failed to prepare timing hash", "error", err)
	}
	return Service{users: users, tokens: tokens, hasher: hasher, logger: logger, ttl: ttl, dummyHash: dummy}
}

// Token is the login response payload.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}

// NewUser describes an account to create.
type NewUser struct {
	Email    string
	Name     string
	Phone    *string
	Password string
}

// Register creates an owner account from public self-registration.
func (s Service) Register(ctx context.Context, in NewUser) (*domain.User, error) {
	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// CreateOwner creates an owner account on behalf of an admin.
func (s Service) CreateOwner(ctx context.Context, in NewUser) (*domain.User, error) {
	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("owner created", "user_id", user.ID)
	return user, nil
}

// ListOwners returns every non-admin account.
func (s Service) ListOwners(ctx context.Context) ([]domain.User, error) {
	return s.users.ListOwners(ctx)
}

func (s Service) createUser(ctx context.Context, in NewUser) (*domain.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	if in.Password == "" {
		return nil, domain.Invalid("password", "is required")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return nil, domain.Invalid("password", "must be at most 72 bytes")
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        trimOptional(in.Phone),
		IsAdmin:      false,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and returns a bearer token.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, Token, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// keep the unknown-email path as slow as a real comparison
			if len(s.dummyHash) > 0 {
				s.hasher.Verify(s.dummyHash, password)
			}
			return nil, Token{}, ErrInvalidCredentials
		}
		return nil, Token{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		s.logger.Warn("login rejected", "user_id", user.ID)
		return nil, Token{}, ErrInvalidCredentials
	}
	access, err := s.tokens.Issue(user.ID, s.ttl)
	if err != nil {
		return nil, Token{}, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, Token{AccessToken: access, TokenType: "bearer", ExpiresIn: s.ttl}, nil
}

// Authenticate resolves a bearer token to a live user.
func (s Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, ErrUnauthenticated
	}
	userID, err := s.tokens.Verify(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d no longer exists", ErrUnauthenticated, userID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// RequireAdmin returns user when it carries the admin role.
func RequireAdmin(user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !user.IsAdmin {
		return nil, ErrForbidden
	}
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.Invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Invalid("email", "is not a valid address")
	}
	return email, nil
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
