package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/repository"
	"github.com/PietroNozella/PetWalker/pkg/config"
)

// Hasher hashes the bootstrap password.
type Hasher interface {
	Hash(plain string) ([]byte, error)
}

// EnsureAdmin creates the default admin account when it is missing.
// An existing account is left untouched, including its password.
func EnsureAdmin(ctx context.Context, users repository.UserRepository, hasher Hasher, cfg config.AdminConfig, logger *slog.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" || cfg.Password == "" {
		return fmt.Errorf("admin bootstrap missing required config")
	}

	if _, err := users.GetUserByEmail(ctx, email); err == nil {
		logger.Debug("default admin already present")
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("bootstrap lookup user: %w", err)
	}

	hashed, err := hasher.Hash(cfg.Password)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "Admin"
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hashed,
		Name:         name,
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// another instance won the race
			return nil
		}
		return fmt.Errorf("bootstrap create user: %w", err)
	}
	logger.Info("default admin created", "user_id", user.ID)
	return nil
}
