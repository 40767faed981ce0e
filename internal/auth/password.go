package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/backoffice/internal/model"
)

const bcryptCost = 12

// Hash returns a bcrypt hash of the password.
func Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(b), err
}

// NewID generates a random hex ID.
func NewID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// UserCreator is the minimal interface needed for seeding the first admin.
type UserCreator interface {
	CountAll(ctx context.Context) (int, error)
	Create(ctx context.Context, u model.AdminUser, passwordHash string) error
}

// SeedFirstAdmin creates an active admin when the directory is empty. The
// account has no notification preference, so it receives every email.
// It reports whether a user was created.
func SeedFirstAdmin(ctx context.Context, users UserCreator, email, password string, log *zap.SugaredLogger) bool {
	if email == "" || password == "" {
		return false
	}

	count, err := users.CountAll(ctx)
	if err != nil {
		log.Errorw("seed: failed to count admin users", "error", err)
		return false
	}
	if count > 0 {
		return false
	}

	hash, err := Hash(password)
	if err != nil {
		log.Errorw("seed: failed to hash password", "error", err)
		return false
	}

	u := model.AdminUser{
		ID:       NewID(),
		Email:    email,
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	if err := users.Create(ctx, u, hash); err != nil {
		log.Errorw("seed: failed to create admin user", "error", err)
		return false
	}
	log.Infow("seed: created first admin", "email", email)
	return true
}
