package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/models"
)

// PasswordHasher hashes plain-text passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// EnsureAdmin creates the bootstrap administrator when no ADMIN user exists yet.
func EnsureAdmin(ctx context.Context, users UserCollection, hasher PasswordHasher, username, password string) error {
	if username == "" || password == "" {
		log.Warn("No bootstrap admin credentials configured, skipping admin seed")
		return nil
	}
	n, err := users.CountUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	hash, err := hasher.HashPassword(password)
	if err != nil {
		return err
	}
	user := models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		FirstName:    "Administrador",
	}
	if err := users.InsertUser(ctx, user); err != nil {
		return fmt.Errorf("insert bootstrap admin: %w", err)
	}
	log.WithField("username", username).Info("Bootstrap admin created")
	return nil
}
