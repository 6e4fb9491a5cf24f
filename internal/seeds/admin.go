package seeds

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/carrypal/carrypal-backend/internal/auth"
	"github.com/carrypal/carrypal-backend/internal/wallet"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrWeakPassword = errors.New("admin password must be at least 8 characters")

type AdminAccount struct {
	Username string
	Password string
	// Force resets the password of an existing account.
	Force bool
}

// AdminFromEnv reads SEED_ADMIN_USERNAME, SEED_ADMIN_PASSWORD and
// SEED_ADMIN_FORCE ("true" or "1").
func AdminFromEnv() AdminAccount {
	force := strings.ToLower(strings.TrimSpace(os.Getenv("SEED_ADMIN_FORCE")))
	return AdminAccount{
		Username: strings.TrimSpace(os.Getenv("SEED_ADMIN_USERNAME")),
		Password: os.Getenv("SEED_ADMIN_PASSWORD"),
		Force:    force == "true" || force == "1",
	}
}

// SeedAdmin creates the admin account, or promotes an existing user of the
// same name. An empty username skips the step.
func SeedAdmin(d *gorm.DB, a AdminAccount) error {
	if a.Username == "" {
		log.Printf("⚠️ SEED_ADMIN_USERNAME not set, skipping admin seed")
		return nil
	}
	if len(a.Password) < 8 {
		return ErrWeakPassword
	}

	return d.Transaction(func(tx *gorm.DB) error {
		var existing auth.User
		err := tx.Where("username = ?", a.Username).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user, err := auth.CreateUser(tx, a.Username, a.Password, auth.RoleAdmin)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			log.Printf("✅ Created admin %s (%s)", user.Username, user.UserID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("look up admin: %w", err)
		}

		updates := map[string]interface{}{"role": auth.RoleAdmin}
		if a.Force {
			hashed, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			updates["hashed_password"] = string(hashed)
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("update admin: %w", err)
		}
		if err := wallet.EnsureWallet(tx, existing.UserID); err != nil {
			return fmt.Errorf("open wallet: %w", err)
		}

		log.Printf("⚠️ Admin %s already exists, role ensured (password reset: %t)", a.Username, a.Force)
		return nil
	})
}
