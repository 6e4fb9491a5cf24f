package auth

import (
	"log"
	"time"

	"github.com/carrypal/carrypal-backend/internal/db"
)

// SessionLifetime is how long a login cookie stays valid.
var SessionLifetime = 6 * time.Hour

// SecureCookies marks session cookies Secure; off for local HTTP development.
var SecureCookies = false

func Init() {
	if err := db.EnsureSchema(db.DB, "app_auth"); err != nil {
		log.Fatal("Failed to ensure schema app_auth: ", err)
	}

	if err := db.DB.AutoMigrate(&User{}, &Session{}); err != nil {
		log.Fatal("Failed to auto-migrate tables: ", err)
	}
}
