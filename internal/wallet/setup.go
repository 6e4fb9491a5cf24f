package wallet

import (
	"log"

	"github.com/carrypal/carrypal-backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "wallet"); err != nil {
		log.Fatal("Failed to ensure schema wallet: ", err)
	}

	if err := db.EnsureUUIDExtension(db.DB); err != nil {
		log.Fatal("Failed to enable uuid-ossp extension: ", err)
	}

	if err := db.DB.AutoMigrate(&Wallet{}, &Transaction{}); err != nil {
		log.Fatal("Failed to auto-migrate wallet tables: ", err)
	}

	if err := EnsureWallet(db.DB, PlatformUserID); err != nil {
		log.Fatal("Failed to create platform wallet: ", err)
	}

	log.Println("Wallet module initialized")
}
