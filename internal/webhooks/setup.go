package webhooks

import (
	"log"

	"github.com/carrypal/carrypal-backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "webhooks"); err != nil {
		log.Fatal("Failed to ensure schema webhooks: ", err)
	}

	if err := db.DB.AutoMigrate(&TopupEvent{}); err != nil {
		log.Fatal("Failed to auto-migrate webhook tables: ", err)
	}

	log.Println("Webhooks module initialized")
}
