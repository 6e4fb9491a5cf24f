package projects

import (
	"log"

	"github.com/carrypal/carrypal-backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "market"); err != nil {
		log.Fatal("Failed to ensure schema market: ", err)
	}

	if err := db.EnsureUUIDExtension(db.DB); err != nil {
		log.Fatal("Failed to enable uuid-ossp extension: ", err)
	}

	if err := db.DB.AutoMigrate(&Project{}); err != nil {
		log.Fatal("Failed to auto-migrate project tables: ", err)
	}

	log.Println("Projects module initialized")
}
