package geo

import (
	"log"

	"github.com/carrypal/carrypal-backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "geo"); err != nil {
		log.Fatal("Failed to ensure schema geo: ", err)
	}

	if err := db.EnsureUUIDExtension(db.DB); err != nil {
		log.Fatal("Failed to enable uuid-ossp extension: ", err)
	}

	if err := db.DB.AutoMigrate(&Country{}, &Province{}, &City{}); err != nil {
		log.Fatal("Failed to auto-migrate geo tables: ", err)
	}

	log.Println("Geo module initialized")
}
