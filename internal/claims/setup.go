package claims

import (
	"log"

	"github.com/carrypal/carrypal-backend/internal/db"
)

// liveClaimIndex allows one non-canceled claim per traveler and project.
const liveClaimIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_live_traveler
	ON market.claims (project_id, traveler_id) WHERE status <> 'canceled'`

func Init() {
	if err := db.EnsureSchema(db.DB, "market"); err != nil {
		log.Fatal("Failed to ensure schema market: ", err)
	}

	if err := db.EnsureUUIDExtension(db.DB); err != nil {
		log.Fatal("Failed to enable uuid-ossp extension: ", err)
	}

	if err := db.DB.AutoMigrate(&Claim{}, &ClaimStep{}); err != nil {
		log.Fatal("Failed to auto-migrate claim tables: ", err)
	}

	if err := db.DB.Exec(liveClaimIndex).Error; err != nil {
		log.Fatal("Failed to create live claim index: ", err)
	}

	log.Println("Claims module initialized")
}
