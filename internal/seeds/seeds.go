package seeds

import (
	"fmt"
	"io/fs"
	"log"

	"github.com/carrypal/carrypal-backend/internal/geo"
	"gorm.io/gorm"
)

// SeedAll loads the geo reference data from fsys, then the admin account
// when SEED_ADMIN_USERNAME and SEED_ADMIN_PASSWORD are set.
func SeedAll(d *gorm.DB, fsys fs.FS) error {
	if err := SeedGeo(d, fsys); err != nil {
		return err
	}
	return SeedAdmin(d, AdminFromEnv())
}

// SeedGeo upserts every country file in fsys. Rerunning it updates names and
// merges aliases in place.
func SeedGeo(d *gorm.DB, fsys fs.FS) error {
	countries, err := geo.LoadCountryFiles(fsys)
	if err != nil {
		return fmt.Errorf("load geo data: %w", err)
	}
	if len(countries) == 0 {
		log.Printf("⚠️ No country files found, skipping geo seed")
		return nil
	}

	if err := geo.SeedAll(d, countries); err != nil {
		return fmt.Errorf("seed geo: %w", err)
	}

	log.Printf("✅ Seeded %d countries", len(countries))
	return nil
}
