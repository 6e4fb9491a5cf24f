package main

import (
	"flag"
	"log"

	"github.com/carrypal/carrypal-backend/internal/auth"
	"github.com/carrypal/carrypal-backend/internal/config"
	"github.com/carrypal/carrypal-backend/internal/db"
	"github.com/carrypal/carrypal-backend/internal/geo"
	"github.com/carrypal/carrypal-backend/internal/seeds"
	"github.com/carrypal/carrypal-backend/internal/wallet"
	"github.com/joho/godotenv"
)

// CLI flags
var (
	dsn    = flag.String("dsn", "", "Postgres DSN (default: env DATABASE_URL)")
	geoDir = flag.String("geo-dir", "", "Directory of country YAML files (default: env GEO_DATA_DIR, then the built-in set)")
	only   = flag.String("only", "", "Seed a single part: geo or admin")
)

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()

	cfg := config.LoadFromEnv()
	if *dsn == "" {
		*dsn = cfg.DatabaseURL
	}
	if *dsn == "" {
		log.Fatal("❌ --dsn not provided and DATABASE_URL not set")
	}
	if *geoDir == "" {
		*geoDir = cfg.GeoDataDir
	}

	db.Connect(*dsn)
	geo.Init()
	wallet.Init()
	auth.Init()

	fsys, err := geo.DataFS(*geoDir)
	if err != nil {
		log.Fatalf("❌ Geo data: %v", err)
	}

	switch *only {
	case "":
		err = seeds.SeedAll(db.DB, fsys)
	case "geo":
		err = seeds.SeedGeo(db.DB, fsys)
	case "admin":
		err = seeds.SeedAdmin(db.DB, seeds.AdminFromEnv())
	default:
		log.Fatalf("❌ Unknown --only value %q (want geo or admin)", *only)
	}
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}
