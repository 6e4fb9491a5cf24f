package geo

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SeedStats struct {
	Country   string `json:"country"`
	Provinces int    `json:"provinces"`
	Cities    int    `json:"cities"`
}

// SeedCountry creates or force-updates one country, its provinces and cities.
// Rows are matched on natural keys so re-running is idempotent.
func SeedCountry(tx *gorm.DB, d CountryData) (SeedStats, error) {
	stats := SeedStats{Country: d.Code}

	country := Country{Code: d.Code, Name: d.Name}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&country).Error; err != nil {
		return stats, fmt.Errorf("upsert country %s: %w", d.Code, err)
	}

	for _, pd := range d.Provinces {
		province := Province{CountryID: country.ID, Name: pd.Name, Code: pd.Code}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "country_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "updated_at"}),
		}).Create(&province).Error; err != nil {
			return stats, fmt.Errorf("upsert province %s/%s: %w", d.Code, pd.Name, err)
		}
		stats.Provinces++

		cities := buildCities(province.ID, pd.Cities)
		if len(cities) == 0 {
			continue
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "province_id"}, {Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "aliases", "updated_at"}),
		}).CreateInBatches(&cities, 500).Error; err != nil {
			return stats, fmt.Errorf("upsert cities of %s/%s: %w", d.Code, pd.Name, err)
		}
		stats.Cities += len(cities)
	}

	return stats, nil
}

// buildCities dedupes by slug, merging aliases; one upsert statement may not
// touch the same row twice.
func buildCities(provinceID uuid.UUID, in []CityData) []City {
	index := make(map[string]int, len(in))
	out := make([]City, 0, len(in))

	for _, c := range in {
		slug := Slug(c.Name)
		if i, ok := index[slug]; ok {
			out[i].Aliases = mergeAliases(out[i].Aliases, c.Aliases)
			continue
		}
		index[slug] = len(out)
		out = append(out, City{
			ProvinceID: provinceID,
			Name:       c.Name,
			Slug:       slug,
			Aliases:    mergeAliases(pq.StringArray{}, c.Aliases),
		})
	}
	return out
}

func mergeAliases(dst pq.StringArray, more []string) pq.StringArray {
	for _, a := range more {
		if a == "" {
			continue
		}
		dup := false
		for _, have := range dst {
			if have == a {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, a)
		}
	}
	return dst
}

// SeedAll seeds every country in its own transaction.
func SeedAll(d *gorm.DB, countries []CountryData) error {
	for _, c := range countries {
		var stats SeedStats
		err := d.Transaction(func(tx *gorm.DB) error {
			var err error
			stats, err = SeedCountry(tx, c)
			return err
		})
		if err != nil {
			return err
		}
		log.Printf("[geo] seeded %s: %d provinces, %d cities", stats.Country, stats.Provinces, stats.Cities)
	}
	return nil
}
