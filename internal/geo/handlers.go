package geo

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/carrypal/carrypal-backend/internal/db"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListCountries returns all countries ordered by name
func ListCountries(w http.ResponseWriter, r *http.Request) {
	var countries []Country
	if err := db.DB.Order("name ASC").Find(&countries).Error; err != nil {
		http.Error(w, "Failed to fetch countries: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(countries)
}

// ListProvinces returns the provinces of a country by ISO code
func ListProvinces(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	var country Country
	if err := db.DB.First(&country, "code = ?", code).Error; err != nil {
		http.Error(w, "Country not found", http.StatusNotFound)
		return
	}

	var provinces []Province
	if err := db.DB.Where("country_id = ?", country.ID).Order("name ASC").Find(&provinces).Error; err != nil {
		http.Error(w, "Failed to fetch provinces: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(provinces)
}

// ListCities returns the cities of a province
func ListCities(w http.ResponseWriter, r *http.Request) {
	provinceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid province id", http.StatusBadRequest)
		return
	}

	var cities []City
	if err := db.DB.Where("province_id = ?", provinceID).Order("name ASC").Find(&cities).Error; err != nil {
		http.Error(w, "Failed to fetch cities: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cities)
}

// GetCity returns one city with its province and country
func GetCity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid city id", http.StatusBadRequest)
		return
	}

	var city City
	if err := db.DB.Preload("Province.Country").First(&city, "id = ?", id).Error; err != nil {
		http.Error(w, "City not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(city)
}

// SearchCities prefix-matches the slug or an alias, optionally within a country
func SearchCities(w http.ResponseWriter, r *http.Request) {
	q := Slug(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 100 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	query := db.DB.Model(&City{}).Preload("Province.Country").
		Where("geo.cities.slug LIKE ? OR EXISTS (SELECT 1 FROM unnest(geo.cities.aliases) a WHERE lower(a) LIKE ?)",
			q+"%", strings.ReplaceAll(q, "-", " ")+"%")

	if code := r.URL.Query().Get("country"); code != "" {
		query = query.
			Joins("JOIN geo.provinces ON geo.provinces.id = geo.cities.province_id").
			Joins("JOIN geo.countries ON geo.countries.id = geo.provinces.country_id").
			Where("geo.countries.code = ?", strings.ToUpper(code))
	}

	var cities []City
	if err := query.Order("geo.cities.name ASC").Limit(limit).Find(&cities).Error; err != nil {
		http.Error(w, "Failed to search cities: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cities)
}

// ImportCountry upserts one country document in YAML or JSON (admin only)
func ImportCountry(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		http.Error(w, "payload too large or unreadable", http.StatusRequestEntityTooLarge)
		return
	}

	// JSON is a subset of YAML, so one parser covers both.
	data, err := ParseCountry(body)
	if err != nil {
		http.Error(w, "Invalid country document: "+err.Error(), http.StatusBadRequest)
		return
	}

	var stats SeedStats
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = SeedCountry(tx, data)
		return err
	})
	if err != nil {
		http.Error(w, "Failed to import country: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(stats)
}

var ErrCityNotFound = errors.New("city not found")

// CityExists is used by other modules to validate city references.
func CityExists(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&City{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrCityNotFound
	}
	return nil
}
