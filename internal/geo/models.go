package geo

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Country struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Code      string    `gorm:"size:2;uniqueIndex;not null" json:"code"` // ISO 3166-1 alpha-2
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Provinces []Province `gorm:"foreignKey:CountryID" json:"provinces,omitempty"`
}

func (Country) TableName() string {
	return "geo.countries"
}

type Province struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	CountryID uuid.UUID `gorm:"type:uuid;not null;index:idx_province_country_name,unique" json:"country_id"`
	Name      string    `gorm:"not null;index:idx_province_country_name,unique" json:"name"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Country *Country `gorm:"foreignKey:CountryID" json:"country,omitempty"`
	Cities  []City   `gorm:"foreignKey:ProvinceID" json:"cities,omitempty"`
}

func (Province) TableName() string {
	return "geo.provinces"
}

type City struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ProvinceID uuid.UUID      `gorm:"type:uuid;not null;index:idx_city_province_slug,unique" json:"province_id"`
	Name       string         `gorm:"not null" json:"name"`
	Slug       string         `gorm:"not null;index:idx_city_province_slug,unique;index:idx_city_slug" json:"slug"`
	Aliases    pq.StringArray `gorm:"type:text[]" json:"aliases,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	Province *Province `gorm:"foreignKey:ProvinceID" json:"province,omitempty"`
}

func (City) TableName() string {
	return "geo.cities"
}
