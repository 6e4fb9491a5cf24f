package projects

import (
	"time"

	"github.com/carrypal/carrypal-backend/internal/geo"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Project statuses
const (
	StatusOpen      = "open"
	StatusReserved  = "reserved"   // a claim was approved
	StatusInTransit = "in_transit" // the traveler picked the parcel up
	StatusDelivered = "delivered"
	StatusCanceled  = "canceled"
)

// Project is a shipment a sender wants carried from one city to another.
type Project struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	OwnerID           string         `gorm:"not null;index" json:"owner_id"`
	Title             string         `gorm:"not null" json:"title"`
	Description       string         `json:"description"`
	OriginCityID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"origin_city_id"`
	DestinationCityID uuid.UUID      `gorm:"type:uuid;not null;index" json:"destination_city_id"`
	WeightGrams       int            `gorm:"not null" json:"weight_grams"`
	Reward            int64          `gorm:"not null" json:"reward"` // cents
	Currency          string         `gorm:"not null;default:'USD'" json:"currency"`
	Tags              pq.StringArray `gorm:"type:text[]" json:"tags"`
	Deadline          *time.Time     `json:"deadline,omitempty"`
	Status            string         `gorm:"not null;default:'open';index" json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	Origin      *geo.City `gorm:"foreignKey:OriginCityID" json:"origin,omitempty"`
	Destination *geo.City `gorm:"foreignKey:DestinationCityID" json:"destination,omitempty"`
}

func (Project) TableName() string {
	return "market.projects"
}
