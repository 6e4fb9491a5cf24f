package projects

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carrypal/carrypal-backend/internal/wallet"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrNotOpen         = errors.New("project is not open")
	ErrNotOwner        = errors.New("only the owner can modify this project")
	ErrInvalidProject  = errors.New("invalid project")
	ErrProjectBusy     = errors.New("project has a committed claim")
)

// Lock loads a project FOR UPDATE inside tx.
func Lock(tx *gorm.DB, id uuid.UUID) (Project, error) {
	var p Project
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, ErrProjectNotFound
	}
	return p, err
}

// SetStatus keeps the project in step with its claim.
func SetStatus(tx *gorm.DB, id uuid.UUID, status string) error {
	res := tx.Model(&Project{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("set project %s status %s: %w", id, status, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

type ProjectInput struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	OriginCityID      uuid.UUID  `json:"origin_city_id"`
	DestinationCityID uuid.UUID  `json:"destination_city_id"`
	WeightGrams       int        `json:"weight_grams"`
	Reward            int64      `json:"reward"`
	Currency          string     `json:"currency"`
	Tags              []string   `json:"tags"`
	Deadline          *time.Time `json:"deadline,omitempty"`
}

// Validate trims the input and checks required fields.
func (in *ProjectInput) Validate(now time.Time) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = wallet.DefaultCurrency
	}

	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidProject)
	case in.OriginCityID == uuid.Nil || in.DestinationCityID == uuid.Nil:
		return fmt.Errorf("%w: origin_city_id and destination_city_id are required", ErrInvalidProject)
	case in.OriginCityID == in.DestinationCityID:
		return fmt.Errorf("%w: origin and destination must differ", ErrInvalidProject)
	case in.WeightGrams <= 0:
		return fmt.Errorf("%w: weight_grams must be positive", ErrInvalidProject)
	case in.Reward <= 0:
		return fmt.Errorf("%w: reward must be positive", ErrInvalidProject)
	case in.Currency != wallet.DefaultCurrency:
		return fmt.Errorf("%w: only %s rewards are supported", ErrInvalidProject, wallet.DefaultCurrency)
	case in.Deadline != nil && !in.Deadline.After(now):
		return fmt.Errorf("%w: deadline must be in the future", ErrInvalidProject)
	}
	return nil
}
