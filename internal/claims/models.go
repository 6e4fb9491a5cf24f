package claims

import (
	"time"

	"github.com/carrypal/carrypal-backend/internal/projects"
	"github.com/google/uuid"
)

// Claim statuses
const (
	StatusPending    = "pending"
	StatusApproved   = "approved"
	StatusPaid       = "paid"
	StatusInProgress = "in_progress"
	StatusDelivered  = "delivered"
	StatusCanceled   = "canceled"
)

// Claim is a traveler's offer to carry a project. Amount is the project
// reward frozen at claim time; Fee is set on delivery.
type Claim struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ProjectID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	TravelerID       string     `gorm:"not null;index" json:"traveler_id"`
	SenderID         string     `gorm:"not null;index" json:"sender_id"`
	Status           string     `gorm:"not null;default:'pending';index" json:"status"`
	Amount           int64      `gorm:"not null" json:"amount"`
	Fee              int64      `gorm:"not null;default:0" json:"fee"`
	Currency         string     `gorm:"not null;default:'USD'" json:"currency"`
	Note             string     `json:"note,omitempty"`
	DeliveryCodeHash string     `json:"-"`
	CodeAttempts     int        `gorm:"not null;default:0" json:"code_attempts"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	CanceledAt       *time.Time `json:"canceled_at,omitempty"`
	CanceledBy       string     `json:"canceled_by,omitempty"`
	CancelReason     string     `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Project *projects.Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

func (Claim) TableName() string {
	return "market.claims"
}

// ClaimStep is the audit trail: one row per status change.
type ClaimStep struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ClaimID    uuid.UUID `gorm:"type:uuid;not null;index" json:"claim_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `gorm:"not null" json:"to_status"`
	ActorID    string    `gorm:"not null" json:"actor_id"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ClaimStep) TableName() string {
	return "market.claim_steps"
}
