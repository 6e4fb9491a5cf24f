package claims

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/carrypal/carrypal-backend/internal/db"
	"github.com/carrypal/carrypal-backend/internal/metrics"
	"github.com/carrypal/carrypal-backend/internal/projects"
	"github.com/carrypal/carrypal-backend/internal/wallet"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimRepository runs every claim transition in a single database
// transaction: lock, authorize, side effects, step log, commit.
type ClaimRepository struct {
	DB              *gorm.DB
	FeeBps          int64
	MaxCodeAttempts int
	Now             func() time.Time
}

func NewClaimRepository(d *gorm.DB, feeBps int64, maxCodeAttempts int) *ClaimRepository {
	return &ClaimRepository{
		DB:              d,
		FeeBps:          feeBps,
		MaxCodeAttempts: maxCodeAttempts,
		Now:             time.Now,
	}
}

// commitThenFail lets a transition persist bookkeeping (a failed code
// attempt) while still reporting err to the caller.
type commitThenFail struct{ err error }

func (c *commitThenFail) Error() string { return c.err.Error() }
func (c *commitThenFail) Unwrap() error { return c.err }

func lockClaim(tx *gorm.DB, id uuid.UUID) (Claim, error) {
	var c Claim
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c, ErrClaimNotFound
	}
	return c, err
}

// lockProjectThenClaim takes the project row before the claim row. Project
// cancellation and competing approvals lock in the same order.
func lockProjectThenClaim(tx *gorm.DB, id uuid.UUID) (projects.Project, Claim, error) {
	var ref Claim
	err := tx.Select("id", "project_id").First(&ref, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return projects.Project{}, Claim{}, ErrClaimNotFound
	}
	if err != nil {
		return projects.Project{}, Claim{}, err
	}

	project, err := projects.Lock(tx, ref.ProjectID)
	if err != nil {
		return projects.Project{}, Claim{}, err
	}
	c, err := lockClaim(tx, id)
	if err != nil {
		return projects.Project{}, Claim{}, err
	}
	return project, c, nil
}

func (r *ClaimRepository) logStep(tx *gorm.DB, claimID uuid.UUID, from, to, actorID, note string) (ClaimStep, error) {
	step := ClaimStep{
		ClaimID:    claimID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Note:       note,
		CreatedAt:  r.Now(),
	}
	if err := tx.Create(&step).Error; err != nil {
		return step, fmt.Errorf("log claim step: %w", err)
	}
	return step, nil
}

// stamp records when a claim reached status.
func stamp(c *Claim, status string, at time.Time) {
	switch status {
	case StatusApproved:
		c.ApprovedAt = &at
	case StatusPaid:
		c.PaidAt = &at
	case StatusInProgress:
		c.StartedAt = &at
	case StatusDelivered:
		c.DeliveredAt = &at
	case StatusCanceled:
		c.CanceledAt = &at
	}
}

func (r *ClaimRepository) published(steps []ClaimStep) {
	for _, s := range steps {
		metrics.RecordClaimTransition(s.FromStatus, s.ToStatus)
		log.Printf("[claims] %s %s -> %s by %s", s.ClaimID, orNone(s.FromStatus), s.ToStatus, s.ActorID)
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

type effectFunc func(tx *gorm.DB, c *Claim, p *projects.Project, from string) ([]ClaimStep, error)

// transition is the shared skeleton of every status change.
func (r *ClaimRepository) transition(ctx context.Context, id uuid.UUID, actor Actor, action Action, note string, effect effectFunc) (Claim, error) {
	var (
		claim   Claim
		steps   []ClaimStep
		failure error
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, c, err := lockProjectThenClaim(tx, id)
		if err != nil {
			return err
		}
		if err := Authorize(c, actor, action); err != nil {
			return err
		}
		from := c.Status
		to, err := Next(from, action)
		if err != nil {
			return err
		}

		if effect != nil {
			extra, err := effect(tx, &c, &project, from)
			var keep *commitThenFail
			if errors.As(err, &keep) {
				failure = keep.err
				claim = c
				return nil
			}
			if err != nil {
				return err
			}
			steps = append(steps, extra...)
		}

		c.Status = to
		stamp(&c, to, r.Now())
		if err := tx.Save(&c).Error; err != nil {
			return fmt.Errorf("save claim: %w", err)
		}

		step, err := r.logStep(tx, c.ID, from, to, actor.ID, note)
		if err != nil {
			return err
		}
		steps = append(steps, step)
		claim = c
		return nil
	})
	if err != nil {
		return Claim{}, err
	}
	if failure != nil {
		return claim, failure
	}

	r.published(steps)
	return claim, nil
}

// Create opens a pending claim by traveler on an open project.
func (r *ClaimRepository) Create(ctx context.Context, projectID uuid.UUID, travelerID, note string) (Claim, error) {
	var (
		claim Claim
		step  ClaimStep
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := projects.Lock(tx, projectID)
		if err != nil {
			return err
		}
		if project.OwnerID == travelerID {
			return ErrOwnProject
		}
		if project.Status != projects.StatusOpen {
			return ErrProjectUnavailable
		}

		claim = Claim{
			ProjectID:  project.ID,
			TravelerID: travelerID,
			SenderID:   project.OwnerID,
			Status:     StatusPending,
			Amount:     project.Reward,
			Currency:   project.Currency,
			Note:       note,
		}
		if err := tx.Create(&claim).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateClaim
			}
			return fmt.Errorf("insert claim: %w", err)
		}

		step, err = r.logStep(tx, claim.ID, "", StatusPending, travelerID, note)
		return err
	})
	if err != nil {
		return Claim{}, err
	}

	r.published([]ClaimStep{step})
	return claim, nil
}

// Approve accepts the claim, reserves the project and cancels competing
// pending claims.
func (r *ClaimRepository) Approve(ctx context.Context, id uuid.UUID, actor Actor) (Claim, error) {
	return r.transition(ctx, id, actor, ActionApprove, "", func(tx *gorm.DB, c *Claim, project *projects.Project, _ string) ([]ClaimStep, error) {
		if project.Status != projects.StatusOpen {
			return nil, ErrProjectUnavailable
		}
		if err := projects.SetStatus(tx, c.ProjectID, projects.StatusReserved); err != nil {
			return nil, err
		}
		return r.cancelPending(tx, c.ProjectID, c.ID, actor.ID, "another claim was approved")
	})
}

// Pay moves the claim amount from the sender's balance into escrow and
// issues the delivery code. The plaintext code is only returned here.
func (r *ClaimRepository) Pay(ctx context.Context, id uuid.UUID, actor Actor) (Claim, string, error) {
	var (
		code string
		held wallet.Transaction
	)
	claim, err := r.transition(ctx, id, actor, ActionPay, "", func(tx *gorm.DB, c *Claim, _ *projects.Project, _ string) ([]ClaimStep, error) {
		var w wallet.Wallet
		if err := tx.First(&w, "user_id = ?", c.SenderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, wallet.ErrWalletNotFound
			}
			return nil, err
		}
		if w.Currency != c.Currency {
			return nil, ErrCurrencyMismatch
		}
		var err error
		if held, err = wallet.Hold(tx, c.SenderID, c.ID, c.Amount); err != nil {
			return nil, err
		}

		plain, hash, err := NewDeliveryCode()
		if err != nil {
			return nil, err
		}
		code = plain
		c.DeliveryCodeHash = hash
		c.CodeAttempts = 0
		return nil, nil
	})
	if err != nil {
		return Claim{}, "", err
	}
	wallet.RecordMovements(held)
	return claim, code, nil
}

// Start marks the parcel picked up.
func (r *ClaimRepository) Start(ctx context.Context, id uuid.UUID, actor Actor) (Claim, error) {
	return r.transition(ctx, id, actor, ActionStart, "", func(tx *gorm.DB, c *Claim, _ *projects.Project, _ string) ([]ClaimStep, error) {
		return nil, projects.SetStatus(tx, c.ProjectID, projects.StatusInTransit)
	})
}

// Deliver verifies the recipient's code and settles escrow to the traveler
// minus the platform fee. Wrong codes are counted even though they fail.
func (r *ClaimRepository) Deliver(ctx context.Context, id uuid.UUID, actor Actor, code string) (Claim, error) {
	var ledger []wallet.Transaction
	claim, err := r.transition(ctx, id, actor, ActionDeliver, "", func(tx *gorm.DB, c *Claim, _ *projects.Project, _ string) ([]ClaimStep, error) {
		if c.CodeAttempts >= r.MaxCodeAttempts {
			return nil, ErrCodeLocked
		}
		if !CheckDeliveryCode(c.DeliveryCodeHash, code) {
			c.CodeAttempts++
			if err := tx.Model(c).Update("code_attempts", c.CodeAttempts).Error; err != nil {
				return nil, err
			}
			return nil, &commitThenFail{err: ErrInvalidDeliveryCode}
		}

		fee := wallet.Fee(c.Amount, r.FeeBps)
		entries, err := wallet.Settle(tx, c.SenderID, c.TravelerID, c.ID, c.Amount, fee)
		if err != nil {
			return nil, err
		}
		ledger = entries
		c.Fee = fee
		return nil, projects.SetStatus(tx, c.ProjectID, projects.StatusDelivered)
	})
	if err == nil {
		wallet.RecordMovements(ledger...)
	}
	return claim, err
}

// Cancel ends the claim, refunding escrow and reopening the project as needed.
func (r *ClaimRepository) Cancel(ctx context.Context, id uuid.UUID, actor Actor, reason string) (Claim, error) {
	var refund wallet.Transaction
	claim, err := r.transition(ctx, id, actor, ActionCancel, reason, func(tx *gorm.DB, c *Claim, _ *projects.Project, from string) ([]ClaimStep, error) {
		if HoldsEscrow(from) {
			var err error
			if refund, err = wallet.Refund(tx, c.SenderID, c.ID, c.Amount); err != nil {
				return nil, err
			}
		}
		if ReservesProject(from) {
			if err := projects.SetStatus(tx, c.ProjectID, projects.StatusOpen); err != nil {
				return nil, err
			}
		}
		c.CanceledBy = actor.ID
		c.CancelReason = reason
		return nil, nil
	})
	if err == nil {
		wallet.RecordMovements(refund)
	}
	return claim, err
}

// RegenerateCode issues a fresh delivery code and resets the attempt counter.
func (r *ClaimRepository) RegenerateCode(ctx context.Context, id uuid.UUID, actor Actor) (string, error) {
	var code string
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, c, err := lockProjectThenClaim(tx, id)
		if err != nil {
			return err
		}
		if err := Authorize(c, actor, ActionCode); err != nil {
			return err
		}
		if !HoldsEscrow(c.Status) {
			return fmt.Errorf("%w: no delivery code for a %s claim", ErrInvalidTransition, c.Status)
		}

		plain, hash, err := NewDeliveryCode()
		if err != nil {
			return err
		}
		code = plain
		return tx.Model(&c).Updates(map[string]interface{}{
			"delivery_code_hash": hash,
			"code_attempts":      0,
		}).Error
	})
	if err != nil {
		return "", err
	}
	log.Printf("[claims] %s delivery code regenerated by %s", id, actor.ID)
	return code, nil
}

// cancelPending cancels pending claims of a project other than except.
func (r *ClaimRepository) cancelPending(tx *gorm.DB, projectID, except uuid.UUID, actorID, reason string) ([]ClaimStep, error) {
	var pending []Claim
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("project_id = ? AND status = ? AND id <> ?", projectID, StatusPending, except).
		Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("load pending claims: %w", err)
	}

	steps := make([]ClaimStep, 0, len(pending))
	now := r.Now()
	for i := range pending {
		c := &pending[i]
		c.Status = StatusCanceled
		c.CanceledAt = &now
		c.CanceledBy = actorID
		c.CancelReason = reason
		if err := tx.Save(c).Error; err != nil {
			return nil, fmt.Errorf("cancel claim %s: %w", c.ID, err)
		}
		step, err := r.logStep(tx, c.ID, StatusPending, StatusCanceled, actorID, reason)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// CancelPending cancels every pending claim of a project. It runs inside the
// caller's transaction; see projects.ClaimGuard.
func (r *ClaimRepository) CancelPending(tx *gorm.DB, projectID uuid.UUID, actorID, reason string) (int, func(), error) {
	steps, err := r.cancelPending(tx, projectID, uuid.Nil, actorID, reason)
	if err != nil {
		return 0, nil, err
	}
	return len(steps), func() { r.published(steps) }, nil
}

// HasCommittedClaim reports whether any claim on the project is past pending.
func (r *ClaimRepository) HasCommittedClaim(tx *gorm.DB, projectID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&Claim{}).
		Where("project_id = ? AND status IN ?", projectID,
			[]string{StatusApproved, StatusPaid, StatusInProgress, StatusDelivered}).
		Count(&count).Error
	return count > 0, err
}

// ExpirePending cancels pending claims created before cutoff. Rows locked by
// a concurrent transition are skipped and picked up on the next sweep.
func (r *ClaimRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	var steps []ClaimStep
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []Claim
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND created_at < ?", StatusPending, cutoff).
			Limit(500).
			Find(&stale).Error; err != nil {
			return err
		}

		now := r.Now()
		for i := range stale {
			c := &stale[i]
			c.Status = StatusCanceled
			c.CanceledAt = &now
			c.CanceledBy = SystemActor.ID
			c.CancelReason = "expired"
			if err := tx.Save(c).Error; err != nil {
				return err
			}
			step, err := r.logStep(tx, c.ID, StatusPending, StatusCanceled, SystemActor.ID, "expired")
			if err != nil {
				return err
			}
			steps = append(steps, step)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.published(steps)
	return len(steps), nil
}

// Get loads a claim the actor is allowed to see.
func (r *ClaimRepository) Get(ctx context.Context, id uuid.UUID, actor Actor) (Claim, error) {
	var c Claim
	err := r.DB.WithContext(ctx).Preload("Project").First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c, ErrClaimNotFound
	}
	if err != nil {
		return c, err
	}
	if !CanView(c, actor) {
		return Claim{}, ErrForbidden
	}
	return c, nil
}

// Steps returns the claim history, oldest first.
func (r *ClaimRepository) Steps(ctx context.Context, id uuid.UUID, actor Actor) ([]ClaimStep, error) {
	if _, err := r.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	var steps []ClaimStep
	err := r.DB.WithContext(ctx).Where("claim_id = ?", id).Order("created_at ASC").Find(&steps).Error
	return steps, err
}

type ListFilter struct {
	Role      string // "traveler", "sender" or empty for both
	Status    string
	ProjectID *uuid.UUID
}

// List returns claims in which userID takes part.
func (r *ClaimRepository) List(ctx context.Context, userID string, f ListFilter) ([]Claim, error) {
	query := r.DB.WithContext(ctx).Model(&Claim{}).Preload("Project")

	switch f.Role {
	case "traveler":
		query = query.Where("traveler_id = ?", userID)
	case "sender":
		query = query.Where("sender_id = ?", userID)
	default:
		query = query.Where("traveler_id = ? OR sender_id = ?", userID, userID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.ProjectID != nil {
		query = query.Where("project_id = ?", *f.ProjectID)
	}

	var out []Claim
	err := query.Order("created_at DESC").Limit(200).Find(&out).Error
	return out, err
}
