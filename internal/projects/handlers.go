package projects

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/carrypal/carrypal-backend/internal/db"
	"github.com/carrypal/carrypal-backend/internal/geo"
	"github.com/carrypal/carrypal-backend/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ClaimGuard lets the project module consult and cancel claims without
// importing the claims package.
type ClaimGuard interface {
	// HasCommittedClaim reports whether a claim is past pending.
	HasCommittedClaim(tx *gorm.DB, projectID uuid.UUID) (bool, error)
	// CancelPending cancels every pending claim of the project. The returned
	// func publishes the cancellations and must run only after tx commits.
	CancelPending(tx *gorm.DB, projectID uuid.UUID, actorID, reason string) (int, func(), error)
}

type Handlers struct {
	Claims ClaimGuard
	Now    func() time.Time
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrProjectNotFound), errors.Is(err, geo.ErrCityNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidProject):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotOpen), errors.Is(err, ErrProjectBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func parseID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// ListProjects returns projects with optional filtering
func (h Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	query := db.DB.Model(&Project{}).Preload("Origin").Preload("Destination")

	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status = ?", StatusOpen)
	}
	if origin := q.Get("origin"); origin != "" {
		query = query.Where("origin_city_id = ?", origin)
	}
	if dest := q.Get("destination"); dest != "" {
		query = query.Where("destination_city_id = ?", dest)
	}
	if owner := q.Get("owner"); owner != "" {
		query = query.Where("owner_id = ?", owner)
	}
	if tag := q.Get("tag"); tag != "" {
		query = query.Where("? = ANY(tags)", tag)
	}

	var projects []Project
	if err := query.Order("created_at DESC").Limit(200).Find(&projects).Error; err != nil {
		http.Error(w, "Failed to fetch projects: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(projects)
}

// GetProject returns a single project
func (h Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid project id", http.StatusBadRequest)
		return
	}

	var project Project
	if err := db.DB.Preload("Origin").Preload("Destination").First(&project, "id = ?", id).Error; err != nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(project)
}

// CreateProject publishes a new shipment owned by the caller
func (h Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var in ProjectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := in.Validate(h.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	project := Project{
		OwnerID:           userID,
		Title:             in.Title,
		Description:       in.Description,
		OriginCityID:      in.OriginCityID,
		DestinationCityID: in.DestinationCityID,
		WeightGrams:       in.WeightGrams,
		Reward:            in.Reward,
		Currency:          in.Currency,
		Tags:              pq.StringArray(in.Tags),
		Deadline:          in.Deadline,
		Status:            StatusOpen,
	}
	if project.Tags == nil {
		project.Tags = pq.StringArray{}
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		for _, city := range []uuid.UUID{in.OriginCityID, in.DestinationCityID} {
			if err := geo.CityExists(tx, city.String()); err != nil {
				return err
			}
		}
		return tx.Create(&project).Error
	})
	if err != nil {
		http.Error(w, "Failed to create project: "+err.Error(), httpStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(project)
}

// UpdateProject edits an open project (owner only)
func (h Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid project id", http.StatusBadRequest)
		return
	}

	var updates struct {
		Title       *string    `json:"title,omitempty"`
		Description *string    `json:"description,omitempty"`
		WeightGrams *int       `json:"weight_grams,omitempty"`
		Reward      *int64     `json:"reward,omitempty"`
		Tags        []string   `json:"tags,omitempty"`
		Deadline    *time.Time `json:"deadline,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var project Project
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = Lock(tx, id)
		if err != nil {
			return err
		}
		if project.OwnerID != userID {
			return ErrNotOwner
		}
		if project.Status != StatusOpen {
			return ErrNotOpen
		}

		// Reuse input validation on the merged result.
		in := ProjectInput{
			Title:             project.Title,
			Description:       project.Description,
			OriginCityID:      project.OriginCityID,
			DestinationCityID: project.DestinationCityID,
			WeightGrams:       project.WeightGrams,
			Reward:            project.Reward,
			Currency:          project.Currency,
			Deadline:          updates.Deadline,
		}
		if updates.Title != nil {
			in.Title = *updates.Title
		}
		if updates.Description != nil {
			in.Description = *updates.Description
		}
		if updates.WeightGrams != nil {
			in.WeightGrams = *updates.WeightGrams
		}
		if updates.Reward != nil {
			in.Reward = *updates.Reward
		}
		if err := in.Validate(h.Now()); err != nil {
			return err
		}

		updateMap := map[string]interface{}{
			"title":        in.Title,
			"description":  in.Description,
			"weight_grams": in.WeightGrams,
			"reward":       in.Reward,
		}
		if updates.Deadline != nil {
			updateMap["deadline"] = *updates.Deadline
		}
		if updates.Tags != nil {
			updateMap["tags"] = pq.StringArray(updates.Tags)
		}
		if err := tx.Model(&project).Updates(updateMap).Error; err != nil {
			return err
		}
		return tx.First(&project, "id = ?", id).Error
	})
	if err != nil {
		http.Error(w, "Failed to update project: "+err.Error(), httpStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(project)
}

// CancelProject withdraws an unclaimed project and cancels its pending claims (owner only)
func (h Handlers) CancelProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid project id", http.StatusBadRequest)
		return
	}

	canceled := 0
	published := func() {}
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		project, err := Lock(tx, id)
		if err != nil {
			return err
		}
		if project.OwnerID != userID {
			return ErrNotOwner
		}
		if project.Status != StatusOpen {
			return ErrNotOpen
		}

		busy, err := h.Claims.HasCommittedClaim(tx, id)
		if err != nil {
			return err
		}
		if busy {
			return ErrProjectBusy
		}

		canceled, published, err = h.Claims.CancelPending(tx, id, userID, "project canceled")
		if err != nil {
			return err
		}
		return SetStatus(tx, id, StatusCanceled)
	})
	if err != nil {
		http.Error(w, "Failed to cancel project: "+err.Error(), httpStatus(err))
		return
	}

	published()
	log.Printf("[projects] %s canceled by owner, %d pending claims canceled", id, canceled)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":          StatusCanceled,
		"claims_canceled": canceled,
	})
}
