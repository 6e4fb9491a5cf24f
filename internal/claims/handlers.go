package claims

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/carrypal/carrypal-backend/internal/db"
	"github.com/carrypal/carrypal-backend/internal/middleware"
	"github.com/carrypal/carrypal-backend/internal/projects"
	"github.com/carrypal/carrypal-backend/internal/utils"
	"github.com/carrypal/carrypal-backend/internal/wallet"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handlers struct {
	Repo *ClaimRepository
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrClaimNotFound), errors.Is(err, projects.ErrProjectNotFound),
		errors.Is(err, wallet.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrOwnProject):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrDuplicateClaim),
		errors.Is(err, ErrProjectUnavailable), errors.Is(err, ErrCurrencyMismatch),
		errors.Is(err, wallet.ErrCurrencyMismatch), db.IsLockConflict(err):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidDeliveryCode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrCodeLocked):
		return http.StatusLocked
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, wallet.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// actorFrom builds the actor from the session and role middleware values.
func actorFrom(r *http.Request) (Actor, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok || userID == "" {
		return Actor{}, false
	}
	return Actor{
		ID:    userID,
		Admin: utils.GetRoleFromContext(r.Context()) == middleware.RoleAdmin,
	}, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// prelude resolves the actor and the {id} URL parameter, writing the error
// response itself when either is missing.
func prelude(w http.ResponseWriter, r *http.Request) (Actor, uuid.UUID, bool) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid claim id", http.StatusBadRequest)
		return Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

// decodeOptional reads a JSON body when one was sent.
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// CreateClaim lets a traveler claim an open project
func (h Handlers) CreateClaim(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ProjectID uuid.UUID `json:"project_id"`
		Note      string    `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProjectID == uuid.Nil {
		http.Error(w, "project_id is required", http.StatusBadRequest)
		return
	}

	claim, err := h.Repo.Create(r.Context(), req.ProjectID, actor.ID, strings.TrimSpace(req.Note))
	if err != nil {
		http.Error(w, "Failed to create claim: "+err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

// ListClaims returns the caller's claims, filtered by role, status and project
func (h Handlers) ListClaims(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	filter := ListFilter{Role: q.Get("role"), Status: q.Get("status")}
	switch filter.Role {
	case "", "traveler", "sender":
	default:
		http.Error(w, "role must be traveler or sender", http.StatusBadRequest)
		return
	}
	if pid := q.Get("project_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			http.Error(w, "Invalid project_id", http.StatusBadRequest)
			return
		}
		filter.ProjectID = &id
	}

	claims, err := h.Repo.List(r.Context(), actor.ID, filter)
	if err != nil {
		http.Error(w, "Failed to fetch claims: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// GetClaim returns one claim visible to the caller
func (h Handlers) GetClaim(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := prelude(w, r)
	if !ok {
		return
	}
	claim, err := h.Repo.Get(r.Context(), id, actor)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// ListSteps returns the status history of a claim
func (h Handlers) ListSteps(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := prelude(w, r)
	if !ok {
		return
	}
	steps, err := h.Repo.Steps(r.Context(), id, actor)
	if err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

func (h Handlers) Approve(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := prelude(w, r)
	if !ok {
		return
	}
	claim, err := h.Repo.Approve(r.Context(), id, actor)
	if err != nil {
		http.Error(w, "Failed to approve claim: "+err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// Pay escrows the reward. The response carries the delivery code; it is not
// retrievable later.
func (h Handlers) Pay(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := prelude(w, r)
	if !ok {
		return
	}
	claim, code, err := h.Repo.Pay(r.Context(), id, actor)
	if err != nil {
		http.Error(w, "Failed to pay claim: "+err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claim":         claim,
		"delivery_code": code,
	})
}

func (h Handlers) Start(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := prelude(w, r)
	if !ok {
		return
	}
	claim, err := h.Repo.Start(r.Context(), id, actor)
	if err != nil {
		http.Error(w, "Failed to start claim: "+err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (h Handlers) Deliver(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := prelude(w, r)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	claim, err := h.Repo.Deliver(r.Context(), id, actor, req.Code)
	if err != nil {
		http.Error(w, "Failed to deliver claim: "+err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (h Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := prelude(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	claim, err := h.Repo.Cancel(r.Context(), id, actor, strings.TrimSpace(req.Reason))
	if err != nil {
		http.Error(w, "Failed to cancel claim: "+err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// RegenerateCode replaces a lost delivery code
func (h Handlers) RegenerateCode(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := prelude(w, r)
	if !ok {
		return
	}
	code, err := h.Repo.RegenerateCode(r.Context(), id, actor)
	if err != nil {
		http.Error(w, "Failed to regenerate code: "+err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"delivery_code": code})
}
