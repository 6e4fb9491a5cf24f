package claims

import (
	"net/http"

	"github.com/carrypal/carrypal-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// SessionRoleFetcher is satisfied by the auth module's session lookup.
type SessionRoleFetcher interface {
	middleware.SessionFetcher
	middleware.RoleFetcher
}

func SetupRoutes(fetcher SessionRoleFetcher, repo *ClaimRepository) http.Handler {
	r := chi.NewRouter()
	h := Handlers{Repo: repo}

	// All claim routes require a session; the role decides admin overrides
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(fetcher))
		r.Use(middleware.RoleMiddleware(fetcher))

		r.Post("/", h.CreateClaim)
		r.Get("/", h.ListClaims)
		r.Get("/{id}", h.GetClaim)
		r.Get("/{id}/steps", h.ListSteps)

		// Lifecycle
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/pay", h.Pay)
		r.Post("/{id}/start", h.Start)
		r.Post("/{id}/deliver", h.Deliver)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/code", h.RegenerateCode)
	})

	return r
}
