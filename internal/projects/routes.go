package projects

import (
	"net/http"
	"time"

	"github.com/carrypal/carrypal-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(sessions middleware.SessionFetcher, claims ClaimGuard) http.Handler {
	r := chi.NewRouter()
	h := Handlers{Claims: claims, Now: time.Now}

	// Public browsing
	r.Get("/", h.ListProjects)
	r.Get("/{id}", h.GetProject)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessions))

		r.Post("/", h.CreateProject)
		r.Put("/{id}", h.UpdateProject)
		r.Post("/{id}/cancel", h.CancelProject)
	})

	return r
}
