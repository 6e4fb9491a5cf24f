package geo

import (
	"net/http"

	"github.com/carrypal/carrypal-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(sessions middleware.SessionFetcher, roles middleware.RoleFetcher) http.Handler {
	r := chi.NewRouter()

	// Public reference data
	r.Get("/countries", ListCountries)
	r.Get("/countries/{code}/provinces", ListProvinces)
	r.Get("/provinces/{id}/cities", ListCities)
	r.Get("/cities/search", SearchCities)
	r.Get("/cities/{id}", GetCity)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessions))
		r.Use(middleware.AdminMiddleware(roles))

		r.Post("/import", ImportCountry)
	})

	return r
}
