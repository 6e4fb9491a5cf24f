package webhooks

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(secret string) http.Handler {
	r := chi.NewRouter()
	h := Handler{Secret: secret}

	// Public routes, authenticated by signature
	r.Post("/topup", h.Topup)

	return r
}
