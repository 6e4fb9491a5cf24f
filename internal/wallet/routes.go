package wallet

import (
	"net/http"

	"github.com/carrypal/carrypal-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(sessions middleware.SessionFetcher, roles middleware.RoleFetcher) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessions))

		r.Get("/", GetWallet)
		r.Get("/transactions", ListTransactions)
		r.Post("/withdraw", WithdrawFunds)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminMiddleware(roles))
			r.Post("/deposit", DepositFunds)
		})
	})

	return r
}
