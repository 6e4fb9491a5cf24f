package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carrypal/carrypal-backend/internal/auth"
	"github.com/carrypal/carrypal-backend/internal/claims"
	"github.com/carrypal/carrypal-backend/internal/config"
	"github.com/carrypal/carrypal-backend/internal/db"
	"github.com/carrypal/carrypal-backend/internal/geo"
	"github.com/carrypal/carrypal-backend/internal/metrics"
	"github.com/carrypal/carrypal-backend/internal/middleware"
	"github.com/carrypal/carrypal-backend/internal/projects"
	"github.com/carrypal/carrypal-backend/internal/wallet"
	"github.com/carrypal/carrypal-backend/internal/webhooks"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ok")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	db.Connect(cfg.DatabaseURL)

	auth.SessionLifetime = cfg.SessionLifetime
	auth.SecureCookies = cfg.SecureCookies

	// Order matters: projects reference geo cities, claims reference projects.
	geo.Init()
	wallet.Init()
	auth.Init()
	projects.Init()
	claims.Init()
	webhooks.Init()

	sessions := auth.SessionInfo{}
	repo := claims.NewClaimRepository(db.DB, cfg.PlatformFeeBps, cfg.MaxCodeAttempts)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, sessions)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	r.Use(metrics.Middleware)
	r.Use(limiter.Handler)

	r.Get("/", RootHandler)
	r.Get("/healthz", HealthHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/auth", auth.SetupRoutes())
	r.Mount("/geo", geo.SetupRoutes(sessions, sessions))
	r.Mount("/wallet", wallet.SetupRoutes(sessions, sessions))
	r.Mount("/projects", projects.SetupRoutes(sessions, repo))
	r.Mount("/claims", claims.SetupRoutes(sessions, repo))
	r.Mount("/webhooks", webhooks.SetupRoutes(cfg.TopupWebhookSecret))

	jobs := cron.New()
	sweeper := claims.Sweeper{Repo: repo, TTL: cfg.PendingTTL}
	if _, err := sweeper.Register(jobs, cfg.SweepSchedule); err != nil {
		log.Fatal("Failed to schedule claim sweeper: ", err)
	}
	if _, err := jobs.AddFunc("@every 10m", func() {
		if n := limiter.Cleanup(30 * time.Minute); n > 0 {
			log.Printf("[ratelimit] dropped %d idle clients", n)
		}
	}); err != nil {
		log.Fatal("Failed to schedule rate limiter cleanup: ", err)
	}
	jobs.Start()

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on port :%s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: ", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	<-jobs.Stop().Done()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
