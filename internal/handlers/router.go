package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-rental/internal/middleware"
	"github.com/ukydev/vehicle-rental/internal/models"
)

// RouterConfig holds everything the HTTP surface is built from. Optional
// pieces (ResponseCache, NewRelic, Ping) may be nil.
type RouterConfig struct {
	Bookings  BookingService
	Vehicles  VehicleService
	Locations LocationService

	Auth          *middleware.AuthMiddleware
	RateLimiter   *middleware.RateLimitMiddleware
	QuoteLimit    int
	QuoteWindow   time.Duration
	ResponseCache middleware.ResponseCache
	CORSOrigins   []string
	NewRelic      *newrelic.Application

	// Ping reports whether the backing store is reachable.
	Ping   func(ctx context.Context) error
	Logger log.FieldLogger
}

// NewRouter builds the API router. Every resource lives under /api.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimitMiddleware()
	}

	bookings := NewBookingHandler(cfg.Bookings, logger)
	vehicles := NewVehicleHandler(cfg.Vehicles, logger)
	locations := NewLocationHandler(cfg.Locations, logger)
	authHandler := NewAuthHandler(logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewRelic(cfg.NewRelic))
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))

	r.Get("/health", health(cfg.Ping))

	r.Route("/api", func(r chi.Router) {
		// public
		r.With(limiter.RateLimit(cfg.QuoteLimit, cfg.QuoteWindow)).Post("/bookings/calculate", bookings.Calculate)
		r.Get("/vehicles", vehicles.List)
		r.Get("/vehicles/types", vehicles.Types)
		r.Get("/vehicles/availability", vehicles.Available)
		r.Get("/vehicles/{id}", vehicles.Get)
		r.Get("/vehicles/{id}/pricing", vehicles.Pricing)
		r.Get("/vehicles/{id}/reviews", vehicles.Reviews)
		r.Get("/locations", locations.List)
		r.Get("/locations/{id}", locations.Get)
		r.Get("/locations/{id}/availability", locations.Availability)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.Authenticate)

			r.Get("/auth/me", authHandler.Me)
			r.With(middleware.Idempotency(cfg.ResponseCache)).Post("/bookings", bookings.Create)
			r.Get("/bookings/{id}", bookings.Get)
			r.Get("/bookings/{id}/receipt", bookings.Receipt)
			r.Put("/bookings/{id}", bookings.Update)
			r.Delete("/bookings/{id}", bookings.Cancel)
			r.Get("/users/{id}/bookings", bookings.ListUserBookings)
			r.Post("/vehicles/{id}/reviews", vehicles.AddReview)

			r.Group(func(r chi.Router) {
				r.Use(cfg.Auth.RequireRole(models.RoleAdmin))

				r.Put("/bookings/{id}/status", bookings.UpdateStatus)
				r.Post("/vehicles", vehicles.Create)
				r.Put("/vehicles/{id}", vehicles.Update)
				r.Delete("/vehicles/{id}", vehicles.Delete)
				r.Post("/locations", locations.Create)
				r.Put("/locations/{id}", locations.Update)
				r.Delete("/locations/{id}", locations.Delete)
			})
		})
	})
	return r
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
