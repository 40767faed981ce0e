package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/backoffice/internal/handler"
	"github.com/backoffice/internal/metrics"
	"github.com/backoffice/internal/middleware"
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	r.Get("/api/health", handler.Health(app.users, app.mailer))
	r.Handle("/metrics", metrics.Handler())

	events := handler.NewEventHandler(app.dispatcher, app.logger)

	// Public intake, called by the marketing site after it stores a record
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(middleware.PerMinute(app.config.RateLimitPerMinute), app.config.RateLimitPerMinute))

		r.Post("/api/job-applications", events.JobApplication)
		r.Post("/api/leads", events.Lead)
		r.Post("/api/reviews", events.Review)
	})

	// Admin API, disabled without a token
	if app.config.AdminAPIToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(app.config.AdminAPIToken))

			r.Post("/api/admin/alerts", events.SystemAlert)
		})
	}
	return r
}
