package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"motionlab/internal/http/handlers"
	"motionlab/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger, ratePerMin int) stdhttp.Handler {
	if ratePerMin <= 0 {
		ratePerMin = 60
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.RateLimit(ratePerMin, time.Minute))

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/orders", func(r chi.Router) {
		r.Post("/{id}/process", app.ProcessOrder)
		r.Get("/{id}", app.GetOrder)
	})

	r.Get("/v1/owners/{ownerID}/balance", app.GetBalance)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
