package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/uniplay/docs"
	"github.com/Dosada05/uniplay/handlers"
	"github.com/Dosada05/uniplay/middleware"
)

type Config struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *slog.Logger
	Metrics        http.Handler
}

type Handlers struct {
	LiveMatch *handlers.LiveMatchHandler
	Schedule  *handlers.ScheduleHandler
	AutoPlay  *handlers.AutoPlayHandler
	WebSocket *handlers.WebSocketHandler
	Health    *handlers.HealthHandler
}

func SetupRoutes(router chi.Router, cfg Config, auth *middleware.Authenticator, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(cfg.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", h.Health.Healthz)
	if cfg.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	router.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	router.Get("/ws/matches/{matchID}", h.WebSocket.ServeWs)

	scorer := func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(middleware.RoleAdmin, middleware.RoleScorer))
		r.Use(middleware.AuditLog(cfg.Logger))
	}
	limited := middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/live-matches", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				scorer(r)
				r.Post("/", h.LiveMatch.Initialize)
			})

			r.Route("/{matchID}", func(r chi.Router) {
				r.Get("/", h.LiveMatch.Get)
				r.Get("/summary", h.LiveMatch.Summary)
				r.Get("/commentary", h.LiveMatch.Commentary)

				r.Group(func(r chi.Router) {
					scorer(r)
					r.Use(limited)
					r.Post("/deliveries", h.LiveMatch.RecordDelivery)
					r.Post("/complete-innings", h.LiveMatch.CompleteInnings)
					r.Put("/players", h.LiveMatch.SetPlayers)
					r.Post("/prediction", h.LiveMatch.Predict)
				})
			})
		})

		r.Route("/autoplay/{matchID}", func(r chi.Router) {
			r.Get("/status", h.AutoPlay.Status)

			r.Group(func(r chi.Router) {
				scorer(r)
				r.Post("/upload", h.AutoPlay.Upload)
				r.Post("/start", h.AutoPlay.Start)
				r.Post("/pause", h.AutoPlay.Pause)
				r.Put("/speed", h.AutoPlay.ChangeSpeed)
				r.Post("/stop", h.AutoPlay.Stop)
			})
		})

		r.Route("/events/{eventID}", func(r chi.Router) {
			r.Get("/", h.Schedule.GetEvent)
			r.Get("/leaderboard", h.Schedule.Leaderboard)
			r.Get("/fixtures", h.Schedule.ListFixtures)
			r.Get("/fixtures/live", h.Schedule.LiveFixtures)

			r.Group(func(r chi.Router) {
				scorer(r)
				r.Post("/schedule", h.Schedule.GenerateSchedule)
			})
		})

		r.Group(func(r chi.Router) {
			scorer(r)
			r.Patch("/fixtures/{fixtureID}", h.Schedule.UpdateFixtureResult)
		})
	})
}
