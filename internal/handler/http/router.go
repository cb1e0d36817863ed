package http

import (
	"log/slog"
	"os"

	"github.com/fleetworks/workshop-backend-go/internal/config"
	"github.com/fleetworks/workshop-backend-go/internal/handler/http/middleware"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"golang.org/x/time/rate"
)

func NewRouter(
	cfg *config.Config,
	jwtService jwt.Service,
	shiftHandler ShiftHandler,
	timerHandler TimerHandler,
	jobCardHandler JobCardHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "workshop-backend"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.App.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))
	r.Use(middleware.RateLimit(rate.Limit(cfg.App.RateLimitPerSec), cfg.App.RateLimitBurst))

	r.Route("/api/v1", func(r chi.Router) {

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(jwtService.JWTAuth()))

			r.Route("/shifts", func(r chi.Router) {
				r.Post("/clock-in", shiftHandler.ClockIn)
				r.Post("/clock-out", shiftHandler.ClockOut)
				r.Post("/break/start", shiftHandler.StartBreak)
				r.Post("/break/end", shiftHandler.EndBreak)
				r.Get("/current", shiftHandler.GetCurrent)
				r.Get("/", shiftHandler.ListMyShifts)

				// Supervisor or admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePrivileged)
					r.Put("/{shiftID}/adjust", shiftHandler.Adjust)
				})
			})

			r.Route("/timers", func(r chi.Router) {
				r.Post("/start", timerHandler.Start)
				r.Get("/active", timerHandler.GetActive)
				r.Post("/{segmentID}/pause", timerHandler.Pause)
				r.Post("/{segmentID}/resume", timerHandler.Resume)
				r.Post("/{segmentID}/stop", timerHandler.Stop)
			})

			r.Route("/job-cards", func(r chi.Router) {
				r.Get("/{jobCardID}", jobCardHandler.Get)
			})

			r.Route("/assignments", func(r chi.Router) {
				r.Get("/{assignmentID}/segments", timerHandler.ListByAssignment)

				// Supervisor or admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePrivileged)
					r.Post("/{assignmentID}/reassign", jobCardHandler.Reassign)
					r.Post("/{assignmentID}/cancel", jobCardHandler.Cancel)
				})
			})
		})
	})

	return r
}
