package api

import (
	"net/http"
	"time"

	"trackmeet/internal/api/handler"
	"trackmeet/internal/api/middleware"
	"trackmeet/internal/app/service"
	"trackmeet/internal/common/security"
	"trackmeet/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Services struct {
	Auth          *service.AuthService
	Athletes      *service.AthleteService
	Events        *service.EventService
	Participation *service.ParticipationService
}

type RouterOptions struct {
	Tokens         *security.TokenIssuer
	Logger         zerolog.Logger
	CORSOrigins    []string
	LoginPerMinute int
}

func NewRouter(svc Services, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogging(opts.Logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(metrics.HTTPMiddleware)
	r.Use(middleware.CORS(opts.CORSOrigins, opts.Logger))

	// Puts the verified token (or the verification error) in context for middleware.Authenticator.
	r.Use(middleware.Verifier(opts.Tokens.JWTAuth()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	loginGuard := middleware.LoginRateLimit(opts.LoginPerMinute)

	r.Route("/api", func(api chi.Router) {
		athleteHandler := handler.NewAthleteHandler(svc.Auth, svc.Athletes, loginGuard)
		api.Route("/athletes", athleteHandler.RegisterRoutes)

		eventHandler := handler.NewEventHandler(svc.Events, svc.Participation)
		api.Route("/events", eventHandler.RegisterRoutes)

		adminHandler := handler.NewAdminHandler(svc.Auth, loginGuard)
		api.Route("/admin", adminHandler.RegisterRoutes)
	})

	return r
}
