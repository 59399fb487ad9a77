package api

import (
	"net/http"
	"time"

	"cpdash/internal/api/handler"
	"cpdash/internal/api/middleware"
	"cpdash/internal/common/security"
	"cpdash/internal/platform/metrics"
	"cpdash/internal/platform/tracing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type Services struct {
	Auth        handler.AuthService
	Profiles    handler.ProfileService
	Sync        handler.SyncService
	Dashboard   handler.DashboardService
	Coach       handler.CoachService
	Mentor      handler.MentorService
	Problems    handler.ProblemService
	Submissions handler.SubmissionService
}

type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(svc Services, opts Options, log *zap.Logger) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.AccessLog(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(tracing.Middleware)
	r.Use(metrics.Middleware)

	// Verifier only parses the token; Authenticator enforces it per route group.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	authHandler := handler.NewAuthHandler(svc.Auth)
	profileHandler := handler.NewProfileHandler(svc.Profiles)
	syncHandler := handler.NewSyncHandler(svc.Sync)
	dashboardHandler := handler.NewDashboardHandler(svc.Dashboard)
	coachHandler := handler.NewCoachHandler(svc.Coach, svc.Mentor)
	problemHandler := handler.NewProblemHandler(svc.Problems)
	submissionHandler := handler.NewSubmissionHandler(svc.Submissions)

	r.Route("/api/v1", func(v1 chi.Router) {
		// Public
		v1.Group(func(public chi.Router) {
			public.Use(chiMiddleware.Timeout(opts.RequestTimeout))
			authHandler.RegisterRoutes(public)
			public.Route("/problems", problemHandler.RegisterRoutes)
			public.Get("/leaderboard", dashboardHandler.Leaderboard)
		})

		v1.Group(func(private chi.Router) {
			private.Use(middleware.Authenticator)

			private.Group(func(timed chi.Router) {
				timed.Use(chiMiddleware.Timeout(opts.RequestTimeout))
				timed.Route("/profiles", profileHandler.RegisterRoutes)
				timed.Route("/sync", syncHandler.RegisterRoutes)
				timed.Route("/dashboard", dashboardHandler.RegisterRoutes)
				timed.Route("/submissions", submissionHandler.RegisterRoutes)
			})
			// Chat streams can outlive the request timeout.
			private.Route("/coach", coachHandler.RegisterRoutes)
		})
	})

	return r
}
