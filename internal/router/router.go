package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"go-lms/internal/config"
	"go-lms/internal/handler"
	"go-lms/internal/middleware"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Courses  *handler.CourseHandler
	Progress *handler.ProgressHandler
	Me       *handler.MeHandler
	Admin    *handler.AdminHandler
	Health   *handler.HealthHandler
	Docs     *handler.DocsHandler
	Events   *handler.EventsHandler
}

const (
	eventStreamMaxDuration = time.Hour
	eventStreamIdleTimeout = time.Minute
)

type requestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	observer requestObserver,
	metricsHandler http.Handler,
	h Handlers,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, 0)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics(observer))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", metricsHandler)
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/swagger", h.Docs.SwaggerUI)

	r.Route("/api/v1", func(api chi.Router) {
		api.With(middleware.Timeout(cfg.RequestTimeout)).Post("/auth/recovery", h.Auth.Recovery)

		api.With(authMiddleware.RequireAuth, middleware.StreamingTimeout(eventStreamMaxDuration, eventStreamIdleTimeout)).
			Get("/me/events", h.Events.Stream)

		api.Group(func(user chi.Router) {
			user.Use(middleware.Timeout(cfg.RequestTimeout))
			user.Use(authMiddleware.RequireAuth)

			user.Get("/courses", h.Courses.List)
			user.Get("/courses/{id}", h.Courses.Get)
			user.Post("/lessons/{id}/complete", h.Progress.CompleteLesson)

			user.Get("/me", h.Me.Profile)
			user.Put("/me", h.Me.UpdateProfile)
			user.Get("/me/claims", h.Me.Claims)
			user.Get("/me/permissions", h.Me.Permissions)
			user.Get("/me/gamification", h.Me.Gamification)

			user.Route("/admin", func(admin chi.Router) {
				admin.Use(authMiddleware.RequireAdmin)

				admin.Post("/courses", h.Admin.CreateCourse)
				admin.Put("/courses/{id}", h.Admin.UpdateCourse)
				admin.Delete("/courses/{id}", h.Admin.DeleteCourse)
				admin.Post("/courses/{id}/modules", h.Admin.CreateModule)
				admin.Post("/modules/{id}/lessons", h.Admin.CreateLesson)
				admin.Post("/courses/{id}/thumbnail", h.Admin.UploadThumbnail)
			})
		})
	})

	return r
}
