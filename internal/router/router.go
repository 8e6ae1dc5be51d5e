package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-minimal-auth/internal/config"
	"go-minimal-auth/internal/handler"
	"go-minimal-auth/internal/middleware"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Health *handler.HealthHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		cfg.RateLimitRPM,
		cfg.AuthRateLimitRPM,
		cfg.APIPrefix+"/signup",
		cfg.APIPrefix+"/login",
	)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/", h.Health.Banner)
	r.Get("/health", h.Health.Health)

	api := func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Post("/signup", h.Auth.Signup)
		api.Post("/login", h.Auth.Login)
		api.With(authMiddleware.RequireAuth).Get("/users", h.User.List)
	}

	if cfg.APIPrefix == "" {
		r.Group(api)
	} else {
		r.Route(cfg.APIPrefix, api)
	}

	return r
}
