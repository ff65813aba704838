package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-user-api/internal/config"
	"go-user-api/internal/handler"
	"go-user-api/internal/middleware"
)

type Handlers struct {
	User   *handler.UserHandler
	Auth   *handler.AuthHandler
	System *handler.SystemHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/", h.System.Greeting)
	r.Get("/health", h.System.Health)

	r.Route("/users", func(users chi.Router) {
		users.Post("/", h.User.Create)
		users.Post("/login", h.Auth.Login)

		users.Group(func(protected chi.Router) {
			protected.Use(authMiddleware.RequireAuth)

			protected.Get("/", h.User.List)
			protected.Get("/me", h.User.Me)
			protected.Get("/{id}", h.User.Get)
			protected.Patch("/{id}", h.User.Update)
			protected.Delete("/{id}", h.User.Delete)
		})
	})

	return r
}
