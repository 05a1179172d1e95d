package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/auth-service/internal/metrics"
	"github.com/pribylovaa/auth-service/internal/service"
	"github.com/pribylovaa/auth-service/internal/transport/http/handlers"
	"github.com/pribylovaa/auth-service/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics // может быть nil
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования!
		middleware.Logging(opts.Logger),
		middleware.Metrics(opts.Metrics),
		middleware.Timeout(opts.Timeout),
	)

	h := handlers.New(svc)
	requireAccess := middleware.RequireAccess(svc.Tokens())

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, requireAccess)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, requireAccess)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, requireAccess middleware.Middleware) {
	r.Post("/users", h.RegisterUser)
	r.With(requireAccess).Get("/users/{username}", h.GetProfile)

	r.Post("/auth/login", h.LoginUser)
	r.Post("/auth/logout", h.Logout)
	r.Post("/auth/refresh", h.RefreshToken)
}
