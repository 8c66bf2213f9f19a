package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskly-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskly-api/internal/api/middleware"
	"github.com/phrazzld/taskly-api/internal/api/shared"
	"github.com/phrazzld/taskly-api/internal/service"
)

// routerDeps are the services the HTTP layer is built on.
type routerDeps struct {
	accounts service.AccountService
	tasks    service.TaskService
	tags     service.TagService
	urls     api.URLResolver
}

// newRouter registers every route under /api/v1 plus the health check.
// Reads and restore are open to guests; all other writes require a
// registered user.
func newRouter(deps routerDeps, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(logger))

	authHandler := api.NewAuthHandler(deps.accounts, logger)
	taskHandler := api.NewTaskHandler(deps.tasks, deps.urls, logger)
	tagHandler := api.NewTagHandler(deps.tags, logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(deps.accounts)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/guest", authHandler.Guest)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/logout", authHandler.Logout)
			r.Get("/user", authHandler.CurrentUser)

			r.Get("/tasks", taskHandler.List)
			r.Patch("/tasks/restore/{id}", taskHandler.Restore)

			r.Get("/tags", tagHandler.List)
			r.Get("/tags/search", tagHandler.Search)

			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.RequireRegistered)

				r.Post("/tasks", taskHandler.Create)
				r.Get("/tasks/{id}", taskHandler.Get)
				r.Post("/tasks/{id}", taskHandler.Update)
				r.Put("/tasks/{id}", taskHandler.Update)
				r.Delete("/tasks/{id}", taskHandler.Delete)
				r.Patch("/tasks/complete/{id}", taskHandler.ToggleComplete)
				r.Patch("/tasks/incomplete/{id}", taskHandler.ToggleComplete)
				r.Patch("/tasks/archive/{id}", taskHandler.Archive)
				r.Patch("/tasks/reorder", taskHandler.Reorder)
				r.Get("/tasks/attachments/download/{id}", taskHandler.DownloadAttachment)

				r.Post("/tags", tagHandler.Create)
				r.Put("/tags/{id}", tagHandler.Rename)
				r.Delete("/tags/{id}", tagHandler.Delete)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
