package app

import (
	"net/http"
	"taskManager/internal/handlers"
	"taskManager/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "task-manager"

func (a *App) routes() http.Handler {
	taskHandler := handlers.NewTaskHandler(a.taskService)
	authHandler := handlers.NewAuthHandler(a.authService)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	if a.config.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(a.config.Server.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))
	if a.config.RateLimit.GlobalRPM > 0 {
		r.Use(middleware.RateLimit(a.globalLimiter, middleware.ByIP("global:")))
	}

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/health", taskHandler.HealthCheck) // GET /health

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(a.authLimiter, middleware.ByIP("auth:")))

		r.Post("/signup", authHandler.SignUp) // POST /auth/signup
		r.Post("/signin", authHandler.SignIn) // POST /auth/signin
	})

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(middleware.Authenticate(a.tokens))

		r.Post("/task", taskHandler.PostTask)     // POST /dashboard/task
		r.Get("/tasks", taskHandler.GetTasks)     // GET /dashboard/tasks
		r.Get("/search", taskHandler.SearchTasks) // GET /dashboard/search

		r.Route("/task/{id}", func(r chi.Router) {
			r.Put("/", taskHandler.UpdateTask)    // PUT /dashboard/task/{id}
			r.Delete("/", taskHandler.DeleteTask) // DELETE /dashboard/task/{id}

			r.Post("/subtask", taskHandler.PostSubtask) // POST /dashboard/task/{id}/subtask
			r.Get("/subtasks", taskHandler.GetSubtasks) // GET /dashboard/task/{id}/subtasks

			r.Delete("/subtask/{subtaskId}", taskHandler.DeleteSubtask) // DELETE /dashboard/task/{id}/subtask/{subtaskId}
		})
	})

	return otelhttp.NewHandler(r, serviceName)
}
