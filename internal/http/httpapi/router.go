package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// NewRouter assembles the HTTP surface: stateless proxy endpoints, the
// session-scoped workflow driver, and static serving for locally stored
// assets.
func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logger(app.Log),
		chimw.Recoverer,
		middleware.CORS(app.Config.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))

		r.Post("/upload", app.Upload)
		r.Post("/analyze", app.Analyze)
		r.Post("/generate", app.Generate)
		r.Get("/styles", app.Styles)

		r.Route("/workflow", func(r chi.Router) {
			r.Post("/", app.WorkflowCreate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.WorkflowGet)
				r.Post("/begin", app.WorkflowBegin)
				r.Post("/upload", app.WorkflowUpload)
				r.Post("/style", app.WorkflowStyle)
				r.Post("/back", app.WorkflowBack)
				r.Post("/reset", app.WorkflowReset)
				r.Get("/download", app.WorkflowDownload)
			})
		})
	})

	if base := app.Store.BasePath(); base != "" {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.Dir(base)))
		r.Get("/static/*", fileServer.ServeHTTP)
	}

	return r
}
