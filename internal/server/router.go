package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerworks/rfpd/internal/api"
	"github.com/ledgerworks/rfpd/internal/api/handlers"
	"github.com/ledgerworks/rfpd/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator       middleware.AuthValidator
	EntryHandler        *handlers.EntryHandler
	AnswerHandler       *handlers.AnswerHandler
	VectorSearchHandler *handlers.VectorSearchHandler
	SubmissionHandler   *handlers.SubmissionHandler
	DocumentHandler     *handlers.DocumentHandler
	AuthHandler         *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Large enough for multipart questionnaire uploads.
	const maxBodyBytes int64 = 32 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/entries", func(r chi.Router) {
			r.Post("/", cfg.EntryHandler.Create)
			r.Get("/", cfg.EntryHandler.List)
			r.Post("/import", cfg.EntryHandler.Import)
			r.Post("/reindex", cfg.EntryHandler.RebuildIndex)
			r.Get("/{id}", cfg.EntryHandler.Get)
			r.Put("/{id}", cfg.EntryHandler.Update)
			r.Delete("/{id}", cfg.EntryHandler.Delete)
		})

		r.Post("/search", cfg.EntryHandler.Search)
		r.Post("/search/vector", cfg.VectorSearchHandler.Search)

		r.Post("/answers", cfg.AnswerHandler.Answer)
		r.Post("/answers/batch", cfg.AnswerHandler.AnswerBatch)
		r.Post("/questions/extract", cfg.AnswerHandler.Extract)

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/", cfg.SubmissionHandler.Create)
			r.Get("/", cfg.SubmissionHandler.List)
			r.Post("/upload", cfg.SubmissionHandler.Upload)
			r.Get("/{id}", cfg.SubmissionHandler.Get)
			r.Get("/{id}/findings", cfg.SubmissionHandler.Findings)
			r.Post("/{id}/process", cfg.SubmissionHandler.Process)
			r.Get("/{id}/export", cfg.SubmissionHandler.Export)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/init", cfg.DocumentHandler.InitUpload)
			r.Post("/complete", cfg.DocumentHandler.CompleteUpload)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Get("/{id}/download", cfg.DocumentHandler.Download)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
		})
	})

	r.Post("/orgs", cfg.AuthHandler.CreateOrg)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)

	return r
}
