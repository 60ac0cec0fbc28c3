package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/ggsolution/autotok/internal/api/handler"
	mw "github.com/ggsolution/autotok/internal/api/middleware"
	"github.com/ggsolution/autotok/internal/domain"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Upload  *handler.UploadHandler
	TikTok  *handler.TikTokHandler
	OAuth   *handler.OAuthHandler
	Account *handler.AccountHandler
	Publish *handler.PublishHandler
	Gemini  *handler.GeminiHandler
	Health  *handler.HealthHandler
	// SPA is nil when no frontend build is present.
	SPA *handler.SPAHandler
}

// Options holds router settings that are not handlers.
type Options struct {
	UploadDir string
	// Limiter guards the upload, publish and Gemini routes. Nil disables it.
	Limiter        mw.RateLimiter
	RateLimitRetry time.Duration
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(h Handlers, opts Options) *chi.Mux {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Minute
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(opts.Logger))
	r.Use(mw.Recovery(opts.Logger))
	r.Use(middleware.Timeout(opts.RequestTimeout))

	// Permissive CORS for the dev frontend on another port
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}).Handler)

	limited := func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(mw.RateLimit(opts.Limiter, opts.RateLimitRetry, opts.Logger))
		}
	}

	// Health endpoints
	r.Get("/health", h.Health.Live)
	r.Get("/ready", h.Health.Ready)

	// Stored videos
	r.Handle(domain.UploadPathPrefix+"*", handler.UploadFileServer(domain.UploadPathPrefix, opts.UploadDir))

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.Health.Stats)
		r.Get("/videos", h.Upload.List)

		r.Group(func(r chi.Router) {
			limited(r)
			r.Post("/upload", h.Upload.Upload)
			r.Post("/upload-url", h.Upload.UploadURL)
			r.Post("/publish", h.Publish.Publish)
			r.Post("/gemini/generate", h.Gemini.Generate)
			r.Post("/gemini/script", h.Gemini.Script)
		})

		r.Route("/tiktok", func(r chi.Router) {
			r.Post("/init", h.TikTok.Init)
			r.Get("/info", h.TikTok.Info)
			r.Post("/token", h.TikTok.Token)

			// Browser redirects, so no JSON or auth expectations.
			r.Get("/oauth/start", h.OAuth.Start)
			r.Get("/oauth/callback", h.OAuth.Callback)
		})

		r.Get("/accounts", h.Account.List)
		r.Delete("/accounts/{id}", h.Account.Delete)
	})

	// Frontend with client-side route fallback
	if h.SPA != nil {
		r.NotFound(h.SPA.ServeHTTP)
	}

	return r
}
