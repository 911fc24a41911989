package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/bakatarta/internal/auth"
	"github.com/Clark-Hu/bakatarta/internal/config"
	"github.com/Clark-Hu/bakatarta/internal/media"
	"github.com/Clark-Hu/bakatarta/internal/metrics"
	"github.com/Clark-Hu/bakatarta/internal/ollama"
	"github.com/Clark-Hu/bakatarta/internal/rating"
	"github.com/Clark-Hu/bakatarta/internal/repository"
	"github.com/Clark-Hu/bakatarta/internal/store"
)

// PasswordVerifier checks the admin login password.
type PasswordVerifier interface {
	Check(password string) error
}

// Deps are the collaborators the handlers need. Generator may be nil, which
// disables recipe generation.
type Deps struct {
	Config    config.Config
	Store     *store.Store
	Repo      *repository.Repository
	Reviews   *rating.Service
	Sessions  auth.Authenticator
	Passwords PasswordVerifier
	Media     *media.Store
	Generator ollama.Generator
	Logger    zerolog.Logger
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg       config.Config
	store     *store.Store
	repo      *repository.Repository
	reviews   *rating.Service
	sessions  auth.Authenticator
	passwords PasswordVerifier
	media     *media.Store
	generator ollama.Generator
	logger    zerolog.Logger
	router    chi.Router
	httpSrv   *http.Server
	now       func() time.Time
}

// New constructs the HTTP server with base middleware and routes.
func New(deps Deps) *Server {
	s := &Server{
		cfg:       deps.Config,
		store:     deps.Store,
		repo:      deps.Repo,
		reviews:   deps.Reviews,
		sessions:  deps.Sessions,
		passwords: deps.Passwords,
		media:     deps.Media,
		generator: deps.Generator,
		logger:    deps.Logger.With().Str("component", "http").Logger(),
		now:       time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))
	s.router = r
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/sitemap.xml", s.handleSitemap)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit())
			r.Get("/recipes", s.handleListRecipes)
			r.Get("/recipes/{slug}", s.handleGetRecipe)
			r.Get("/recipes/{slug}/reviews", s.handleListReviews)
			r.Get("/search", s.handleSearch)
			r.Get("/categories", s.handleListCategories)
			r.Get("/categories/{slug}", s.handleGetCategory)
			r.Get("/pages", s.handleListPages)
			r.Post("/submit-review", s.handleSubmitReview)
			r.Post("/auth", s.handleLogin)
			r.Get("/images/{fileName}", s.handleGetImage)
		})
		r.Post("/auth/logout", s.handleLogout)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/recipes", s.handleAdminListRecipes)
			r.Post("/recipes", s.handleAdminCreateRecipe)
			r.Put("/recipes/{id}", s.handleAdminUpdateRecipe)
			r.Delete("/recipes/{id}", s.handleAdminDeleteRecipe)
			r.Get("/categories", s.handleAdminListCategories)
			r.Post("/categories", s.handleAdminReplaceCategories)
			r.Get("/pages", s.handleAdminListPages)
			r.Post("/pages", s.handleAdminUpdatePages)
			r.Get("/settings", s.handleAdminGetSettings)
			r.Post("/settings", s.handleAdminSaveSettings)
			r.Post("/upload", s.handleAdminUpload)
			r.Post("/generate-recipe", s.handleAdminGenerateRecipe)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, codeNotFound, "Resource not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, codeBadRequest, "Method not allowed")
	})
}

func (s *Server) rateLimit() func(http.Handler) http.Handler {
	if s.cfg.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		s.cfg.RateLimitRequests,
		time.Duration(s.cfg.RateLimitWindowSecs)*time.Second,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, http.StatusTooManyRequests, codeRateLimited, "Too many requests")
		}),
	)
}

// Start boots the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		s.respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Database unavailable")
		return
	}
	metrics.UpdatePoolStats(s.store.Stats())
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
