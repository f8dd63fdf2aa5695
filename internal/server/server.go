// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: New opens the store and builds
//
//	store → services → handlers → routes
//
// in one place, so nothing else in the program constructs dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/bloglist/internal/auth"
	"github.com/sakif/bloglist/internal/handler"
	"github.com/sakif/bloglist/internal/middleware"
	"github.com/sakif/bloglist/internal/repository"
	pgRepo "github.com/sakif/bloglist/internal/repository/postgres"
	sqliteRepo "github.com/sakif/bloglist/internal/repository/sqlite"
	"github.com/sakif/bloglist/internal/service"
)

// shutdownTimeout is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Config holds server configuration.
type Config struct {
	Port int
	// DBPath is the SQLite file. ":memory:" gives a throwaway database.
	DBPath string
	// DatabaseURL selects PostgreSQL instead of SQLite when non-empty.
	DatabaseURL string
	JWTSecret   string
	TokenTTL    time.Duration
	BcryptCost  int
	// EnableTestingRoutes mounts POST /api/testing/reset. Never set it in
	// production.
	EnableTestingRoutes bool
}

// Validate reports the first configuration problem, if any.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DatabaseURL == "" && c.DBPath == "" {
		return errors.New("either a database URL or a SQLite path is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT secret is required")
	}
	if c.TokenTTL < 0 {
		return fmt.Errorf("token TTL must not be negative, got %s", c.TokenTTL)
	}
	return nil
}

// backend names the store kind for logs.
func (c Config) backend() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "sqlite"
}

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the store. Start closes it on the way out; callers that
// only use Handler (tests) must call Close.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	store  repository.Store
}

// New opens the store and wires every route.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Token settings are checked before the store is opened so a bad secret
	// does not leave a database handle behind.
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	s.setupRoutes(tokens, auth.NewPasswordService(cfg.BcryptCost))

	return s, nil
}

func openStore(ctx context.Context, cfg Config) (repository.Store, error) {
	if cfg.DatabaseURL != "" {
		db, err := pgRepo.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz               → store ping
// GET    /api/blogs             → list blogs with owners
// GET    /api/blogs/{id}        → single blog
// POST   /api/blogs             → create (token required)
// PUT    /api/blogs/{id}        → update (token optional; needed for non-likes fields)
// DELETE /api/blogs/{id}        → delete (token required, owner only)
// GET    /api/users             → list users with blogs
// GET    /api/users/{id}        → single user
// POST   /api/users             → register
// POST   /api/login             → credentials → token
// POST   /api/testing/reset     → wipe store (only with EnableTestingRoutes)
//
// MIDDLEWARE ORDER: RequestID first so the logger can read the id, and
// Recoverer inside Logger so a recovered panic is logged as a 500.
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	userService := service.NewUserService(s.store, passwords, s.logger)
	authService := service.NewAuthService(s.store, tokens, passwords, s.logger)
	blogService := service.NewBlogService(s.store, s.store, s.logger)
	maintenanceService := service.NewMaintenanceService(s.store, s.logger)

	userHandler := handler.NewUserHandler(userService, s.logger)
	loginHandler := handler.NewLoginHandler(authService, s.logger)
	blogHandler := handler.NewBlogHandler(blogService, s.logger)
	maintenanceHandler := handler.NewMaintenanceHandler(maintenanceService, s.logger)

	s.router.Get("/healthz", maintenanceHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/blogs", func(r chi.Router) {
			r.Get("/", blogHandler.HandleList)
			r.Get("/{id}", blogHandler.HandleGet)
			r.With(auth.OptionalAuth(tokens)).Put("/{id}", blogHandler.HandleUpdate)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth(tokens))
				r.Post("/", blogHandler.HandleCreate)
				r.Delete("/{id}", blogHandler.HandleDelete)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.HandleList)
			r.Get("/{id}", userHandler.HandleGet)
			r.Post("/", userHandler.HandleCreate)
		})

		r.Post("/login", loginHandler.HandleLogin)

		if s.config.EnableTestingRoutes {
			s.logger.Warn("testing routes enabled: POST /api/testing/reset wipes the store")
			r.Post("/testing/reset", maintenanceHandler.HandleReset)
		}
	})
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until ctx is cancelled, SIGINT/SIGTERM arrives, or the
// listener fails. On a signal it stops accepting connections, gives
// in-flight requests shutdownTimeout to finish, then closes the store.
func (s *Server) Start(ctx context.Context) error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.config.backend()),
			slog.Bool("testingRoutes", s.config.EnableTestingRoutes),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
