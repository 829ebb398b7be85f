package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/notesapp/apiserver/config"
	"github.com/notesapp/apiserver/internal/auth"
	"github.com/notesapp/apiserver/internal/db"
	"github.com/notesapp/apiserver/internal/events"
	"github.com/notesapp/apiserver/internal/handlers"
	"github.com/notesapp/apiserver/internal/mq"
	"github.com/notesapp/apiserver/internal/services"
	"github.com/notesapp/apiserver/internal/storage"
	"github.com/notesapp/apiserver/internal/store"
)

const (
	apiPrefix       = "/api/v1"
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 15 * time.Second
)

// Dependencies are the external resources the router is built on. Broker
// and Objects may be nil.
type Dependencies struct {
	Pools   db.Pools
	Broker  mq.Backend
	Objects storage.ObjectStorage
}

// Close releases every dependency.
func (d Dependencies) Close() error {
	var errs []error
	if d.Broker != nil {
		errs = append(errs, d.Broker.Close())
	}
	if d.Objects != nil {
		errs = append(errs, d.Objects.Close())
	}
	errs = append(errs, d.Pools.Close())
	return errors.Join(errs...)
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	deps       Dependencies
	logger     zerolog.Logger
}

// Open connects to the database, the event broker and object storage as
// configured.
func Open(ctx context.Context, cfg config.Config) (Dependencies, error) {
	pools, err := db.Open(ctx, cfg)
	if err != nil {
		return Dependencies{}, fmt.Errorf("open database: %w", err)
	}
	deps := Dependencies{Pools: pools}

	deps.Broker, err = mq.Open(ctx, cfg.Events)
	if err != nil {
		_ = deps.Close()
		return Dependencies{}, fmt.Errorf("open events backend: %w", err)
	}

	deps.Objects, err = storage.Open(ctx, cfg.Export)
	if err != nil {
		_ = deps.Close()
		return Dependencies{}, fmt.Errorf("open export backend: %w", err)
	}
	if deps.Objects != nil {
		if err := deps.Objects.EnsureBucket(ctx); err != nil {
			_ = deps.Close()
			return Dependencies{}, fmt.Errorf("ensure export bucket: %w", err)
		}
	}
	return deps, nil
}

// New opens the dependencies and builds the server.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	deps, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	router, err := NewRouter(cfg, deps, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		deps:       deps,
		logger:     logger,
	}, nil
}

// NewRouter wires repositories, services and handlers on top of deps.
func NewRouter(cfg config.Config, deps Dependencies, logger zerolog.Logger) (*chi.Mux, error) {
	tokens, err := auth.NewTokenIssuer(
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTAlgorithm,
		time.Duration(cfg.Auth.AccessTokenExpireMinutes)*time.Minute,
	)
	if err != nil {
		return nil, err
	}

	publisher := events.NewBrokerPublisher(deps.Broker, cfg.Events.Channel, logger)

	userRepo := store.NewUserRepository(deps.Pools.Writer, deps.Pools.Reader)
	noteRepo := store.NewNoteRepository(deps.Pools.Writer, deps.Pools.Reader)

	userService := services.NewUserService(userRepo, noteRepo, tokens, publisher)
	noteService := services.NewNoteService(noteRepo, publisher)
	exportService := services.NewExportService(userRepo, noteRepo, deps.Objects, publisher)

	authMiddleware := handlers.RequireAuth(userService)

	router := chi.NewRouter()
	router.Use(
		middleware.RealIP,
		hlog.NewHandler(logger),
		hlog.RequestIDHandler("req_id", "X-Request-Id"),
		hlog.AccessHandler(accessLog),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	handlers.HealthRouter(router, deps.Pools.Writer)
	router.Route(apiPrefix, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, authMiddleware)
		})
		r.Route("/notes", func(r chi.Router) {
			handlers.NoteRouter(r, noteService, authMiddleware)
		})
		r.Route("/admin/users", func(r chi.Router) {
			handlers.AdminRouter(r, userService, exportService, authMiddleware)
		})
	})

	return router, nil
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	level := zerolog.InfoLevel
	if status >= http.StatusInternalServerError {
		level = zerolog.WarnLevel
	}
	hlog.FromRequest(r).WithLevel(level).
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// Router exposes the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the dependencies.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.deps.Close())
}
