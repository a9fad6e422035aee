package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mockly/apiserver/config"
	"github.com/mockly/apiserver/internal/db"
	"github.com/mockly/apiserver/internal/handlers"
	"github.com/mockly/apiserver/internal/lock"
	"github.com/mockly/apiserver/internal/mq"
	"github.com/mockly/apiserver/internal/services"
	"github.com/mockly/apiserver/internal/storage"
	"github.com/mockly/apiserver/internal/store"
	"github.com/redis/go-redis/v9"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server, router and the clients it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	redis      *redis.Client
	broker     *mq.MQ
	logger     *slog.Logger
}

// Services groups the application services the router serves.
type Services struct {
	Auth       *services.AuthService
	Accounts   *services.AccountService
	Interviews *services.InterviewService
	Resources  *services.ResourceService
}

// New connects to every configured backend and builds the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Server{db: dbConn, logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = s.Shutdown(context.Background())
		}
	}()

	interviewOpts := []services.InterviewOption{services.WithLogger(logger)}

	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		client, err := lock.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		s.redis = client
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		interviewOpts = append(interviewOpts, services.WithSlotLocker(lock.NewRedisLocker(client, cfg.Redis.LockTTL)))
		logger.Info("scheduling slot lock enabled", slog.String("addr", cfg.Redis.Addr))
	}

	broker, err := mq.FromConfig(ctx, cfg.MQ)
	if err != nil {
		return nil, fmt.Errorf("connect broker: %w", err)
	}
	if broker != nil {
		s.broker = broker
		interviewOpts = append(interviewOpts,
			services.WithEvents(broker, cfg.MQ.EventsChannel),
			services.WithPublishTimeout(cfg.MQ.PublishTimeout),
		)
		logger.Info("interview events enabled", slog.String("backend", cfg.MQ.Backend), slog.String("channel", cfg.MQ.EventsChannel))
	}

	recordings, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}
	if recordings != nil {
		interviewOpts = append(interviewOpts, services.WithRecordings(recordings))
		logger.Info("recording storage enabled", slog.String("backend", cfg.Storage.Backend), slog.String("bucket", recordings.Bucket()))
	}

	accountRepo := store.NewAccountRepository(dbConn)
	interviewRepo := store.NewInterviewRepository(dbConn)
	resourceRepo := store.NewResourceRepository(dbConn)

	svc := Services{
		Auth:       services.NewAuthService(accountRepo, services.AuthConfig{Secret: jwtSecret, TokenTTL: cfg.Auth.TokenTTL}),
		Accounts:   services.NewAccountService(accountRepo, interviewRepo),
		Interviews: services.NewInterviewService(interviewRepo, interviewOpts...),
		Resources:  services.NewResourceService(resourceRepo),
	}
	s.router = NewRouter(svc, cfg.Auth.FallbackHeader)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ok = true
	return s, nil
}

// NewRouter builds the HTTP routes over the given services.
func NewRouter(svc Services, fallbackHeader string) *chi.Mux {
	auth := handlers.NewAuthHandler(svc.Auth, fallbackHeader)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(requestTimeout),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, auth)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, svc.Accounts, auth.RequireAuth)
	})
	router.Route("/interviews", func(r chi.Router) {
		handlers.InterviewRouter(r, svc.Interviews, auth.RequireAuth)
	})
	router.Route("/resources", func(r chi.Router) {
		handlers.ResourceRouter(r, svc.Resources, auth)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes every owned client.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
