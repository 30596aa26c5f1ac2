package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kooshamoradpour/G5-TechStore/config"
	"github.com/kooshamoradpour/G5-TechStore/internal/auth"
	"github.com/kooshamoradpour/G5-TechStore/internal/db"
	"github.com/kooshamoradpour/G5-TechStore/internal/graph"
	"github.com/kooshamoradpour/G5-TechStore/internal/handlers"
	"github.com/kooshamoradpour/G5-TechStore/internal/metrics"
	"github.com/kooshamoradpour/G5-TechStore/internal/mq"
	"github.com/kooshamoradpour/G5-TechStore/internal/ratelimit"
	"github.com/kooshamoradpour/G5-TechStore/internal/services"
	"github.com/kooshamoradpour/G5-TechStore/internal/storage"
	"github.com/kooshamoradpour/G5-TechStore/internal/store"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     zerolog.Logger

	db      *sql.DB
	bus     *mq.MQ
	events  *services.Events
	images  *storage.Storage
	limiter ratelimit.Limiter
}

// Deps is everything the router needs. Limiter and Metrics are optional.
type Deps struct {
	Logger      zerolog.Logger
	Issuer      *auth.Issuer
	Accounts    *services.AccountService
	Catalog     *services.CatalogService
	Cart        *services.CartService
	Limiter     ratelimit.Limiter
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

// New connects to Postgres and the optional image store, broker and
// rate limiter, then builds the router.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	issuer, err := auth.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	hasher, err := auth.NewPasswordHasher(auth.DefaultPasswordCost)
	if err != nil {
		return nil, err
	}

	s := &Server{logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = s.events.Close(ctx)
			s.closeResources()
		}
	}()

	if s.db, err = db.Open(ctx, cfg); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if s.images, err = storage.Open(ctx, cfg.Storage); err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if s.bus, err = mq.Open(ctx, cfg.MQ); err != nil {
		return nil, fmt.Errorf("open mq: %w", err)
	}
	if s.limiter, err = ratelimit.New(ctx, cfg.RateLimit, logger); err != nil {
		return nil, fmt.Errorf("open rate limiter: %w", err)
	}

	var images services.ImageStore
	if s.images != nil {
		images = s.images
	}
	var publisher services.Publisher
	if s.bus != nil {
		publisher = s.bus
	}
	events := services.NewEvents(publisher, cfg.MQ.Channel, logger)
	s.events = events

	users := store.NewUserRepository(s.db)
	products := store.NewProductRepository(s.db)
	carts := store.NewCartRepository(s.db)

	router, err := NewRouter(Deps{
		Logger:      logger,
		Issuer:      issuer,
		Accounts:    services.NewAccountService(users, carts, hasher, issuer, events, logger),
		Catalog:     services.NewCatalogService(products, images, events, logger),
		Cart:        services.NewCartService(users, carts, events, logger),
		Limiter:     s.limiter,
		Metrics:     metrics.New(),
		CORSOrigins: cfg.CORS.AllowedOrigins,
	})
	if err != nil {
		return nil, err
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info().
		Bool("images", s.images != nil).
		Str("mq", cfg.MQ.Backend).
		Str("rate_limit", cfg.RateLimit.Backend).
		Msg("server configured")
	ok = true
	return s, nil
}

// NewRouter mounts the GraphQL endpoint and the REST mirror.
func NewRouter(d Deps) (*chi.Mux, error) {
	gql, err := graph.NewHandler(d.Accounts, d.Catalog, d.Cart, d.Logger)
	if err != nil {
		return nil, fmt.Errorf("parse graphql schema: %w", err)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(d.Logger),
		middleware.Recoverer,
	)
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware)
	}
	router.Use(corsHandler(d.CORSOrigins))
	router.Use(handlers.Authenticate(d.Issuer, d.Logger))

	var onReject func(string)
	if d.Metrics != nil {
		onReject = d.Metrics.RateLimited
	}
	router.Use(
		ratelimit.Middleware(d.Limiter, onReject),
		middleware.Timeout(requestTimeout),
	)

	router.Get("/healthz", handlers.Healthz)
	if d.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	router.Method(http.MethodPost, "/graphql", gql)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, d.Accounts, d.Logger)
	})
	router.Route("/products", func(r chi.Router) {
		handlers.ProductRouter(r, d.Catalog, d.Logger)
	})
	router.Route("/cart", func(r chi.Router) {
		handlers.CartRouter(r, d.Cart, d.Logger)
	})
	return router, nil
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}).Handler
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if drainErr := s.events.Close(ctx); drainErr != nil {
		s.logger.Warn().Err(drainErr).Msg("drain pending events")
	}
	s.closeResources()
	return err
}

func (s *Server) closeResources() {
	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close rate limiter")
		}
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close mq")
		}
	}
	if s.images != nil {
		if err := s.images.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close storage")
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
