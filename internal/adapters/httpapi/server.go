package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradejournal/internal/analytics"
	"tradejournal/internal/app"
	"tradejournal/internal/domain"
	"tradejournal/internal/ports"
)

// Journal is the set of use cases the HTTP layer exposes. *app.JournalService implements it.
type Journal interface {
	CreateTrade(ctx context.Context, in app.NewTrade) (*domain.Trade, error)
	EditTrade(ctx context.Context, id string, edit app.TradeEdit) (*domain.Trade, error)
	CloseTrade(ctx context.Context, id string, proposedExitPrice float64) (*domain.Trade, error)
	DeleteTrade(ctx context.Context, id string) error
	ClearTrades(ctx context.Context) (int64, error)
	GetTrade(ctx context.Context, id string) (*domain.Trade, error)
	ListTrades(ctx context.Context, limit, offset int) ([]*domain.Trade, int, error)
	AllTrades(ctx context.Context) ([]*domain.Trade, error)
	Metrics(ctx context.Context) (*analytics.PerformanceMetrics, error)
}

var _ Journal = (*app.JournalService)(nil)

// ServerConfig describes the HTTP server and its dependencies.
type ServerConfig struct {
	Addr             string
	Prefix           string
	Journal          Journal
	Logger           ports.Logger
	DefaultPageLimit int
	MaxPageLimit     int
	ReadTimeout      time.Duration
	ShutdownTimeout  time.Duration
	Now              func() time.Time

	// RateLimit caps API requests per second; 0 disables it. /health is exempt.
	RateLimit float64
	RateBurst int
}

// Server serves the journal REST API.
type Server struct {
	cfg    ServerConfig
	router *gin.Engine
}

// NewServer builds the router and registers every route under cfg.Prefix.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Journal == nil || cfg.Logger == nil {
		return nil, errors.New("http server requires a journal and a logger")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.DefaultPageLimit <= 0 {
		cfg.DefaultPageLimit = 500
	}
	if cfg.MaxPageLimit < cfg.DefaultPageLimit {
		cfg.MaxPageLimit = cfg.DefaultPageLimit
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(RequestID(), AccessLog(cfg.Logger), Recovery(cfg.Logger))

	h := &handlers{
		journal:      cfg.Journal,
		logger:       cfg.Logger,
		defaultLimit: cfg.DefaultPageLimit,
		maxLimit:     cfg.MaxPageLimit,
		now:          cfg.Now,
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := router.Group(cfg.Prefix)
	if cfg.RateLimit > 0 {
		api.Use(RateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	h.register(api)
	router.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})

	return &Server{cfg: cfg, router: router}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Start serves until ctx is cancelled or the listener fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.cfg.Logger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": s.cfg.Addr, "prefix": s.cfg.Prefix})

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.cfg.Logger.Info(context.Background(), "Shutting down HTTP server")
		if err := srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
