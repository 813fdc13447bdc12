package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	apihttp "github.com/GriffinCanCode/modshell/internal/api/http"
	"github.com/GriffinCanCode/modshell/internal/api/middleware"
	"github.com/GriffinCanCode/modshell/internal/app"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/config"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/logging"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/modshell/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/modshell/internal/ws"
)

const (
	shutdownTimeout = 5 * time.Second
	// maxConnections bounds concurrent diagnostics clients
	maxConnections = 64
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router *gin.Engine
	addr   string
	tracer *tracing.Tracer
	logger *logging.Logger
}

// New creates a server for shell. A nil metrics collector disables /metrics.
func New(cfg *config.Config, shell *app.Shell, metrics *monitoring.Metrics, logger *logging.Logger) *Server {
	logger = logging.OrNop(logger).Named("server")
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	tracer := tracing.New("shell", logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.Middleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	handlers := apihttp.NewHandlers(shell, metrics, tracer, logger)
	wsHandler := ws.NewHandler(shell, metrics, logger)

	router.GET("/health", handlers.Health)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	api.GET("/parts", handlers.ListParts)
	api.GET("/frames", handlers.ListFrames)
	api.GET("/stats", handlers.Stats)

	activate := []gin.HandlerFunc{handlers.Activate}
	if cfg.RateLimit.Enabled {
		activate = append([]gin.HandlerFunc{middleware.RateLimit(middleware.RateLimitFromConfig(cfg.RateLimit))}, activate...)
	}
	api.POST("/activate", activate...)
	api.POST("/navigate/:guid", handlers.Navigate)

	router.GET("/ws/navigation", wsHandler.HandleConnection)

	return &Server{
		router: router,
		addr:   net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		tracer: tracer,
		logger: logger,
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.addr
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done. The server cannot be reused after.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.tracer.Close()
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Diagnostics server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(netutil.LimitListener(ln, maxConnections))
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Diagnostics server shutdown failed", zap.Error(err))
		return err
	}
	s.logger.Info("Diagnostics server stopped")
	return nil
}
