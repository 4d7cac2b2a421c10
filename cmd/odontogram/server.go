package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/odontogram/internal/config"
	"github.com/ehr/odontogram/internal/domain/dentalchart"
	"github.com/ehr/odontogram/internal/platform/db"
	"github.com/ehr/odontogram/internal/platform/metrics"
	"github.com/ehr/odontogram/internal/platform/middleware"
	"github.com/ehr/odontogram/internal/platform/websocket"
)

const requestTimeout = 30 * time.Second

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open chart store")
		return err
	}
	defer store.close()

	m := metrics.New()
	hub := websocket.NewHub(logger)

	svc := dentalchart.NewService(store.repo, logger)
	svc.SetMetrics(m)
	svc.SetPublisher(hub)
	svc.SetIdleTimeout(cfg.SessionIdleTimeout)
	go svc.Run(ctx)

	e := newEcho(cfg, logger, m, store)
	apiV1 := e.Group("/api/v1")
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)
	dentalchart.NewHandler(svc).RegisterRoutes(apiV1)

	// Graceful shutdown
	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", store.backend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errc:
		logger.Error().Err(err).Msg("server error")
		svc.Shutdown()
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	cancel()
	svc.Shutdown()
	logger.Info().Int("ws_dropped", hub.Dropped()).Msg("server stopped")
	return nil
}

// newEcho builds the server with global middleware and the operational
// routes. Chart routes are registered by the caller.
func newEcho(cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics, store *chartStore) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger, "/metrics", "/health"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(requestTimeout))
	e.Use(m.Middleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(store.pinger, store.backend))
	e.GET("/metrics", m.Handler())
	return e
}
