package main

import (
	"context"
	"errors"
	"law_consult_app/config"
	"law_consult_app/db"
	"law_consult_app/handlers"
	"law_consult_app/logger"
	"law_consult_app/middleware"
	"law_consult_app/models"
	"law_consult_app/services"
	"law_consult_app/services/i18n"
	"law_consult_app/services/jobs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()
	zap.ReplaceGlobals(zlog)

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		zlog.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}

	if err := i18n.Load(); err != nil {
		zlog.Fatal("Failed to load locales", zap.Error(err))
	}

	mailer, err := services.NewMailer(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to configure mailer", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := services.NewNotificationQueue(db.DB, cfg, zlog)
	scheduler := jobs.NewScheduler(db.DB, queue, mailer, cfg, zlog)
	if err := scheduler.Start(ctx); err != nil {
		zlog.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			zlog.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	publicLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Requests: cfg.PublicRateLimit,
		Window:   time.Minute,
		Message:  "Too many booking requests. Please wait before trying again.",
	})
	defer publicLimiter.Close()

	h := handlers.New(db.DB, cfg, zlog, queue)
	handlers.RegisterRoutes(e, h, publicLimiter)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Start server
	go func() {
		zlog.Info("Server starting", zap.String("port", cfg.ServerPort))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server shutdown failed", zap.Error(err))
	}
	scheduler.Stop()
}
