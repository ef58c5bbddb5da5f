package main

// @title ReferLink API
// @version 1.0
// @description Referral lifecycle and incentive engine for home-services sales teams.

// @contact.name API Support
// @contact.email support@referlink.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/referlink/backend/config"
	"github.com/referlink/backend/pkg/api/handlers"
	"github.com/referlink/backend/pkg/cache"
	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/email"
	"github.com/referlink/backend/pkg/followup"
	"github.com/referlink/backend/pkg/incentive"
	"github.com/referlink/backend/pkg/jobs"
	"github.com/referlink/backend/pkg/logger"
	"github.com/referlink/backend/pkg/metrics"
	custommiddleware "github.com/referlink/backend/pkg/middleware"
	"github.com/referlink/backend/pkg/notify"
	"github.com/referlink/backend/pkg/referral"
	"github.com/referlink/backend/pkg/sms"
	"github.com/referlink/backend/pkg/store"
	"github.com/referlink/backend/pkg/tax"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	log.Info("configuration loaded", "environment", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Warn("failed to initialize sentry", "error", err)
		} else {
			log.Info("sentry initialized", "environment", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Info("sentry disabled (no DSN configured)")
	}

	// Initialize database-backed stores
	db, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Redis cache. Optional; the engine recomputes on miss.
	var incentiveCache domain.CacheRepository
	redisClient, err := cache.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Warn("redis unavailable, incentive snapshots will not be cached", "error", err)
	} else {
		incentiveCache = redisClient
		defer redisClient.Close()
	}

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Info("prometheus metrics initialized")

	clock := domain.SystemClock()

	// Channel providers
	emailProvider := email.NewService(cfg.EmailFrom, cfg.EmailFromName, cfg.SendGridAPIKey, log)
	smsProvider := sms.NewService(nil, cfg.SMSFromNumber, log)

	// Core services
	notifier := notify.NewService(db, emailProvider, smsProvider, clock, log, prometheusMetrics, notify.Options{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
	})
	incentiveService := incentive.NewService(db, db, notifier, incentiveCache, cfg.Program, log, prometheusMetrics)
	taxService := tax.NewService(db, db, notifier, cfg.Program, clock, log, prometheusMetrics)
	referralService := referral.NewService(db, db, notifier, incentiveService, taxService,
		clock, log, prometheusMetrics, cfg.FrontendURL)
	detector := followup.NewDetector(cfg.Program.FollowUpAfterDays)
	sweeper := jobs.NewSweeper(db, db, detector, notifier, taxService, clock, log, prometheusMetrics, cfg.FrontendURL)

	// Start the notification dispatcher workers
	notifier.Start(cfg.NotifyWorkers)
	log.Info("notification dispatcher started", "workers", cfg.NotifyWorkers)

	// Schedule the daily sweep
	cronManager := jobs.NewCronManager(sweeper, log)
	if err := cronManager.SetupJobs(cfg.SweepSchedule); err != nil {
		log.Error("failed to setup cron jobs", "error", err)
		os.Exit(1)
	}
	cronManager.Start()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request", "method", c.Request().Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.CORSAllowedOrigins...)))
	e.Use(middleware.Gzip())
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.SecurityHeadersConfig{}))
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "ReferLink API",
			"version":     "0.1.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"database": "down",
			})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": "up",
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Initialize handlers
	referralHandler := handlers.NewReferralHandler(referralService)
	repHandler := handlers.NewRepHandler(incentiveService, referralService)
	taxHandler := handlers.NewTaxHandler(taxService)
	notificationHandler := handlers.NewNotificationHandler(notifier)
	adminHandler := handlers.NewAdminHandler(cronManager.Sweeper(), log)

	v1 := e.Group("/api/v1")

	referralsGroup := v1.Group("/referrals")
	{
		referralsGroup.POST("", referralHandler.Submit)
		referralsGroup.GET("", referralHandler.List)
		referralsGroup.GET("/:id", referralHandler.Get)
		referralsGroup.PUT("/:id/status", referralHandler.UpdateStatus)
		referralsGroup.GET("/:id/history", referralHandler.History)
	}

	repsGroup := v1.Group("/reps")
	{
		repsGroup.GET("/:id/incentives", repHandler.Incentives)
		repsGroup.GET("/:id/stats", repHandler.Stats)
		repsGroup.GET("/:id/tax/:year", taxHandler.GetState)
		repsGroup.POST("/:id/tax/:year/info", taxHandler.ProvideInfo)
	}

	notificationsGroup := v1.Group("/notifications")
	{
		notificationsGroup.GET("", notificationHandler.List)
		notificationsGroup.POST("/read-all", notificationHandler.MarkAllRead)
		notificationsGroup.DELETE("/:id", notificationHandler.Dismiss)
	}

	adminGroup := v1.Group("/admin")
	{
		adminGroup.POST("/sweep", adminHandler.TriggerSweep)
	}

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Info("starting server", "address", address,
		"sweep_schedule", cfg.SweepSchedule,
		"rate_limit_rpm", cfg.RateLimitRequestsPerMinute)

	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	cronManager.Stop()
	log.Info("cron jobs stopped")

	notifier.Stop()
	log.Info("notification dispatcher drained")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server gracefully stopped")
}
