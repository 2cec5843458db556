package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/apexlearn/training-admin-api/api/swagger"
	"github.com/apexlearn/training-admin-api/internal/delivery"
	"github.com/apexlearn/training-admin-api/internal/handler"
	"github.com/apexlearn/training-admin-api/internal/middleware"
	"github.com/apexlearn/training-admin-api/internal/models"
	"github.com/apexlearn/training-admin-api/internal/repository"
	"github.com/apexlearn/training-admin-api/internal/service"
	"github.com/apexlearn/training-admin-api/internal/worker"
	"github.com/apexlearn/training-admin-api/pkg/cache"
	"github.com/apexlearn/training-admin-api/pkg/config"
	"github.com/apexlearn/training-admin-api/pkg/database"
	"github.com/apexlearn/training-admin-api/pkg/logger"
	corsmiddleware "github.com/apexlearn/training-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/apexlearn/training-admin-api/pkg/middleware/requestid"
	"github.com/apexlearn/training-admin-api/pkg/storage"
)

// @title Training Admin API
// @version 0.1.0
// @description Course admission control and email delivery reliability
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	// The offering cache is an optimization; the API stays up without Redis.
	var cacheSvc *service.CacheService
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, offering cache disabled", "error", err)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Admission.OfferingCacheTTL, logr)
		defer cacheRepo.Close()
	}

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	retryRepo := repository.NewRetryJobRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)

	deliveryClient := delivery.NewClient(cfg.Delivery.BaseURL, cfg.Delivery.Timeout, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifications := service.NewNotificationService(deliveryClient, metricsSvc, logr, service.NotificationServiceConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
	})
	notifications.Start(ctx)
	defer notifications.Stop()

	validate := validator.New()
	admissionSvc := service.NewAdmissionService(enrollmentRepo, offeringRepo, notifications, cacheSvc, metricsSvc, validate, logr)
	retrySvc := service.NewRetryService(retryRepo, deliveryClient, alertRepo, metricsSvc, logr, service.RetryServiceConfig{
		MaxRetries:  cfg.Retry.MaxRetries,
		BaseBackoff: cfg.Retry.BaseBackoff,
		BatchSize:   cfg.Retry.BatchSize,
	})
	healthSvc := service.NewDeliveryHealthService(deliveryRepo, alertRepo, metricsSvc, logr, service.DeliveryHealthConfig{
		WindowHours:       cfg.Bounce.WindowHours,
		RateThreshold:     cfg.Bounce.RateThreshold,
		CriticalThreshold: cfg.Bounce.CriticalThreshold,
		MinVolume:         cfg.Bounce.MinVolume,
	})
	alertSvc := service.NewAlertService(alertRepo, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Export.TokenTTL)
	exportSvc := service.NewReportExportService(deliveryRepo, exportStore, exportSigner, logr)

	sweeper := worker.NewSweeper(retrySvc, healthSvc, exportStore, logr, worker.SweeperConfig{
		RetryInterval:   cfg.Retry.SweepInterval,
		BounceInterval:  cfg.Bounce.CheckInterval,
		ReportInterval:  cfg.Bounce.DailyReportInterval,
		ExportRetention: cfg.Export.Retention,
	})
	sweeper.Start(ctx)

	enrollmentHandler := handler.NewEnrollmentHandler(admissionSvc)
	alertHandler := handler.NewAlertHandler(alertSvc)
	deliveryHandler := handler.NewDeliveryHandler(healthSvc, exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		start := time.Now()
		err := db.PingContext(c.Request.Context())
		metricsSvc.ObserveDBQuery("ping", time.Since(start))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))
	{
		api.GET("/enrollments", enrollmentHandler.List)
		api.POST("/enrollments", enrollmentHandler.Create)
		api.GET("/enrollments/:id", enrollmentHandler.Get)
		api.DELETE("/enrollments/:id", enrollmentHandler.Cancel)
		api.PUT("/enrollments/:id/attendance", middleware.RequireRoles(models.RoleAdmin, models.RoleOperator), enrollmentHandler.UpdateAttendance)

		ops := api.Group("")
		ops.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleOperator))
		{
			ops.GET("/alerts", alertHandler.ListActive)
			ops.PUT("/alerts/:id/resolve", alertHandler.Resolve)
			ops.GET("/delivery/bounce-rates", deliveryHandler.BounceRates)
			ops.GET("/delivery/reports", deliveryHandler.Reports)
			ops.POST("/delivery/reports/export", deliveryHandler.ExportReports)
			ops.GET("/delivery/reports/download", deliveryHandler.DownloadReport)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
