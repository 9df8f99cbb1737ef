package main

import (
	"context"
	"errors"
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

	_ "github.com/pharmetric/fieldops-api/api/swagger"
	"github.com/pharmetric/fieldops-api/internal/handler"
	"github.com/pharmetric/fieldops-api/internal/middleware"
	"github.com/pharmetric/fieldops-api/internal/models"
	"github.com/pharmetric/fieldops-api/internal/pipeline"
	"github.com/pharmetric/fieldops-api/internal/repository"
	"github.com/pharmetric/fieldops-api/internal/service"
	"github.com/pharmetric/fieldops-api/pkg/cache"
	"github.com/pharmetric/fieldops-api/pkg/config"
	"github.com/pharmetric/fieldops-api/pkg/database"
	"github.com/pharmetric/fieldops-api/pkg/export"
	"github.com/pharmetric/fieldops-api/pkg/jobs"
	"github.com/pharmetric/fieldops-api/pkg/logger"
	corsmiddleware "github.com/pharmetric/fieldops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pharmetric/fieldops-api/pkg/middleware/requestid"
	"github.com/pharmetric/fieldops-api/pkg/storage"
)

// @title FieldOps API
// @version 1.0.0
// @description Field-service dashboard for pharmacy support interventions
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	cacheEnabled := err == nil
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, summary caching disabled", "error", err)
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	typeRepo := repository.NewInterventionTypeRepository(db)
	interventionRepo := repository.NewInterventionRepository(db)
	reportRepo := repository.NewReportRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cacheEnabled {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.SummaryCacheTTL, logr, true)
	}

	clock := pipeline.NewClock(cfg.Pipeline.DurationRefreshInterval)
	go clock.Run(ctx)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "fieldops-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	clientSvc := service.NewClientService(clientRepo, interventionRepo, userRepo, cacheSvc, validate, logr)
	typeSvc := service.NewInterventionTypeService(typeRepo, validate, logr)
	interventionSvc := service.NewInterventionService(interventionRepo, typeRepo, userRepo, clientRepo, userRepo, cacheSvc, clock, validate, logr)
	suggestionSvc := service.NewSuggestionService(clientRepo, typeRepo, cfg.Suggestions.Enabled, logr)

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(interventionSvc, userRepo, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	reportWorker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportQueue.Start(ctx)
	defer reportQueue.Stop()

	reportSvc := service.NewReportService(reportRepo, interventionSvc, reportQueue, exportSvc, cacheSvc, validate, logr, service.ReportServiceConfig{
		SummaryTTL:      cfg.Reports.SummaryCacheTTL,
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	clientHandler := handler.NewClientHandler(clientSvc)
	typeHandler := handler.NewInterventionTypeHandler(typeSvc)
	interventionHandler := handler.NewInterventionHandler(interventionSvc, suggestionSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	authed := auth.Group("", middleware.JWT(authSvc))
	authed.POST("/logout", authHandler.Logout)
	authed.GET("/me", authHandler.Me)
	authed.POST("/change-password", authHandler.ChangePassword)

	// Signed tokens carry their own authorization, the download link
	// has to work from a plain browser navigation.
	api.GET("/reports/download/:token", reportHandler.Download)

	protected := api.Group("", middleware.JWT(authSvc))

	users := protected.Group("/users")
	users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor), userHandler.List)
	users.GET("/technicians", userHandler.Technicians)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleSupervisor), "SELF"), userHandler.Get)
	users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
	users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
	users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)

	clients := protected.Group("/clients")
	clients.GET("", clientHandler.List)
	clients.GET("/:id", clientHandler.Get)
	clients.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor), clientHandler.Create)
	clients.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor), clientHandler.Update)
	clients.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), clientHandler.Delete)

	types := protected.Group("/intervention-types")
	types.GET("", typeHandler.List)
	types.GET("/:id", typeHandler.Get)
	types.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor), typeHandler.Create)
	types.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor), typeHandler.Update)
	types.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), typeHandler.Delete)

	interventions := protected.Group("/interventions")
	interventions.GET("", interventionHandler.List)
	interventions.GET("/:id", interventionHandler.Get)
	interventions.POST("", interventionHandler.Create)
	interventions.POST("/:id/close", interventionHandler.Close)

	protected.GET("/suggestions", interventionHandler.Suggestions)

	reports := protected.Group("/reports")
	reports.GET("/summary", reportHandler.Summary)
	reports.POST("/export", reportHandler.Export)
	reports.GET("/jobs/:id", reportHandler.JobStatus)

	protected.GET("/system/metrics", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
