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
	"go.uber.org/zap"

	_ "github.com/noah-isme/research-admin-api/api/swagger"
	"github.com/noah-isme/research-admin-api/internal/handler"
	"github.com/noah-isme/research-admin-api/internal/middleware"
	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/internal/repository"
	"github.com/noah-isme/research-admin-api/internal/service"
	"github.com/noah-isme/research-admin-api/pkg/cache"
	"github.com/noah-isme/research-admin-api/pkg/config"
	"github.com/noah-isme/research-admin-api/pkg/database"
	"github.com/noah-isme/research-admin-api/pkg/jobs"
	"github.com/noah-isme/research-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/research-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/research-admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/research-admin-api/pkg/storage"
)

// @title Research Administration API
// @version 1.0.0
// @description REST API for managing university research records, approvals, and reporting.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, redisErr := cache.NewRedis(cfg.Redis)
	if redisErr != nil {
		logr.Warn("redis unavailable, stats caching disabled", zap.Error(redisErr))
	}

	validate := validator.New()

	// Repositories.
	publicationRepo := repository.NewPublicationRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	finalProjectRepo := repository.NewFinalProjectRepository(db)
	thesisRepo := repository.NewThesisRepository(db)
	eventRepo := repository.NewEventRepository(db)
	travelGrantRepo := repository.NewTravelGrantRepository(db)
	contactRepo := repository.NewContactRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisErr == nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)
	}

	// Core domain services.
	publicationSvc := service.NewPublicationService(publicationRepo, validate, logr)
	projectSvc := service.NewProjectService(projectRepo, validate, logr)
	finalProjectSvc := service.NewFinalProjectService(finalProjectRepo, validate, logr)
	thesisSvc := service.NewThesisService(thesisRepo, validate, logr)
	eventSvc := service.NewEventService(eventRepo, validate, logr)
	travelGrantSvc := service.NewTravelGrantService(travelGrantRepo, validate, logr)
	contactSvc := service.NewContactService(contactRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "research-admin-api",
	})

	// Report generation pipeline: storage, signer, exporter, worker queue.
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init report storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	exportSvc := service.NewExportService(service.ExportSources{
		Publications:  publicationRepo,
		Projects:      projectRepo,
		FinalProjects: finalProjectRepo,
		Theses:        thesisRepo,
		Events:        eventRepo,
		TravelGrants:  travelGrantRepo,
	}, reportStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, nil, nil)

	reportWorker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("report-exports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})

	reportSvc := service.NewReportService(reportRepo, reportRepo, service.StatsSources{
		Publications:  publicationRepo,
		Projects:      projectRepo,
		FinalProjects: finalProjectRepo,
		Theses:        thesisRepo,
		Events:        eventRepo,
		TravelGrants:  travelGrantRepo,
		Contacts:      contactRepo,
	}, exportSvc, reportQueue, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	}).WithCache(cacheSvc, cfg.Stats.CacheTTL)

	reportQueue.Start(ctx)
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	// Handlers.
	publicationHandler := handler.NewPublicationHandler(publicationSvc)
	projectHandler := handler.NewProjectHandler(projectSvc)
	finalProjectHandler := handler.NewFinalProjectHandler(finalProjectSvc)
	thesisHandler := handler.NewThesisHandler(thesisSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	travelGrantHandler := handler.NewTravelGrantHandler(travelGrantSvc)
	contactHandler := handler.NewContactHandler(contactSvc)
	userHandler := handler.NewUserHandler(userSvc)
	authHandler := handler.NewAuthHandler(authSvc)
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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := middleware.JWT(authSvc)
	optionalAuth := middleware.OptionalJWT(authSvc)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	// Auth.
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/register", userHandler.Register)
	api.POST("/auth/forgot-password", authHandler.ForgotPassword)
	api.POST("/auth/reset-password", authHandler.ResetPassword)
	api.POST("/auth/logout", auth, authHandler.Logout)
	api.POST("/auth/change-password", auth, authHandler.ChangePassword)
	api.GET("/auth/me", auth, authHandler.Me)

	// Users.
	api.PUT("/users/profile", auth, userHandler.UpdateProfile)
	users := api.Group("/users", auth, adminOnly)
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", userHandler.Create)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	// Publications.
	publications := api.Group("/publications", middleware.Audit(userRepo, "publications"))
	{
		publications.GET("", publicationHandler.List)
		publications.GET("/stats", publicationHandler.Stats)
		publications.GET("/:id", publicationHandler.Get)
		publications.POST("", auth, publicationHandler.Create)
		publications.PUT("/:id", auth, publicationHandler.Update)
		publications.DELETE("/:id", auth, publicationHandler.Delete)
		publications.PUT("/:id/approve", auth, adminOnly, publicationHandler.Approve)
		publications.PUT("/:id/reject", auth, adminOnly, publicationHandler.Reject)
		publications.PUT("/:id/review", auth, adminOnly, publicationHandler.SetStatus)
	}

	// Funded projects.
	projects := api.Group("/projects", middleware.Audit(userRepo, "projects"))
	{
		projects.GET("", projectHandler.List)
		projects.GET("/stats", projectHandler.Stats)
		projects.GET("/:id", projectHandler.Get)
		projects.POST("", auth, projectHandler.Create)
		projects.PUT("/:id", auth, projectHandler.Update)
		projects.DELETE("/:id", auth, projectHandler.Delete)
		projects.PUT("/:id/approve", auth, adminOnly, projectHandler.Approve)
		projects.PUT("/:id/reject", auth, adminOnly, projectHandler.Reject)
		projects.PUT("/:id/review", auth, adminOnly, projectHandler.SetStatus)
	}

	// Final year projects.
	finalProjects := api.Group("/final-projects", middleware.Audit(userRepo, "final-projects"))
	{
		finalProjects.GET("", finalProjectHandler.List)
		finalProjects.GET("/stats", finalProjectHandler.Stats)
		finalProjects.GET("/:id", finalProjectHandler.Get)
		finalProjects.POST("", auth, finalProjectHandler.Create)
		finalProjects.PUT("/:id", auth, finalProjectHandler.Update)
		finalProjects.DELETE("/:id", auth, finalProjectHandler.Delete)
		finalProjects.PUT("/:id/grade", auth, finalProjectHandler.Grade)
		finalProjects.PUT("/:id/approve", auth, adminOnly, finalProjectHandler.Approve)
		finalProjects.PUT("/:id/reject", auth, adminOnly, finalProjectHandler.Reject)
		finalProjects.PUT("/:id/status", auth, adminOnly, finalProjectHandler.SetStatus)
	}

	// Thesis supervisions.
	theses := api.Group("/theses", middleware.Audit(userRepo, "theses"))
	{
		theses.GET("", thesisHandler.List)
		theses.GET("/stats", thesisHandler.Stats)
		theses.GET("/:id", thesisHandler.Get)
		theses.POST("", auth, thesisHandler.Create)
		theses.PUT("/:id", auth, thesisHandler.Update)
		theses.DELETE("/:id", auth, thesisHandler.Delete)
		theses.PUT("/:id/defense", auth, thesisHandler.RecordDefense)
		theses.PUT("/:id/approve", auth, adminOnly, thesisHandler.Approve)
		theses.PUT("/:id/reject", auth, adminOnly, thesisHandler.Reject)
		theses.PUT("/:id/status", auth, adminOnly, thesisHandler.SetStatus)
	}

	// Events.
	events := api.Group("/events", middleware.Audit(userRepo, "events"))
	{
		events.GET("", eventHandler.List)
		events.GET("/stats", eventHandler.Stats)
		events.GET("/:id", eventHandler.Get)
		events.POST("/:id/register", optionalAuth, eventHandler.Register)
		events.POST("", auth, eventHandler.Create)
		events.PUT("/:id", auth, eventHandler.Update)
		events.DELETE("/:id", auth, eventHandler.Delete)
		events.PUT("/:id/attendance", auth, eventHandler.MarkAttendance)
		events.PUT("/:id/approve", auth, adminOnly, eventHandler.Approve)
		events.PUT("/:id/reject", auth, adminOnly, eventHandler.Reject)
		events.PUT("/:id/status", auth, adminOnly, eventHandler.SetStatus)
	}

	// Travel grants.
	travelGrants := api.Group("/travel-grants", middleware.Audit(userRepo, "travel-grants"))
	{
		travelGrants.GET("", travelGrantHandler.List)
		travelGrants.GET("/stats", travelGrantHandler.Stats)
		travelGrants.GET("/:id", travelGrantHandler.Get)
		travelGrants.POST("", auth, travelGrantHandler.Create)
		travelGrants.PUT("/:id", auth, travelGrantHandler.Update)
		travelGrants.DELETE("/:id", auth, travelGrantHandler.Delete)
		travelGrants.PUT("/:id/post-travel", auth, travelGrantHandler.FilePostTravel)
		travelGrants.PUT("/:id/approve", auth, adminOnly, travelGrantHandler.Approve)
		travelGrants.PUT("/:id/reject", auth, adminOnly, travelGrantHandler.Reject)
		travelGrants.PUT("/:id/review", auth, adminOnly, travelGrantHandler.SetStatus)
	}

	// Contact inbox. Submission is public, management is admin only.
	api.POST("/contact", middleware.Audit(userRepo, "contact"), contactHandler.Submit)
	contacts := api.Group("/contact", auth, adminOnly, middleware.Audit(userRepo, "contact"))
	{
		contacts.GET("", contactHandler.List)
		contacts.GET("/stats", contactHandler.Stats)
		contacts.GET("/:id", contactHandler.Get)
		contacts.PUT("/:id/respond", contactHandler.Respond)
		contacts.PUT("/:id/resolve", contactHandler.Resolve)
		contacts.PUT("/:id/close", contactHandler.Close)
		contacts.PUT("/:id/status", contactHandler.SetStatus)
		contacts.PUT("/bulk/update", contactHandler.BulkSetStatus)
		contacts.DELETE("/:id", contactHandler.Delete)
	}

	// Reports and cross-entity stats. Downloads authenticate via signed token.
	api.GET("/reports/download/:token", reportHandler.Download)
	reports := api.Group("/reports", auth)
	{
		reports.GET("/stats", reportHandler.FundingStats)
		reports.GET("/comprehensive", reportHandler.ComprehensiveStats)
		reports.POST("/generate", reportHandler.Generate)
		reports.POST("/export", reportHandler.Export)
		reports.POST("/export/jobs", reportHandler.CreateExportJob)
		reports.GET("/export/jobs/:id", reportHandler.JobStatus)
	}
	api.GET("/stats/system", auth, adminOnly, metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	reportQueue.Stop()
}
