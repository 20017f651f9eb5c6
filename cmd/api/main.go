package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/siscuentas/radicados-api/api/swagger"
	"github.com/siscuentas/radicados-api/internal/handler"
	"github.com/siscuentas/radicados-api/internal/middleware"
	"github.com/siscuentas/radicados-api/internal/models"
	"github.com/siscuentas/radicados-api/internal/repository"
	"github.com/siscuentas/radicados-api/internal/service"
	"github.com/siscuentas/radicados-api/pkg/cache"
	"github.com/siscuentas/radicados-api/pkg/config"
	"github.com/siscuentas/radicados-api/pkg/database"
	"github.com/siscuentas/radicados-api/pkg/export"
	"github.com/siscuentas/radicados-api/pkg/logger"
	corsmiddleware "github.com/siscuentas/radicados-api/pkg/middleware/cors"
	reqidmiddleware "github.com/siscuentas/radicados-api/pkg/middleware/requestid"
	"github.com/siscuentas/radicados-api/pkg/storage"
)

// @title Radicados API
// @version 1.0.0
// @description Workflow and custody engine for contract-payment claim packages
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
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The ledger cache is optional; reads fall back to the table.
		sugar.Warnw("redis unavailable, ledger cache disabled", "error", err)
		redisClient = nil
	}

	documentStore, err := storage.NewDocumentStore(cfg.Storage.DocumentsDir)
	if err != nil {
		sugar.Fatalw("document store init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	documentRepo := repository.NewDocumentRepository(db)
	auditRepo := repository.NewAuditRecordRepository(db)
	accessRepo := repository.NewAccessLogRepository(db)

	metrics := service.NewMetrics()
	tokens := service.NewTokenService(cfg.JWT)

	ledger := service.NewLedgerService(accessRepo, documentStore, redisClient, metrics, logr, cfg.Ledger)
	ledger.Start(context.Background())
	defer ledger.Stop()

	attachments := service.NewAttachmentService(documentRepo, auditRepo, documentStore, signer, ledger, logr, cfg.Storage)
	custody := service.NewCustodyService(db, documentRepo, auditRepo, ledger, metrics, logr)
	reviews := service.NewReviewService(db, documentRepo, auditRepo, attachments, ledger, metrics, logr)
	documents := service.NewDocumentService(documentRepo, ledger, export.NewPDFExporter(), export.NewCSVExporter(), logr)

	documentHandler := handler.NewDocumentHandler(documents, ledger)
	custodyHandler := handler.NewCustodyHandler(custody)
	reviewHandler := handler.NewReviewHandler(reviews)
	attachmentHandler := handler.NewAttachmentHandler(attachments)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/attachments/download", attachmentHandler.Download)

	authed := api.Group("", middleware.JWT(tokens))
	{
		authed.POST("/documents", middleware.RequireRoles(models.RoleFiler), documentHandler.Create)
		authed.GET("/documents", documentHandler.List)
		authed.GET("/documents/:id", documentHandler.Get)
		authed.GET("/documents/:id/history", documentHandler.History)
		authed.GET("/documents/:id/history/export", documentHandler.ExportHistory)
		authed.GET("/documents/:id/accesses", documentHandler.Accesses)
		authed.PATCH("/documents/:id/first-of-year", middleware.RequireRoles(models.RoleAdmin), documentHandler.SetFirstOfYear)

		authed.POST("/documents/:id/claim", custodyHandler.Claim)
		authed.POST("/documents/:id/release", custodyHandler.Release)
		authed.POST("/documents/:id/decision", reviewHandler.Decide)
		authed.POST("/documents/:id/refile", middleware.RequireRoles(models.RoleFiler), reviewHandler.Refile)

		authed.GET("/documents/:id/attachments/completeness", attachmentHandler.Completeness)
		authed.POST("/documents/:id/attachments/:category", middleware.RequireRoles(models.RoleAuditor), attachmentHandler.Upload)
		authed.POST("/documents/:id/attachments/:category/download", attachmentHandler.DownloadToken)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("shutdown error", "error", err)
	}
}
