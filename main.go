package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ehagey/cra-legal-matching/config"
	"github.com/ehagey/cra-legal-matching/handler"
	"github.com/ehagey/cra-legal-matching/middleware"
	"github.com/ehagey/cra-legal-matching/pkg/logger"
	"github.com/ehagey/cra-legal-matching/service"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully", "model", cfg.OpenRouter.Model)
	if err := cfg.Validate(); err != nil {
		slog.Warn("analysis is not fully configured", "error", err)
	}

	// Initialize services
	promptStore := service.NewPromptStore(cfg.Prompts.File)
	loaderSvc := service.NewLoaderService(&cfg.Reader, &cfg.Limits)
	analyzerSvc := service.NewAnalyzerService(&cfg.OpenRouter, &cfg.Limits, promptStore)
	gate := service.NewCallGate(time.Duration(cfg.Limits.CallIntervalMS) * time.Millisecond)
	jobStore := service.NewJobStore(&cfg.Store)
	orchestrator := service.NewOrchestrator(loaderSvc, analyzerSvc, gate, jobStore, &cfg.Limits)

	var archiveSvc *service.ArchiveService
	if cfg.Archive.Enabled {
		archiveSvc, err = service.NewArchiveService(&cfg.Archive)
		if err != nil {
			slog.Error("failed to initialize document archive", "error", err)
			os.Exit(1)
		}
		if err := archiveSvc.EnsureBucket(context.Background()); err != nil {
			slog.Error("failed to ensure archive bucket", "error", err)
			os.Exit(1)
		}
	}

	// Evict expired jobs periodically
	sweeperStop := make(chan struct{})
	jobStore.StartSweeper(time.Minute, sweeperStop)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	analyzeHandler := handler.NewAnalyzeHandler(orchestrator, archiveSvc)
	progressHandler := handler.NewProgressHandler(jobStore)
	healthHandler := handler.NewHealthHandler(cfg, analyzerSvc)
	previewHandler := handler.NewPreviewHandler(loaderSvc)
	promptsHandler := handler.NewPromptsHandler(promptStore)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware(cfg.Server.FrontendURL)) // CORS
	router.Use(middleware.RateLimit(cfg.Limits.RequestsPerMinute, time.Minute)) // Per-IP request limiting

	// Public routes
	api := router.Group("/api")
	{
		api.GET("/health", healthHandler.Health)
		api.POST("/auth/login", authHandler.Login)
		// Progress streams are gated by the unguessable job id
		api.GET("/progress/:id", progressHandler.Stream)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/analyze", analyzeHandler.Analyze)
		protected.POST("/preview", previewHandler.Preview)
		protected.GET("/jobs/:id/documents", analyzeHandler.Documents)
		protected.GET("/prompts", promptsHandler.Get)
		protected.PUT("/prompts", promptsHandler.Save)
		protected.DELETE("/prompts", promptsHandler.Reset)
	}

	// Create server. Write timeout stays 0 so SSE streams are not cut off.
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")
	close(sweeperStop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers for the frontend origin
func corsMiddleware(frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == frontendURL || origin == "http://localhost:3000" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, X-App-Password")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
