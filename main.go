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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/famzila/contract-whisperer-backend/config"
	"github.com/famzila/contract-whisperer-backend/handler"
	"github.com/famzila/contract-whisperer-backend/middleware"
	"github.com/famzila/contract-whisperer-backend/onboarding"
	"github.com/famzila/contract-whisperer-backend/pkg/logger"
	"github.com/famzila/contract-whisperer-backend/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize object storage", "error", err)
		os.Exit(1)
	}
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure storage bucket", "error", err)
		os.Exit(1)
	}

	extractorSvc := service.NewExtractorService(&cfg.Extractor)
	store := service.NewContractStore(&cfg.Store)

	cache, err := service.NewAnalysisCache(&cfg.Cache, slog.Default())
	if err != nil {
		slog.Error("failed to open analysis cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	backend := service.NewGeminiBackend(&cfg.Gemini)
	classifier, err := service.NewClassifier(backend, cfg.Classifier, slog.Default())
	if err != nil {
		slog.Error("failed to build classifier", "error", err)
		os.Exit(1)
	}
	languages := service.NewLanguageDetector(cfg.Languages.Supported)
	parties := service.NewPartyDetector(backend, cfg.Classifier.AISnippetChars, slog.Default())
	analyzer := service.NewAnalysisExtractor(backend, slog.Default())
	translator := service.NewTranslationService(service.NewGeminiTranslator(backend), slog.Default())

	onboardingMgr := onboarding.NewManager(onboarding.Deps{
		Classifier:      classifier,
		Languages:       languages,
		Parties:         parties,
		Analyzer:        analyzer,
		Store:           store,
		Cache:           cache,
		DefaultLanguage: cfg.Languages.Default,
		Logger:          slog.Default(),
	})

	authHandler := handler.NewAuthHandler(cfg)
	contractHandler := handler.NewContractHandler(minioSvc, extractorSvc, store, onboardingMgr)
	callbackHandler := handler.NewCallbackHandler(extractorSvc, store, onboardingMgr)
	analysisHandler := handler.NewAnalysisHandler(store, translator, cache, onboardingMgr)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(100, time.Minute))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/extractor/callback", callbackHandler.HandleCallback)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/contracts/upload", contractHandler.Upload)
		protected.POST("/contracts/paste", contractHandler.Paste)
		protected.GET("/contracts", contractHandler.List)
		protected.GET("/contracts/:id", contractHandler.Get)
		protected.GET("/contracts/:id/status", contractHandler.GetStatus)
		protected.DELETE("/contracts/:id", contractHandler.Delete)

		protected.GET("/contracts/:id/onboarding", contractHandler.OnboardingStatus)
		protected.POST("/contracts/:id/language", contractHandler.ChooseLanguage)
		protected.POST("/contracts/:id/role", contractHandler.ChooseRole)
		protected.POST("/contracts/:id/reset", contractHandler.ResetOnboarding)

		protected.GET("/contracts/:id/analysis", analysisHandler.GetAnalysis)
		protected.POST("/contracts/:id/translate", analysisHandler.Translate)
		protected.GET("/analyses", analysisHandler.ListCached)
		protected.GET("/analyses/:id", analysisHandler.GetCached)
		protected.DELETE("/analyses/:id", analysisHandler.DeleteCached)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers for the browser frontend.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
