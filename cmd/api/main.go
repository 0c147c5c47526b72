package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/docpipe/internal/api"
	"github.com/timmy/docpipe/internal/config"
	"github.com/timmy/docpipe/internal/llm"
	"github.com/timmy/docpipe/internal/logger"
	"github.com/timmy/docpipe/internal/ocr"
	"github.com/timmy/docpipe/internal/pipeline"
	"github.com/timmy/docpipe/internal/repository"
	"github.com/timmy/docpipe/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger.SetDefaultLogger(logger.NewDefault())
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	documentRepo := repository.NewDocumentRepository(db)

	// Initialize object storage
	objectStorage, err := storage.NewS3Storage(&storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}

	ctx := context.Background()
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		logger.Fatal("Failed to ensure storage bucket: %v", err)
	}

	// Initialize collaborator clients
	extractor, err := ocr.NewTextractClient(&ocr.Config{
		Region: cfg.OCR.Region,
	})
	if err != nil {
		logger.Fatal("Failed to initialize OCR client: %v", err)
	}

	completer := llm.NewClient(&llm.Config{
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	})

	// Initialize pipeline service
	svc := pipeline.NewService(documentRepo, objectStorage, extractor, completer, &pipeline.Config{
		AllowedTypes:   cfg.Upload.AllowedTypes,
		UploadURLTTL:   cfg.Storage.UploadURLTTL,
		StorageTimeout: cfg.Storage.Timeout,
		OCRTimeout:     cfg.OCR.Timeout,
		LLMTimeout:     cfg.LLM.Timeout,
	})

	// Setup router
	router := api.SetupRouter(svc, &cfg.Server)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting API server: port=%d, mode=%s", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
