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

	"github.com/saifjishan/chatmeme/internal/api"
	"github.com/saifjishan/chatmeme/internal/cache"
	"github.com/saifjishan/chatmeme/internal/config"
	"github.com/saifjishan/chatmeme/internal/logger"
	"github.com/saifjishan/chatmeme/internal/repository"
	"github.com/saifjishan/chatmeme/internal/service"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.NewDefault()
	logger.SetDefaultLogger(logg)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		logg.Fatalf("Failed to initialize database: %v", err)
	}
	historyRepo := repository.NewHistoryRepository(db)

	// Initialize caches
	imageCache, err := buildImageCache(cfg)
	if err != nil {
		logg.Fatalf("Failed to initialize image cache: %v", err)
	}
	analysisCache, err := buildAnalysisCache(cfg)
	if err != nil {
		logg.Fatalf("Failed to initialize analysis cache: %v", err)
	}

	// Initialize services
	analyzer := service.NewAnalyzerService(&service.AnalyzerConfig{
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Cache:   analysisCache,
	})

	chatter := service.NewChatService(&service.ChatConfig{
		Model:   cfg.LLM.ChatModel,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	})

	retriever := service.NewRetrieverService(&service.RetrieverConfig{
		BaseURL:      cfg.Search.BaseURL,
		APIKey:       cfg.Search.APIKey,
		RetryCount:   cfg.Search.RetryCount,
		RetryBackoff: cfg.Search.RetryBackoff,
	})

	var remover service.BackgroundRemover = service.NoopBackgroundRemover{}
	if cfg.BgRemoval.Enabled {
		remover = service.NewHTTPBackgroundRemover(&service.BgRemovalConfig{
			Endpoint: cfg.BgRemoval.Endpoint,
			APIKey:   cfg.BgRemoval.APIKey,
		})
		logg.Info("Background removal enabled")
	}

	compositor := service.NewCompositorService(&service.CompositorConfig{
		Cache:        imageCache,
		Remover:      remover,
		Padding:      cfg.Compose.Padding,
		MinSize:      cfg.Compose.MinSize,
		MaxSize:      cfg.Compose.MaxSize,
		TextMaxWidth: cfg.Compose.TextMaxWidth,
	})

	orchestrator := service.NewOrchestratorService(&service.OrchestratorConfig{
		Analyzer:    analyzer,
		Retriever:   retriever,
		Compositor:  compositor,
		Chatter:     chatter,
		History:     historyRepo,
		ResultCount: cfg.Search.ResultCount,
	})

	// Setup router
	router := api.SetupRouter(orchestrator, historyRepo, logg, &cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logg.Infof("Starting API server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Fatalf("Server forced to shutdown: %v", err)
	}

	logg.Info("Server exited")
}

// buildImageCache selects the image cache backend: local disk by
// default, S3 for multi-replica deployments.
func buildImageCache(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Image.Backend {
	case "s3":
		s3cfg := cfg.Cache.Image.S3
		store, err := cache.NewS3Store(&cache.S3Config{
			Endpoint:  s3cfg.Endpoint,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			UseSSL:    s3cfg.UseSSL,
			Bucket:    s3cfg.Bucket,
			Region:    s3cfg.Region,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(context.Background()); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return cache.NewDiskStore(cfg.Cache.Image.Path)
	}
}

// buildAnalysisCache selects the analysis cache backend: in-process
// LRU by default, Redis when processes should share results.
func buildAnalysisCache(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Analysis.Backend {
	case "redis":
		return cache.NewRedisStore(&cache.RedisConfig{
			Addr:     cfg.Cache.Analysis.RedisAddr,
			Password: cfg.Cache.Analysis.RedisPass,
			DB:       cfg.Cache.Analysis.RedisDB,
			Prefix:   "chatmeme:",
			TTL:      cfg.Cache.Analysis.TTL,
		})
	default:
		return cache.NewMemoryStore(cfg.Cache.Analysis.Size, cfg.Cache.Analysis.TTL), nil
	}
}
