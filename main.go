package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sfhs/storefront/config"
	"sfhs/storefront/internal/scraper"
	"sfhs/storefront/internal/server"
	"sfhs/storefront/logger"
	"sfhs/storefront/services/cache"
	"sfhs/storefront/services/ledger"
	"sfhs/storefront/services/publisher"
	"sfhs/storefront/services/store"
	"sfhs/storefront/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Dur("refresh_interval", cfg.RefreshInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Build the resolver over the full fallback chain
	resolver := scraper.NewResolver(
		scraper.NewListingCache(),
		scraper.DefaultStrategies(cfg.Headless, cfg.DisablePointerSim),
	)

	// Start the directory refresh worker
	w := worker.NewWorker(
		ctx,
		services.Store,
		resolver,
		services.Publisher,
		services.Cache,
		cfg.RefreshInterval,
		cfg.RefreshBatchSize,
		cfg.RefreshBatchDelay,
		cfg.RefreshCooldown,
	)
	go func() {
		log.Info().Msg("Starting directory refresh worker")
		w.Start()
	}()

	// Start the HTTP server
	srv := server.NewServer(services.Store, services.Ledger, resolver)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Router(),
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("HTTP server listening")
		serverDone <- httpServer.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server exited with error")
		}
	}

	// Graceful shutdown
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Store     *store.RedisStore
	Ledger    *ledger.Ledger
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize document store
	services.Store = store.NewRedisStore(cfg.RedisAddr, cfg.RedisDB)
	logger.Info("Connected to Redis at %s (DB: %d)", cfg.RedisAddr, cfg.RedisDB)

	// Initialize purchase ledger
	l, err := ledger.NewLedger(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open purchase ledger: %w", err)
	}
	services.Ledger = l
	logger.Info("Purchase ledger at %s", cfg.LedgerPath)

	// Initialize cooldown cache
	services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize directory update publisher
	services.Publisher = publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamMaxLen,
	)
	logger.Info("Publishing directory updates to stream %s", cfg.RedisStream)

	return services, nil
}
