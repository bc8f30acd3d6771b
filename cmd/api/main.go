package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plumbstore/internal/auth"
	"plumbstore/internal/config"
	"plumbstore/internal/database"
	"plumbstore/internal/events"
	"plumbstore/internal/handler"
	"plumbstore/internal/metrics"
	"plumbstore/internal/model"
	"plumbstore/internal/repository"
	"plumbstore/internal/router"
	"plumbstore/internal/service"
	"plumbstore/internal/storage"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting plumbstore API server")

	// Money is rendered as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	catalogRepo := repository.NewCatalogRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	requestRepo := repository.NewPlumberRequestRepository(pool, logger)

	images := newImageStore(ctx, cfg, logger)

	publisher, err := newPublisher(cfg.RabbitMQ, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	defer publisher.Close()

	var (
		recorder metrics.Recorder = metrics.Nop{}
		registry *metrics.Metrics
	)
	if cfg.Metrics.Enabled {
		registry = metrics.New()
		recorder = registry
	}

	policy := model.TransitionPolicy(cfg.Orders.StatusPolicy)

	// Initialize services
	catalogService := service.NewCatalogService(catalogRepo, logger)
	cartService := service.NewCartService(cartRepo, catalogRepo, recorder, logger)
	orderService := service.NewOrderService(orderRepo, cartRepo, catalogRepo, publisher, recorder, service.OrderOptions{
		Policy:               policy,
		AllowExternalPricing: cfg.Orders.AllowExternalPricing,
	}, logger)
	requestService := service.NewPlumberRequestService(requestRepo, images, publisher, recorder, service.PlumberRequestOptions{
		Policy:                   policy,
		RatingRequiresCompletion: cfg.Orders.RatingRequiresCompletedStatus,
	}, logger)

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Catalog:        handler.NewCatalogHandler(catalogService, logger),
		Cart:           handler.NewCartHandler(cartService, logger),
		Order:          handler.NewOrderHandler(orderService, logger),
		PlumberRequest: handler.NewPlumberRequestHandler(requestService, cfg.Storage.MaxUploadBytes, logger),
	}

	// Initialize router
	mux := router.New(handlers, auth.NewVerifier(cfg.Auth.JWTSecret), registry, pool, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("status_policy", cfg.Orders.StatusPolicy).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newImageStore stores uploads on S3 when enabled, with the local upload directory as fallback.
func newImageStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) storage.ImageStore {
	local := storage.NewLocalStore(cfg.Storage.UploadDir, logger)
	if !cfg.S3.Enabled {
		logger.Info().Str("dir", cfg.Storage.UploadDir).Msg("using local file system for uploads (S3 disabled)")
		return local
	}

	s3Store, err := storage.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 store, falling back to local file system only")
		return local
	}
	return storage.NewFallbackStore(s3Store, local, logger)
}

func newPublisher(cfg config.RabbitMQConfig, logger zerolog.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		logger.Info().Msg("domain events disabled (RabbitMQ disabled)")
		return events.NopPublisher{}, nil
	}
	publisher, err := events.NewRabbitPublisher(cfg.URL, cfg.Exchange, logger)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}
