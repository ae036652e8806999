package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderdesk/internal/config"
	"orderdesk/internal/coupon"
	"orderdesk/internal/database"
	"orderdesk/internal/handler"
	"orderdesk/internal/repository"
	"orderdesk/internal/router"
	"orderdesk/internal/service"

	"github.com/rs/zerolog"
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
	logger.Info().Msg("starting orderdesk API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	buyerRepo := repository.NewBuyerRepository(logger)
	journalRepo := repository.NewJournalRepository(pool, logger)

	intakeOpts := service.IntakeOptions{
		Numbers:        service.NewOrderNumberGenerator(cfg.Order.OrderNumberPrefix),
		DefaultCountry: cfg.Order.DefaultCountry,
	}

	if cfg.Coupon.Enabled {
		validator, err := newCouponValidator(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize coupon validator: %w", err)
		}
		defer validator.Close()
		intakeOpts.Coupons = validator
	} else {
		logger.Info().Msg("coupon validation disabled")
	}

	// Initialize services
	policy := service.NewTransitionPolicy(cfg.Order.TransitionPolicy)
	orderService := service.NewOrderService(
		service.NewOrderIntake(orderRepo, productRepo, buyerRepo, journalRepo, intakeOpts, logger),
		service.NewOrderStatusController(orderRepo, journalRepo, policy, logger),
		service.NewOrderQuery(orderRepo, journalRepo, cfg.Order.DefaultPageSize, cfg.Order.MaxPageSize, logger),
	)

	logger.Info().
		Str("transition_policy", cfg.Order.TransitionPolicy).
		Str("order_number_prefix", cfg.Order.OrderNumberPrefix).
		Msg("order engine configured")

	// Initialize HTTP handlers
	orderHandler := handler.NewOrderHandler(orderService, logger)

	// Initialize router
	mux := router.New(orderHandler, pool, router.Config{
		APIKey:      cfg.Auth.APIKey,
		TokenSecret: cfg.Auth.TokenSecret,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
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

// newCouponValidator loads the coupon registry, from S3 when enabled and
// from the local file system otherwise or on S3 failure.
func newCouponValidator(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (coupon.Validator, error) {
	fileLoader := coupon.NewFileLoader(logger)

	var s3Loader coupon.Loader
	if cfg.S3.Enabled {
		loader, err := coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = loader
		}
	} else {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
	}

	loader := coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)
	return coupon.NewValidator(ctx, cfg.Coupon.FilePaths, loader, logger)
}
