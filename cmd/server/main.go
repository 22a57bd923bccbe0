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

	"github.com/bitebudget/backend/config"
	httpDelivery "github.com/bitebudget/backend/internal/delivery/http"
	"github.com/bitebudget/backend/internal/domain"
	"github.com/bitebudget/backend/internal/infrastructure/cache"
	"github.com/bitebudget/backend/internal/infrastructure/events"
	"github.com/bitebudget/backend/internal/infrastructure/memory"
	"github.com/bitebudget/backend/internal/infrastructure/sqlite"
	"github.com/bitebudget/backend/internal/logger"
	"github.com/bitebudget/backend/internal/usecase"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Error("Server exited with error", zap.Error(err))
		zl.Sync()
		os.Exit(1)
	}
}

// storage bundles the repositories of the selected driver
type storage struct {
	lists    domain.ShoppingListRepository
	receipts domain.ReceiptRepository
	close    func() error
}

func openStorage(cfg config.StorageConfig, zl *zap.Logger) (*storage, error) {
	switch cfg.Driver {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLitePath, zl)
		if err != nil {
			return nil, err
		}
		return &storage{lists: repo, receipts: repo, close: repo.Close}, nil
	default:
		store := memory.NewStore()
		zl.Info("Using in-memory storage; data is lost on restart")
		return &storage{lists: store, receipts: store, close: func() error { return nil }}, nil
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	zl.Info("Starting BiteBudget backend",
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("cache", cfg.Cache.Type))

	// Initialize infrastructure dependencies
	store, err := openStorage(cfg.Storage, zl)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.close()

	var reportCache domain.CacheRepository
	if cfg.Cache.Type == "memory" {
		memoryCache := cache.NewMemoryCache(0)
		defer func() {
			zl.Info("Closing report cache", zap.Int("entries", memoryCache.Size()))
			memoryCache.Close()
		}()
		reportCache = memoryCache
		zl.Info("Report cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
	}

	var publisher domain.EventPublisher = events.NopPublisher{}
	if cfg.Events.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, cfg.Events.RoutingKey, zl)
		if err != nil {
			return fmt.Errorf("connect event broker: %w", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	// Initialize usecase layer
	matchOptions := usecase.MatchOptions{
		NameThreshold:          cfg.Matching.NameThreshold,
		PriceTolerance:         cfg.Matching.PriceTolerance,
		RequireNameAndCategory: cfg.Matching.RequireNameAndCategory,
		ClampSimilarity:        cfg.Matching.ClampSimilarity,
	}
	zl.Info("Matching configured",
		zap.Float64("name_threshold", matchOptions.NameThreshold),
		zap.Float64("price_tolerance", matchOptions.PriceTolerance),
		zap.Bool("require_name_and_category", matchOptions.RequireNameAndCategory),
		zap.Bool("clamp_similarity", matchOptions.ClampSimilarity))

	handler := httpDelivery.NewHandler(
		usecase.NewShoppingListService(store.lists, zl),
		usecase.NewReceiptService(store.receipts, zl),
		usecase.NewReconciliationService(store.lists, store.receipts, reportCache, publisher, zl,
			usecase.ReconciliationServiceConfig{
				CacheTTL: cfg.Cache.TTL,
				Match:    matchOptions,
			}),
		zl,
	)

	limiter := httpDelivery.NewRateLimiter(cfg.RateLimit.PerIP, cfg.RateLimit.Burst)
	defer limiter.Close()

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, limiter, zl)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zl.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zl.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	zl.Info("Server stopped gracefully")
	return nil
}
