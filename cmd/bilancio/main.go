package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/cache"
	"bilancio/internal/config"
	"bilancio/internal/exchange"
	apphttp "bilancio/internal/http"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", log.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully", log.FieldOperation, log.OpShutdown)
}

func run(cfg *config.Config, logger *log.Logger) error {
	var store storage.Store
	switch cfg.DataBackend {
	case "sqlite":
		sqliteStore, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		store = sqliteStore
		logger.Info("initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		store = storage.NewMemoryStore()
		logger.Info("initialized memory backend")
	}

	codesCache := cache.NewLRUCache[[]exchange.CurrencyCode](cfg.CurrencyCacheSize, cfg.CurrencyCodesTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(codesCache)
	cacheManager.StartCleanup(cfg.CacheCleanInterval)
	defer cacheManager.Stop()

	rates := exchange.NewClient(cfg.ExchangeAPIURL, cfg.ExchangeAPIKey,
		cfg.ExchangeTimeout, codesCache, logger)

	srv := apphttp.NewServer(":"+cfg.Port, cfg.ReadTimeout, cfg.WriteTimeout, apphttp.Deps{
		Accounts:   services.NewAccountService(store, logger),
		Periods:    services.NewPeriodService(store, logger),
		Folders:    services.NewFolderService(store, logger),
		Categories: services.NewCategoryService(store, logger),
		Accounting: services.NewAccountingService(store, rates, logger),
		Currencies: rates,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", log.FieldOperation, log.OpStartup, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
