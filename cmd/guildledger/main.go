package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"guild-ledger/internal/analytics"
	"guild-ledger/internal/audit"
	"guild-ledger/internal/bot"
	"guild-ledger/internal/config"
	"guild-ledger/internal/debounce"
	"guild-ledger/internal/economy"
	"guild-ledger/internal/httpapi"
	"guild-ledger/internal/jobs"
	"guild-ledger/internal/leveling"
	"guild-ledger/internal/prefix"
	"guild-ledger/internal/storage"
	"guild-ledger/internal/storage/postgres"
	"guild-ledger/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer backend.Close()
	if err := backend.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	logger.Info("storage ready", zap.String("driver", cfg.Storage.Driver))

	ledgerLog := audit.NewLogger(backend, logger, cfg.Economy.TransactionRetention)
	spamWindows := utils.NewWindowSet(time.Duration(cfg.Leveling.SpamWindowSeconds) * time.Second)
	announced := debounce.NewCache(time.Duration(cfg.Announcements.DebounceMillis) * time.Millisecond)

	econ := economy.NewService(backend, cfg.Economy, ledgerLog, logger)
	levels := leveling.NewService(backend, cfg.Leveling, spamWindows, logger)
	stats := analytics.New(backend)
	prefixes := prefix.NewManager(backend, cfg.Prefix.Default, logger)
	if err := prefixes.Load(ctx); err != nil {
		logger.Fatal("prefix load failed", zap.Error(err))
	}

	botSvc, err := bot.New(cfg, logger, bot.Services{
		Economy:   econ,
		Leveling:  levels,
		Prefixes:  prefixes,
		Analytics: stats,
		Announced: announced,
	})
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	scheduler, err := jobs.NewScheduler(ctx, cfg.Jobs, ledgerLog, map[string]jobs.Sweeper{
		"announcements": announced,
		"spam_windows":  jobs.SweepFunc(levels.SweepWindows),
	}, logger)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := botSvc.Start(); err != nil {
			return fmt.Errorf("bot start: %w", err)
		}
		logger.Info("bot started")
		<-gctx.Done()
		botSvc.Close()
		return nil
	})

	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	if cfg.HTTP.Enabled {
		handler := httpapi.NewHandler(econ, levels, stats, cfg.Economy.LeaderboardDefaultTop, logger)
		server := httpapi.NewServer(cfg.HTTP.Addr, handler)
		g.Go(func() error {
			logger.Info("http api enabled", zap.String("addr", cfg.HTTP.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	<-gctx.Done()
	logger.Info("shutdown requested")
	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
}

func openBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	if cfg.Driver == config.DriverPostgres {
		store, err := postgres.New(ctx, cfg.URL, postgres.PoolOptions{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := storage.New(cfg.Path)
	if err != nil {
		return nil, err
	}
	return store, nil
}
