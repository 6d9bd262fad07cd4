package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"craftstock/backend/internal/cache"
	"craftstock/backend/internal/config"
	"craftstock/backend/internal/httpapi"
	"craftstock/backend/internal/kiosk"
	"craftstock/backend/internal/service"
	"craftstock/backend/internal/store"
	"craftstock/backend/internal/store/memory"
	pgstore "craftstock/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
				log.Fatal().Err(err).Msg("apply migrations")
			}
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, pgstore.Options{
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Str("repository", "postgres").Msg("repository ready")
	} else {
		repo = memory.NewSeeded()
		log.Info().Str("repository", "memory").Msg("repository ready")
	}

	costCache := cache.CostCache(cache.NoopCostCache{})
	locker := kiosk.Locker(kiosk.NewLocalLocker())
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCostCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop cost cache and local kiosk lock")
		} else {
			costCache = redisCache
			locker = kiosk.NewRedisLocker(redisCache.Client())
			closers = append(closers, redisCache.Close)
			log.Info().Str("cache", "redis").Msg("cost cache ready")
		}
	} else {
		log.Info().Str("cache", "noop").Msg("cost cache ready")
	}

	svc := service.New(repo, costCache, service.Options{
		CostCacheTTL:       cfg.CostCacheTTL(),
		AllowNegativeStock: cfg.StockAllowNegative,
		SKUMaxAttempts:     cfg.SKUMaxAttempts,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo)

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	scheduler := kiosk.New(repo, kiosk.Options{
		Enabled:    cfg.KioskMode,
		Interval:   cfg.KioskInterval(),
		Locker:     locker,
		AfterReset: svc.FlushCostCache,
	})
	scheduler.Start(runCtx)
	if scheduler.Enabled() {
		log.Info().Dur("interval", cfg.KioskInterval()).Msg("kiosk mode enabled")
	}

	api := httpapi.New(svc, auth, scheduler, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		AuthRequired:  cfg.AuthRequired,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Str("env", cfg.AppEnv).Msg("craftstock backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}

func setupLogger(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Production() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "craftstock").Logger()
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

func validateSecurityConfig(cfg config.Config) error {
	if !cfg.AuthRequired {
		if cfg.Production() && len(cfg.AuthSecret) < 32 {
			return fmt.Errorf("AUTH_SECRET must be at least 32 characters in production")
		}
		return nil
	}
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters when AUTH_REQUIRED is enabled")
	}
	return nil
}
