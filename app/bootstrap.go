package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"medicare-pro/internal/auth"
	"medicare-pro/internal/booking"
	"medicare-pro/internal/catalog"
	"medicare-pro/internal/config"
	"medicare-pro/internal/db"
	"medicare-pro/internal/maintenance"
	"medicare-pro/internal/observability"
	"medicare-pro/internal/patient"
)

type Options struct {
	LoadDotEnv bool
	// ForceMigrations runs migrations even when RUN_MIGRATIONS_ON_STARTUP is off.
	ForceMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Addr    string
	Logger  *observability.Logger
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	cfg, err := config.Load(options.LoadDotEnv)
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.IsDevelopment())

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv, cfg.Release); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}
	observability.InitMetrics()

	database, err := sql.Open("pgx", cfg.DB.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	database.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	database.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DB.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if options.ForceMigrations || cfg.RunMigrationsOnStartup {
		if err := db.RunMigrations(ctx, database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	patients := patient.NewRepository(database)
	issuer := auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	authService := auth.NewService(patients, issuer)

	revocations := auth.NewRevocationRepository(database)
	if cfg.Auth.RefreshRevocation {
		authService.WithRevocation(revocations)
	}

	handler := NewRouter(Deps{
		Logger:       logger,
		Auth:         authService,
		LoginLimiter: auth.NewLoginRateLimiter(cfg.Auth.LoginRateLimitMax, cfg.Auth.LoginRateLimitSpan),
		Tests:        catalog.NewRepository(database),
		Bookings:     booking.NewRepository(database),
		Cleanup:      maintenance.NewCleanupHandler(revocations, logger, cfg.CronSecret, cfg.CleanupBatchSize),
		Health:       database,
	})

	logger.Info("runtime_ready", map[string]any{
		"env":                cfg.AppEnv,
		"access_token_ttl":   cfg.Auth.AccessTokenTTL.String(),
		"refresh_token_ttl":  cfg.Auth.RefreshTokenTTL.String(),
		"refresh_revocation": cfg.Auth.RefreshRevocation,
	})

	return &Runtime{
		Handler: handler,
		Addr:    cfg.Addr(),
		Logger:  logger,
		Close: func() error {
			observability.FlushSentry()
			_ = logger.Sync()
			return database.Close()
		},
	}, nil
}
