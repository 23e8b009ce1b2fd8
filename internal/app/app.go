// Package app wires configuration, storage, the URL use case and the HTTP server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/short-links/internal/adapter/repository/memory"
	"github.com/vadimbarashkov/short-links/internal/config"
	"github.com/vadimbarashkov/short-links/internal/entity"
	"github.com/vadimbarashkov/short-links/internal/shortcode"
	"github.com/vadimbarashkov/short-links/internal/usecase"
	"github.com/vadimbarashkov/short-links/pkg/postgres"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/short-links/internal/adapter/delivery/http"
	pgrepo "github.com/vadimbarashkov/short-links/internal/adapter/repository/postgres"
	redisrepo "github.com/vadimbarashkov/short-links/internal/adapter/repository/redis"
)

const shutdownTimeout = 10 * time.Second

type urlRepository interface {
	Insert(ctx context.Context, url *entity.URL) error
	FindByCode(ctx context.Context, code string) (*entity.URL, error)
	ListAll(ctx context.Context) ([]*entity.URL, error)
	Update(ctx context.Context, id string, mutate func(*entity.URL) error) (*entity.URL, error)
	Remove(ctx context.Context, id string) error
}

func NewLogger(cfg *config.Config) *httplog.Logger {
	level := slog.LevelInfo
	if cfg.Env == config.EnvDev {
		level = slog.LevelDebug
	}

	return httplog.NewLogger("short-links", httplog.Options{
		LogLevel:       level,
		JSON:           cfg.Env != config.EnvDev,
		Concise:        cfg.Env == config.EnvDev,
		RequestHeaders: cfg.Env != config.EnvProd,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})
}

func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	urlRepo, closeRepo, err := newURLRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Error("failed to close storage", slog.String("op", op), slog.Any("err", err))
		}
	}()

	logger.Info("storage ready", slog.String("driver", cfg.Storage.Driver))

	urlUseCase := usecase.New(
		urlRepo,
		shortcode.NewGenerator(cfg.ShortCodeLength),
		usecase.WithMaxActive(cfg.Lifecycle.MaxActive),
		usecase.WithMaxRetries(cfg.Lifecycle.MaxRetries),
		usecase.WithBaseURL(cfg.BaseURL),
	)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, urlUseCase, cfg.Lifecycle.DefaultValidity),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	if cfg.Sweeper.Enabled() {
		g.Go(func() error {
			runSweeper(ctx, urlUseCase, cfg.Sweeper, logger.Logger)
			return nil
		})
	}

	return g.Wait()
}

// newURLRepository opens the store selected by cfg.Storage.Driver.
// The returned func releases its connections.
func newURLRepository(ctx context.Context, cfg *config.Config) (urlRepository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.NewURLRepository(), noop, nil

	case config.DriverPostgres:
		if err := postgres.RunMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.DSN()); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		db, err := postgres.New(
			ctx,
			cfg.Postgres.DSN(),
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		return pgrepo.NewURLRepository(db), db.Close, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		return redisrepo.NewURLRepository(client, cfg.Redis.KeyPrefix), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

type purger interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int, error)
}

// runSweeper purges URLs expired for longer than the retention until ctx is done.
func runSweeper(ctx context.Context, p purger, cfg config.Sweeper, logger *slog.Logger) {
	const op = "app.runSweeper"

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := p.PurgeExpired(ctx, cfg.Retention)
			if err != nil {
				logger.Error("failed to purge expired urls", slog.String("op", op), slog.Any("err", err))
				continue
			}

			if purged > 0 {
				logger.Info("purged expired urls", slog.Int("count", purged))
			}
		}
	}
}
