package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/inbox"
	"github.com/meikuraledutech/flow/memory"
	"github.com/meikuraledutech/flow/postgres"
	"github.com/meikuraledutech/flow/redis"
	"github.com/meikuraledutech/flow/sqlite"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	store, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		logger.Error("open store", slog.String("store", cfg.Store), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	svc := flow.NewService(store)

	if cfg.ImportDir != "" {
		w, err := inbox.Watch(cfg.ImportDir, svc, inbox.Config{Logger: logger})
		if err != nil {
			logger.Error("watch inbox", slog.String("dir", cfg.ImportDir), slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer w.Close()
	}

	app := newApp(svc, logger)

	logger.Info("listening", slog.String("addr", cfg.Addr), slog.String("store", cfg.Store))
	if err := app.Listen(cfg.Addr); err != nil {
		logger.Error("listen", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *Config) (flow.Store, func(), error) {
	switch cfg.Store {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(pool)
		if err := store.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return redis.New(client, ""), func() { client.Close() }, nil
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return memory.New(), func() {}, nil
	}
}
