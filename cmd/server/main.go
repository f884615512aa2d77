package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/prospector/internal/config"
	"github.com/JonMunkholm/prospector/internal/events"
	"github.com/JonMunkholm/prospector/internal/importer"
	"github.com/JonMunkholm/prospector/internal/lock"
	"github.com/JonMunkholm/prospector/internal/logging"
	"github.com/JonMunkholm/prospector/internal/prospect"
	"github.com/JonMunkholm/prospector/internal/store/memory"
	"github.com/JonMunkholm/prospector/internal/store/postgres"
	"github.com/JonMunkholm/prospector/internal/web"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// store is what both services need from the persistence backend.
type store interface {
	importer.Store
	prospect.Store
	Ping(ctx context.Context) error
	Close()
}

func main() {
	// Overload lets a local .env win over the shell environment.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	db, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	aliases := importer.DefaultAliases()
	if cfg.Import.AliasesFile != "" {
		aliases, err = importer.LoadAliases(cfg.Import.AliasesFile)
		if err != nil {
			slog.Error("failed to load header aliases", "file", cfg.Import.AliasesFile, "error", err)
			os.Exit(1)
		}
		slog.Info("header aliases loaded", "file", cfg.Import.AliasesFile, "fields", len(aliases))
	}

	var opts []importer.Option

	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("failed to reach redis", "error", err)
			os.Exit(1)
		}
		opts = append(opts, importer.WithLocker(lock.NewRedis(rdb, "prospector:lock:")))
		slog.Info("import locking enabled")
	}

	if cfg.Events.AMQPURL != "" {
		pub, err := events.NewRabbitMQ(cfg.Events.AMQPURL)
		if err != nil {
			slog.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		opts = append(opts, importer.WithPublisher(pub))
		slog.Info("import events enabled", "exchange", events.ExchangeName)
	}

	prospects := prospect.NewService(db)
	imports := importer.NewService(db, prospects, importer.Config{
		ChunkSize:     cfg.Import.ChunkSize,
		MaxFileSize:   cfg.Import.MaxFileSize,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWaitTime:   cfg.Import.MaxWaitTime,
		Timeout:       cfg.Import.Timeout,
		LockTTL:       cfg.Redis.LockTTL,
		Aliases:       aliases,
	}, opts...)

	server := web.NewServer(cfg, imports, prospects, db)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := imports.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := imports.Drain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	if cfg.Store.Driver == config.DriverMemory {
		slog.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	}

	pg, err := postgres.Open(ctx, cfg.Database.URL, postgres.PoolConfig{
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Store.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		slog.Info("schema migrated")
	}
	return pg, nil
}
