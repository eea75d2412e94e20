package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pointlist/internal/config"
	"pointlist/internal/database"
	httpapi "pointlist/internal/http"
	"pointlist/internal/logger"
	"pointlist/internal/notify"
	"pointlist/internal/service"
	"pointlist/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const purgeInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		ServiceName: "pointlist",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		staging     store.WorkbookStore
		redisClient *redis.Client
		db          *sql.DB
	)
	switch cfg.Staging.Backend {
	case config.StagingRedis:
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		staging = store.NewRedisStore(redisClient, cfg.Staging.TTL)
	case config.StagingPostgres:
		db, err = database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		pg := store.NewPostgresStore(db, cfg.Staging.TTL)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal("failed to prepare staging table", zap.Error(err))
		}
		go purgeLoop(ctx, pg, log)
		staging = pg
	default:
		staging = store.NewMemoryStore(cfg.Staging.TTL)
	}
	log.Info("staging backend ready", zap.String("backend", cfg.Staging.Backend), zap.Duration("ttl", cfg.Staging.TTL))

	var publisher notify.Publisher = notify.Nop{}
	if cfg.MQTT.Enabled {
		p, err := notify.NewMQTTPublisher(&cfg.MQTT, log)
		if err != nil {
			log.Warn("MQTT enabled but connection failed, export events disabled", zap.Error(err))
		} else {
			publisher = p
			log.Info("MQTT export events enabled", zap.String("broker", cfg.MQTT.Broker), zap.String("topic", cfg.MQTT.Topic))
		}
	}

	handler := httpapi.NewPointListHandler(staging, publisher, httpapi.HandlerOptions{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		PreviewMaxRows: cfg.Preview.MaxRows,
		MappingStrict:  cfg.MappingStrict,
	}, log)
	router := httpapi.NewRouter(log)
	router.RegisterPointListRoutes(handler)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	publisher.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	_ = database.Close(db)
}

// purgeLoop 定期清理过期的暂存工作簿
func purgeLoop(ctx context.Context, pg *store.PostgresStore, log *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := pg.PurgeExpired(ctx)
			if err != nil {
				log.Warn("failed to purge staged workbooks", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("purged expired staged workbooks", zap.Int64("rows", n))
			}
		}
	}
}
