package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wyfcoding/spotexchange/internal/exchange/application"
	"github.com/wyfcoding/spotexchange/internal/exchange/domain"
	"github.com/wyfcoding/spotexchange/internal/exchange/infrastructure/messaging"
	file_snap "github.com/wyfcoding/spotexchange/internal/exchange/infrastructure/persistence/file"
	redis_snap "github.com/wyfcoding/spotexchange/internal/exchange/infrastructure/persistence/redis"
	redis_transport "github.com/wyfcoding/spotexchange/internal/exchange/infrastructure/transport/redis"
	"github.com/wyfcoding/spotexchange/pkg/cache"
	"github.com/wyfcoding/spotexchange/pkg/config"
	"github.com/wyfcoding/spotexchange/pkg/logger"
	"github.com/wyfcoding/spotexchange/pkg/metrics"
	"github.com/wyfcoding/spotexchange/pkg/mq"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/engine/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	log := logger.Get()

	// 3. Metrics
	m := metrics.New("engine")
	if err := m.Register(); err != nil {
		panic(fmt.Sprintf("register metrics failed: %v", err))
	}
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("metrics server exited", "error", err)
			}
		}()
	}

	// 4. Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		panic(fmt.Sprintf("connect redis failed: %v", err))
	}
	defer redisCache.Close()

	// 5. Snapshot store
	var snapshots domain.SnapshotRepository
	switch cfg.Engine.SnapshotStore {
	case "redis":
		snapshots = redis_snap.NewSnapshotRepository(redisCache)
	default:
		snapshots, err = file_snap.NewSnapshotRepository(cfg.Engine.SnapshotPath)
		if err != nil {
			panic(fmt.Sprintf("init snapshot store failed: %v", err))
		}
	}

	// 6. Kafka trade stream (optional)
	var trades application.TradeStream
	if cfg.Kafka.Enabled {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			panic(fmt.Sprintf("init kafka producer failed: %v", err))
		}
		defer producer.Close()
		trades = messaging.NewKafkaTradeStream(producer, cfg.Kafka.TradeTopic)
	}

	// 7. Engine
	publisher := redis_transport.NewPublisher(redisCache)
	engine := application.NewMatchingEngine(
		application.Options{
			Markets:          cfg.Engine.Markets,
			SeedBalances:     cfg.Engine.SeedBalances,
			SnapshotInterval: time.Duration(cfg.Engine.SnapshotInterval) * time.Second,
		},
		snapshots,
		redis_transport.NewCommandConsumer(redisCache),
		publisher,
		publisher,
		publisher,
		trades,
		m,
		log,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := engine.Bootstrap(ctx); err != nil {
		panic(fmt.Sprintf("bootstrap engine failed: %v", err))
	}

	log.Info("matching engine started",
		"markets", cfg.Engine.Markets, "snapshot_store", cfg.Engine.SnapshotStore)

	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("engine exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("matching engine shut down")
}
