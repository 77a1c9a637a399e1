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

	gorm_mysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/wyfcoding/spotexchange/internal/dbwriter/application"
	"github.com/wyfcoding/spotexchange/internal/dbwriter/domain"
	db_mysql "github.com/wyfcoding/spotexchange/internal/dbwriter/infrastructure/persistence/mysql"
	db_redis "github.com/wyfcoding/spotexchange/internal/dbwriter/infrastructure/transport/redis"
	"github.com/wyfcoding/spotexchange/pkg/cache"
	"github.com/wyfcoding/spotexchange/pkg/config"
	"github.com/wyfcoding/spotexchange/pkg/logger"
	"github.com/wyfcoding/spotexchange/pkg/metrics"
	"github.com/wyfcoding/spotexchange/pkg/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/dbwriter/config.toml", "path to config file")
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
	m := metrics.New("dbwriter")
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

	// 4. MySQL（启动时数据库可能尚未就绪，带重试）
	var db *gorm.DB
	err = utils.Retry(5, 2*time.Second, func() error {
		var openErr error
		db, openErr = gorm.Open(gorm_mysql.Open(cfg.Database.DSN), &gorm.Config{})
		return openErr
	})
	if err != nil {
		panic(fmt.Sprintf("connect db failed: %v", err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("get sql db failed: %v", err))
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := db.AutoMigrate(&domain.Trade{}, &domain.Order{}); err != nil {
		panic(fmt.Sprintf("migrate tables failed: %v", err))
	}

	// 5. Redis
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

	// 6. Writer
	writer := application.NewWriter(
		db_redis.NewEventConsumer(redisCache),
		db_mysql.NewTradeRepository(db),
		db_mysql.NewOrderRepository(db),
		m,
		log,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("db writer started")
	if err := writer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("db writer exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("db writer shut down")
}
