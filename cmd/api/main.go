package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/events"
	"storefront/internal/infra/metrics"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/logger"
	"storefront/internal/server"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	//カートキャッシュ（REDIS_ADDRが無ければ使わない）
	var cartCache cache.CartCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, cart cache disabled", zap.Error(err))
		} else {
			cartCache = cache.NewRedisCartCache(rdb, cfg.CartCacheTTL)
		}
	}

	//注文イベント（KAFKA_BROKERSが無ければ送らない）
	var publisher events.OrderPublisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaOrderPublisher(cfg.KafkaBrokers, cfg.OrderTopic)
		defer kp.Close()
		publisher = kp
	}

	//メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	checkoutRepo := infraRepo.NewCheckoutGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	clock := usecase.RealClock{}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(
		userRepo,
		validator.NewAuthValidator(userRepo),
		usecase.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL),
		usecase.UUIDGenerator{},
		clock,
		log,
	)
	productUC := usecase.NewProductUsecase(productRepo)
	cartUC := usecase.NewCartUsecase(txm, cartRepo, productRepo, cartCache, m, log)
	checkoutUC := usecase.NewCheckoutUsecase(txm, checkoutRepo, cartRepo, cartCache, publisher, m, clock, log)
	orderUC := usecase.NewOrderUsecase(orderRepo)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo, m, clock, log)

	//Handler生成
	e := server.New(cfg, log, userRepo, server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Checkout:     handler.NewCheckoutHandler(checkoutUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		Health:       handler.NewHealthHandler(sqlDB),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	//Server起動
	return server.Start(ctx, e, cfg, log)
}
