package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/g33ktony/diecast-manager/internal/api"
	"github.com/g33ktony/diecast-manager/internal/cache"
	"github.com/g33ktony/diecast-manager/internal/config"
	"github.com/g33ktony/diecast-manager/internal/database"
	"github.com/g33ktony/diecast-manager/internal/limiter"
	"github.com/g33ktony/diecast-manager/internal/logger"
	"github.com/g33ktony/diecast-manager/internal/repo"
	"github.com/g33ktony/diecast-manager/internal/router"
	"github.com/g33ktony/diecast-manager/internal/service"
)

// initConfigAndLogger 初始化配置和日志器
func initConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %v", err)
	}

	return cfg, lg, nil
}

// initDatabase 初始化数据库连接并执行迁移。
// 迁移在HTTP服务器启动前完成，保证处理请求时表结构就绪。
func initDatabase(cfg *config.Config, lg *zap.Logger) (*database.DB, error) {
	db, err := database.New(cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	migrationsDir := cfg.Migrations.Dir
	lg.Sugar().Infow("using migrations directory", "path", migrationsDir)

	if err := db.RunMigrations(migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %v", err)
	}

	return db, nil
}

// initCache 初始化缓存实例，Redis不可用时回退到内存缓存
func initCache(cfg *config.Config, lg *zap.Logger) cache.Cache {
	if !cfg.Cache.Enabled {
		lg.Sugar().Infow("cache disabled")
		return cache.NewNullCache()
	}

	switch cfg.Cache.Type {
	case "redis":
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		redisCache, err := cache.NewRedisCache(redisAddr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Sugar().Warnw("failed to connect to Redis, falling back to memory cache", "error", err)
			return cache.NewMemoryCache()
		}
		lg.Sugar().Infow("cache enabled", "type", "redis", "addr", redisAddr, "ttl", cfg.Cache.TTL)
		return redisCache
	case "memory":
		lg.Sugar().Infow("cache enabled", "type", "memory", "ttl", cfg.Cache.TTL)
		return cache.NewMemoryCache()
	default:
		lg.Sugar().Warnw("unknown cache type, using memory cache", "type", cfg.Cache.Type)
		return cache.NewMemoryCache()
	}
}

// initWriteLimiter 初始化写接口限流器。
// 限流依赖Redis做分布式计数，缓存未走Redis时直接跳过。
func initWriteLimiter(cfg *config.Config, cacheInstance cache.Cache, lg *zap.Logger) limiter.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}

	redisCache, ok := cacheInstance.(*cache.RedisCache)
	if !ok {
		lg.Sugar().Warnw("rate limiting requires redis cache, disabled")
		return nil
	}

	lg.Sugar().Infow("write rate limiting enabled",
		"rate", cfg.RateLimit.Rate,
		"burst", cfg.RateLimit.Burst,
		"window", cfg.RateLimit.Window,
	)
	return limiter.NewTokenBucketLimiter(redisCache.Client(), &limiter.Config{
		Rate:      cfg.RateLimit.Rate,
		Window:    cfg.RateLimit.Window,
		Burst:     cfg.RateLimit.Burst,
		KeyPrefix: "ratelimit:write",
	})
}

// initDependencies 初始化依赖注入链：仓储 -> 服务 -> API处理器
func initDependencies(cfg *config.Config, db *database.DB, cacheInstance cache.Cache, lg *zap.Logger) *router.Dependencies {
	inventoryRepo := repo.NewInventoryRepository(db.DB)
	deliveryRepo := repo.NewDeliveryRepository(db.DB)
	purchaseRepo := repo.NewPurchaseRepository(db.DB)
	saleRepo := repo.NewSaleRepository(db.DB)
	customerRepo := repo.NewCustomerRepository(db.DB)

	// 目录是读多写少的数据，套缓存装饰器
	var catalogRepo repo.CatalogRepository = repo.NewCatalogRepository(db.DB)
	if cfg.Cache.Enabled {
		catalogRepo = repo.NewCachedCatalogRepository(catalogRepo, cacheInstance, cfg.Cache.TTL)
	}

	authService := service.NewAuthService(cfg, lg)
	catalogService := service.NewCatalogService(catalogRepo, lg)
	inventoryService := service.NewInventoryService(inventoryRepo, catalogRepo)
	saleService := service.NewSaleService(saleRepo, inventoryRepo, lg)
	deliveryService := service.NewDeliveryService(deliveryRepo, inventoryRepo, customerRepo, saleService, lg)
	purchaseService := service.NewPurchaseService(purchaseRepo, inventoryRepo, deliveryRepo, saleRepo, lg)
	boxService := service.NewBoxService(inventoryRepo, lg)

	return &router.Dependencies{
		AuthHandler:      api.NewAuthHandler(authService, lg),
		InventoryHandler: api.NewInventoryHandler(inventoryService, lg),
		DeliveryHandler:  api.NewDeliveryHandler(deliveryService, lg),
		PurchaseHandler:  api.NewPurchaseHandler(purchaseService, lg),
		SaleHandler:      api.NewSaleHandler(saleService, lg),
		BoxHandler:       api.NewBoxHandler(boxService, lg),
		CatalogHandler:   api.NewCatalogHandler(catalogService, lg),
		AuthService:      authService,
		WriteLimiter:     initWriteLimiter(cfg, cacheInstance, lg),
	}
}

// startServer 启动服务器并处理优雅关闭
func startServer(cfg *config.Config, handler http.Handler, lg *zap.Logger) {
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	lg.Sugar().Infow("server starting", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	select {
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			lg.Sugar().Fatalw("server error", "err", err)
		}
	case <-quit:
		lg.Sugar().Infow("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Sugar().Errorw("server shutdown error", "err", err)
	}
	lg.Sugar().Infow("server exited")
}

// main 为应用入口，协调各个组件的初始化和启动
func main() {
	cfg, lg, err := initConfigAndLogger()
	if err != nil {
		log.Fatalf("failed to initialize config and logger: %v", err)
	}

	db, err := initDatabase(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize database", "err", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Sugar().Errorw("failed to close database connection", "err", err)
		}
	}()

	cacheInstance := initCache(cfg, lg)
	defer func() {
		if err := cacheInstance.Close(); err != nil {
			lg.Sugar().Errorw("failed to close cache", "err", err)
		}
	}()

	deps := initDependencies(cfg, db, cacheInstance, lg)
	handler := router.New().Setup(cfg, deps, lg)

	startServer(cfg, handler, lg)
}
