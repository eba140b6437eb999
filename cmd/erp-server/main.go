package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/config"
	erpEntity "github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	erpHandler "github.com/CoderMariusz/MonoPilot-sub019/internal/erp/handler"
	erpRepo "github.com/CoderMariusz/MonoPilot-sub019/internal/erp/repository"
	erpService "github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting erp-server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := erpEntity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to auto-migrate ERP tables", zap.Error(err))
	}
	zapLogger.Info("ERP database migration completed")

	// redis 可选，未启用时缺货信号走 Nop sink
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			zapLogger.Warn("Redis unavailable, backorder signals disabled", zap.Error(err))
			rdb = nil
		}
	}

	// 初始化 ERP 依赖
	repos := erpRepo.NewRepositories(db)
	services := erpService.NewServices(repos.Store, repos.Sales, repos.LicensePlate, repos.Settings, rdb, zapLogger)
	handlers := erpHandler.NewHandlers(services)

	// 确定端口
	port := config.GetEnvOrDefault("ERP_PORT", "8081")

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 健康检查
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "erp-server"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "erp-server"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "erp-server"})
	})

	// 版本信息
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":    "erp-server",
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// ERP API v1
	v1 := router.Group("/api/v1/erp")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 销售订单与分配
		salesOrders := v1.Group("/sales-orders")
		{
			salesOrders.GET("", handlers.Sales.ListSOs)
			salesOrders.POST("", handlers.Sales.CreateSO)
			salesOrders.GET("/:id", handlers.Sales.GetSO)
			salesOrders.POST("/:id/confirm", handlers.Sales.ConfirmSO)
			salesOrders.POST("/:id/allocate", handlers.Allocation.Allocate)
			salesOrders.POST("/:id/release-allocation", handlers.Allocation.Release)
			salesOrders.GET("/:id/allocations", handlers.Allocation.Panel)
			salesOrders.GET("/:id/allocations/export.xlsx", handlers.Allocation.Export)
		}

		// 库存批次
		licensePlates := v1.Group("/license-plates")
		{
			licensePlates.GET("", handlers.LicensePlate.List)
			licensePlates.POST("", handlers.LicensePlate.Inbound)
			licensePlates.GET("/available", handlers.LicensePlate.Available)
			licensePlates.GET("/:id", handlers.LicensePlate.Get)
		}

		// 发货设置
		v1.GET("/shipping-settings", handlers.Settings.Get)
		v1.PUT("/shipping-settings", handlers.Settings.Update)
	}

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("ERP Server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down ERP server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	zapLogger.Info("ERP Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}
