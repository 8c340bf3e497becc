package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/leafdepot/stocktake/internal/config"
	"github.com/leafdepot/stocktake/internal/middleware"
	"github.com/leafdepot/stocktake/internal/stocktake/archive"
	"github.com/leafdepot/stocktake/internal/stocktake/gateway"
	"github.com/leafdepot/stocktake/internal/stocktake/handler"
	"github.com/leafdepot/stocktake/internal/stocktake/service"
	"github.com/leafdepot/stocktake/internal/stocktake/store"
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

	zapLogger.Info("Starting stocktake service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("gateway_mode", cfg.Gateway.Mode),
	)

	// 初始化KV存储
	kv, err := initStore(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init store", zap.Error(err))
	}

	// 初始化识别网关
	var gw gateway.InventoryGateway
	if cfg.Gateway.Mode == "real" {
		gw = gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Timeout, zapLogger)
	} else {
		gw = gateway.NewMock()
	}

	// 初始化照片归档（可选）
	var photoArchive *archive.PhotoArchive
	if cfg.MinIO.Endpoint != "" {
		minioClient, minioErr := minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if minioErr != nil {
			zapLogger.Warn("MinIO client init failed, photo archive disabled", zap.Error(minioErr))
		} else {
			photoArchive = archive.New(minioClient, cfg.MinIO.Bucket, zapLogger)
		}
	}

	services := service.NewServices(gw, kv, photoArchive, cfg, zapLogger)
	handlers := handler.NewHandlers(services)

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

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
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

// initStore 按配置选择KV后端
func initStore(cfg *config.Config, zapLogger *zap.Logger) (store.KVStore, error) {
	switch cfg.Store.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return store.NewRedisKV(rdb), nil
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
			cfg.Database.Password, cfg.Database.DBName, cfg.Database.SSLMode,
		)
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return store.NewGormKV(db)
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return store.NewGormKV(db)
	case "memory", "":
		zapLogger.Warn("Using in-memory store, state is lost on restart")
		return store.NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := r.Group("/api/v1")

	// 网关回调，不走用户鉴权
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/recognition", h.Progress.IngestResult)
	}

	// 需要登录的接口
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		authorized.GET("/bins", h.Manifest.ListBins)

		manifests := authorized.Group("/manifests")
		{
			manifests.POST("", h.Manifest.Build)
			manifests.GET("/current", h.Manifest.Current)
			manifests.POST("/task-no", h.Manifest.GenerateTaskNo)
		}

		progress := authorized.Group("/progress")
		{
			progress.GET("", h.Progress.Snapshot)
			progress.POST("/load", h.Progress.Load)
			progress.POST("/dispatch", h.Progress.Dispatch)
			progress.POST("/rows/:rowId/compute", h.Progress.Compute)
			progress.PUT("/rows/:rowId/quantity", h.Progress.SetQuantity)
			progress.GET("/rows/:rowId/image", h.Progress.Image)
			progress.GET("/statistics", h.Progress.Statistics)
			progress.POST("/save", h.Progress.Save)
			progress.POST("/upload", h.Progress.Upload)
		}

		authorized.GET("/dashboard/summary", h.Dashboard.Summary)

		history := authorized.Group("/history")
		{
			history.GET("/tasks", h.History.ListTasks)
			history.GET("/tasks/:taskId", h.History.TaskDetails)
			history.GET("/image", h.History.Image)
			history.POST("/cleanup", middleware.RequireRole("admin"), h.History.Cleanup)
		}

		oplogs := authorized.Group("/operation-logs")
		{
			oplogs.GET("", h.OpLog.List)
			oplogs.DELETE("/:id", h.OpLog.Remove)
			oplogs.DELETE("", h.OpLog.Clear)
			oplogs.POST("/purge", h.OpLog.Purge)
		}
	}
}
