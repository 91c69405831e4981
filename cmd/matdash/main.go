package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkpgroup/matdash/internal/config"
	"github.com/pkpgroup/matdash/internal/engine"
	"github.com/pkpgroup/matdash/internal/entity"
	"github.com/pkpgroup/matdash/internal/handler"
	"github.com/pkpgroup/matdash/internal/pipeline"
	"github.com/pkpgroup/matdash/internal/repository"
	"github.com/pkpgroup/matdash/internal/service"
	"github.com/pkpgroup/matdash/internal/shared/n8nflow"
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
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting matdash service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.Material{},
		&entity.PurchaseOrder{},
		&entity.Payment{},
		&entity.Delivery{},
		&entity.File{},
		&entity.LPO{},
		&entity.LPOHistory{},
		&entity.AISuggestion{},
	); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = initRedis(cfg.Redis)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			zapLogger.Warn("Redis unreachable, extraction locking degrades to single-instance", zap.Error(err))
		}
	}

	repos := repository.NewRepositories(db)
	eng := engine.New(db, repos, zapLogger)
	eng.SetFuzzyMinScore(cfg.AI.FuzzyMatchMinimum)
	pipe := pipeline.New(db, repos, eng.Validator(), rdb, zapLogger,
		cfg.AI.AutoApplyThreshold, cfg.AI.ReviewThreshold)

	flow := n8nflow.NewClient(cfg.N8N.BaseURL, cfg.N8N.WebhookPath, cfg.N8N.APIKey,
		cfg.N8N.WebhookTimeout, zapLogger)

	materialSvc := service.NewMaterialService(repos.Material, eng, zapLogger)
	poSvc := service.NewPOService(repos.PurchaseOrder, repos.Material, eng, zapLogger)
	paymentSvc := service.NewPaymentService(db, repos.Payment, repos.PurchaseOrder, eng, zapLogger)
	deliverySvc := service.NewDeliveryService(repos.Delivery, repos.PurchaseOrder, eng, zapLogger)
	uploadSvc := service.NewUploadService(repos.File, flow, zapLogger,
		cfg.Uploads.Dir, cfg.Uploads.MaxSizeBytes(), cfg.Uploads.AllowedExts)
	lpoSvc := service.NewLPOService(db, repos.LPO, zapLogger)
	quoteSvc := service.NewQuoteService(zapLogger)

	handlers := handler.NewHandlers(materialSvc, poSvc, paymentSvc, deliverySvc,
		uploadSvc, lpoSvc, quoteSvc, pipe, repos, eng)

	mailer := service.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username,
		cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.To, zapLogger)
	reminderCtx, stopReminder := context.WithCancel(context.Background())
	defer stopReminder()
	service.NewReminder(repos, mailer, zapLogger).Start(reminderCtx)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	handler.RegisterRoutes(router, cfg, zapLogger, handlers)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

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

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
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

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
