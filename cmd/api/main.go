package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fahrez/warungpos-inventory-service/config"
	"github.com/fahrez/warungpos-inventory-service/internal/auth"
	"github.com/fahrez/warungpos-inventory-service/pkg/broker"
	"github.com/fahrez/warungpos-inventory-service/pkg/cache"
	"github.com/fahrez/warungpos-inventory-service/pkg/logger"
	"github.com/fahrez/warungpos-inventory-service/pkg/postgres"

	auditRepoPkg "github.com/fahrez/warungpos-inventory-service/internal/audit/repository"

	catH "github.com/fahrez/warungpos-inventory-service/internal/category/handler"
	catRepoPkg "github.com/fahrez/warungpos-inventory-service/internal/category/repository"
	catUCPkg "github.com/fahrez/warungpos-inventory-service/internal/category/usecase"

	prodH "github.com/fahrez/warungpos-inventory-service/internal/product/handler"
	prodRepoPkg "github.com/fahrez/warungpos-inventory-service/internal/product/repository"
	prodUCPkg "github.com/fahrez/warungpos-inventory-service/internal/product/usecase"

	stockH "github.com/fahrez/warungpos-inventory-service/internal/stock/handler"
	stockListenerPkg "github.com/fahrez/warungpos-inventory-service/internal/stock/listener"
	stockRepoPkg "github.com/fahrez/warungpos-inventory-service/internal/stock/repository"
	stockUCPkg "github.com/fahrez/warungpos-inventory-service/internal/stock/usecase"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logCfg := &logger.Config{
		IsDevelopment: cfg.Server.AppEnv == "development",
		Level:         cfg.Logger.Level,
		Encoding:      cfg.Logger.Encoding,
		DisableCaller: cfg.Logger.DisableCaller,
	}
	appLogger := logger.New(logCfg)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.New(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5. Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	// 6. Initialize Repositories
	catRepo := catRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	stockRepo := stockRepoPkg.NewPGRepository(db)
	auditRecorder := auditRepoPkg.NewPGRecorder(db)

	// 7. Initialize UseCases
	stockUC := stockUCPkg.NewStockUseCase(stockRepo, auditRecorder, redisClient, appLogger)
	catUC := catUCPkg.NewCategoryUseCase(catRepo, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, stockUC, redisClient, appLogger)

	// 8. Start Listener
	stockListener := stockListenerPkg.NewStockListener(kafkaConsumer, stockUC, appLogger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stockListener.Start(ctx)

	// 9. HTTP Router
	if cfg.Server.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(appLogger), auth.Identity())

	api := router.Group("/api/v1")
	catH.NewCategoryHandler(catUC, appLogger).RegisterRoutes(api)
	prodH.NewProductHandler(prodUC, appLogger).RegisterRoutes(api)
	stockH.NewStockHandler(stockUC, appLogger).RegisterRoutes(api)

	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	appLogger.Info("Starting HTTP server", zap.String("port", port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Forced shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
