package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cityperks/service-redemption/internal/adapter"
	"github.com/cityperks/service-redemption/internal/application"
	"github.com/cityperks/service-redemption/internal/auth"
	"github.com/cityperks/service-redemption/internal/config"
	"github.com/cityperks/service-redemption/internal/consumer"
	"github.com/cityperks/service-redemption/internal/database"
	"github.com/cityperks/service-redemption/internal/handler"
	"github.com/cityperks/service-redemption/internal/health"
	"github.com/cityperks/service-redemption/internal/kafka"
	"github.com/cityperks/service-redemption/internal/logger"
	"github.com/cityperks/service-redemption/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-redemption")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-redemption",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.VoucherModel{}, &repository.MemberVoucherModel{}, &repository.PurchaseModel{}); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), cfg.MigrationsDir, zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager for the admin routes
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, 15*time.Minute)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
	defer kafkaProducer.Close()

	// Initialize notifier (mock for development)
	notifier := adapter.NewMockNotifier(zapLogger)

	// Initialize repositories
	voucherRepo := repository.NewGormVoucherRepository(db)
	redemptionRepo := repository.NewGormRedemptionRepository(db)

	// Initialize application services
	redemptionService := application.NewRedemptionService(redemptionRepo, kafkaProducer, notifier, zapLogger)
	voucherService := application.NewVoucherService(voucherRepo, redemptionRepo, zapLogger)

	// Initialize Kafka consumer for offer events from the partner CRM
	consumerGroupID := cfg.KafkaConfig.GroupPrefix + "redemption-service"
	offerConsumer := consumer.NewOfferEventConsumer(
		cfg.KafkaConfig.Brokers,
		consumerGroupID,
		voucherService,
		zapLogger,
	)
	defer offerConsumer.Close()

	// Start Kafka consumer in a goroutine
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	go func() {
		zapLogger.Info("starting offer event consumer")
		if err := offerConsumer.Start(consumerCtx); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("offer event consumer failed", zap.Error(err))
			}
		}
	}()

	// Initialize HTTP handlers
	redemptionHandler := handler.NewRedemptionHandler(redemptionService)
	voucherHandler := handler.NewVoucherHandler(voucherService)
	adminHandler := handler.NewAdminHandler(redemptionService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(zapLogger, jwtManager, redemptionHandler, voucherHandler, adminHandler)

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-redemption")
	healthHandler.RegisterRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-redemption...")

	// Cancel Kafka consumer
	consumerCancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-redemption stopped")
}
