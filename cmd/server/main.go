package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aalok376/GharBata-sub001/internal/application"
	"github.com/Aalok376/GharBata-sub001/internal/auth"
	"github.com/Aalok376/GharBata-sub001/internal/cache"
	"github.com/Aalok376/GharBata-sub001/internal/config"
	"github.com/Aalok376/GharBata-sub001/internal/database"
	bookingEvents "github.com/Aalok376/GharBata-sub001/internal/events"
	"github.com/Aalok376/GharBata-sub001/internal/handler"
	"github.com/Aalok376/GharBata-sub001/internal/health"
	"github.com/Aalok376/GharBata-sub001/internal/jobs"
	"github.com/Aalok376/GharBata-sub001/internal/kafka"
	"github.com/Aalok376/GharBata-sub001/internal/logger"
	"github.com/Aalok376/GharBata-sub001/internal/metrics"
	"github.com/Aalok376/GharBata-sub001/internal/middleware"
	"github.com/Aalok376/GharBata-sub001/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "booking-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting booking-service",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.BookingModel{}, &repository.TechnicianModel{}, &repository.ClientModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, 15*time.Minute)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize Redis stats cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConfig.Addr,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	})
	defer func() { _ = redisClient.Close() }()
	statsCache := cache.NewStatsCache(redisClient, cfg.RedisConfig.StatsTTL, log)

	// Register Prometheus collectors
	metrics.Register()

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	technicianRepo := repository.NewGormTechnicianRepository(db)
	clientRepo := repository.NewGormClientRepository(db)
	uow := repository.NewGormUnitOfWork(db)

	// Initialize application services
	bookingService := application.NewBookingService(
		bookingRepo,
		technicianRepo,
		clientRepo,
		kafkaProducer,
		statsCache,
		log,
	)
	issueService := application.NewIssueService(bookingService, bookingRepo, log)
	adminService := application.NewAdminService(uow, technicianRepo, kafkaProducer, bookingService, log)
	registryService := application.NewRegistryService(clientRepo, technicianRepo, log)

	// Start event consumers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paymentConsumer := bookingEvents.NewPaymentEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"booking-service.payments",
		bookingService,
		log,
	)
	defer func() { _ = paymentConsumer.Close() }()

	go func() {
		log.Info("starting payment event consumer")
		if err := paymentConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("payment event consumer error", zap.Error(err))
		}
	}()

	identityConsumer := bookingEvents.NewIdentityEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"booking-service.identity",
		registryService,
		log,
	)
	defer func() { _ = identityConsumer.Close() }()

	go func() {
		log.Info("starting identity event consumer")
		if err := identityConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("identity event consumer error", zap.Error(err))
		}
	}()

	// Start the expired-ban sweeper
	sweeper := jobs.NewBanSweeper(adminService, cfg.BanSweepInterval, log)
	go sweeper.Run(ctx)

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService, issueService)
	adminHandler := handler.NewAdminHandler(adminService, issueService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "booking-service")
	healthHandler.RegisterRoutes(router)

	// Expose Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Register API routes
	api := router.Group("/api/v1")
	bookingHandler.RegisterRoutes(api, jwtManager)
	adminHandler.RegisterRoutes(api, jwtManager)

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
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down booking-service...")

	// Cancel consumers and the sweeper
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("booking-service stopped")
}
