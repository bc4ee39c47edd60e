package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // Import pprof for profiling
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Plvkssh/SmartLodge/internal/booking/di"
	"github.com/Plvkssh/SmartLodge/internal/booking/gateway"
	"github.com/Plvkssh/SmartLodge/internal/booking/handler"
	"github.com/Plvkssh/SmartLodge/internal/booking/metrics"
	"github.com/Plvkssh/SmartLodge/internal/booking/service"
	"github.com/Plvkssh/SmartLodge/internal/booking/worker"
	"github.com/Plvkssh/SmartLodge/pkg/config"
	"github.com/Plvkssh/SmartLodge/pkg/database"
	"github.com/Plvkssh/SmartLodge/pkg/kafka"
	"github.com/Plvkssh/SmartLodge/pkg/logger"
	"github.com/Plvkssh/SmartLodge/pkg/middleware"
	pkgredis "github.com/Plvkssh/SmartLodge/pkg/redis"
	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
)

func main() {
	// Optimize Go runtime for high concurrency
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateBookingDatabase(); err != nil {
		log.Fatalf("Invalid booking database config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: "booking-service",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Booking Service...")

	ctx := context.Background()

	// Initialize tracing and metrics
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "booking-service",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry init failed, continuing without traces: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()
	metrics.Init()

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.BookingDatabase.Host,
		Port:            cfg.BookingDatabase.Port,
		User:            cfg.BookingDatabase.User,
		Password:        cfg.BookingDatabase.Password,
		Database:        cfg.BookingDatabase.DBName,
		SSLMode:         cfg.BookingDatabase.SSLMode,
		MaxConns:        int32(cfg.BookingDatabase.MaxOpenConns),
		MinConns:        int32(cfg.BookingDatabase.MaxIdleConns),
		MaxConnLifetime: cfg.BookingDatabase.ConnMaxLifetime,
		MaxConnIdleTime: cfg.BookingDatabase.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   1 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
		ServiceName:     "booking-service",
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Initialize Redis for the idempotency middleware. The durable guard
	// is the store's unique request key, so a Redis outage only costs the
	// fast replay path.
	var redisClient *redis.Client
	rdb, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 1 * time.Second,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Redis connection failed, request replay cache disabled: %v", err))
	} else {
		appLog.Info("Redis connected")
		defer rdb.Close()
		redisClient = rdb.Client()
	}

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       "booking-reservation-events",
			ServiceName: "booking-service",
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
			eventPublisher = service.NewNoOpEventPublisher()
		} else {
			appLog.Info("Kafka event publisher connected")
			eventPublisher = kafkaPublisher
			producer = kafkaPublisher.Producer()
		}
	} else {
		appLog.Info("Kafka disabled, using no-op publisher")
		eventPublisher = service.NewNoOpEventPublisher()
	}
	defer eventPublisher.Close()

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		Producer:       producer,
		EventPublisher: eventPublisher,
		GatewayConfig: &gateway.Config{
			BaseURL:    cfg.Hotel.BaseURL,
			Timeout:    cfg.Hotel.Timeout(),
			MaxRetries: cfg.Hotel.MaxRetries,
		},
		RecoveryConfig: &worker.RecoveryConfig{
			ScanInterval: cfg.Saga.RecoveryInterval(),
			BatchSize:    50,
			MinAge:       cfg.Saga.RecoveryMinAge(),
		},
	})

	// Start the recovery worker so interrupted sagas land terminal
	if err := container.Recovery.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start recovery worker: %v", err))
	}

	// Setup Gin
	gin.SetMode(gin.ReleaseMode)
	gin.DisableConsoleColor()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID("booking-"))
	router.Use(middleware.RequestLogger(appLog, "/health", "/ready", "/metrics"))
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware("booking-service"))
	}
	// Authentication happens upstream; the gateway injects X-User-ID
	router.Use(middleware.UserID(""))

	// Fast duplicate detection when Redis is up. Requests without a key
	// pass through, the store's unique index still guards them.
	var idem gin.HandlerFunc
	if redisClient != nil {
		idemCfg := middleware.DefaultIdempotencyConfig(redisClient)
		idemCfg.AllowMissingKey = true
		idemCfg.KeyExtractor = handler.ExtractRequestID
		idem = middleware.IdempotencyMiddleware(idemCfg)
	}

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// Metrics endpoint for monitoring
	router.GET("/metrics", func(c *gin.Context) {
		stats := db.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db_pool": gin.H{
				"total_conns":        stats.TotalConns(),
				"acquired_conns":     stats.AcquiredConns(),
				"idle_conns":         stats.IdleConns(),
				"max_conns":          stats.MaxConns(),
				"constructing_conns": stats.ConstructingConns(),
			},
			"recovery": container.Recovery.GetStats(),
		})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		// Status endpoint
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"version": cfg.App.Version,
				"service": "booking-service",
			})
		})

		bookings := v1.Group("/bookings")
		{
			if idem != nil {
				bookings.POST("", idem, container.BookingHandler.Create)
			} else {
				bookings.POST("", container.BookingHandler.Create)
			}
			bookings.GET("", container.BookingHandler.List)
			bookings.GET("/:id", container.BookingHandler.Get)
		}

		// Availability proxy for pick-a-room flows
		v1.GET("/rooms/suggested", container.BookingHandler.SuggestedRooms)

		// Saga journal for operators
		sagas := v1.Group("/sagas")
		{
			sagas.GET("", container.SagaHandler.ListSagas)
			sagas.GET("/:id", container.SagaHandler.GetSaga)
			sagas.POST("/:id/resume", container.SagaHandler.Resume)
		}

		stats := v1.Group("/stats")
		{
			stats.GET("/reservations", container.StatsHandler.ReservationStats)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Start pprof server on separate port for profiling
	go func() {
		pprofAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port+1000)
		appLog.Info(fmt.Sprintf("pprof server listening on %s", pprofAddr))
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			appLog.Error(fmt.Sprintf("pprof server error: %v", err))
		}
	}()

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Booking Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete. In-flight sagas
	// run on detached contexts, so draining does not abandon them.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	container.Recovery.Stop()

	appLog.Info("Server exited gracefully")
}
