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

	"github.com/Plvkssh/SmartLodge/internal/hotel/di"
	"github.com/Plvkssh/SmartLodge/internal/hotel/metrics"
	"github.com/Plvkssh/SmartLodge/internal/hotel/service"
	"github.com/Plvkssh/SmartLodge/internal/hotel/worker"
	"github.com/Plvkssh/SmartLodge/pkg/config"
	"github.com/Plvkssh/SmartLodge/pkg/database"
	"github.com/Plvkssh/SmartLodge/pkg/kafka"
	"github.com/Plvkssh/SmartLodge/pkg/logger"
	"github.com/Plvkssh/SmartLodge/pkg/middleware"
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
	if err := cfg.ValidateHotelDatabase(); err != nil {
		log.Fatalf("Invalid hotel database config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: "hotel-service",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Hotel Service...")

	ctx := context.Background()

	// Initialize tracing and metrics
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "hotel-service",
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
		Host:            cfg.HotelDatabase.Host,
		Port:            cfg.HotelDatabase.Port,
		User:            cfg.HotelDatabase.User,
		Password:        cfg.HotelDatabase.Password,
		Database:        cfg.HotelDatabase.DBName,
		SSLMode:         cfg.HotelDatabase.SSLMode,
		MaxConns:        int32(cfg.HotelDatabase.MaxOpenConns),
		MinConns:        int32(cfg.HotelDatabase.MaxIdleConns),
		MaxConnLifetime: cfg.HotelDatabase.ConnMaxLifetime,
		MaxConnIdleTime: cfg.HotelDatabase.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   1 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
		ServiceName:     "hotel-service",
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       "hotel-lock-events",
			ServiceName: "hotel-service",
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
		Producer:       producer,
		EventPublisher: eventPublisher,
		ServiceConfig: &service.LockServiceConfig{
			HoldTTL: cfg.Lock.HoldTTL(),
		},
		SweeperConfig: &worker.SweeperConfig{
			SweepInterval: cfg.Lock.SweepInterval(),
			BatchSize:     100,
			Retention:     time.Duration(cfg.Lock.RetentionDays) * 24 * time.Hour,
		},
	})

	// Start the expiry sweeper so abandoned holds free their rooms
	if err := container.Sweeper.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start sweeper: %v", err))
	}

	// Setup Gin
	gin.SetMode(gin.ReleaseMode)
	gin.DisableConsoleColor()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID("hotel-"))
	router.Use(middleware.RequestLogger(appLog, "/health", "/ready", "/metrics"))
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware("hotel-service"))
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
			"sweeper": container.Sweeper.GetStats(),
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
				"service": "hotel-service",
			})
		})

		rooms := v1.Group("/rooms")
		{
			rooms.GET("", container.RoomHandler.ListRooms)
			rooms.POST("", container.RoomHandler.CreateRoom)
			rooms.GET("/available", container.RoomHandler.AvailableRooms)
			rooms.GET("/:room_id", container.RoomHandler.GetRoom)

			// Lock engine driven by the booking saga
			rooms.POST("/:room_id/hold", container.LockHandler.Hold)
			rooms.POST("/:room_id/confirm", container.LockHandler.Confirm)
			rooms.POST("/:room_id/release", container.LockHandler.Release)
			rooms.GET("/:room_id/locks", container.LockHandler.ListRoomLocks)
		}

		hotels := v1.Group("/hotels")
		{
			hotels.GET("", container.RoomHandler.ListHotels)
			hotels.POST("", container.RoomHandler.CreateHotel)
			hotels.GET("/:id", container.RoomHandler.GetHotel)
		}

		stats := v1.Group("/stats")
		{
			stats.GET("/locks", container.StatsHandler.LockStats)
			stats.GET("/rooms/popular", container.RoomHandler.PopularRooms)
			stats.GET("/occupancy", container.RoomHandler.OccupancyStats)
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
		appLog.Info(fmt.Sprintf("Hotel Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	container.Sweeper.Stop()

	appLog.Info("Server exited gracefully")
}
