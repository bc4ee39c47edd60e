package di

import (
	"github.com/Plvkssh/SmartLodge/internal/hotel/handler"
	"github.com/Plvkssh/SmartLodge/internal/hotel/repository"
	"github.com/Plvkssh/SmartLodge/internal/hotel/service"
	"github.com/Plvkssh/SmartLodge/internal/hotel/worker"
	"github.com/Plvkssh/SmartLodge/pkg/database"
	"github.com/Plvkssh/SmartLodge/pkg/kafka"
)

// Container holds all dependencies for the hotel service
type Container struct {
	// Infrastructure
	DB       *database.PostgresDB
	Producer *kafka.Producer

	// Repositories
	LockRepo  repository.LockRepository
	RoomRepo  repository.RoomRepository
	HotelRepo repository.HotelRepository

	// Publishers
	EventPublisher service.EventPublisher

	// Services
	LockService service.LockService
	RoomService service.RoomService

	// Workers
	Sweeper *worker.Sweeper

	// Handlers
	HealthHandler *handler.HealthHandler
	LockHandler   *handler.LockHandler
	RoomHandler   *handler.RoomHandler
	StatsHandler  *handler.StatsHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB             *database.PostgresDB
	Producer       *kafka.Producer
	EventPublisher service.EventPublisher
	ServiceConfig  *service.LockServiceConfig
	SweeperConfig  *worker.SweeperConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Producer:       cfg.Producer,
		EventPublisher: cfg.EventPublisher,
	}

	// Initialize repositories
	pool := cfg.DB.Pool()
	c.LockRepo = repository.NewPostgresLockRepository(pool)
	c.RoomRepo = repository.NewPostgresRoomRepository(pool)
	c.HotelRepo = repository.NewPostgresHotelRepository(pool)

	// Initialize services
	c.LockService = service.NewLockService(
		c.LockRepo,
		c.EventPublisher,
		cfg.ServiceConfig,
	)
	c.RoomService = service.NewRoomService(c.RoomRepo, c.HotelRepo)

	// Initialize workers
	c.Sweeper = worker.NewSweeper(c.LockService, cfg.SweeperConfig)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Producer)
	c.LockHandler = handler.NewLockHandler(c.LockService)
	c.RoomHandler = handler.NewRoomHandler(c.RoomService)
	c.StatsHandler = handler.NewStatsHandler(c.LockService, c.Sweeper)

	return c
}
