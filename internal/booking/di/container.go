package di

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Plvkssh/SmartLodge/internal/booking/gateway"
	"github.com/Plvkssh/SmartLodge/internal/booking/handler"
	"github.com/Plvkssh/SmartLodge/internal/booking/repository"
	bookingsaga "github.com/Plvkssh/SmartLodge/internal/booking/saga"
	"github.com/Plvkssh/SmartLodge/internal/booking/service"
	"github.com/Plvkssh/SmartLodge/internal/booking/worker"
	"github.com/Plvkssh/SmartLodge/pkg/database"
	"github.com/Plvkssh/SmartLodge/pkg/kafka"
	"github.com/Plvkssh/SmartLodge/pkg/logger"
	"github.com/Plvkssh/SmartLodge/pkg/retry"
	pkgsaga "github.com/Plvkssh/SmartLodge/pkg/saga"
)

// Container holds all dependencies for the booking service
type Container struct {
	// Infrastructure
	DB       *database.PostgresDB
	Redis    *redis.Client
	Producer *kafka.Producer

	// Repositories and stores
	ReservationRepo repository.ReservationRepository
	SagaStore       *pkgsaga.PostgresStore

	// Gateways and publishers
	HotelGateway   *gateway.HotelGateway
	EventPublisher service.EventPublisher
	DLQPublisher   retry.DLQPublisher

	// Saga
	Orchestrator *pkgsaga.Orchestrator

	// Services
	ReservationService service.ReservationService

	// Workers
	Recovery *worker.RecoveryWorker

	// Handlers
	HealthHandler  *handler.HealthHandler
	BookingHandler *handler.BookingHandler
	SagaHandler    *handler.SagaHandler
	StatsHandler   *handler.StatsHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *redis.Client
	Producer       *kafka.Producer
	EventPublisher service.EventPublisher
	GatewayConfig  *gateway.Config
	RecoveryConfig *worker.RecoveryConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		Producer:       cfg.Producer,
		EventPublisher: cfg.EventPublisher,
	}

	// Initialize repositories and the saga journal
	pool := cfg.DB.Pool()
	c.ReservationRepo = repository.NewPostgresReservationRepository(pool)
	c.SagaStore = pkgsaga.NewPostgresStore(pool)

	// Initialize the hotel gateway
	c.HotelGateway = gateway.NewHotelGateway(cfg.GatewayConfig)

	// Compensation failures are shipped to the DLQ topic when Kafka is up
	if c.Producer != nil {
		c.DLQPublisher = retry.NewKafkaDLQPublisher(
			&retry.KafkaProducerAdapter{Producer: c.Producer},
			&retry.DLQConfig{TopicSuffix: ".dlq", Source: "booking-service"},
		)
	} else {
		c.DLQPublisher = retry.NewNoOpDLQPublisher()
	}

	// Initialize the orchestrator around the durable journal
	c.Orchestrator = pkgsaga.NewOrchestrator(&pkgsaga.OrchestratorConfig{
		Store:  c.SagaStore,
		Logger: &sagaLogger{log: logger.Get()},
	})

	// Initialize services
	c.ReservationService = service.NewReservationService(&service.ReservationServiceConfig{
		ReservationRepo: c.ReservationRepo,
		Orchestrator:    c.Orchestrator,
		SagaReader:      c.SagaStore,
		DeadLetters:     c.SagaStore,
		DLQPublisher:    c.DLQPublisher,
		EventPublisher:  c.EventPublisher,
		Availability:    c.HotelGateway,
	})

	// The service finalizes its own reservations, so the saga definition
	// can only be registered once the service exists
	builder := bookingsaga.NewReservationSagaBuilder(&bookingsaga.ReservationSagaConfig{
		Gateway:   c.HotelGateway,
		Finalizer: c.ReservationService,
	})
	// A fresh orchestrator has no definitions, the registration cannot collide
	_ = c.Orchestrator.RegisterDefinition(builder.Build())

	// Initialize workers
	c.Recovery = worker.NewRecoveryWorker(c.ReservationService, c.SagaStore, cfg.RecoveryConfig)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis, c.Producer)
	c.BookingHandler = handler.NewBookingHandler(c.ReservationService)
	c.SagaHandler = handler.NewSagaHandler(c.ReservationService)
	c.StatsHandler = handler.NewStatsHandler(c.ReservationService, c.Recovery)

	return c
}

// sagaLogger adapts the application logger to the orchestrator's
// logging interface.
type sagaLogger struct {
	log *logger.Logger
}

func format(msg string, fields []interface{}) string {
	if len(fields) == 0 {
		return msg
	}
	return fmt.Sprintf("%s %v", msg, fields)
}

func (l *sagaLogger) Info(msg string, fields ...interface{})  { l.log.Info(format(msg, fields)) }
func (l *sagaLogger) Warn(msg string, fields ...interface{})  { l.log.Warn(format(msg, fields)) }
func (l *sagaLogger) Error(msg string, fields ...interface{}) { l.log.Error(format(msg, fields)) }

func (l *sagaLogger) InfoContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log.Info(format(msg, fields))
}

func (l *sagaLogger) WarnContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log.Warn(format(msg, fields))
}

func (l *sagaLogger) ErrorContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log.Error(format(msg, fields))
}

var _ pkgsaga.Logger = (*sagaLogger)(nil)
