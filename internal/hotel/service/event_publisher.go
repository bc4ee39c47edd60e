package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
	"github.com/Plvkssh/SmartLodge/pkg/kafka"
)

// EventPublisher defines the interface for publishing lock events
type EventPublisher interface {
	// PublishLockHeld publishes a lock held event
	PublishLockHeld(ctx context.Context, lock *domain.RoomLock) error

	// PublishLockConfirmed publishes a lock confirmed event
	PublishLockConfirmed(ctx context.Context, lock *domain.RoomLock) error

	// PublishLockReleased publishes a lock released event
	PublishLockReleased(ctx context.Context, lock *domain.RoomLock) error

	// PublishLockExpired publishes a lock expired event
	PublishLockExpired(ctx context.Context, lock *domain.RoomLock) error

	// Close closes the event publisher
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "hotel-lock-events"
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "hotel-service"
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "hotel-service-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
	}, nil
}

// PublishLockHeld publishes a lock held event
func (p *KafkaEventPublisher) PublishLockHeld(ctx context.Context, lock *domain.RoomLock) error {
	return p.publishEvent(ctx, domain.LockEventHeld, lock)
}

// PublishLockConfirmed publishes a lock confirmed event
func (p *KafkaEventPublisher) PublishLockConfirmed(ctx context.Context, lock *domain.RoomLock) error {
	return p.publishEvent(ctx, domain.LockEventConfirmed, lock)
}

// PublishLockReleased publishes a lock released event
func (p *KafkaEventPublisher) PublishLockReleased(ctx context.Context, lock *domain.RoomLock) error {
	return p.publishEvent(ctx, domain.LockEventReleased, lock)
}

// PublishLockExpired publishes a lock expired event
func (p *KafkaEventPublisher) PublishLockExpired(ctx context.Context, lock *domain.RoomLock) error {
	return p.publishEvent(ctx, domain.LockEventExpired, lock)
}

// Producer exposes the underlying producer for health checks
func (p *KafkaEventPublisher) Producer() *kafka.Producer {
	return p.producer
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// publishEvent publishes a lock event to Kafka
func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType domain.LockEventType, lock *domain.RoomLock) error {
	eventID := uuid.New().String()
	event := domain.NewLockEvent(eventType, lock, eventID)

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		"event_type":   string(eventType),
		"event_id":     eventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	msg := &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(event.Key()),
		Value:     value,
		Headers:   headers,
		Timestamp: time.Now(),
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher for testing
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishLockHeld is a no-op
func (p *NoOpEventPublisher) PublishLockHeld(ctx context.Context, lock *domain.RoomLock) error {
	return nil
}

// PublishLockConfirmed is a no-op
func (p *NoOpEventPublisher) PublishLockConfirmed(ctx context.Context, lock *domain.RoomLock) error {
	return nil
}

// PublishLockReleased is a no-op
func (p *NoOpEventPublisher) PublishLockReleased(ctx context.Context, lock *domain.RoomLock) error {
	return nil
}

// PublishLockExpired is a no-op
func (p *NoOpEventPublisher) PublishLockExpired(ctx context.Context, lock *domain.RoomLock) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
