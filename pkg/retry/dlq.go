package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DLQMessage represents a message in the dead letter queue
type DLQMessage struct {
	// ID is the unique identifier for the message
	ID string `json:"id"`
	// OriginalTopic is the topic the message was originally sent to
	OriginalTopic string `json:"original_topic"`
	// OriginalKey is the original message key
	OriginalKey string `json:"original_key"`
	// Payload is the original message payload
	Payload json.RawMessage `json:"payload"`
	// Headers are the original message headers
	Headers map[string]string `json:"headers,omitempty"`
	// Error is the error that caused the message to be dead-lettered
	Error string `json:"error"`
	// ErrorCode is an optional machine-readable error code
	ErrorCode string `json:"error_code,omitempty"`
	// Attempts is the number of processing attempts made
	Attempts int `json:"attempts"`
	// FirstAttemptAt is when processing was first attempted
	FirstAttemptAt time.Time `json:"first_attempt_at"`
	// LastAttemptAt is when processing was last attempted
	LastAttemptAt time.Time `json:"last_attempt_at"`
	// MovedToDLQAt is when the message was moved to the DLQ
	MovedToDLQAt time.Time `json:"moved_to_dlq_at"`
	// Source identifies the service that dead-lettered the message
	Source string `json:"source"`
	// Metadata is optional additional context
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// DLQPublisher publishes failed messages to a dead letter queue
type DLQPublisher interface {
	// PublishToDLQ publishes a failed message to the dead letter queue
	PublishToDLQ(ctx context.Context, msg *DLQMessage) error
	// GetDLQTopic returns the DLQ topic name for a given original topic
	GetDLQTopic(originalTopic string) string
}

// DLQConfig contains configuration for the DLQ publisher
type DLQConfig struct {
	// TopicPrefix is prepended to the original topic (e.g., "dlq.")
	TopicPrefix string
	// TopicSuffix is appended to the original topic (e.g., ".dlq")
	TopicSuffix string
	// UsePrefix determines whether to use prefix (true) or suffix (false)
	UsePrefix bool
	// Source identifies the publishing service
	Source string
}

// DefaultDLQConfig returns default DLQ configuration
func DefaultDLQConfig() *DLQConfig {
	return &DLQConfig{
		TopicPrefix: "dlq.",
		TopicSuffix: ".dlq",
		UsePrefix:   false,
		Source:      "unknown",
	}
}

// KafkaPublisher is the interface for publishing raw messages to Kafka
type KafkaPublisher interface {
	PublishJSON(ctx context.Context, topic string, key string, value interface{}, headers map[string]string) error
}

// KafkaDLQPublisher publishes dead-lettered messages to Kafka DLQ topics
type KafkaDLQPublisher struct {
	publisher KafkaPublisher
	config    *DLQConfig
}

// NewKafkaDLQPublisher creates a new Kafka-backed DLQ publisher
func NewKafkaDLQPublisher(publisher KafkaPublisher, config *DLQConfig) *KafkaDLQPublisher {
	if config == nil {
		config = DefaultDLQConfig()
	}
	return &KafkaDLQPublisher{
		publisher: publisher,
		config:    config,
	}
}

// PublishToDLQ publishes a failed message to the dead letter queue
func (p *KafkaDLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error {
	if msg == nil {
		return fmt.Errorf("dlq message is nil")
	}

	if msg.MovedToDLQAt.IsZero() {
		msg.MovedToDLQAt = time.Now().UTC()
	}
	if msg.Source == "" {
		msg.Source = p.config.Source
	}

	dlqTopic := p.GetDLQTopic(msg.OriginalTopic)

	headers := map[string]string{
		"original_topic":  msg.OriginalTopic,
		"original_key":    msg.OriginalKey,
		"error":           msg.Error,
		"attempts":        fmt.Sprintf("%d", msg.Attempts),
		"source":          msg.Source,
		"moved_to_dlq_at": msg.MovedToDLQAt.Format(time.RFC3339),
		"content_type":    "application/json",
	}
	if msg.ErrorCode != "" {
		headers["error_code"] = msg.ErrorCode
	}
	for k, v := range msg.Headers {
		if _, exists := headers[k]; !exists {
			headers[k] = v
		}
	}

	if err := p.publisher.PublishJSON(ctx, dlqTopic, msg.OriginalKey, msg, headers); err != nil {
		return fmt.Errorf("failed to publish to DLQ topic %s: %w", dlqTopic, err)
	}

	return nil
}

// GetDLQTopic returns the DLQ topic name for a given original topic
func (p *KafkaDLQPublisher) GetDLQTopic(originalTopic string) string {
	if p.config.UsePrefix {
		return p.config.TopicPrefix + originalTopic
	}
	return originalTopic + p.config.TopicSuffix
}

// PublishJSON is implemented by producers that can publish JSON values
type PublishJSON interface {
	ProduceJSON(ctx context.Context, topic string, key string, value interface{}, headers map[string]string) error
}

// KafkaProducerAdapter adapts a pkg/kafka producer to the KafkaPublisher interface
type KafkaProducerAdapter struct {
	Producer PublishJSON
}

// PublishJSON publishes a JSON message via the underlying producer
func (a *KafkaProducerAdapter) PublishJSON(ctx context.Context, topic string, key string, value interface{}, headers map[string]string) error {
	return a.Producer.ProduceJSON(ctx, topic, key, value, headers)
}

// NoOpDLQPublisher is a DLQ publisher that discards all messages.
// Useful when Kafka is unavailable or DLQ is disabled.
type NoOpDLQPublisher struct {
	config *DLQConfig
}

// NewNoOpDLQPublisher creates a DLQ publisher that drops everything
func NewNoOpDLQPublisher() *NoOpDLQPublisher {
	return &NoOpDLQPublisher{config: DefaultDLQConfig()}
}

// PublishToDLQ discards the message
func (p *NoOpDLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error {
	return nil
}

// GetDLQTopic returns the DLQ topic name using default naming
func (p *NoOpDLQPublisher) GetDLQTopic(originalTopic string) string {
	return originalTopic + p.config.TopicSuffix
}

var _ DLQPublisher = (*KafkaDLQPublisher)(nil)
var _ DLQPublisher = (*NoOpDLQPublisher)(nil)
