// Package saga provides the room reservation saga.
//
// The saga drives three steps in sequence: hold the room at the hotel
// service, confirm the hold, then flip the local reservation row to
// CONFIRMED. The first two steps are remote calls keyed by the
// reservation's request_id, so the hotel side absorbs replays and a
// resumed saga lands on the same lock row.
//
// Compensation runs in reverse on any step failure. Only hold-room has
// a compensating action (release); the hotel treats a release arriving
// after confirm as a no-op, so compensation can always fire without
// undoing a confirmed booking.
package saga

import (
	"context"
	"fmt"
	"time"

	pkgsaga "github.com/Plvkssh/SmartLodge/pkg/saga"
)

const (
	// ReservationSagaName is the registered name of the reservation saga
	ReservationSagaName = "reservation-saga"

	// Step names - these appear in the saga journal and admin API
	StepHoldRoom            = "hold-room"
	StepConfirmRoom         = "confirm-room"
	StepFinalizeReservation = "finalize-reservation"
)

// ReservationSagaData contains the data passed through the reservation saga
type ReservationSagaData struct {
	// Input data
	ReservationID string `json:"reservation_id"`
	RequestID     string `json:"request_id"`
	UserID        string `json:"user_id"`
	RoomID        string `json:"room_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	CorrelationID string `json:"correlation_id"`

	// Step outputs
	LockID string `json:"lock_id,omitempty"`
}

// ToMap converts ReservationSagaData to map[string]interface{}
func (d *ReservationSagaData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"reservation_id": d.ReservationID,
		"request_id":     d.RequestID,
		"user_id":        d.UserID,
		"room_id":        d.RoomID,
		"start_date":     d.StartDate,
		"end_date":       d.EndDate,
		"correlation_id": d.CorrelationID,
		"lock_id":        d.LockID,
	}
}

// FromMap populates ReservationSagaData from map[string]interface{}
func (d *ReservationSagaData) FromMap(m map[string]interface{}) {
	if v, ok := m["reservation_id"].(string); ok {
		d.ReservationID = v
	}
	if v, ok := m["request_id"].(string); ok {
		d.RequestID = v
	}
	if v, ok := m["user_id"].(string); ok {
		d.UserID = v
	}
	if v, ok := m["room_id"].(string); ok {
		d.RoomID = v
	}
	if v, ok := m["start_date"].(string); ok {
		d.StartDate = v
	}
	if v, ok := m["end_date"].(string); ok {
		d.EndDate = v
	}
	if v, ok := m["correlation_id"].(string); ok {
		d.CorrelationID = v
	}
	if v, ok := m["lock_id"].(string); ok {
		d.LockID = v
	}
}

// RoomLockGateway defines the interface for hotel lock operations
type RoomLockGateway interface {
	HoldRoom(ctx context.Context, roomID, requestID, correlationID, startDate, endDate string) (lockID string, err error)
	ConfirmRoom(ctx context.Context, roomID, requestID, correlationID string) error
	ReleaseRoom(ctx context.Context, roomID, requestID, correlationID string) error
}

// ReservationFinalizer defines the interface for the terminal status write
type ReservationFinalizer interface {
	FinalizeReservation(ctx context.Context, reservationID string) error
}

// ReservationSagaConfig holds configuration for the reservation saga
type ReservationSagaConfig struct {
	Gateway   RoomLockGateway
	Finalizer ReservationFinalizer

	// StepTimeout bounds each step including gateway retries
	StepTimeout time.Duration

	// MaxRetries is the orchestrator-level retry count per step.
	// Transport retries already live inside the gateway, so the
	// default is to run each step once.
	MaxRetries int
}

// ReservationSagaBuilder creates a reservation saga definition
type ReservationSagaBuilder struct {
	config *ReservationSagaConfig
}

// NewReservationSagaBuilder creates a new reservation saga builder
func NewReservationSagaBuilder(config *ReservationSagaConfig) *ReservationSagaBuilder {
	if config.StepTimeout == 0 {
		config.StepTimeout = 30 * time.Second
	}
	return &ReservationSagaBuilder{config: config}
}

// Build creates the reservation saga definition
func (b *ReservationSagaBuilder) Build() *pkgsaga.Definition {
	def := pkgsaga.NewDefinition(ReservationSagaName, "Room reservation saga with hotel lock compensation")
	def.WithTimeout(2 * time.Minute)

	// Step 1: Hold Room
	def.AddStep(&pkgsaga.Step{
		Name:        StepHoldRoom,
		Description: "Place a hold on the room for the stay dates",
		Execute:     b.holdRoomExecute,
		Compensate:  b.holdRoomCompensate,
		Timeout:     b.config.StepTimeout,
		Retries:     b.config.MaxRetries,
	})

	// Step 2: Confirm Room
	def.AddStep(&pkgsaga.Step{
		Name:        StepConfirmRoom,
		Description: "Promote the hold to a confirmed booking",
		Execute:     b.confirmRoomExecute,
		Compensate:  nil, // No compensation needed - the hold-room release covers rollback, and release never undoes a confirm
		Timeout:     b.config.StepTimeout,
		Retries:     b.config.MaxRetries,
	})

	// Step 3: Finalize Reservation
	//
	// Compensation cannot unwind a confirmed hotel lock, so the local
	// status write rides out transient database errors instead of
	// triggering compensation.
	finalizeRetries := b.config.MaxRetries
	if finalizeRetries < 2 {
		finalizeRetries = 2
	}
	def.AddStep(&pkgsaga.Step{
		Name:        StepFinalizeReservation,
		Description: "Write the CONFIRMED status on the reservation row",
		Execute:     b.finalizeReservationExecute,
		Compensate:  nil, // No compensation needed - the caller writes CANCELLED when the saga fails
		Timeout:     b.config.StepTimeout,
		Retries:     finalizeRetries,
	})

	return def
}

// Step 1: Hold Room - Execute
func (b *ReservationSagaBuilder) holdRoomExecute(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	sagaData := &ReservationSagaData{}
	sagaData.FromMap(data)

	if b.config.Gateway == nil {
		return nil, fmt.Errorf("room lock gateway is not configured")
	}

	lockID, err := b.config.Gateway.HoldRoom(
		ctx,
		sagaData.RoomID,
		sagaData.RequestID,
		sagaData.CorrelationID,
		sagaData.StartDate,
		sagaData.EndDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to hold room: %w", err)
	}

	return map[string]interface{}{
		"lock_id": lockID,
	}, nil
}

// Step 1: Hold Room - Compensate (Release)
func (b *ReservationSagaBuilder) holdRoomCompensate(ctx context.Context, data map[string]interface{}) error {
	sagaData := &ReservationSagaData{}
	sagaData.FromMap(data)

	if b.config.Gateway == nil {
		return fmt.Errorf("room lock gateway is not configured")
	}

	if err := b.config.Gateway.ReleaseRoom(ctx, sagaData.RoomID, sagaData.RequestID, sagaData.CorrelationID); err != nil {
		return fmt.Errorf("failed to release room: %w", err)
	}

	return nil
}

// Step 2: Confirm Room - Execute
func (b *ReservationSagaBuilder) confirmRoomExecute(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	sagaData := &ReservationSagaData{}
	sagaData.FromMap(data)

	if b.config.Gateway == nil {
		return nil, fmt.Errorf("room lock gateway is not configured")
	}

	if err := b.config.Gateway.ConfirmRoom(ctx, sagaData.RoomID, sagaData.RequestID, sagaData.CorrelationID); err != nil {
		return nil, fmt.Errorf("failed to confirm room: %w", err)
	}

	return nil, nil
}

// Step 3: Finalize Reservation - Execute
func (b *ReservationSagaBuilder) finalizeReservationExecute(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	sagaData := &ReservationSagaData{}
	sagaData.FromMap(data)

	if b.config.Finalizer == nil {
		return nil, fmt.Errorf("reservation finalizer is not configured")
	}

	if err := b.config.Finalizer.FinalizeReservation(ctx, sagaData.ReservationID); err != nil {
		return nil, fmt.Errorf("failed to finalize reservation: %w", err)
	}

	return nil, nil
}
