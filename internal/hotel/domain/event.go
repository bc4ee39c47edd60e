package domain

import (
	"time"
)

// LockEventType represents the type of room lock event
type LockEventType string

const (
	LockEventHeld      LockEventType = "hotel.lock.held"
	LockEventConfirmed LockEventType = "hotel.lock.confirmed"
	LockEventReleased  LockEventType = "hotel.lock.released"
	LockEventExpired   LockEventType = "hotel.lock.expired"
)

// LockEvent represents a room lock domain event published to Kafka
type LockEvent struct {
	EventID    string         `json:"event_id"`
	EventType  LockEventType  `json:"event_type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Version    int            `json:"version"`
	LockData   *LockEventData `json:"data"`
}

// LockEventData contains the lock data in the event
type LockEventData struct {
	LockID        string     `json:"lock_id"`
	RequestID     string     `json:"request_id"`
	RoomID        string     `json:"room_id"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	Status        string     `json:"status"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

// NewLockEvent creates a lock event from a room lock
func NewLockEvent(eventType LockEventType, lock *RoomLock, eventID string) *LockEvent {
	return &LockEvent{
		EventID:    eventID,
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Version:    1,
		LockData: &LockEventData{
			LockID:        lock.ID,
			RequestID:     lock.RequestID,
			RoomID:        lock.RoomID,
			StartDate:     lock.StartDate,
			EndDate:       lock.EndDate,
			Status:        string(lock.Status),
			ExpiresAt:     lock.ExpiresAt,
			CorrelationID: lock.CorrelationID,
		},
	}
}

// Key returns the partition key for this event. Events for the same
// room land on the same partition so consumers see them in order.
func (e *LockEvent) Key() string {
	if e.LockData != nil {
		return e.LockData.RoomID
	}
	return e.EventID
}
