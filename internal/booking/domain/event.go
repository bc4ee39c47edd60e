package domain

import (
	"time"
)

// ReservationEventType represents the type of reservation event
type ReservationEventType string

const (
	ReservationEventCreated   ReservationEventType = "booking.reservation.created"
	ReservationEventConfirmed ReservationEventType = "booking.reservation.confirmed"
	ReservationEventCancelled ReservationEventType = "booking.reservation.cancelled"
)

// ReservationEvent represents a reservation domain event published to Kafka
type ReservationEvent struct {
	EventID         string                `json:"event_id"`
	EventType       ReservationEventType  `json:"event_type"`
	OccurredAt      time.Time             `json:"occurred_at"`
	Version         int                   `json:"version"`
	ReservationData *ReservationEventData `json:"data"`
}

// ReservationEventData contains the reservation data in the event
type ReservationEventData struct {
	ReservationID string    `json:"reservation_id"`
	RequestID     string    `json:"request_id"`
	UserID        string    `json:"user_id"`
	RoomID        string    `json:"room_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Status        string    `json:"status"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// NewReservationEvent creates a reservation event from a reservation
func NewReservationEvent(eventType ReservationEventType, r *Reservation, eventID string) *ReservationEvent {
	return &ReservationEvent{
		EventID:    eventID,
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Version:    1,
		ReservationData: &ReservationEventData{
			ReservationID: r.ID,
			RequestID:     r.RequestID,
			UserID:        r.UserID,
			RoomID:        r.RoomID,
			StartDate:     r.StartDate,
			EndDate:       r.EndDate,
			Status:        string(r.Status),
			CorrelationID: r.CorrelationID,
		},
	}
}

// Key returns the partition key for this event. Events for the same
// reservation land on the same partition so consumers see them in order.
func (e *ReservationEvent) Key() string {
	if e.ReservationData != nil {
		return e.ReservationData.ReservationID
	}
	return e.EventID
}
