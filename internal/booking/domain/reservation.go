package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus represents the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// String returns the string representation of the status
func (s ReservationStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the reservation can no longer change state
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusConfirmed || s == ReservationStatusCancelled
}

// Reservation represents a stay request driven through the booking saga.
// A row enters PENDING when the saga starts and is always driven to
// CONFIRMED or CANCELLED; clients never observe PENDING.
type Reservation struct {
	ID            string            `json:"id"`
	RequestID     string            `json:"request_id"`
	UserID        string            `json:"user_id"`
	RoomID        string            `json:"room_id"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       time.Time         `json:"end_date"`
	Status        ReservationStatus `json:"status"`
	CorrelationID string            `json:"correlation_id"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewReservation creates a PENDING reservation with a fresh correlation id
func NewReservation(requestID, userID, roomID string, startDate, endDate time.Time) *Reservation {
	now := time.Now().UTC()
	return &Reservation{
		ID:            uuid.New().String(),
		RequestID:     requestID,
		UserID:        userID,
		RoomID:        roomID,
		StartDate:     startDate,
		EndDate:       endDate,
		Status:        ReservationStatusPending,
		CorrelationID: "booking-" + uuid.New().String(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ValidateStay checks the date rules at saga entry: the range must be
// non-empty and must not start before today
func ValidateStay(startDate, endDate, today time.Time) error {
	if !startDate.Before(endDate) {
		return ErrInvalidDateRange
	}
	if startDate.Before(today) {
		return ErrDateInPast
	}
	return nil
}
