package domain

import (
	"time"

	"github.com/google/uuid"
)

// LockStatus represents the lifecycle state of a room lock
type LockStatus string

const (
	LockStatusHeld      LockStatus = "HELD"
	LockStatusConfirmed LockStatus = "CONFIRMED"
	LockStatusReleased  LockStatus = "RELEASED"
	LockStatusExpired   LockStatus = "EXPIRED"
)

// String returns the string representation of the status
func (s LockStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the lock can no longer change state
func (s LockStatus) IsTerminal() bool {
	return s == LockStatusReleased || s == LockStatusExpired
}

// ActiveLockStatuses are the statuses that occupy a room's date interval.
// Only these participate in conflict checks.
var ActiveLockStatuses = []LockStatus{LockStatusHeld, LockStatusConfirmed}

// RoomLock represents a hold on a room for a date range.
// Intervals are half-open [StartDate, EndDate): the end date is checkout day
// and does not conflict with a stay starting the same day.
type RoomLock struct {
	ID            string     `json:"id"`
	RequestID     string     `json:"request_id"`
	RoomID        string     `json:"room_id"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	Status        LockStatus `json:"status"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewRoomLock creates a HELD lock for the given request and stay
func NewRoomLock(requestID, roomID string, startDate, endDate time.Time, holdTTL time.Duration, correlationID string) *RoomLock {
	now := time.Now().UTC()
	expiresAt := now.Add(holdTTL)
	return &RoomLock{
		ID:            uuid.New().String(),
		RequestID:     requestID,
		RoomID:        roomID,
		StartDate:     startDate,
		EndDate:       endDate,
		Status:        LockStatusHeld,
		ExpiresAt:     &expiresAt,
		CorrelationID: correlationID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsExpired reports whether a HELD lock's hold window has lapsed.
// Locks already swept to EXPIRED report true as well.
func (l *RoomLock) IsExpired(now time.Time) bool {
	if l.Status == LockStatusExpired {
		return true
	}
	return l.Status == LockStatusHeld && l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// Overlaps reports whether [start, end) overlaps the lock's interval.
// A boundary touch is not an overlap.
func (l *RoomLock) Overlaps(start, end time.Time) bool {
	return l.StartDate.Before(end) && start.Before(l.EndDate)
}

// ValidateStay checks the date rules for a new hold: the range must be
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
