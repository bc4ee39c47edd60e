package dto

import (
	"time"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
)

// DateLayout is the wire format for stay dates
const DateLayout = "2006-01-02"

// HoldRoomRequest represents request to hold a room for a date range
type HoldRoomRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// ConfirmRoomRequest represents request to confirm a held room
type ConfirmRoomRequest struct {
	RequestID string `json:"request_id" binding:"required"`
}

// ReleaseRoomRequest represents request to release a held room
type ReleaseRoomRequest struct {
	RequestID string `json:"request_id" binding:"required"`
}

// LockResponse represents a room lock in API responses
type LockResponse struct {
	ID            string  `json:"id"`
	RequestID     string  `json:"request_id"`
	RoomID        string  `json:"room_id"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Status        string  `json:"status"`
	ExpiresAt     *string `json:"expires_at,omitempty"`
	CorrelationID string  `json:"correlation_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// LockStatsResponse represents lock counts grouped by status
type LockStatsResponse struct {
	ByStatus map[string]int64 `json:"by_status"`
	Total    int64            `json:"total"`
}

// ParseDate parses a wire date into a UTC midnight timestamp
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// LockFromDomain converts a domain RoomLock to LockResponse
func LockFromDomain(l *domain.RoomLock) *LockResponse {
	resp := &LockResponse{
		ID:            l.ID,
		RequestID:     l.RequestID,
		RoomID:        l.RoomID,
		StartDate:     l.StartDate.Format(DateLayout),
		EndDate:       l.EndDate.Format(DateLayout),
		Status:        l.Status.String(),
		CorrelationID: l.CorrelationID,
		CreatedAt:     l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     l.UpdatedAt.Format(time.RFC3339),
	}
	if l.ExpiresAt != nil {
		t := l.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &t
	}
	return resp
}
