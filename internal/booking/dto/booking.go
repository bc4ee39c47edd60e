package dto

import (
	"time"

	"github.com/Plvkssh/SmartLodge/internal/booking/domain"
)

// DateLayout is the wire format for stay dates
const DateLayout = "2006-01-02"

// CreateBookingRequest represents a reservation intent.
// RequestID is the client's idempotency key; when absent the service
// generates one and the retry guarantee only covers server-side retries.
type CreateBookingRequest struct {
	RoomID    string `json:"room_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	RequestID string `json:"request_id"`
}

// ReservationResponse represents a reservation in API responses.
// Status is always terminal by the time a creation response is written.
type ReservationResponse struct {
	ID            string `json:"id"`
	RequestID     string `json:"request_id"`
	UserID        string `json:"user_id"`
	RoomID        string `json:"room_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlation_id"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// ListQuery represents generic pagination parameters
type ListQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// SetDefaults applies pagination defaults
func (q *ListQuery) SetDefaults() {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// SuggestedRoomsQuery represents query parameters for the availability proxy
type SuggestedRoomsQuery struct {
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
	City      string `form:"city"`
	Limit     int    `form:"limit"`
}

// SagaListQuery filters the saga admin listing
type SagaListQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
}

// ReservationStatsResponse represents reservation counts grouped by status
type ReservationStatsResponse struct {
	ByStatus map[string]int64 `json:"by_status"`
	Total    int64            `json:"total"`
}

// ParseDate parses a wire date into a UTC midnight timestamp
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// ReservationFromDomain converts a domain Reservation to ReservationResponse
func ReservationFromDomain(r *domain.Reservation) *ReservationResponse {
	return &ReservationResponse{
		ID:            r.ID,
		RequestID:     r.RequestID,
		UserID:        r.UserID,
		RoomID:        r.RoomID,
		StartDate:     r.StartDate.Format(DateLayout),
		EndDate:       r.EndDate.Format(DateLayout),
		Status:        r.Status.String(),
		CorrelationID: r.CorrelationID,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
}

// ReservationsFromDomain converts a slice of domain Reservations
func ReservationsFromDomain(reservations []*domain.Reservation) []*ReservationResponse {
	out := make([]*ReservationResponse, len(reservations))
	for i, r := range reservations {
		out[i] = ReservationFromDomain(r)
	}
	return out
}
