package repository

import (
	"context"
	"time"

	"github.com/Plvkssh/SmartLodge/internal/booking/domain"
)

// ReservationRepository defines the interface for reservation data access
type ReservationRepository interface {
	// Create inserts a PENDING reservation; ErrDuplicateRequest when the
	// request_id is already taken
	Create(ctx context.Context, reservation *domain.Reservation) error
	// GetByID retrieves a reservation by ID, nil when absent
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	// GetByRequestID retrieves a reservation by request ID, nil when absent
	GetByRequestID(ctx context.Context, requestID string) (*domain.Reservation, error)
	// UpdateStatus transitions a PENDING reservation to the given terminal
	// status; writing the same terminal status twice is a no-op
	UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus, now time.Time) (*domain.Reservation, error)
	// GetByUserID lists reservations for a user, newest first
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.Reservation, int64, error)
	// CountByStatus returns reservation counts grouped by status
	CountByStatus(ctx context.Context) (map[string]int64, error)
}
