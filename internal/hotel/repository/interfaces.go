package repository

import (
	"context"
	"time"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
)

// LockRepository defines the interface for room lock data access
type LockRepository interface {
	// CreateSerialized inserts a HELD lock after checking room availability and
	// date conflicts, all inside one transaction serialized per room
	CreateSerialized(ctx context.Context, lock *domain.RoomLock) error
	// GetByRequestID retrieves a lock by request ID, nil when absent
	GetByRequestID(ctx context.Context, requestID string) (*domain.RoomLock, error)
	// GetByID retrieves a lock by ID, nil when absent
	GetByID(ctx context.Context, id string) (*domain.RoomLock, error)
	// ConfirmByRequestID transitions HELD -> CONFIRMED and increments the
	// room's times_booked counter in the same transaction
	ConfirmByRequestID(ctx context.Context, requestID string, now time.Time) (*domain.RoomLock, error)
	// ReleaseByRequestID transitions HELD -> RELEASED
	ReleaseByRequestID(ctx context.Context, requestID string, now time.Time) (*domain.RoomLock, error)
	// HasConflict checks for an active lock overlapping [start, end) on the room
	HasConflict(ctx context.Context, roomID string, start, end time.Time) (bool, error)
	// GetExpired retrieves HELD locks whose expiry has passed
	GetExpired(ctx context.Context, now time.Time, limit int) ([]*domain.RoomLock, error)
	// MarkExpired transitions a HELD lock to EXPIRED, false when already moved on
	MarkExpired(ctx context.Context, id string, now time.Time) (bool, error)
	// DeleteTerminalBefore removes RELEASED/EXPIRED locks older than the cutoff
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// GetByRoomID lists locks for a room, newest first
	GetByRoomID(ctx context.Context, roomID string, limit, offset int) ([]*domain.RoomLock, error)
	// CountByStatus returns lock counts grouped by status
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// RoomRepository defines the interface for room data access
type RoomRepository interface {
	// Create creates a new room
	Create(ctx context.Context, room *domain.Room) error
	// GetByID retrieves a room by ID
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	// List lists rooms with pagination
	List(ctx context.Context, limit, offset int) ([]*domain.Room, int64, error)
	// GetAvailable lists rooms free for the stay, least-booked first
	GetAvailable(ctx context.Context, start, end time.Time, city string, limit int) ([]*domain.Room, error)
	// GetPopular lists the most-booked rooms
	GetPopular(ctx context.Context, limit int) ([]*domain.Room, error)
	// CountRooms returns total and available room counts
	CountRooms(ctx context.Context) (total int64, available int64, err error)
}

// HotelRepository defines the interface for hotel data access
type HotelRepository interface {
	// Create creates a new hotel
	Create(ctx context.Context, hotel *domain.Hotel) error
	// GetByID retrieves a hotel by ID
	GetByID(ctx context.Context, id string) (*domain.Hotel, error)
	// List lists hotels with pagination
	List(ctx context.Context, limit, offset int) ([]*domain.Hotel, int64, error)
}
