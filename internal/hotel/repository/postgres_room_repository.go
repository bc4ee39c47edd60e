package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
)

const roomColumns = `
	id, hotel_id, room_number, type, capacity, price_per_night,
	description, is_available, times_booked, created_at, updated_at
`

// PostgresRoomRepository implements RoomRepository using PostgreSQL with pgxpool
type PostgresRoomRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRoomRepository creates a new PostgresRoomRepository
func NewPostgresRoomRepository(pool *pgxpool.Pool) *PostgresRoomRepository {
	return &PostgresRoomRepository{pool: pool}
}

// Create creates a new room
func (r *PostgresRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", room.ID),
		attribute.String("hotel_id", room.HotelID),
	)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO rooms (
			id, hotel_id, room_number, type, capacity, price_per_night,
			description, is_available, times_booked, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		room.ID,
		room.HotelID,
		room.RoomNumber,
		string(room.Type),
		room.Capacity,
		room.PricePerNight,
		nullString(room.Description),
		room.IsAvailable,
		room.TimesBooked,
		room.CreatedAt,
		room.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			span.SetStatus(codes.Error, "duplicate room number")
			return domain.ErrRoomAlreadyExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create room: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a room by ID
func (r *PostgresRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("room_id", id))

	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	room, err := scanRoom(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrRoomNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return room, nil
}

// List lists rooms with pagination
func (r *PostgresRoomRepository) List(ctx context.Context, limit, offset int) ([]*domain.Room, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.list")
	defer span.End()

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to count rooms: %w", err)
	}

	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY hotel_id, room_number LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	rooms, err := collectRooms(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("count", len(rooms)))
	span.SetStatus(codes.Ok, "")
	return rooms, total, nil
}

// GetAvailable lists rooms free for the whole stay [start, end), least-booked
// first so new bookings spread evenly across the inventory
func (r *PostgresRoomRepository) GetAvailable(ctx context.Context, start, end time.Time, city string, limit int) ([]*domain.Room, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.get_available")
	defer span.End()

	span.SetAttributes(attribute.String("city", city))

	base := `
		SELECT ` + prefixedRoomColumns("r") + `
		FROM rooms r
		%s
		WHERE r.is_available = true
		  AND NOT EXISTS (
			SELECT 1 FROM room_locks l
			WHERE l.room_id = r.id
			  AND l.status IN ('HELD', 'CONFIRMED')
			  AND l.start_date < $2
			  AND l.end_date > $1
		  )
		%s
		ORDER BY r.times_booked ASC, r.id ASC
		LIMIT $3
	`

	var rows pgx.Rows
	var err error
	if city != "" {
		query := fmt.Sprintf(base, "JOIN hotels h ON h.id = r.hotel_id", "AND h.city = $4")
		rows, err = r.pool.Query(ctx, query, start, end, limit, city)
	} else {
		query := fmt.Sprintf(base, "", "")
		rows, err = r.pool.Query(ctx, query, start, end, limit)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query available rooms: %w", err)
	}
	defer rows.Close()

	rooms, err := collectRooms(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(rooms)))
	span.SetStatus(codes.Ok, "")
	return rooms, nil
}

// GetPopular lists the most-booked rooms
func (r *PostgresRoomRepository) GetPopular(ctx context.Context, limit int) ([]*domain.Room, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.get_popular")
	defer span.End()

	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY times_booked DESC, id ASC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query popular rooms: %w", err)
	}
	defer rows.Close()

	rooms, err := collectRooms(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(rooms)))
	span.SetStatus(codes.Ok, "")
	return rooms, nil
}

// CountRooms returns total and available room counts
func (r *PostgresRoomRepository) CountRooms(ctx context.Context) (int64, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.count")
	defer span.End()

	var total, available int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_available) FROM rooms`).Scan(&total, &available)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, fmt.Errorf("failed to count rooms: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return total, available, nil
}

// scanRoom scans a single room from a row
func scanRoom(row pgx.Row) (*domain.Room, error) {
	room := &domain.Room{}
	var roomType string
	var description *string

	err := row.Scan(
		&room.ID,
		&room.HotelID,
		&room.RoomNumber,
		&roomType,
		&room.Capacity,
		&room.PricePerNight,
		&description,
		&room.IsAvailable,
		&room.TimesBooked,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	room.Type = domain.RoomType(roomType)
	if description != nil {
		room.Description = *description
	}
	return room, nil
}

// collectRooms drains rows into a slice
func collectRooms(rows pgx.Rows) ([]*domain.Room, error) {
	var rooms []*domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rooms: %w", err)
	}
	return rooms, nil
}

// prefixedRoomColumns qualifies the room column list with a table alias
func prefixedRoomColumns(alias string) string {
	return fmt.Sprintf(`
		%[1]s.id, %[1]s.hotel_id, %[1]s.room_number, %[1]s.type, %[1]s.capacity, %[1]s.price_per_night,
		%[1]s.description, %[1]s.is_available, %[1]s.times_booked, %[1]s.created_at, %[1]s.updated_at
	`, alias)
}

var _ RoomRepository = (*PostgresRoomRepository)(nil)
