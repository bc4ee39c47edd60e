package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
)

const hotelColumns = `
	id, name, city, address, phone_number, description,
	star_rating, is_active, created_at, updated_at
`

// PostgresHotelRepository implements HotelRepository using PostgreSQL with pgxpool
type PostgresHotelRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresHotelRepository creates a new PostgresHotelRepository
func NewPostgresHotelRepository(pool *pgxpool.Pool) *PostgresHotelRepository {
	return &PostgresHotelRepository{pool: pool}
}

// Create creates a new hotel
func (r *PostgresHotelRepository) Create(ctx context.Context, hotel *domain.Hotel) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hotel.create")
	defer span.End()

	span.SetAttributes(attribute.String("hotel_id", hotel.ID))

	_, err := r.pool.Exec(ctx, `
		INSERT INTO hotels (
			id, name, city, address, phone_number, description,
			star_rating, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		hotel.ID,
		hotel.Name,
		hotel.City,
		hotel.Address,
		nullString(hotel.PhoneNumber),
		nullString(hotel.Description),
		hotel.StarRating,
		hotel.IsActive,
		hotel.CreatedAt,
		hotel.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			span.SetStatus(codes.Error, "duplicate hotel")
			return domain.ErrHotelAlreadyExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create hotel: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a hotel by ID
func (r *PostgresHotelRepository) GetByID(ctx context.Context, id string) (*domain.Hotel, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hotel.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("hotel_id", id))

	query := `SELECT ` + hotelColumns + ` FROM hotels WHERE id = $1`
	hotel, err := scanHotel(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrHotelNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get hotel: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return hotel, nil
}

// List lists hotels with pagination
func (r *PostgresHotelRepository) List(ctx context.Context, limit, offset int) ([]*domain.Hotel, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hotel.list")
	defer span.End()

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM hotels`).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to count hotels: %w", err)
	}

	query := `SELECT ` + hotelColumns + ` FROM hotels ORDER BY city, name LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to query hotels: %w", err)
	}
	defer rows.Close()

	var hotels []*domain.Hotel
	for rows.Next() {
		hotel, err := scanHotel(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, 0, fmt.Errorf("failed to scan hotel: %w", err)
		}
		hotels = append(hotels, hotel)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("error iterating hotels: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(hotels)))
	span.SetStatus(codes.Ok, "")
	return hotels, total, nil
}

// scanHotel scans a single hotel from a row
func scanHotel(row pgx.Row) (*domain.Hotel, error) {
	hotel := &domain.Hotel{}
	var phoneNumber, description *string

	err := row.Scan(
		&hotel.ID,
		&hotel.Name,
		&hotel.City,
		&hotel.Address,
		&phoneNumber,
		&description,
		&hotel.StarRating,
		&hotel.IsActive,
		&hotel.CreatedAt,
		&hotel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if phoneNumber != nil {
		hotel.PhoneNumber = *phoneNumber
	}
	if description != nil {
		hotel.Description = *description
	}
	return hotel, nil
}

var _ HotelRepository = (*PostgresHotelRepository)(nil)
