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

	"github.com/Plvkssh/SmartLodge/internal/booking/domain"
	"github.com/Plvkssh/SmartLodge/pkg/telemetry"
)

// PostgreSQL error code for unique violation
const pgUniqueViolationCode = "23505"

const reservationColumns = `
	id, request_id, user_id, room_id, start_date, end_date, status,
	correlation_id, created_at, updated_at
`

// PostgresReservationRepository implements ReservationRepository using
// PostgreSQL with pgxpool
type PostgresReservationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReservationRepository creates a new PostgresReservationRepository
func NewPostgresReservationRepository(pool *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{pool: pool}
}

// Create inserts a PENDING reservation. The unique index on request_id
// resolves concurrent duplicates: exactly one caller gets the insert,
// the loser sees ErrDuplicateRequest and re-reads.
func (r *PostgresReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", reservation.ID),
		attribute.String("request_id", reservation.RequestID),
		attribute.String("room_id", reservation.RoomID),
	)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO reservations (
			id, request_id, user_id, room_id, start_date, end_date, status,
			correlation_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		reservation.ID,
		reservation.RequestID,
		reservation.UserID,
		reservation.RoomID,
		reservation.StartDate,
		reservation.EndDate,
		reservation.Status.String(),
		nullString(reservation.CorrelationID),
		reservation.CreatedAt,
		reservation.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			span.SetStatus(codes.Error, "duplicate request_id")
			return domain.ErrDuplicateRequest
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a reservation by ID. Returns nil, nil when absent.
func (r *PostgresReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", id))

	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetAttributes(attribute.Bool("found", false))
			span.SetStatus(codes.Ok, "")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get reservation by id: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return reservation, nil
}

// GetByRequestID retrieves a reservation by request ID. Returns nil, nil
// when absent so callers can use it as an idempotency probe.
func (r *PostgresReservationRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.get_by_request_id")
	defer span.End()

	span.SetAttributes(attribute.String("request_id", requestID))

	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE request_id = $1`
	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetAttributes(attribute.Bool("found", false))
			span.SetStatus(codes.Ok, "")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get reservation by request_id: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return reservation, nil
}

// UpdateStatus transitions a PENDING reservation to CONFIRMED or
// CANCELLED. When the guarded update matches no row the current row is
// re-read to classify the failure; a row already carrying the requested
// status is returned unchanged so the write stays idempotent under
// saga resumption.
func (r *PostgresReservationRepository) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus, now time.Time) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.update_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", id),
		attribute.String("status", status.String()),
	)

	query := `
		UPDATE reservations
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + reservationColumns

	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, id, status.String(), now))
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return reservation, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to update reservation status: %w", err)
	}

	// Guard matched nothing: read the row back and classify
	current, err := scanReservation(r.pool.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrReservationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to classify status update failure: %w", err)
	}

	if current.Status == status {
		span.SetAttributes(attribute.Bool("idempotent_replay", true))
		span.SetStatus(codes.Ok, "")
		return current, nil
	}

	span.SetStatus(codes.Error, "already terminal")
	return nil, fmt.Errorf("%w: reservation is %s", domain.ErrReservationTerminal, current.Status)
}

// GetByUserID lists reservations for a user, newest first
func (r *PostgresReservationRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.Reservation, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.get_by_user_id")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE user_id = $1`, userID).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	reservations, err := collectReservations(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("count", len(reservations)))
	span.SetStatus(codes.Ok, "")
	return reservations, total, nil
}

// CountByStatus returns reservation counts grouped by status
func (r *PostgresReservationRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.count_by_status")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM reservations GROUP BY status`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to count reservations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan reservation count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating reservation counts: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return counts, nil
}

// scanReservation scans a single reservation from a row
func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	reservation := &domain.Reservation{}
	var status string
	var correlationID *string

	err := row.Scan(
		&reservation.ID,
		&reservation.RequestID,
		&reservation.UserID,
		&reservation.RoomID,
		&reservation.StartDate,
		&reservation.EndDate,
		&status,
		&correlationID,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	reservation.Status = domain.ReservationStatus(status)
	if correlationID != nil {
		reservation.CorrelationID = *correlationID
	}
	return reservation, nil
}

// collectReservations scans all reservations from a result set
func collectReservations(rows pgx.Rows) ([]*domain.Reservation, error) {
	reservations := make([]*domain.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservations: %w", err)
	}
	return reservations, nil
}

// nullString returns nil for empty strings so they store as NULL
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ ReservationRepository = (*PostgresReservationRepository)(nil)
