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

// PostgreSQL error code for unique violation
const pgUniqueViolationCode = "23505"

const lockColumns = `
	id, request_id, room_id, start_date, end_date, status,
	expires_at, correlation_id, created_at, updated_at
`

// PostgresLockRepository implements LockRepository using PostgreSQL with pgxpool
type PostgresLockRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLockRepository creates a new PostgresLockRepository
func NewPostgresLockRepository(pool *pgxpool.Pool) *PostgresLockRepository {
	return &PostgresLockRepository{pool: pool}
}

// CreateSerialized inserts a HELD lock for a stay. Availability check, conflict
// probe and insert run in one transaction; a transaction-scoped advisory lock
// on the room id closes the check-then-insert race between concurrent holds.
func (r *PostgresLockRepository) CreateSerialized(ctx context.Context, lock *domain.RoomLock) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.lock.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("request_id", lock.RequestID),
		attribute.String("room_id", lock.RoomID),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin hold transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, lock.RoomID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to serialize room: %w", err)
	}

	var available bool
	err = tx.QueryRow(ctx, `SELECT is_available FROM rooms WHERE id = $1`, lock.RoomID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "room not found")
			return domain.ErrRoomNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to check room: %w", err)
	}
	if !available {
		span.SetStatus(codes.Error, "room unavailable")
		return domain.ErrRoomUnavailable
	}

	var conflict bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM room_locks
			WHERE room_id = $1
			  AND status IN ('HELD', 'CONFIRMED')
			  AND start_date < $3
			  AND end_date > $2
		)`, lock.RoomID, lock.StartDate, lock.EndDate).Scan(&conflict)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to check conflicts: %w", err)
	}
	if conflict {
		span.SetStatus(codes.Error, "conflict")
		return domain.ErrLockConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO room_locks (
			id, request_id, room_id, start_date, end_date, status,
			expires_at, correlation_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		lock.ID,
		lock.RequestID,
		lock.RoomID,
		lock.StartDate,
		lock.EndDate,
		lock.Status.String(),
		lock.ExpiresAt,
		nullString(lock.CorrelationID),
		lock.CreatedAt,
		lock.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			span.SetStatus(codes.Error, "duplicate request_id")
			return domain.ErrLockAlreadyExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create lock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit hold transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByRequestID retrieves a lock by request ID. Returns nil, nil when absent
// so callers can use it as an idempotency probe.
func (r *PostgresLockRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.RoomLock, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.lock.get_by_request_id")
	defer span.End()

	span.SetAttributes(attribute.String("request_id", requestID))

	query := `SELECT ` + lockColumns + ` FROM room_locks WHERE request_id = $1`
	lock, err := scanLock(r.pool.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetAttributes(attribute.Bool("found", false))
			span.SetStatus(codes.Ok, "")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get lock by request_id: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return lock, nil
}

// GetByID retrieves a lock by ID. Returns nil, nil when absent.
func (r *PostgresLockRepository) GetByID(ctx context.Context, id string) (*domain.RoomLock, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.lock.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("lock_id", id))

	query := `SELECT ` + lockColumns + ` FROM room_locks WHERE id = $1`
	lock, err := scanLock(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetAttributes(attribute.Bool("found", false))
			span.SetStatus(codes.Ok, "")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get lock by id: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return lock, nil
}

// ConfirmByRequestID transitions a fresh HELD lock to CONFIRMED and increments
// the owning room's times_booked counter in the same transaction. When the
// guarded update matches no row the current row is re-read to classify the
// failure; an already CONFIRMED lock is returned unchanged.
func (r *PostgresLockRepository) ConfirmByRequestID(ctx context.Context, requestID string, now time.Time) (*domain.RoomLock, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.lock.confirm")
	defer span.End()

	span.SetAttributes(attribute.String("request_id", requestID))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to begin confirm transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE room_locks
		SET status = 'CONFIRMED', updated_at = $2
		WHERE request_id = $1 AND status = 'HELD' AND expires_at > $2
		RETURNING ` + lockColumns

	lock, err := scanLock(tx.QueryRow(ctx, query, requestID, now))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to confirm lock: %w", err)
		}

		// Guard matched nothing: read the row back and classify
		current, err := scanLock(tx.QueryRow(ctx, `SELECT `+lockColumns+` FROM room_locks WHERE request_id = $1`, requestID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				span.SetStatus(codes.Error, "not found")
				return nil, domain.ErrLockNotFound
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to classify confirm failure: %w", err)
		}

		switch {
		case current.Status == domain.LockStatusConfirmed:
			if err := tx.Commit(ctx); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("failed to commit confirm transaction: %w", err)
			}
			span.SetAttributes(attribute.Bool("idempotent_replay", true))
			span.SetStatus(codes.Ok, "")
			return current, nil
		case current.Status == domain.LockStatusReleased:
			span.SetStatus(codes.Error, "already released")
			return nil, domain.ErrLockAlreadyReleased
		case current.IsExpired(now):
			span.SetStatus(codes.Error, "expired")
			return nil, domain.ErrLockExpired
		default:
			span.SetStatus(codes.Error, "invalid state")
			return nil, domain.ErrLockExpired
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE rooms SET times_booked = times_booked + 1, updated_at = $2 WHERE id = $1`, lock.RoomID, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to increment times_booked: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to commit confirm transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return lock, nil
}

// ReleaseByRequestID transitions a HELD lock to RELEASED. RELEASED and
// CONFIRMED rows are returned unchanged: a late compensation must never undo
// a confirmed booking.
func (r *PostgresLockRepository) ReleaseByRequestID(ctx context.Context, requestID string, now time.Time) (*domain.RoomLock, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.lock.release")
	defer span.End()

	span.SetAttributes(attribute.String("request_id", requestID))

	query := `
		UPDATE room_locks
		SET status = 'RELEASED', updated_at = $2
		WHERE request_id = $1 AND status = 'HELD'
		RETURNING ` + lockColumns

	lock, err := scanLock(r.pool.QueryRow(ctx, query, requestID, now))
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return lock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to release lock: %w", err)
	}

	current, err := scanLock(r.pool.QueryRow(ctx, `SELECT `+lockColumns+` FROM room_locks WHERE request_id = $1`, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrLockNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to classify release failure: %w", err)
	}

	switch current.Status {
	case domain.LockStatusReleased, domain.LockStatusConfirmed:
		span.SetAttributes(attribute.Bool("idempotent_replay", true))
		span.SetStatus(codes.Ok, "")
		return current, nil
	case domain.LockStatusExpired:
		span.SetStatus(codes.Error, "expired")
		return nil, domain.ErrLockExpired
	default:
		span.SetStatus(codes.Error, "invalid state")
		return nil, domain.ErrLockExpired
	}
}

// HasConflict checks for an active lock on the room overlapping [start, end)
func (r *PostgresLockRepository) HasConflict(ctx context.Context, roomID string, start, end time.Time) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.lock.has_conflict")
	defer span.End()

	span.SetAttributes(attribute.String("room_id", roomID))

	var conflict bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM room_locks
			WHERE room_id = $1
			  AND status IN ('HELD', 'CONFIRMED')
			  AND start_date < $3
			  AND end_date > $2
		)`, roomID, start, end).Scan(&conflict)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return conflict, nil
}

// GetExpired retrieves HELD locks whose expiry has passed, oldest first
func (r *PostgresLockRepository) GetExpired(ctx context.Context, now time.Time, limit int) ([]*domain.RoomLock, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.lock.get_expired")
	defer span.End()

	query := `
		SELECT ` + lockColumns + `
		FROM room_locks
		WHERE status = 'HELD' AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query expired locks: %w", err)
	}
	defer rows.Close()

	locks, err := collectLocks(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(locks)))
	span.SetStatus(codes.Ok, "")
	return locks, nil
}

// MarkExpired transitions a HELD lock to EXPIRED. Returns false when the lock
// moved on since it was read; callers treat that as already handled.
func (r *PostgresLockRepository) MarkExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.lock.mark_expired")
	defer span.End()

	span.SetAttributes(attribute.String("lock_id", id))

	result, err := r.pool.Exec(ctx, `
		UPDATE room_locks
		SET status = 'EXPIRED', updated_at = $2
		WHERE id = $1 AND status = 'HELD'`, id, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to mark lock expired: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return result.RowsAffected() > 0, nil
}

// DeleteTerminalBefore removes RELEASED and EXPIRED locks last touched before
// the cutoff. Used for retention cleanup.
func (r *PostgresLockRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.lock.delete_terminal")
	defer span.End()

	result, err := r.pool.Exec(ctx, `
		DELETE FROM room_locks
		WHERE status IN ('RELEASED', 'EXPIRED') AND updated_at < $1`, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to delete terminal locks: %w", err)
	}

	deleted := result.RowsAffected()
	span.SetAttributes(attribute.Int64("deleted", deleted))
	span.SetStatus(codes.Ok, "")
	return deleted, nil
}

// GetByRoomID lists locks for a room, newest first
func (r *PostgresLockRepository) GetByRoomID(ctx context.Context, roomID string, limit, offset int) ([]*domain.RoomLock, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.lock.get_by_room_id")
	defer span.End()

	span.SetAttributes(attribute.String("room_id", roomID))

	query := `
		SELECT ` + lockColumns + `
		FROM room_locks
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, roomID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query locks by room: %w", err)
	}
	defer rows.Close()

	locks, err := collectLocks(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(locks)))
	span.SetStatus(codes.Ok, "")
	return locks, nil
}

// CountByStatus returns lock counts grouped by status
func (r *PostgresLockRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.lock.count_by_status")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM room_locks GROUP BY status`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to count locks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan lock count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating lock counts: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return counts, nil
}

// scanLock scans a single lock from a row
func scanLock(row pgx.Row) (*domain.RoomLock, error) {
	lock := &domain.RoomLock{}
	var status string
	var correlationID *string

	err := row.Scan(
		&lock.ID,
		&lock.RequestID,
		&lock.RoomID,
		&lock.StartDate,
		&lock.EndDate,
		&status,
		&lock.ExpiresAt,
		&correlationID,
		&lock.CreatedAt,
		&lock.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lock.Status = domain.LockStatus(status)
	if correlationID != nil {
		lock.CorrelationID = *correlationID
	}
	return lock, nil
}

// collectLocks drains rows into a slice
func collectLocks(rows pgx.Rows) ([]*domain.RoomLock, error) {
	var locks []*domain.RoomLock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lock: %w", err)
		}
		locks = append(locks, lock)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locks: %w", err)
	}
	return locks, nil
}

// nullString returns nil if string is empty, otherwise returns pointer to string
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ LockRepository = (*PostgresLockRepository)(nil)
