package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Plvkssh/SmartLodge/internal/hotel/domain"
)

func skipIfNoIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}
}

// getPostgresPool creates a PostgreSQL connection pool for testing
func getPostgresPool(t *testing.T) *pgxpool.Pool {
	skipIfNoIntegration(t)

	host := os.Getenv("TEST_POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("TEST_POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}

	user := os.Getenv("TEST_POSTGRES_USER")
	if user == "" {
		user = "postgres"
	}

	password := os.Getenv("TEST_POSTGRES_PASSWORD")
	if password == "" {
		password = "postgres"
	}

	dbname := os.Getenv("TEST_POSTGRES_DB")
	if dbname == "" {
		dbname = "smartlodge_test"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, password, host, port, dbname)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping PostgreSQL: %v", err)
	}

	ensureSchema(t, pool)
	cleanupTestData(t, pool)

	return pool
}

func ensureSchema(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS hotels (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			city VARCHAR(50) NOT NULL,
			address VARCHAR(200) NOT NULL,
			phone_number VARCHAR(20),
			description TEXT,
			star_rating INT NOT NULL DEFAULT 3,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			CONSTRAINT uk_hotel_name_city UNIQUE (name, city)
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id VARCHAR(36) PRIMARY KEY,
			hotel_id VARCHAR(36) NOT NULL REFERENCES hotels(id),
			room_number VARCHAR(20) NOT NULL,
			type VARCHAR(20) NOT NULL DEFAULT 'STANDARD',
			capacity INT NOT NULL DEFAULT 1,
			price_per_night DECIMAL(12,2) NOT NULL DEFAULT 0,
			description TEXT,
			is_available BOOLEAN NOT NULL DEFAULT true,
			times_booked BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			CONSTRAINT uk_room_hotel_number UNIQUE (hotel_id, room_number)
		)`,
		`CREATE TABLE IF NOT EXISTS room_locks (
			id VARCHAR(36) PRIMARY KEY,
			request_id VARCHAR(100) NOT NULL,
			room_id VARCHAR(36) NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'HELD',
			expires_at TIMESTAMP WITH TIME ZONE,
			correlation_id VARCHAR(100),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			CONSTRAINT uk_lock_request UNIQUE (request_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lock_conflict
			ON room_locks (room_id, status, start_date, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_lock_expiry
			ON room_locks (status, expires_at)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to create schema: %v", err)
		}
	}
}

func cleanupTestData(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	// Clean up in reverse order of dependencies
	for _, table := range []string{"room_locks", "rooms", "hotels"} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Logf("Warning: failed to clean up %s: %v", table, err)
		}
	}
}

func seedRoom(t *testing.T, pool *pgxpool.Pool, available bool) *domain.Room {
	ctx := context.Background()
	now := time.Now().UTC()

	hotel := &domain.Hotel{
		ID:         uuid.New().String(),
		Name:       "Test Hotel " + uuid.New().String()[:8],
		City:       "Lisbon",
		Address:    "1 Test Street",
		StarRating: 4,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := NewPostgresHotelRepository(pool).Create(ctx, hotel); err != nil {
		t.Fatalf("Failed to seed hotel: %v", err)
	}

	room := &domain.Room{
		ID:            uuid.New().String(),
		HotelID:       hotel.ID,
		RoomNumber:    "R-" + uuid.New().String()[:8],
		Type:          domain.RoomTypeStandard,
		Capacity:      2,
		PricePerNight: 120,
		IsAvailable:   available,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := NewPostgresRoomRepository(pool).Create(ctx, room); err != nil {
		t.Fatalf("Failed to seed room: %v", err)
	}
	return room
}

func testDate(daysFromNow int) time.Time {
	return time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, daysFromNow)
}

func TestPostgresLockRepository_CreateSerialized(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresLockRepository(pool)
	ctx := context.Background()
	room := seedRoom(t, pool, true)

	lock := domain.NewRoomLock("test-req-hold-1", room.ID, testDate(1), testDate(3), 15*time.Minute, "booking-test")
	if err := repo.CreateSerialized(ctx, lock); err != nil {
		t.Fatalf("CreateSerialized failed: %v", err)
	}

	got, err := repo.GetByRequestID(ctx, "test-req-hold-1")
	if err != nil {
		t.Fatalf("GetByRequestID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected lock to exist")
	}
	if got.Status != domain.LockStatusHeld {
		t.Errorf("expected HELD, got %s", got.Status)
	}
	if got.CorrelationID != "booking-test" {
		t.Errorf("expected correlation id booking-test, got %s", got.CorrelationID)
	}

	// Same request_id again violates the unique index
	dup := domain.NewRoomLock("test-req-hold-1", room.ID, testDate(5), testDate(6), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, dup); !errors.Is(err, domain.ErrLockAlreadyExists) {
		t.Errorf("expected ErrLockAlreadyExists, got %v", err)
	}
}

func TestPostgresLockRepository_ConflictDetection(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresLockRepository(pool)
	ctx := context.Background()
	room := seedRoom(t, pool, true)

	first := domain.NewRoomLock("test-req-a", room.ID, testDate(1), testDate(3), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, first); err != nil {
		t.Fatalf("first hold failed: %v", err)
	}

	// Overlapping stay conflicts
	overlapping := domain.NewRoomLock("test-req-b", room.ID, testDate(2), testDate(4), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, overlapping); !errors.Is(err, domain.ErrLockConflict) {
		t.Errorf("expected ErrLockConflict, got %v", err)
	}

	// Back-to-back stay does not: intervals are half-open
	adjacent := domain.NewRoomLock("test-req-c", room.ID, testDate(3), testDate(5), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, adjacent); err != nil {
		t.Errorf("adjacent hold should succeed, got %v", err)
	}

	conflict, err := repo.HasConflict(ctx, room.ID, testDate(2), testDate(4))
	if err != nil {
		t.Fatalf("HasConflict failed: %v", err)
	}
	if !conflict {
		t.Error("expected conflict for overlapping range")
	}

	conflict, err = repo.HasConflict(ctx, room.ID, testDate(5), testDate(7))
	if err != nil {
		t.Fatalf("HasConflict failed: %v", err)
	}
	if conflict {
		t.Error("expected no conflict for free range")
	}
}

func TestPostgresLockRepository_UnknownAndUnavailableRoom(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresLockRepository(pool)
	ctx := context.Background()

	lock := domain.NewRoomLock("test-req-x", uuid.New().String(), testDate(1), testDate(2), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, lock); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}

	closed := seedRoom(t, pool, false)
	lock = domain.NewRoomLock("test-req-y", closed.ID, testDate(1), testDate(2), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, lock); !errors.Is(err, domain.ErrRoomUnavailable) {
		t.Errorf("expected ErrRoomUnavailable, got %v", err)
	}
}

func TestPostgresLockRepository_Confirm(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresLockRepository(pool)
	roomRepo := NewPostgresRoomRepository(pool)
	ctx := context.Background()
	room := seedRoom(t, pool, true)
	now := time.Now().UTC()

	lock := domain.NewRoomLock("test-req-confirm", room.ID, testDate(1), testDate(3), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, lock); err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	confirmed, err := repo.ConfirmByRequestID(ctx, "test-req-confirm", now)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != domain.LockStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", confirmed.Status)
	}

	// Counter moved with the confirm
	updated, err := roomRepo.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.TimesBooked != 1 {
		t.Errorf("expected times_booked 1, got %d", updated.TimesBooked)
	}

	// Second confirm replays without a second increment
	again, err := repo.ConfirmByRequestID(ctx, "test-req-confirm", now.Add(time.Second))
	if err != nil {
		t.Fatalf("idempotent confirm failed: %v", err)
	}
	if again.Status != domain.LockStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", again.Status)
	}
	updated, _ = roomRepo.GetByID(ctx, room.ID)
	if updated.TimesBooked != 1 {
		t.Errorf("expected times_booked still 1, got %d", updated.TimesBooked)
	}

	if _, err := repo.ConfirmByRequestID(ctx, "test-req-missing", now); !errors.Is(err, domain.ErrLockNotFound) {
		t.Errorf("expected ErrLockNotFound, got %v", err)
	}
}

func TestPostgresLockRepository_ConfirmExpired(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresLockRepository(pool)
	ctx := context.Background()
	room := seedRoom(t, pool, true)
	now := time.Now().UTC()

	// Hold whose expiry is already past
	lock := domain.NewRoomLock("test-req-stale", room.ID, testDate(1), testDate(3), -time.Minute, "")
	if err := repo.CreateSerialized(ctx, lock); err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	if _, err := repo.ConfirmByRequestID(ctx, "test-req-stale", now); !errors.Is(err, domain.ErrLockExpired) {
		t.Errorf("expected ErrLockExpired, got %v", err)
	}
}

func TestPostgresLockRepository_Release(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresLockRepository(pool)
	ctx := context.Background()
	room := seedRoom(t, pool, true)
	now := time.Now().UTC()

	lock := domain.NewRoomLock("test-req-release", room.ID, testDate(1), testDate(3), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, lock); err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	released, err := repo.ReleaseByRequestID(ctx, "test-req-release", now)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if released.Status != domain.LockStatusReleased {
		t.Errorf("expected RELEASED, got %s", released.Status)
	}

	// Released interval frees the room
	conflict, err := repo.HasConflict(ctx, room.ID, testDate(1), testDate(3))
	if err != nil {
		t.Fatalf("HasConflict failed: %v", err)
	}
	if conflict {
		t.Error("released lock should not conflict")
	}

	// Idempotent replay
	again, err := repo.ReleaseByRequestID(ctx, "test-req-release", now.Add(time.Second))
	if err != nil {
		t.Fatalf("idempotent release failed: %v", err)
	}
	if again.Status != domain.LockStatusReleased {
		t.Errorf("expected RELEASED, got %s", again.Status)
	}

	if _, err := repo.ReleaseByRequestID(ctx, "test-req-missing", now); !errors.Is(err, domain.ErrLockNotFound) {
		t.Errorf("expected ErrLockNotFound, got %v", err)
	}
}

func TestPostgresLockRepository_ReleaseConfirmedIsNoOp(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresLockRepository(pool)
	ctx := context.Background()
	room := seedRoom(t, pool, true)
	now := time.Now().UTC()

	lock := domain.NewRoomLock("test-req-keep", room.ID, testDate(1), testDate(3), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, lock); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	if _, err := repo.ConfirmByRequestID(ctx, "test-req-keep", now); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	got, err := repo.ReleaseByRequestID(ctx, "test-req-keep", now.Add(time.Second))
	if err != nil {
		t.Fatalf("release after confirm failed: %v", err)
	}
	if got.Status != domain.LockStatusConfirmed {
		t.Errorf("release must not undo a confirm, got %s", got.Status)
	}
}

func TestPostgresLockRepository_ExpirySweep(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresLockRepository(pool)
	ctx := context.Background()
	room := seedRoom(t, pool, true)
	now := time.Now().UTC()

	stale := domain.NewRoomLock("test-req-sweep-1", room.ID, testDate(1), testDate(3), -time.Minute, "")
	if err := repo.CreateSerialized(ctx, stale); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	fresh := domain.NewRoomLock("test-req-sweep-2", room.ID, testDate(3), testDate(5), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, fresh); err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	expired, err := repo.GetExpired(ctx, now, 100)
	if err != nil {
		t.Fatalf("GetExpired failed: %v", err)
	}
	if len(expired) != 1 || expired[0].RequestID != "test-req-sweep-1" {
		t.Fatalf("expected only the stale lock, got %d", len(expired))
	}

	moved, err := repo.MarkExpired(ctx, expired[0].ID, now)
	if err != nil {
		t.Fatalf("MarkExpired failed: %v", err)
	}
	if !moved {
		t.Error("expected MarkExpired to transition the lock")
	}

	// Second attempt finds the lock already EXPIRED
	moved, err = repo.MarkExpired(ctx, expired[0].ID, now)
	if err != nil {
		t.Fatalf("MarkExpired failed: %v", err)
	}
	if moved {
		t.Error("expected no-op on already expired lock")
	}

	// Expired interval no longer blocks the room
	conflict, err := repo.HasConflict(ctx, room.ID, testDate(1), testDate(3))
	if err != nil {
		t.Fatalf("HasConflict failed: %v", err)
	}
	if conflict {
		t.Error("expired lock should not conflict")
	}
}

func TestPostgresLockRepository_DeleteTerminalBefore(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresLockRepository(pool)
	ctx := context.Background()
	room := seedRoom(t, pool, true)
	now := time.Now().UTC()

	lock := domain.NewRoomLock("test-req-retire", room.ID, testDate(1), testDate(3), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, lock); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	if _, err := repo.ReleaseByRequestID(ctx, "test-req-retire", now); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	// Cutoff before the update keeps the row
	deleted, err := repo.DeleteTerminalBefore(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteTerminalBefore failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deleted, got %d", deleted)
	}

	deleted, err = repo.DeleteTerminalBefore(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteTerminalBefore failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}
}

func TestPostgresLockRepository_CountByStatus(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresLockRepository(pool)
	ctx := context.Background()
	room := seedRoom(t, pool, true)
	now := time.Now().UTC()

	held := domain.NewRoomLock("test-req-count-1", room.ID, testDate(1), testDate(2), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, held); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	confirmed := domain.NewRoomLock("test-req-count-2", room.ID, testDate(2), testDate(3), 15*time.Minute, "")
	if err := repo.CreateSerialized(ctx, confirmed); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	if _, err := repo.ConfirmByRequestID(ctx, "test-req-count-2", now); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts["HELD"] != 1 {
		t.Errorf("expected 1 HELD, got %d", counts["HELD"])
	}
	if counts["CONFIRMED"] != 1 {
		t.Errorf("expected 1 CONFIRMED, got %d", counts["CONFIRMED"])
	}

	locks, err := repo.GetByRoomID(ctx, room.ID, 10, 0)
	if err != nil {
		t.Fatalf("GetByRoomID failed: %v", err)
	}
	if len(locks) != 2 {
		t.Errorf("expected 2 locks for room, got %d", len(locks))
	}
}
