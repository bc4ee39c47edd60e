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

	"github.com/Plvkssh/SmartLodge/internal/booking/domain"
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
		`CREATE TABLE IF NOT EXISTS reservations (
			id VARCHAR(36) PRIMARY KEY,
			request_id VARCHAR(100) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			room_id VARCHAR(36) NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			correlation_id VARCHAR(100),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			CONSTRAINT uk_reservation_request UNIQUE (request_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reservation_user
			ON reservations (user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reservation_status
			ON reservations (status, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to create schema: %v", err)
		}
	}
}

func cleanupTestData(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	if _, err := pool.Exec(ctx, "DELETE FROM reservations"); err != nil {
		t.Logf("Warning: failed to clean up reservations: %v", err)
	}
}

func testDate(daysFromNow int) time.Time {
	return time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, daysFromNow)
}

func TestPostgresReservationRepository_Create(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresReservationRepository(pool)
	ctx := context.Background()

	reservation := domain.NewReservation("test-req-1", "user-1", "room-1", testDate(1), testDate(3))
	if err := repo.Create(ctx, reservation); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByRequestID(ctx, "test-req-1")
	if err != nil {
		t.Fatalf("GetByRequestID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected reservation to exist")
	}
	if got.Status != domain.ReservationStatusPending {
		t.Errorf("expected PENDING, got %s", got.Status)
	}
	if got.CorrelationID != reservation.CorrelationID {
		t.Errorf("expected correlation id %s, got %s", reservation.CorrelationID, got.CorrelationID)
	}
	if got.ID != reservation.ID {
		t.Errorf("expected id %s, got %s", reservation.ID, got.ID)
	}

	// Same request_id again violates the unique index
	dup := domain.NewReservation("test-req-1", "user-2", "room-2", testDate(5), testDate(6))
	if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest, got %v", err)
	}
}

func TestPostgresReservationRepository_GetProbesReturnNil(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresReservationRepository(pool)
	ctx := context.Background()

	got, err := repo.GetByID(ctx, uuid.New().String())
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown id")
	}

	got, err = repo.GetByRequestID(ctx, "test-req-missing")
	if err != nil {
		t.Fatalf("GetByRequestID failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown request_id")
	}
}

func TestPostgresReservationRepository_UpdateStatus(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresReservationRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	reservation := domain.NewReservation("test-req-status", "user-1", "room-1", testDate(1), testDate(3))
	if err := repo.Create(ctx, reservation); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	confirmed, err := repo.UpdateStatus(ctx, reservation.ID, domain.ReservationStatusConfirmed, now)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if confirmed.Status != domain.ReservationStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", confirmed.Status)
	}

	// Writing the same terminal status again replays
	again, err := repo.UpdateStatus(ctx, reservation.ID, domain.ReservationStatusConfirmed, now.Add(time.Second))
	if err != nil {
		t.Fatalf("idempotent UpdateStatus failed: %v", err)
	}
	if again.Status != domain.ReservationStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", again.Status)
	}

	// A different terminal status is rejected
	if _, err := repo.UpdateStatus(ctx, reservation.ID, domain.ReservationStatusCancelled, now); !errors.Is(err, domain.ErrReservationTerminal) {
		t.Errorf("expected ErrReservationTerminal, got %v", err)
	}

	if _, err := repo.UpdateStatus(ctx, uuid.New().String(), domain.ReservationStatusConfirmed, now); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Errorf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestPostgresReservationRepository_GetByUserID(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresReservationRepository(pool)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r := domain.NewReservation(fmt.Sprintf("test-req-user-%d", i), "user-list", "room-1", testDate(i+1), testDate(i+2))
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		// Distinct created_at so the ordering is deterministic
		time.Sleep(5 * time.Millisecond)
	}
	other := domain.NewReservation("test-req-other", "user-other", "room-1", testDate(1), testDate(2))
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	reservations, total, err := repo.GetByUserID(ctx, "user-list", 2, 0)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(reservations) != 2 {
		t.Fatalf("expected 2 reservations on first page, got %d", len(reservations))
	}
	if reservations[0].RequestID != "test-req-user-2" {
		t.Errorf("expected newest first, got %s", reservations[0].RequestID)
	}

	rest, _, err := repo.GetByUserID(ctx, "user-list", 2, 2)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("expected 1 reservation on second page, got %d", len(rest))
	}
}

func TestPostgresReservationRepository_CountByStatus(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresReservationRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	first := domain.NewReservation("test-req-count-1", "user-1", "room-1", testDate(1), testDate(2))
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second := domain.NewReservation("test-req-count-2", "user-1", "room-2", testDate(1), testDate(2))
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, second.ID, domain.ReservationStatusCancelled, now); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts["PENDING"] != 1 {
		t.Errorf("expected 1 PENDING, got %d", counts["PENDING"])
	}
	if counts["CANCELLED"] != 1 {
		t.Errorf("expected 1 CANCELLED, got %d", counts["CANCELLED"])
	}
}
